package store

import (
	"database/sql"
	"errors"
)

// Store-level failure conditions mapped to the API error taxonomy at the
// handler boundary.
var (
	ErrDuplicateEmail   = errors.New("email already exists")
	ErrDuplicateSlug    = errors.New("slug already exists")
	ErrAdminHasArticles = errors.New("admin still referenced by articles")
)

// Queries provides typed access to the database.
type Queries struct {
	db *sql.DB
}

// New creates a Queries instance bound to the given database.
func New(db *sql.DB) *Queries {
	return &Queries{db: db}
}
