// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/metplant/mcms-go/internal/model"
)

const adminColumns = `id, email, password_hash, name, role, is_active, last_login_at, created_at, updated_at`

func scanAdmin(row interface{ Scan(...any) error }) (model.Admin, error) {
	var a model.Admin
	err := row.Scan(&a.ID, &a.Email, &a.PasswordHash, &a.Name, &a.Role,
		&a.IsActive, &a.LastLoginAt, &a.CreatedAt, &a.UpdatedAt)
	return a, err
}

// CreateAdminParams holds the fields for creating an admin account.
// PasswordHash must already be hashed; raw secrets never reach the store.
type CreateAdminParams struct {
	Email        string
	PasswordHash string
	Name         string
}

// CreateAdmin inserts a new admin account. Returns ErrDuplicateEmail when
// the email is already taken (comparison is case-insensitive).
func (q *Queries) CreateAdmin(ctx context.Context, params CreateAdminParams) (model.Admin, error) {
	now := time.Now()

	res, err := q.db.ExecContext(ctx,
		`INSERT INTO admins (email, password_hash, name, role, is_active, created_at, updated_at)
		 VALUES (?, ?, ?, ?, 1, ?, ?)`,
		params.Email, params.PasswordHash, params.Name, model.RoleAdmin, now, now,
	)
	if err != nil {
		if isUniqueViolation(err, "admins.email") {
			return model.Admin{}, ErrDuplicateEmail
		}
		return model.Admin{}, fmt.Errorf("inserting admin: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return model.Admin{}, fmt.Errorf("reading insert id: %w", err)
	}

	return q.GetAdminByID(ctx, id)
}

// GetAdminByID fetches an admin account by id.
func (q *Queries) GetAdminByID(ctx context.Context, id int64) (model.Admin, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+adminColumns+` FROM admins WHERE id = ?`, id)
	return scanAdmin(row)
}

// GetAdminByEmail fetches an admin account by email, case-insensitively.
func (q *Queries) GetAdminByEmail(ctx context.Context, email string) (model.Admin, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+adminColumns+` FROM admins WHERE email = ? COLLATE NOCASE`, email)
	return scanAdmin(row)
}

// ListAdmins returns all admin accounts ordered by creation time.
func (q *Queries) ListAdmins(ctx context.Context) ([]model.Admin, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT `+adminColumns+` FROM admins ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("listing admins: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var admins []model.Admin
	for rows.Next() {
		a, err := scanAdmin(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning admin: %w", err)
		}
		admins = append(admins, a)
	}
	return admins, rows.Err()
}

// CountAdmins returns the total number of admin accounts.
func (q *Queries) CountAdmins(ctx context.Context) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM admins`).Scan(&count)
	return count, err
}

// UpdateAdminParams holds the mutable profile fields of an admin account.
type UpdateAdminParams struct {
	ID       int64
	Email    string
	Name     string
	IsActive bool
}

// UpdateAdmin updates profile fields of an admin account. The password
// hash is never touched here; use UpdateAdminPassword for that. Returns
// sql.ErrNoRows if the account does not exist and ErrDuplicateEmail when
// the new email collides with another account.
func (q *Queries) UpdateAdmin(ctx context.Context, params UpdateAdminParams) (model.Admin, error) {
	res, err := q.db.ExecContext(ctx,
		`UPDATE admins SET email = ?, name = ?, is_active = ?, updated_at = ? WHERE id = ?`,
		params.Email, params.Name, params.IsActive, time.Now(), params.ID,
	)
	if err != nil {
		if isUniqueViolation(err, "admins.email") {
			return model.Admin{}, ErrDuplicateEmail
		}
		return model.Admin{}, fmt.Errorf("updating admin: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return model.Admin{}, fmt.Errorf("reading affected rows: %w", err)
	}
	if affected == 0 {
		return model.Admin{}, sql.ErrNoRows
	}

	return q.GetAdminByID(ctx, params.ID)
}

// UpdateAdminPassword replaces the stored password hash.
func (q *Queries) UpdateAdminPassword(ctx context.Context, id int64, passwordHash string) error {
	res, err := q.db.ExecContext(ctx,
		`UPDATE admins SET password_hash = ?, updated_at = ? WHERE id = ?`,
		passwordHash, time.Now(), id,
	)
	if err != nil {
		return fmt.Errorf("updating password: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading affected rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// TouchAdminLastLogin records the current time as the account's last login.
func (q *Queries) TouchAdminLastLogin(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE admins SET last_login_at = ? WHERE id = ?`, time.Now(), id)
	return err
}

// DeleteAdmin removes an admin account. Returns sql.ErrNoRows if it does
// not exist, and ErrAdminHasArticles while articles still reference it as
// their author.
func (q *Queries) DeleteAdmin(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM admins WHERE id = ?`, id)
	if err != nil {
		if strings.Contains(err.Error(), "FOREIGN KEY constraint failed") {
			return ErrAdminHasArticles
		}
		return fmt.Errorf("deleting admin: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading affected rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// isUniqueViolation reports whether err is a UNIQUE constraint failure on
// the given column, matched against the driver's error message.
func isUniqueViolation(err error, column string) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed: "+column)
}
