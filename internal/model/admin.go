// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package model defines domain models and types used throughout the
// application including Admin, Article, and upload structures.
package model

import (
	"time"
)

// RoleAdmin is the only role in the system today. Role is kept as a
// column and a token claim so additional roles can be added without
// changing the auth middleware contract.
const RoleAdmin = "admin"

// MinPasswordLength is the minimum accepted password length.
const MinPasswordLength = 6

// Admin represents an administrator account.
type Admin struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // Never expose in JSON
	Name         string    `json:"name"`
	Role         string    `json:"role"`
	IsActive     bool      `json:"isActive"`
	LastLoginAt  NullTime  `json:"lastLoginAt"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// IsAdmin returns true if the account has the admin role.
func (a *Admin) IsAdmin() bool {
	return a.Role == RoleAdmin
}
