// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/metplant/mcms-go/internal/auth"
)

// SeedAdmin creates the bootstrap admin account when no accounts exist.
// With accounts present, or without a configured password, it does nothing:
// the one-time registration endpoint remains the other bootstrap path.
func SeedAdmin(ctx context.Context, db *sql.DB, email, password, name string) error {
	queries := New(db)

	count, err := queries.CountAdmins(ctx)
	if err != nil {
		return fmt.Errorf("counting admins: %w", err)
	}
	if count > 0 {
		slog.Info("admin accounts already exist, skipping seed")
		return nil
	}

	if password == "" {
		slog.Info("no bootstrap admin password configured, skipping seed")
		return nil
	}

	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hashing password: %w", err)
	}

	admin, err := queries.CreateAdmin(ctx, CreateAdminParams{
		Email:        email,
		PasswordHash: passwordHash,
		Name:         name,
	})
	if err != nil {
		// A concurrent bootstrap registration may have won the race
		if errors.Is(err, ErrDuplicateEmail) {
			slog.Info("admin account appeared during seed, skipping")
			return nil
		}
		return fmt.Errorf("creating bootstrap admin: %w", err)
	}

	slog.Info("created bootstrap admin account", "id", admin.ID, "email", admin.Email)
	return nil
}
