// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package middleware provides HTTP middleware for authentication,
// authorization, and request throttling.
package middleware

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/metplant/mcms-go/internal/auth"
	"github.com/metplant/mcms-go/internal/model"
	"github.com/metplant/mcms-go/internal/store"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

// ContextKeyAdmin is the context key for the authenticated admin.
const ContextKeyAdmin ContextKey = "admin"

// writeAuthError writes a JSON error in the API envelope shape.
func writeAuthError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success":   false,
		"message":   message,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// bearerToken extracts the token from an Authorization header.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// Auth creates middleware that requires a valid bearer token. The token
// subject is loaded from the database on every request so deactivated or
// deleted accounts lose access immediately, not at token expiry.
func Auth(db *sql.DB, tokens *auth.TokenService) func(http.Handler) http.Handler {
	queries := store.New(db)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" {
				writeAuthError(w, http.StatusUnauthorized, "Authentication required, use: Bearer <token>")
				return
			}

			claims, err := tokens.Verify(token)
			if err != nil {
				if errors.Is(err, auth.ErrTokenExpired) {
					writeAuthError(w, http.StatusUnauthorized, "Token has expired, please log in again")
				} else {
					writeAuthError(w, http.StatusUnauthorized, "Invalid authentication token")
				}
				return
			}

			admin, err := queries.GetAdminByID(r.Context(), claims.AdminID)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					writeAuthError(w, http.StatusUnauthorized, "Account no longer exists")
				} else {
					slog.Error("loading admin for auth", "error", err, "admin_id", claims.AdminID)
					writeAuthError(w, http.StatusInternalServerError, "Authentication check failed")
				}
				return
			}

			if !admin.IsActive {
				writeAuthError(w, http.StatusUnauthorized, "Account is deactivated")
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyAdmin, admin)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireAdmin creates middleware that requires the admin role. It must
// run after Auth.
func RequireAdmin() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			admin := GetAdmin(r)
			if admin == nil {
				writeAuthError(w, http.StatusUnauthorized, "Authentication required")
				return
			}

			if !admin.IsAdmin() {
				slog.Warn("access denied",
					"status", http.StatusForbidden,
					"method", r.Method,
					"path", r.URL.Path,
					"admin_id", admin.ID,
					"role", admin.Role,
				)
				writeAuthError(w, http.StatusForbidden, "Admin privileges required")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// GetAdmin retrieves the authenticated admin from the request context.
// Returns nil if no admin is in context.
func GetAdmin(r *http.Request) *model.Admin {
	admin, ok := r.Context().Value(ContextKeyAdmin).(model.Admin)
	if !ok {
		return nil
	}
	return &admin
}

// GetAdminID returns the authenticated admin's ID, or 0 if not found.
// Safe to use in logging where a zero-value is acceptable.
func GetAdminID(r *http.Request) int64 {
	if admin := GetAdmin(r); admin != nil {
		return admin.ID
	}
	return 0
}
