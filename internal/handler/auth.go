// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"net/mail"
	"strings"

	"github.com/metplant/mcms-go/internal/auth"
	"github.com/metplant/mcms-go/internal/middleware"
	"github.com/metplant/mcms-go/internal/model"
	"github.com/metplant/mcms-go/internal/store"
)

// AuthHandler serves registration, login, and self-service account
// endpoints.
type AuthHandler struct {
	queries *store.Queries
	tokens  *auth.TokenService
}

// NewAuthHandler creates the auth handler.
func NewAuthHandler(db *sql.DB, tokens *auth.TokenService) *AuthHandler {
	return &AuthHandler{queries: store.New(db), tokens: tokens}
}

// credentialError is the single message for every login failure so the
// response never reveals whether the email exists.
const credentialError = "Invalid email or password"

func validateEmail(email string) string {
	if email == "" {
		return "Email is required"
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "Email is not a valid address"
	}
	return ""
}

func validatePassword(password string) string {
	if password == "" {
		return "Password is required"
	}
	if len(password) < model.MinPasswordLength {
		return "Password must be at least 6 characters"
	}
	return ""
}

// Register handles POST /api/auth/register. It works exactly once: as
// soon as any admin account exists the endpoint is closed and new
// accounts go through the authenticated admin management API.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	count, err := h.queries.CountAdmins(r.Context())
	if err != nil {
		writeServerError(w, r, err)
		return
	}
	if count > 0 {
		writeError(w, http.StatusForbidden, "Registration is closed, ask an administrator to create your account")
		return
	}

	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Name     string `json:"name"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	body.Email = strings.TrimSpace(body.Email)
	body.Name = strings.TrimSpace(body.Name)

	fields := make(map[string]string)
	if msg := validateEmail(body.Email); msg != "" {
		fields["email"] = msg
	}
	if msg := validatePassword(body.Password); msg != "" {
		fields["password"] = msg
	}
	if body.Name == "" {
		fields["name"] = "Name is required"
	}
	if len(fields) > 0 {
		writeValidationError(w, fields)
		return
	}

	passwordHash, err := auth.HashPassword(body.Password)
	if err != nil {
		writeServerError(w, r, err)
		return
	}

	admin, err := h.queries.CreateAdmin(r.Context(), store.CreateAdminParams{
		Email:        body.Email,
		PasswordHash: passwordHash,
		Name:         body.Name,
	})
	if err != nil {
		writeServiceError(w, r, err, "Account not found")
		return
	}

	token, err := h.tokens.Issue(admin.ID, admin.Role)
	if err != nil {
		writeServerError(w, r, err)
		return
	}

	slog.Info("bootstrap admin registered", "id", admin.ID, "email", admin.Email)
	writeSuccess(w, http.StatusCreated, "Account created successfully", map[string]any{
		"token": token,
		"admin": admin,
	})
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	fields := make(map[string]string)
	if strings.TrimSpace(body.Email) == "" {
		fields["email"] = "Email is required"
	}
	if body.Password == "" {
		fields["password"] = "Password is required"
	}
	if len(fields) > 0 {
		writeValidationError(w, fields)
		return
	}

	admin, err := h.queries.GetAdminByEmail(r.Context(), body.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusUnauthorized, credentialError)
			return
		}
		writeServerError(w, r, err)
		return
	}

	if !admin.IsActive {
		writeError(w, http.StatusUnauthorized, "Account is deactivated")
		return
	}

	match, err := auth.CheckPassword(body.Password, admin.PasswordHash)
	if err != nil {
		writeServerError(w, r, err)
		return
	}
	if !match {
		writeError(w, http.StatusUnauthorized, credentialError)
		return
	}

	// Best effort only. A failed timestamp write must not block the login.
	if err := h.queries.TouchAdminLastLogin(r.Context(), admin.ID); err != nil {
		slog.Warn("updating last login", "error", err, "admin_id", admin.ID)
	}

	token, err := h.tokens.Issue(admin.ID, admin.Role)
	if err != nil {
		writeServerError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, "Logged in successfully", map[string]any{
		"token": token,
		"admin": admin,
	})
}

// Me handles GET /api/auth/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	admin := middleware.GetAdmin(r)
	if admin == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}
	writeSuccess(w, http.StatusOK, "", map[string]any{"admin": admin})
}

// Logout handles POST /api/auth/logout. Tokens are stateless, so logout
// is a client-side discard; the endpoint exists so clients have a
// uniform call to make.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, http.StatusOK, "Logged out successfully", nil)
}

// UpdateProfile handles PUT /api/auth/profile for the authenticated
// account's own name and email.
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	admin := middleware.GetAdmin(r)
	if admin == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var body struct {
		Email string `json:"email"`
		Name  string `json:"name"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	body.Email = strings.TrimSpace(body.Email)
	body.Name = strings.TrimSpace(body.Name)

	fields := make(map[string]string)
	if msg := validateEmail(body.Email); msg != "" {
		fields["email"] = msg
	}
	if body.Name == "" {
		fields["name"] = "Name is required"
	}
	if len(fields) > 0 {
		writeValidationError(w, fields)
		return
	}

	updated, err := h.queries.UpdateAdmin(r.Context(), store.UpdateAdminParams{
		ID:       admin.ID,
		Email:    body.Email,
		Name:     body.Name,
		IsActive: admin.IsActive,
	})
	if err != nil {
		writeServiceError(w, r, err, "Account not found")
		return
	}

	writeSuccess(w, http.StatusOK, "Profile updated successfully", map[string]any{"admin": updated})
}

// ChangePassword handles PUT /api/auth/change-password.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	admin := middleware.GetAdmin(r)
	if admin == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var body struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if msg := validatePassword(body.NewPassword); msg != "" {
		writeValidationError(w, map[string]string{"newPassword": msg})
		return
	}

	match, err := auth.CheckPassword(body.CurrentPassword, admin.PasswordHash)
	if err != nil {
		writeServerError(w, r, err)
		return
	}
	if !match {
		writeError(w, http.StatusUnauthorized, "Current password is incorrect")
		return
	}

	passwordHash, err := auth.HashPassword(body.NewPassword)
	if err != nil {
		writeServerError(w, r, err)
		return
	}
	if err := h.queries.UpdateAdminPassword(r.Context(), admin.ID, passwordHash); err != nil {
		writeServiceError(w, r, err, "Account not found")
		return
	}

	writeSuccess(w, http.StatusOK, "Password changed successfully", nil)
}
