// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/metplant/mcms-go/internal/auth"
	"github.com/metplant/mcms-go/internal/middleware"
	"github.com/metplant/mcms-go/internal/model"
	"github.com/metplant/mcms-go/internal/store"
)

// AdminHandler serves the dashboard and admin-account management
// endpoints. All routes require the admin role.
type AdminHandler struct {
	queries *store.Queries
}

// NewAdminHandler creates the admin handler.
func NewAdminHandler(db *sql.DB) *AdminHandler {
	return &AdminHandler{queries: store.New(db)}
}

// dashboardListSize is how many recent and popular articles the
// dashboard shows.
const dashboardListSize = 5

// Dashboard handles GET /api/admin/dashboard.
func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	totalArticles, err := h.queries.CountArticles(ctx, store.ListArticlesParams{})
	if err != nil {
		writeServerError(w, r, err)
		return
	}
	byStatus, err := h.queries.ArticleStatusCounts(ctx)
	if err != nil {
		writeServerError(w, r, err)
		return
	}
	totalViews, err := h.queries.TotalArticleViews(ctx)
	if err != nil {
		writeServerError(w, r, err)
		return
	}
	totalAdmins, err := h.queries.CountAdmins(ctx)
	if err != nil {
		writeServerError(w, r, err)
		return
	}
	recent, err := h.queries.RecentArticles(ctx, dashboardListSize)
	if err != nil {
		writeServerError(w, r, err)
		return
	}
	popular, err := h.queries.PopularArticles(ctx, dashboardListSize)
	if err != nil {
		writeServerError(w, r, err)
		return
	}

	statusCounts := map[string]int64{
		model.StatusDraft:     0,
		model.StatusPublished: 0,
		model.StatusArchived:  0,
	}
	for _, c := range byStatus {
		statusCounts[c.Status] = c.Count
	}

	writeSuccess(w, http.StatusOK, "", map[string]any{
		"stats": map[string]any{
			"totalArticles":     totalArticles,
			"publishedArticles": statusCounts[model.StatusPublished],
			"draftArticles":     statusCounts[model.StatusDraft],
			"archivedArticles":  statusCounts[model.StatusArchived],
			"totalViews":        totalViews,
			"totalAdmins":       totalAdmins,
		},
		"recentArticles":  recent,
		"popularArticles": popular,
	})
}

// ListAdmins handles GET /api/admin/admins.
func (h *AdminHandler) ListAdmins(w http.ResponseWriter, r *http.Request) {
	admins, err := h.queries.ListAdmins(r.Context())
	if err != nil {
		writeServerError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "", map[string]any{"admins": admins})
}

// CreateAdmin handles POST /api/admin/admins.
func (h *AdminHandler) CreateAdmin(w http.ResponseWriter, r *http.Request) {
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

	writeSuccess(w, http.StatusCreated, "Admin account created successfully", map[string]any{"admin": admin})
}

// UpdateAdmin handles PUT /api/admin/admins/{id}. The caller's own account
// is off limits regardless of payload; self-edits go through PUT
// /auth/profile instead.
func (h *AdminHandler) UpdateAdmin(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	if id == middleware.GetAdminID(r) {
		writeError(w, http.StatusForbidden, "You cannot modify your own account here, use your profile")
		return
	}

	var body struct {
		Email    string `json:"email"`
		Name     string `json:"name"`
		IsActive *bool  `json:"isActive"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	body.Email = strings.TrimSpace(body.Email)
	body.Name = strings.TrimSpace(body.Name)

	existing, err := h.queries.GetAdminByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err, "Admin account not found")
		return
	}

	// Absent fields keep their current values
	if body.Email == "" {
		body.Email = existing.Email
	}
	if body.Name == "" {
		body.Name = existing.Name
	}
	isActive := existing.IsActive
	if body.IsActive != nil {
		isActive = *body.IsActive
	}

	fields := make(map[string]string)
	if msg := validateEmail(body.Email); msg != "" {
		fields["email"] = msg
	}
	if len(fields) > 0 {
		writeValidationError(w, fields)
		return
	}

	updated, err := h.queries.UpdateAdmin(r.Context(), store.UpdateAdminParams{
		ID:       id,
		Email:    body.Email,
		Name:     body.Name,
		IsActive: isActive,
	})
	if err != nil {
		writeServiceError(w, r, err, "Admin account not found")
		return
	}

	writeSuccess(w, http.StatusOK, "Admin account updated successfully", map[string]any{"admin": updated})
}

// DeleteAdmin handles DELETE /api/admin/admins/{id}. Deleting your own
// account is refused for the same reason deactivation is.
func (h *AdminHandler) DeleteAdmin(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}

	if id == middleware.GetAdminID(r) {
		writeError(w, http.StatusForbidden, "You cannot delete your own account")
		return
	}

	if err := h.queries.DeleteAdmin(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrAdminHasArticles) {
			writeError(w, http.StatusBadRequest, "Cannot delete an account that has authored articles")
			return
		}
		writeServiceError(w, r, err, "Admin account not found")
		return
	}
	writeSuccess(w, http.StatusOK, "Admin account deleted successfully", nil)
}

// SiteSettings is the site configuration the admin UI edits.
type SiteSettings struct {
	SiteName        string `json:"siteName"`
	SiteDescription string `json:"siteDescription"`
	ContactEmail    string `json:"contactEmail"`
	ContactPhone    string `json:"contactPhone"`
	SocialMedia     struct {
		VK       string `json:"vk"`
		Telegram string `json:"telegram"`
		WhatsApp string `json:"whatsapp"`
	} `json:"socialMedia"`
	SEO struct {
		DefaultTitle       string   `json:"defaultTitle"`
		DefaultDescription string   `json:"defaultDescription"`
		Keywords           []string `json:"keywords"`
	} `json:"seo"`
}

func defaultSettings() SiteSettings {
	var s SiteSettings
	s.SiteName = "Metal Structures Plant"
	s.SiteDescription = "Production and sale of metal structures"
	s.ContactEmail = "info@metall-plant.com"
	s.ContactPhone = "+7 (XXX) XXX-XX-XX"
	s.SEO.DefaultTitle = s.SiteName
	s.SEO.DefaultDescription = s.SiteDescription
	s.SEO.Keywords = []string{"metal structures", "production", "plant"}
	return s
}

// Settings handles GET /api/admin/settings.
func (h *AdminHandler) Settings(w http.ResponseWriter, r *http.Request) {
	writeSuccess(w, http.StatusOK, "", map[string]any{"settings": defaultSettings()})
}

// UpdateSettings handles PUT /api/admin/settings. The accepted payload is
// echoed back without being stored.
// TODO: persist settings once a settings table exists.
func (h *AdminHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var settings SiteSettings
	if err := decodeJSON(r, &settings); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	writeSuccess(w, http.StatusOK, "Settings updated successfully", map[string]any{"settings": settings})
}

// Logs handles GET /api/admin/logs: recent login activity derived from
// the admin accounts.
func (h *AdminHandler) Logs(w http.ResponseWriter, r *http.Request) {
	admins, err := h.queries.ListAdmins(r.Context())
	if err != nil {
		writeServerError(w, r, err)
		return
	}

	type logEntry struct {
		Action      string    `json:"action"`
		Description string    `json:"description"`
		Timestamp   time.Time `json:"timestamp"`
		Admin       string    `json:"admin"`
	}
	logs := make([]logEntry, 0, len(admins))
	for _, a := range admins {
		if !a.LastLoginAt.Valid {
			continue
		}
		logs = append(logs, logEntry{
			Action:      "login",
			Description: a.Name + " logged in",
			Timestamp:   a.LastLoginAt.Time,
			Admin:       a.Email,
		})
	}
	sort.Slice(logs, func(i, j int) bool { return logs[i].Timestamp.After(logs[j].Timestamp) })

	writeSuccess(w, http.StatusOK, "", map[string]any{"logs": logs})
}
