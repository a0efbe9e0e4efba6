// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/metplant/mcms-go/internal/auth"
	"github.com/metplant/mcms-go/internal/middleware"
	"github.com/metplant/mcms-go/internal/service"
)

// Routes builds the /api router.
func Routes(db *sql.DB, tokens *auth.TokenService, uploads *service.Uploads) chi.Router {
	authHandler := NewAuthHandler(db, tokens)
	articles := NewArticlesHandler(db)
	admin := NewAdminHandler(db)
	upload := NewUploadHandler(uploads)

	requireAuth := middleware.Auth(db, tokens)
	requireAdmin := middleware.RequireAdmin()

	r := chi.NewRouter()

	r.Get("/health", Health(db))

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/me", authHandler.Me)
			r.Post("/logout", authHandler.Logout)
			r.Put("/profile", authHandler.UpdateProfile)
			r.Put("/change-password", authHandler.ChangePassword)
		})
	})

	// Article item routes share the {article} wildcard: a slug for the
	// public read, a numeric id for the authenticated mutations.
	r.Route("/articles", func(r chi.Router) {
		r.Get("/", articles.List)
		r.Get("/{article}", articles.GetBySlug)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth, requireAdmin)
			r.Get("/admin/all", articles.AdminList)
			r.Get("/admin/stats/overview", articles.Stats)
			r.Get("/admin/{article}", articles.AdminGet)
			r.Post("/", articles.Create)
			r.Put("/{article}", articles.Update)
			r.Patch("/{article}/status", articles.UpdateStatus)
			r.Delete("/{article}", articles.Delete)
		})
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(requireAuth, requireAdmin)
		r.Get("/dashboard", admin.Dashboard)
		r.Get("/admins", admin.ListAdmins)
		r.Post("/admins", admin.CreateAdmin)
		r.Put("/admins/{id}", admin.UpdateAdmin)
		r.Delete("/admins/{id}", admin.DeleteAdmin)
		r.Get("/settings", admin.Settings)
		r.Put("/settings", admin.UpdateSettings)
		r.Get("/logs", admin.Logs)
	})

	r.Route("/upload", func(r chi.Router) {
		r.Use(requireAuth, requireAdmin)
		r.Post("/single", upload.UploadImage)
		r.Post("/multiple", upload.UploadImages)
		r.Get("/list", upload.ListImages)
		r.Delete("/{filename}", upload.DeleteImage)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "Route not found")
	})

	return r
}

// Health returns a liveness handler that also checks the database.
func Health(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "Database unavailable")
			return
		}
		writeSuccess(w, http.StatusOK, "", map[string]any{"status": "ok"})
	}
}
