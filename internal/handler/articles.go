// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/metplant/mcms-go/internal/middleware"
	"github.com/metplant/mcms-go/internal/model"
	"github.com/metplant/mcms-go/internal/service"
	"github.com/metplant/mcms-go/internal/store"
)

// ArticlesHandler serves the public catalog and the authenticated article
// management endpoints.
type ArticlesHandler struct {
	queries *store.Queries
	svc     *service.Articles
}

// NewArticlesHandler creates the articles handler.
func NewArticlesHandler(db *sql.DB) *ArticlesHandler {
	return &ArticlesHandler{
		queries: store.New(db),
		svc:     service.NewArticles(db),
	}
}

// listParams builds store filters from the request query.
func listParams(r *http.Request, page, limit int) store.ListArticlesParams {
	q := r.URL.Query()
	return store.ListArticlesParams{
		Status:       q.Get("status"),
		Category:     q.Get("category"),
		Search:       q.Get("search"),
		FeaturedOnly: q.Get("featured") == "true",
		Sort:         q.Get("sort"),
		Limit:        limit,
		Offset:       (page - 1) * limit,
	}
}

// List handles GET /api/articles. Only published articles are visible,
// whatever the query says.
func (h *ArticlesHandler) List(w http.ResponseWriter, r *http.Request) {
	page, limit := parsePageParams(r)
	params := listParams(r, page, limit)
	params.Status = model.StatusPublished

	articles, err := h.queries.ListArticles(r.Context(), params)
	if err != nil {
		writeServerError(w, r, err)
		return
	}
	total, err := h.queries.CountArticles(r.Context(), params)
	if err != nil {
		writeServerError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, "", map[string]any{
		"articles":   articles,
		"pagination": paginate(page, limit, total),
	})
}

// GetBySlug handles GET /api/articles/{slug}. Reading a published article
// counts one view.
func (h *ArticlesHandler) GetBySlug(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "article")

	article, err := h.svc.ReadPublished(r.Context(), slug)
	if err != nil {
		writeServiceError(w, r, err, "Article not found")
		return
	}
	writeSuccess(w, http.StatusOK, "", map[string]any{"article": article})
}

// AdminList handles GET /api/articles/admin/all with full filter access,
// drafts and archived articles included.
func (h *ArticlesHandler) AdminList(w http.ResponseWriter, r *http.Request) {
	page, limit := parsePageParams(r)
	params := listParams(r, page, limit)
	if params.Sort == "" {
		params.Sort = "createdAt"
	}

	articles, err := h.queries.ListArticles(r.Context(), params)
	if err != nil {
		writeServerError(w, r, err)
		return
	}
	total, err := h.queries.CountArticles(r.Context(), params)
	if err != nil {
		writeServerError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, "", map[string]any{
		"articles":   articles,
		"pagination": paginate(page, limit, total),
	})
}

// AdminGet handles GET /api/articles/admin/{id}.
func (h *ArticlesHandler) AdminGet(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "article")
	if !ok {
		return
	}

	article, err := h.queries.GetArticleByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err, "Article not found")
		return
	}
	writeSuccess(w, http.StatusOK, "", map[string]any{"article": article})
}

// Create handles POST /api/articles.
func (h *ArticlesHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input service.ArticleInput
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	article, err := h.svc.Create(r.Context(), input, middleware.GetAdminID(r))
	if err != nil {
		writeServiceError(w, r, err, "Article not found")
		return
	}
	writeSuccess(w, http.StatusCreated, "Article created successfully", map[string]any{"article": article})
}

// Update handles PUT /api/articles/{id}.
func (h *ArticlesHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "article")
	if !ok {
		return
	}

	var input service.ArticleInput
	if err := decodeJSON(r, &input); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	article, err := h.svc.Update(r.Context(), id, input)
	if err != nil {
		writeServiceError(w, r, err, "Article not found")
		return
	}
	writeSuccess(w, http.StatusOK, "Article updated successfully", map[string]any{"article": article})
}

// UpdateStatus handles PATCH /api/articles/{id}/status.
func (h *ArticlesHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "article")
	if !ok {
		return
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := decodeJSON(r, &body); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	article, err := h.svc.UpdateStatus(r.Context(), id, body.Status)
	if err != nil {
		writeServiceError(w, r, err, "Article not found")
		return
	}
	writeSuccess(w, http.StatusOK, "Article status updated successfully", map[string]any{"article": article})
}

// Delete handles DELETE /api/articles/{id}.
func (h *ArticlesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "article")
	if !ok {
		return
	}

	if err := h.queries.DeleteArticle(r.Context(), id); err != nil {
		writeServiceError(w, r, err, "Article not found")
		return
	}
	writeSuccess(w, http.StatusOK, "Article deleted successfully", nil)
}

// Stats handles GET /api/articles/admin/stats/overview.
func (h *ArticlesHandler) Stats(w http.ResponseWriter, r *http.Request) {
	total, err := h.queries.CountArticles(r.Context(), store.ListArticlesParams{})
	if err != nil {
		writeServerError(w, r, err)
		return
	}
	byStatus, err := h.queries.ArticleStatusCounts(r.Context())
	if err != nil {
		writeServerError(w, r, err)
		return
	}
	byCategory, err := h.queries.ArticleCategoryCounts(r.Context())
	if err != nil {
		writeServerError(w, r, err)
		return
	}
	totalViews, err := h.queries.TotalArticleViews(r.Context())
	if err != nil {
		writeServerError(w, r, err)
		return
	}

	writeSuccess(w, http.StatusOK, "", map[string]any{
		"totalArticles": total,
		"byStatus":      byStatus,
		"byCategory":    byCategory,
		"totalViews":    totalViews,
	})
}

// idParam parses a numeric route parameter, replying 400 on garbage.
func idParam(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "Invalid id")
		return 0, false
	}
	return id, true
}
