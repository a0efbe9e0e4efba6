// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package service provides business logic services.
package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/metplant/mcms-go/internal/model"
	"github.com/metplant/mcms-go/internal/store"
	"github.com/metplant/mcms-go/internal/util"
)

// ValidationError carries a field-to-reason map for invalid input.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, reason := range e.Fields {
		parts = append(parts, field+": "+reason)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Articles applies the publication workflow on top of the article store:
// slug derivation, publish-once semantics, and input validation.
type Articles struct {
	queries *store.Queries
}

// NewArticles creates the article service.
func NewArticles(db *sql.DB) *Articles {
	return &Articles{queries: store.New(db)}
}

// ArticleInput is the mutable article payload accepted from the API.
type ArticleInput struct {
	Title         string              `json:"title"`
	Slug          string              `json:"slug"`
	Content       string              `json:"content"`
	Excerpt       string              `json:"excerpt"`
	FeaturedImage model.FeaturedImage `json:"featuredImage"`
	Category      string              `json:"category"`
	Tags          []string            `json:"tags"`
	Status        string              `json:"status"`
	IsFeatured    bool                `json:"isFeatured"`
	SEO           model.SEO           `json:"seo"`
}

// normalize fills enum defaults the way the public API documents them.
func (in *ArticleInput) normalize() {
	in.Title = strings.TrimSpace(in.Title)
	if in.Category == "" {
		in.Category = model.CategoryGeneral
	}
	if in.Status == "" {
		in.Status = model.StatusDraft
	}
}

// validate checks the input and returns a field-keyed reason map.
func (in *ArticleInput) validate() map[string]string {
	fields := make(map[string]string)

	if in.Title == "" {
		fields["title"] = "Title is required"
	} else if len(in.Title) > model.MaxTitleLength {
		fields["title"] = fmt.Sprintf("Title must not exceed %d characters", model.MaxTitleLength)
	}
	if in.Content == "" {
		fields["content"] = "Content is required"
	}
	if len(in.Excerpt) > model.MaxExcerptLength {
		fields["excerpt"] = fmt.Sprintf("Excerpt must not exceed %d characters", model.MaxExcerptLength)
	}
	if !model.IsValidCategory(in.Category) {
		fields["category"] = "Category must be one of: " + strings.Join(model.ValidCategories, ", ")
	}
	if !model.IsValidStatus(in.Status) {
		fields["status"] = "Status must be one of: " + strings.Join(model.ValidStatuses, ", ")
	}
	if in.Slug != "" && !util.IsValidSlug(in.Slug) {
		fields["slug"] = "Slug may only contain lowercase letters, digits and single hyphens"
	}

	if len(fields) == 0 {
		return nil
	}
	return fields
}

// Create validates the input, derives the slug, and persists a new
// article. The slug is derived from the title only when not supplied;
// either way it is fixed for the article's lifetime.
func (s *Articles) Create(ctx context.Context, input ArticleInput, authorID int64) (model.Article, error) {
	input.normalize()
	if fields := input.validate(); fields != nil {
		return model.Article{}, &ValidationError{Fields: fields}
	}

	slug := input.Slug
	if slug == "" {
		slug = util.Slugify(input.Title)
	}
	if slug == "" {
		// Title stripped to nothing, e.g. all punctuation
		slug = "article-" + uuid.New().String()[:8]
	}

	return s.queries.CreateArticle(ctx, store.CreateArticleParams{
		Title:         input.Title,
		Slug:          slug,
		Content:       input.Content,
		Excerpt:       input.Excerpt,
		FeaturedImage: input.FeaturedImage,
		Category:      input.Category,
		Tags:          input.Tags,
		Status:        input.Status,
		IsFeatured:    input.IsFeatured,
		AuthorID:      authorID,
		PublishedAt:   publishStamp(input.Status, model.NullTime{}),
		SEO:           input.SEO,
	})
}

// Update validates the input and persists changes to an existing article.
// The slug is never regenerated, even when the title changes, and
// publishedAt keeps recording the first publication.
func (s *Articles) Update(ctx context.Context, id int64, input ArticleInput) (model.Article, error) {
	existing, err := s.queries.GetArticleByID(ctx, id)
	if err != nil {
		return model.Article{}, err
	}

	input.normalize()
	if fields := input.validate(); fields != nil {
		return model.Article{}, &ValidationError{Fields: fields}
	}

	return s.queries.UpdateArticle(ctx, store.UpdateArticleParams{
		ID:            id,
		Title:         input.Title,
		Content:       input.Content,
		Excerpt:       input.Excerpt,
		FeaturedImage: input.FeaturedImage,
		Category:      input.Category,
		Tags:          input.Tags,
		Status:        input.Status,
		IsFeatured:    input.IsFeatured,
		PublishedAt:   publishStamp(input.Status, existing.PublishedAt),
		SEO:           input.SEO,
	})
}

// UpdateStatus transitions an article to the given status, stamping
// publishedAt on the first transition into published.
func (s *Articles) UpdateStatus(ctx context.Context, id int64, status string) (model.Article, error) {
	if !model.IsValidStatus(status) {
		return model.Article{}, &ValidationError{Fields: map[string]string{
			"status": "Status must be one of: " + strings.Join(model.ValidStatuses, ", "),
		}}
	}

	existing, err := s.queries.GetArticleByID(ctx, id)
	if err != nil {
		return model.Article{}, err
	}

	return s.queries.UpdateArticleStatus(ctx, id, status, publishStamp(status, existing.PublishedAt))
}

// publishStamp returns the publish timestamp to persist for a status
// transition: an existing stamp is never touched, and a first transition
// into published sets it to now. publishedAt records first publication,
// not latest.
func publishStamp(status string, current model.NullTime) model.NullTime {
	if current.Valid {
		return current
	}
	if status == model.StatusPublished {
		return model.NullTimeFrom(time.Now())
	}
	return model.NullTime{}
}

// ReadPublished returns a published article by slug and counts the view.
// The increment is applied as a store-level delta after the status check.
func (s *Articles) ReadPublished(ctx context.Context, slug string) (model.Article, error) {
	article, err := s.queries.GetPublishedArticleBySlug(ctx, slug)
	if err != nil {
		return model.Article{}, err
	}
	return s.queries.IncrementArticleViews(ctx, article.ID)
}
