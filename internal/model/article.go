// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"time"
)

// Article statuses
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
	StatusArchived  = "archived"
)

// Article categories
const (
	CategoryNews     = "news"
	CategoryProducts = "products"
	CategoryServices = "services"
	CategoryAbout    = "about"
	CategoryGeneral  = "general"
)

// ValidStatuses contains all valid article statuses.
var ValidStatuses = []string{StatusDraft, StatusPublished, StatusArchived}

// ValidCategories contains all valid article categories.
var ValidCategories = []string{CategoryNews, CategoryProducts, CategoryServices, CategoryAbout, CategoryGeneral}

// MaxTitleLength limits article titles.
const MaxTitleLength = 200

// MaxExcerptLength limits article excerpts.
const MaxExcerptLength = 500

// FeaturedImage describes the lead image of an article.
type FeaturedImage struct {
	URL     string `json:"url,omitempty"`
	Alt     string `json:"alt,omitempty"`
	Caption string `json:"caption,omitempty"`
}

// Author is the public projection of an article's author: name and email
// only, never the full account.
type Author struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// SEO holds search engine metadata for an article.
type SEO struct {
	MetaTitle       string   `json:"metaTitle,omitempty"`
	MetaDescription string   `json:"metaDescription,omitempty"`
	Keywords        []string `json:"keywords,omitempty"`
}

// Article represents a published or draft content entity.
// The slug is derived from the title once and never regenerated;
// PublishedAt records the first transition into the published status.
type Article struct {
	ID            int64         `json:"id"`
	Title         string        `json:"title"`
	Slug          string        `json:"slug"`
	Content       string        `json:"content"`
	Excerpt       string        `json:"excerpt,omitempty"`
	FeaturedImage FeaturedImage `json:"featuredImage"`
	Category      string        `json:"category"`
	Tags          []string      `json:"tags"`
	Status        string        `json:"status"`
	IsFeatured    bool          `json:"isFeatured"`
	AuthorID      int64         `json:"authorId"`
	Author        Author        `json:"author"`
	PublishedAt   NullTime      `json:"publishedAt"`
	Views         int64         `json:"views"`
	SEO           SEO           `json:"seo"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

// IsPublished returns true if the article is published.
func (a *Article) IsPublished() bool {
	return a.Status == StatusPublished
}

// IsValidStatus checks if a status value belongs to the closed enumeration.
func IsValidStatus(status string) bool {
	for _, s := range ValidStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// IsValidCategory checks if a category value belongs to the closed enumeration.
func IsValidCategory(category string) bool {
	for _, c := range ValidCategories {
		if c == category {
			return true
		}
	}
	return false
}
