// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/metplant/mcms-go/internal/model"
)

const articleColumns = `a.id, a.title, a.slug, a.content, a.excerpt,
	a.featured_image_url, a.featured_image_alt, a.featured_image_caption,
	a.category, a.tags, a.status, a.is_featured, a.author_id, a.published_at, a.views,
	a.seo_meta_title, a.seo_meta_description, a.seo_keywords, a.created_at, a.updated_at,
	au.name, au.email`

// articleFrom joins the author so every article read carries the
// name/email projection.
const articleFrom = ` FROM articles a JOIN admins au ON au.id = a.author_id`

func scanArticle(row interface{ Scan(...any) error }) (model.Article, error) {
	var a model.Article
	var tags, keywords string
	err := row.Scan(&a.ID, &a.Title, &a.Slug, &a.Content, &a.Excerpt,
		&a.FeaturedImage.URL, &a.FeaturedImage.Alt, &a.FeaturedImage.Caption,
		&a.Category, &tags, &a.Status, &a.IsFeatured, &a.AuthorID, &a.PublishedAt, &a.Views,
		&a.SEO.MetaTitle, &a.SEO.MetaDescription, &keywords, &a.CreatedAt, &a.UpdatedAt,
		&a.Author.Name, &a.Author.Email)
	if err != nil {
		return model.Article{}, err
	}

	a.Tags = decodeStringList(tags)
	a.SEO.Keywords = decodeStringList(keywords)
	return a, nil
}

// decodeStringList decodes a JSON-encoded string list column.
// A corrupt value degrades to an empty list rather than failing the read.
func decodeStringList(raw string) []string {
	list := []string{}
	if raw != "" {
		_ = json.Unmarshal([]byte(raw), &list)
	}
	return list
}

// encodeStringList encodes a string list for storage in a TEXT column.
func encodeStringList(list []string) string {
	if list == nil {
		list = []string{}
	}
	encoded, _ := json.Marshal(list)
	return string(encoded)
}

// CreateArticleParams holds the fields for creating an article.
// The slug must already be derived and unique; see service.Articles.
type CreateArticleParams struct {
	Title         string
	Slug          string
	Content       string
	Excerpt       string
	FeaturedImage model.FeaturedImage
	Category      string
	Tags          []string
	Status        string
	IsFeatured    bool
	AuthorID      int64
	PublishedAt   model.NullTime
	SEO           model.SEO
}

// CreateArticle inserts a new article. Returns ErrDuplicateSlug when the
// slug is already taken.
func (q *Queries) CreateArticle(ctx context.Context, params CreateArticleParams) (model.Article, error) {
	now := time.Now()

	res, err := q.db.ExecContext(ctx,
		`INSERT INTO articles (title, slug, content, excerpt,
			featured_image_url, featured_image_alt, featured_image_caption,
			category, tags, status, is_featured, author_id, published_at, views,
			seo_meta_title, seo_meta_description, seo_keywords, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?, ?, ?, ?)`,
		params.Title, params.Slug, params.Content, params.Excerpt,
		params.FeaturedImage.URL, params.FeaturedImage.Alt, params.FeaturedImage.Caption,
		params.Category, encodeStringList(params.Tags), params.Status, params.IsFeatured,
		params.AuthorID, params.PublishedAt,
		params.SEO.MetaTitle, params.SEO.MetaDescription, encodeStringList(params.SEO.Keywords),
		now, now,
	)
	if err != nil {
		if isUniqueViolation(err, "articles.slug") {
			return model.Article{}, ErrDuplicateSlug
		}
		return model.Article{}, fmt.Errorf("inserting article: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return model.Article{}, fmt.Errorf("reading insert id: %w", err)
	}

	return q.GetArticleByID(ctx, id)
}

// GetArticleByID fetches an article by id regardless of status.
func (q *Queries) GetArticleByID(ctx context.Context, id int64) (model.Article, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+articleColumns+articleFrom+` WHERE a.id = ?`, id)
	return scanArticle(row)
}

// GetPublishedArticleBySlug fetches a published article by slug. Articles
// in other statuses are invisible to this lookup.
func (q *Queries) GetPublishedArticleBySlug(ctx context.Context, slug string) (model.Article, error) {
	row := q.db.QueryRowContext(ctx,
		`SELECT `+articleColumns+articleFrom+` WHERE a.slug = ? AND a.status = ?`,
		slug, model.StatusPublished)
	return scanArticle(row)
}

// CountArticleSlug returns the number of articles using the given slug.
func (q *Queries) CountArticleSlug(ctx context.Context, slug string) (int64, error) {
	var count int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM articles WHERE slug = ?`, slug).Scan(&count)
	return count, err
}

// sortColumns whitelists the API sort fields against their columns.
var sortColumns = map[string]string{
	"publishedAt": "published_at",
	"createdAt":   "created_at",
	"updatedAt":   "updated_at",
	"views":       "views",
	"title":       "title",
}

// ListArticlesParams holds filters, sorting and pagination for article lists.
type ListArticlesParams struct {
	Status       string // empty = any status
	Category     string // empty = any category
	Search       string // full-text query over title/content/excerpt
	FeaturedOnly bool
	Sort         string // one of sortColumns keys; descending order
	Limit        int
	Offset       int
}

// buildArticleFilter renders the WHERE clause shared by ListArticles and
// CountArticles.
func buildArticleFilter(params ListArticlesParams) (string, []any) {
	var conds []string
	var args []any

	if params.Status != "" {
		conds = append(conds, "a.status = ?")
		args = append(args, params.Status)
	}
	if params.Category != "" {
		conds = append(conds, "a.category = ?")
		args = append(args, params.Category)
	}
	if params.FeaturedOnly {
		conds = append(conds, "a.is_featured = 1")
	}
	if fts := escapeSearchQuery(params.Search); fts != "" {
		conds = append(conds, "a.id IN (SELECT rowid FROM articles_fts WHERE articles_fts MATCH ?)")
		args = append(args, fts)
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// ListArticles returns a page of articles matching the filters, ordered by
// the requested sort column descending.
func (q *Queries) ListArticles(ctx context.Context, params ListArticlesParams) ([]model.Article, error) {
	where, args := buildArticleFilter(params)

	sortCol, ok := sortColumns[params.Sort]
	if !ok {
		sortCol = "published_at"
	}

	limit := params.Limit
	if limit <= 0 {
		limit = 10
	}

	query := `SELECT ` + articleColumns + articleFrom + where +
		` ORDER BY a.` + sortCol + ` DESC, a.id DESC LIMIT ? OFFSET ?`
	args = append(args, limit, params.Offset)

	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing articles: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var articles []model.Article
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning article: %w", err)
		}
		articles = append(articles, a)
	}
	return articles, rows.Err()
}

// CountArticles returns the number of articles matching the filters.
func (q *Queries) CountArticles(ctx context.Context, params ListArticlesParams) (int64, error) {
	where, args := buildArticleFilter(params)

	var count int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM articles a`+where, args...).Scan(&count)
	return count, err
}

// UpdateArticleParams holds the mutable fields of an article. The slug is
// deliberately absent: slugs are immutable once assigned.
type UpdateArticleParams struct {
	ID            int64
	Title         string
	Content       string
	Excerpt       string
	FeaturedImage model.FeaturedImage
	Category      string
	Tags          []string
	Status        string
	IsFeatured    bool
	PublishedAt   model.NullTime
	SEO           model.SEO
}

// UpdateArticle updates an article's mutable fields. Returns sql.ErrNoRows
// if the article does not exist.
func (q *Queries) UpdateArticle(ctx context.Context, params UpdateArticleParams) (model.Article, error) {
	res, err := q.db.ExecContext(ctx,
		`UPDATE articles SET title = ?, content = ?, excerpt = ?,
			featured_image_url = ?, featured_image_alt = ?, featured_image_caption = ?,
			category = ?, tags = ?, status = ?, is_featured = ?, published_at = ?,
			seo_meta_title = ?, seo_meta_description = ?, seo_keywords = ?, updated_at = ?
		 WHERE id = ?`,
		params.Title, params.Content, params.Excerpt,
		params.FeaturedImage.URL, params.FeaturedImage.Alt, params.FeaturedImage.Caption,
		params.Category, encodeStringList(params.Tags), params.Status, params.IsFeatured, params.PublishedAt,
		params.SEO.MetaTitle, params.SEO.MetaDescription, encodeStringList(params.SEO.Keywords), time.Now(),
		params.ID,
	)
	if err != nil {
		return model.Article{}, fmt.Errorf("updating article: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return model.Article{}, fmt.Errorf("reading affected rows: %w", err)
	}
	if affected == 0 {
		return model.Article{}, sql.ErrNoRows
	}

	return q.GetArticleByID(ctx, params.ID)
}

// UpdateArticleStatus changes only the status and publish timestamp.
func (q *Queries) UpdateArticleStatus(ctx context.Context, id int64, status string, publishedAt model.NullTime) (model.Article, error) {
	res, err := q.db.ExecContext(ctx,
		`UPDATE articles SET status = ?, published_at = ?, updated_at = ? WHERE id = ?`,
		status, publishedAt, time.Now(), id,
	)
	if err != nil {
		return model.Article{}, fmt.Errorf("updating article status: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return model.Article{}, fmt.Errorf("reading affected rows: %w", err)
	}
	if affected == 0 {
		return model.Article{}, sql.ErrNoRows
	}

	return q.GetArticleByID(ctx, id)
}

// IncrementArticleViews applies a view-count delta of one at the store
// level. The increment is a single UPDATE so concurrent readers never lose
// updates to a stale in-memory copy.
func (q *Queries) IncrementArticleViews(ctx context.Context, id int64) (model.Article, error) {
	res, err := q.db.ExecContext(ctx,
		`UPDATE articles SET views = views + 1 WHERE id = ?`, id)
	if err != nil {
		return model.Article{}, fmt.Errorf("incrementing views: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return model.Article{}, fmt.Errorf("reading affected rows: %w", err)
	}
	if affected == 0 {
		return model.Article{}, sql.ErrNoRows
	}

	return q.GetArticleByID(ctx, id)
}

// DeleteArticle removes an article. Returns sql.ErrNoRows if it does not exist.
func (q *Queries) DeleteArticle(ctx context.Context, id int64) error {
	res, err := q.db.ExecContext(ctx, `DELETE FROM articles WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting article: %w", err)
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

// ftsStrip removes characters that carry meaning in FTS5 query syntax.
var ftsStrip = regexp.MustCompile(`[^\p{L}\p{N}\s_-]`)

// escapeSearchQuery converts free-form user input into an FTS5 query:
// terms are quoted, suffixed with * for prefix matching, and joined with
// OR for broader matching. Returns "" when nothing searchable remains.
func escapeSearchQuery(query string) string {
	query = ftsStrip.ReplaceAllString(strings.TrimSpace(query), " ")

	words := strings.Fields(query)
	if len(words) == 0 {
		return ""
	}

	terms := make([]string, 0, len(words))
	for _, word := range words {
		terms = append(terms, `"`+word+`"*`)
	}
	return strings.Join(terms, " OR ")
}
