// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"fmt"

	"github.com/metplant/mcms-go/internal/model"
)

// StatusCount is the number of articles in one status.
type StatusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

// CategoryCount is the number of articles in one category.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int64  `json:"count"`
}

// ArticleStatusCounts groups articles by status.
func (q *Queries) ArticleStatusCounts(ctx context.Context) ([]StatusCount, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM articles GROUP BY status ORDER BY status`)
	if err != nil {
		return nil, fmt.Errorf("counting articles by status: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var counts []StatusCount
	for rows.Next() {
		var c StatusCount
		if err := rows.Scan(&c.Status, &c.Count); err != nil {
			return nil, fmt.Errorf("scanning status count: %w", err)
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

// ArticleCategoryCounts groups articles by category.
func (q *Queries) ArticleCategoryCounts(ctx context.Context) ([]CategoryCount, error) {
	rows, err := q.db.QueryContext(ctx,
		`SELECT category, COUNT(*) FROM articles GROUP BY category ORDER BY category`)
	if err != nil {
		return nil, fmt.Errorf("counting articles by category: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var counts []CategoryCount
	for rows.Next() {
		var c CategoryCount
		if err := rows.Scan(&c.Category, &c.Count); err != nil {
			return nil, fmt.Errorf("scanning category count: %w", err)
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

// TotalArticleViews sums the view counters across all articles.
func (q *Queries) TotalArticleViews(ctx context.Context) (int64, error) {
	var total int64
	err := q.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(views), 0) FROM articles`).Scan(&total)
	return total, err
}

// RecentArticles returns the most recently created articles, any status.
func (q *Queries) RecentArticles(ctx context.Context, limit int) ([]model.Article, error) {
	return q.ListArticles(ctx, ListArticlesParams{Sort: "createdAt", Limit: limit})
}

// PopularArticles returns the most viewed published articles.
func (q *Queries) PopularArticles(ctx context.Context, limit int) ([]model.Article, error) {
	return q.ListArticles(ctx, ListArticlesParams{
		Status: model.StatusPublished,
		Sort:   "views",
		Limit:  limit,
	})
}
