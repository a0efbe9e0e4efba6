// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metplant/mcms-go/internal/model"
	"github.com/metplant/mcms-go/internal/store"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)

	// A pooled second connection would see an empty in-memory database
	db.SetMaxOpenConns(1)

	_, err = db.Exec("PRAGMA foreign_keys=ON")
	require.NoError(t, err)

	require.NoError(t, store.Migrate(db))
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func testAuthor(t *testing.T, db *sql.DB) model.Admin {
	t.Helper()

	admin, err := store.New(db).CreateAdmin(context.Background(), store.CreateAdminParams{
		Email:        "author@example.com",
		PasswordHash: "not-a-real-hash",
		Name:         "Author",
	})
	require.NoError(t, err)
	return admin
}

func TestCreate_DerivesSlug(t *testing.T) {
	db := testDB(t)
	author := testAuthor(t, db)
	svc := NewArticles(db)

	article, err := svc.Create(context.Background(), ArticleInput{
		Title:   "Стальные Конструкции!!",
		Content: "body",
	}, author.ID)
	require.NoError(t, err)

	assert.Equal(t, "stalnye-konstruktsii", article.Slug)
	assert.Equal(t, model.StatusDraft, article.Status)
	assert.Equal(t, model.CategoryGeneral, article.Category)
	assert.False(t, article.PublishedAt.Valid)
}

func TestCreate_SlugFallbackForEmptyDerivation(t *testing.T) {
	db := testDB(t)
	author := testAuthor(t, db)
	svc := NewArticles(db)

	article, err := svc.Create(context.Background(), ArticleInput{
		Title:   "???!!!",
		Content: "body",
	}, author.ID)
	require.NoError(t, err)

	require.True(t, strings.HasPrefix(article.Slug, "article-"))
	assert.Len(t, article.Slug, len("article-")+8)
}

func TestCreate_ExplicitSlugKept(t *testing.T) {
	db := testDB(t)
	author := testAuthor(t, db)
	svc := NewArticles(db)

	article, err := svc.Create(context.Background(), ArticleInput{
		Title:   "Some Title",
		Slug:    "custom-slug",
		Content: "body",
	}, author.ID)
	require.NoError(t, err)
	assert.Equal(t, "custom-slug", article.Slug)
}

func TestCreate_Validation(t *testing.T) {
	db := testDB(t)
	author := testAuthor(t, db)
	svc := NewArticles(db)

	_, err := svc.Create(context.Background(), ArticleInput{
		Title:    "",
		Content:  "",
		Category: "bogus",
		Status:   "bogus",
		Slug:     "Not A Slug",
	}, author.ID)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "title")
	assert.Contains(t, verr.Fields, "content")
	assert.Contains(t, verr.Fields, "category")
	assert.Contains(t, verr.Fields, "status")
	assert.Contains(t, verr.Fields, "slug")
}

func TestCreate_TitleTooLong(t *testing.T) {
	db := testDB(t)
	author := testAuthor(t, db)
	svc := NewArticles(db)

	_, err := svc.Create(context.Background(), ArticleInput{
		Title:   strings.Repeat("x", model.MaxTitleLength+1),
		Content: "body",
	}, author.ID)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "title")
}

func TestCreate_DuplicateSlug(t *testing.T) {
	db := testDB(t)
	author := testAuthor(t, db)
	svc := NewArticles(db)

	_, err := svc.Create(context.Background(), ArticleInput{
		Title:   "Same Title",
		Content: "body",
	}, author.ID)
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), ArticleInput{
		Title:   "Same Title",
		Content: "body",
	}, author.ID)
	assert.ErrorIs(t, err, store.ErrDuplicateSlug)
}

func TestCreate_PublishedStampsPublishedAt(t *testing.T) {
	db := testDB(t)
	author := testAuthor(t, db)
	svc := NewArticles(db)

	article, err := svc.Create(context.Background(), ArticleInput{
		Title:   "Launch",
		Content: "body",
		Status:  model.StatusPublished,
	}, author.ID)
	require.NoError(t, err)
	assert.True(t, article.PublishedAt.Valid)
}

func TestUpdate_SlugImmutable(t *testing.T) {
	db := testDB(t)
	author := testAuthor(t, db)
	svc := NewArticles(db)

	article, err := svc.Create(context.Background(), ArticleInput{
		Title:   "Original Title",
		Content: "body",
	}, author.ID)
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), article.ID, ArticleInput{
		Title:   "Completely New Title",
		Content: "body",
	})
	require.NoError(t, err)
	assert.Equal(t, article.Slug, updated.Slug)
	assert.Equal(t, "Completely New Title", updated.Title)
}

func TestUpdate_NotFound(t *testing.T) {
	db := testDB(t)
	svc := NewArticles(db)

	_, err := svc.Update(context.Background(), 9999, ArticleInput{
		Title:   "Title",
		Content: "body",
	})
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}

func TestUpdateStatus_PublishOnce(t *testing.T) {
	db := testDB(t)
	author := testAuthor(t, db)
	svc := NewArticles(db)

	article, err := svc.Create(context.Background(), ArticleInput{
		Title:   "Lifecycle",
		Content: "body",
	}, author.ID)
	require.NoError(t, err)
	require.False(t, article.PublishedAt.Valid)

	published, err := svc.UpdateStatus(context.Background(), article.ID, model.StatusPublished)
	require.NoError(t, err)
	require.True(t, published.PublishedAt.Valid)
	firstPublish := published.PublishedAt.Time

	archived, err := svc.UpdateStatus(context.Background(), article.ID, model.StatusArchived)
	require.NoError(t, err)
	assert.True(t, archived.PublishedAt.Valid)

	time.Sleep(10 * time.Millisecond)

	republished, err := svc.UpdateStatus(context.Background(), article.ID, model.StatusPublished)
	require.NoError(t, err)
	assert.True(t, republished.PublishedAt.Time.Equal(firstPublish),
		"republishing must keep the original publish timestamp")
}

func TestUpdateStatus_InvalidStatus(t *testing.T) {
	db := testDB(t)
	svc := NewArticles(db)

	_, err := svc.UpdateStatus(context.Background(), 1, "deleted")

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "status")
}

func TestReadPublished_CountsView(t *testing.T) {
	db := testDB(t)
	author := testAuthor(t, db)
	svc := NewArticles(db)

	created, err := svc.Create(context.Background(), ArticleInput{
		Title:   "Visible",
		Content: "body",
		Status:  model.StatusPublished,
	}, author.ID)
	require.NoError(t, err)

	first, err := svc.ReadPublished(context.Background(), created.Slug)
	require.NoError(t, err)
	assert.Equal(t, int64(1), first.Views)

	second, err := svc.ReadPublished(context.Background(), created.Slug)
	require.NoError(t, err)
	assert.Equal(t, int64(2), second.Views)
}

func TestReadPublished_ConcurrentViews(t *testing.T) {
	// A file-backed WAL database so reads really run on parallel
	// connections; the shared in-memory helper serializes them.
	db, err := store.NewDB(filepath.Join(t.TempDir(), "mcms.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, store.Migrate(db))

	author := testAuthor(t, db)
	svc := NewArticles(db)

	created, err := svc.Create(context.Background(), ArticleInput{
		Title:   "Busy",
		Content: "body",
		Status:  model.StatusPublished,
	}, author.ID)
	require.NoError(t, err)

	const readers = 16
	var wg sync.WaitGroup
	errs := make(chan error, readers)
	for i := 0; i < readers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.ReadPublished(context.Background(), created.Slug)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	got, err := store.New(db).GetArticleByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(readers), got.Views, "every concurrent read must count exactly once")
}

func TestReadPublished_DraftInvisible(t *testing.T) {
	db := testDB(t)
	author := testAuthor(t, db)
	svc := NewArticles(db)

	created, err := svc.Create(context.Background(), ArticleInput{
		Title:   "Hidden",
		Content: "body",
	}, author.ID)
	require.NoError(t, err)

	_, err = svc.ReadPublished(context.Background(), created.Slug)
	assert.True(t, errors.Is(err, sql.ErrNoRows))
}
