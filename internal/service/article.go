// Copyright (c) 2025-2026 Andrey Netrebin
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/andreynetrebin/knowledge-base/internal/model"
	"github.com/andreynetrebin/knowledge-base/internal/store"
	"github.com/andreynetrebin/knowledge-base/internal/util"
)

// ArticleService implements the article lifecycle: creation with the first
// version, metadata updates with the needs-new-version gate, status
// transitions, and tag attachment.
type ArticleService struct {
	db       *sql.DB
	queries  *store.Queries
	versions *VersionService
}

// NewArticleService creates a new ArticleService.
func NewArticleService(db *sql.DB, versions *VersionService) *ArticleService {
	return &ArticleService{
		db:       db,
		queries:  store.New(db),
		versions: versions,
	}
}

// ArticleInput carries the fields of the article create/edit forms.
type ArticleInput struct {
	Title        string
	Slug         string
	Content      string
	Excerpt      string
	CategoryID   int64
	Status       string
	IsPinned     bool
	ChangeReason string
	TagNames     []string
}

// Validate checks the input and returns field -> message for anything
// wrong. An empty map means the input is acceptable.
func (in *ArticleInput) Validate() map[string]string {
	errs := make(map[string]string)

	title := strings.TrimSpace(in.Title)
	if title == "" {
		errs["title"] = "Title is required"
	} else if len(title) < 2 {
		errs["title"] = "Title must be at least 2 characters"
	}

	if strings.TrimSpace(in.Content) == "" {
		errs["content"] = "Content is required"
	}

	if in.CategoryID <= 0 {
		errs["category"] = "Category is required"
	}

	if in.Status != "" && !model.IsValidStatus(in.Status) {
		errs["status"] = "Invalid status"
	}

	for _, name := range in.TagNames {
		if msg := model.ValidateTagName(name); msg != "" {
			errs["tags"] = msg
			break
		}
	}

	return errs
}

// Create inserts the article, its first version, and the current-version
// pointer in one transaction, so no article ever exists without content.
// The slug is derived from the title when blank.
func (s *ArticleService) Create(ctx context.Context, input ArticleInput, actor model.Actor) (model.Article, error) {
	if !actor.IsAuthenticated {
		return model.Article{}, fmt.Errorf("creating article: %w", store.ErrNotFound)
	}

	slug := input.Slug
	if slug == "" {
		slug = util.Slugify(input.Title)
	}

	status := input.Status
	if status == "" {
		status = model.StatusDraft
	}

	now := time.Now()
	var published sql.NullTime
	if status == model.StatusPublished {
		published = sql.NullTime{Time: now, Valid: true}
	}

	reason := input.ChangeReason
	if reason == "" {
		reason = model.ReasonInitialVersion
	}

	var article model.Article
	err := store.InTx(ctx, s.db, func(q *store.Queries) error {
		var err error
		article, err = q.CreateArticle(ctx, store.CreateArticleParams{
			Title:       input.Title,
			Slug:        slug,
			AuthorID:    actor.ID,
			CategoryID:  input.CategoryID,
			Status:      status,
			IsPinned:    input.IsPinned,
			CreatedAt:   now,
			UpdatedAt:   now,
			PublishedAt: published,
		})
		if err != nil {
			return err
		}

		version, err := q.CreateVersion(ctx, store.CreateVersionParams{
			ArticleID:     article.ID,
			Title:         input.Title,
			Content:       input.Content,
			Excerpt:       input.Excerpt,
			AuthorID:      actor.ID,
			VersionNumber: 1,
			ChangeReason:  reason,
			CreatedAt:     now,
		})
		if err != nil {
			return fmt.Errorf("creating first version: %w", err)
		}

		if err := q.SetCurrentVersion(ctx, article.ID, version.ID, now); err != nil {
			return fmt.Errorf("setting current version: %w", err)
		}
		article.CurrentVersionID = sql.NullInt64{Int64: version.ID, Valid: true}

		return s.attachTags(ctx, q, article.ID, input.TagNames, now)
	})
	if err != nil {
		return model.Article{}, err
	}
	return article, nil
}

// Update saves article metadata and, when a content-bearing field changed,
// appends a new version and advances the pointer. Returns the updated
// article and whether a new version was created.
func (s *ArticleService) Update(ctx context.Context, article *model.Article, input ArticleInput, actor model.Actor) (model.Article, bool, error) {
	current, err := s.CurrentVersion(ctx, article)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return model.Article{}, false, err
	}

	slug := input.Slug
	if slug == "" {
		slug = article.Slug
	}

	status := input.Status
	if status == "" {
		status = article.Status
	}

	now := time.Now()
	published := article.PublishedAt
	switch {
	case status == model.StatusPublished && !published.Valid:
		published = sql.NullTime{Time: now, Valid: true}
	case status != model.StatusPublished:
		published = sql.NullTime{}
	}

	updated, err := s.queries.UpdateArticle(ctx, store.UpdateArticleParams{
		ID:          article.ID,
		Title:       input.Title,
		Slug:        slug,
		CategoryID:  input.CategoryID,
		Status:      status,
		IsPinned:    input.IsPinned,
		UpdatedAt:   now,
		PublishedAt: published,
	})
	if err != nil {
		return model.Article{}, false, fmt.Errorf("updating article %d: %w", article.ID, err)
	}

	if err := s.attachTags(ctx, s.queries, article.ID, input.TagNames, now); err != nil {
		return model.Article{}, false, err
	}

	if !NeedsNewVersion(current, input.Title, input.Content, input.Excerpt) {
		return updated, false, nil
	}

	version, err := s.versions.CreateVersion(ctx, article.ID, VersionInput{
		Title:        input.Title,
		Content:      input.Content,
		Excerpt:      input.Excerpt,
		AuthorID:     actor.ID,
		ChangeReason: input.ChangeReason,
	})
	if err != nil {
		return model.Article{}, false, err
	}
	if err := s.versions.AdvanceCurrent(ctx, &updated, &version); err != nil {
		return model.Article{}, false, err
	}
	return updated, true, nil
}

// SetStatus transitions the article's status, maintaining published_at:
// set on entering published (if unset), cleared on leaving it.
func (s *ArticleService) SetStatus(ctx context.Context, article *model.Article, status string) (model.Article, error) {
	if !model.IsValidStatus(status) {
		return model.Article{}, fmt.Errorf("invalid status %q", status)
	}

	now := time.Now()
	published := article.PublishedAt
	switch {
	case status == model.StatusPublished && !published.Valid:
		published = sql.NullTime{Time: now, Valid: true}
	case status != model.StatusPublished:
		published = sql.NullTime{}
	}

	return s.queries.UpdateArticle(ctx, store.UpdateArticleParams{
		ID:          article.ID,
		Title:       article.Title,
		Slug:        article.Slug,
		CategoryID:  article.CategoryID,
		Status:      status,
		IsPinned:    article.IsPinned,
		UpdatedAt:   now,
		PublishedAt: published,
	})
}

// CurrentVersion loads the article's current version, or nil with
// store.ErrNotFound when the article has none.
func (s *ArticleService) CurrentVersion(ctx context.Context, article *model.Article) (*model.ArticleVersion, error) {
	if !article.CurrentVersionID.Valid {
		return nil, store.ErrNotFound
	}
	v, err := s.queries.GetVersion(ctx, article.ID, article.CurrentVersionID.Int64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// RecordView bumps the view counter for published articles. Fire and
// forget: failures are logged, never surfaced.
func (s *ArticleService) RecordView(ctx context.Context, article *model.Article) {
	if !article.IsPublished() {
		return
	}
	if err := s.queries.IncrementViewCount(ctx, article.ID); err != nil {
		slog.Warn("failed to increment view count", "error", err, "article_id", article.ID)
	}
}

// attachTags replaces the article's tag set with the given names, creating
// missing tags on the fly.
func (s *ArticleService) attachTags(ctx context.Context, q *store.Queries, articleID int64, names []string, now time.Time) error {
	if names == nil {
		return nil
	}
	if err := q.DetachTags(ctx, articleID); err != nil {
		return fmt.Errorf("detaching tags: %w", err)
	}

	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}

		tag, err := q.GetTagByName(ctx, name)
		if errors.Is(err, store.ErrNotFound) {
			tag, err = q.CreateTag(ctx, store.CreateTagParams{
				Name:      name,
				Slug:      util.Slugify(name),
				CreatedAt: now,
			})
			if errors.Is(err, store.ErrConflict) {
				// Another writer created it between lookup and insert.
				tag, err = q.GetTagByName(ctx, name)
			}
		}
		if err != nil {
			return fmt.Errorf("resolving tag %q: %w", name, err)
		}

		if err := q.AttachTag(ctx, articleID, tag.ID); err != nil {
			return fmt.Errorf("attaching tag %q: %w", name, err)
		}
	}
	return nil
}
