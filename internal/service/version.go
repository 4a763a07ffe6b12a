// Copyright (c) 2025-2026 Andrey Netrebin
// SPDX-License-Identifier: GPL-3.0-or-later

// Package service implements the business logic between the HTTP handlers
// and the store: article lifecycle, version management, history and diffs,
// and event logging.
package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/andreynetrebin/knowledge-base/internal/model"
	"github.com/andreynetrebin/knowledge-base/internal/store"
)

// VersionService maintains the per-article version sequence and the
// current-version pointer.
type VersionService struct {
	db *sql.DB
}

// NewVersionService creates a new VersionService.
func NewVersionService(db *sql.DB) *VersionService {
	return &VersionService{db: db}
}

// VersionInput carries the content fields for a new version.
type VersionInput struct {
	Title        string
	Content      string
	Excerpt      string
	AuthorID     int64
	ChangeReason string
	IsDraft      bool
}

// CreateVersion appends a new version to an article's history. The next
// number is computed and the row inserted inside one transaction; when the
// article has no current version yet (its very first version, or a backfill
// race), the pointer is set in the same transaction. Subsequent versions do
// NOT advance the pointer; callers do that explicitly via AdvanceCurrent.
//
// Two writers racing on the same article can both read the same max number;
// the UNIQUE(article_id, version_number) constraint catches the loser, and
// the whole transaction is retried once before surfacing ErrConflict.
func (s *VersionService) CreateVersion(ctx context.Context, articleID int64, input VersionInput) (model.ArticleVersion, error) {
	reason := input.ChangeReason

	var created model.ArticleVersion
	attempt := func() error {
		return store.InTx(ctx, s.db, func(q *store.Queries) error {
			if _, err := q.GetArticleByID(ctx, articleID); err != nil {
				return fmt.Errorf("loading article %d: %w", articleID, err)
			}

			maxN, err := q.MaxVersionNumber(ctx, articleID)
			if err != nil {
				return fmt.Errorf("reading max version number: %w", err)
			}

			if reason == "" {
				if maxN == 0 {
					reason = model.ReasonInitialVersion
				} else {
					reason = model.ReasonUpdate
				}
			}

			now := time.Now()
			created, err = q.CreateVersion(ctx, store.CreateVersionParams{
				ArticleID:     articleID,
				Title:         input.Title,
				Content:       input.Content,
				Excerpt:       input.Excerpt,
				AuthorID:      input.AuthorID,
				VersionNumber: maxN + 1,
				ChangeReason:  reason,
				IsDraft:       input.IsDraft,
				CreatedAt:     now,
			})
			if err != nil {
				return err
			}

			// First version, or the pointer was lost: claim it while we
			// hold the transaction so no article is left without content.
			if _, err := q.SetCurrentVersionIfNull(ctx, articleID, created.ID, now); err != nil {
				return fmt.Errorf("setting initial current version: %w", err)
			}
			return nil
		})
	}

	err := attempt()
	if errors.Is(err, store.ErrConflict) {
		// Lost the number race; the retry re-reads the new max.
		err = attempt()
	}
	if err != nil {
		return model.ArticleVersion{}, err
	}
	return created, nil
}

// AdvanceCurrent atomically points the article at the given version.
// Idempotent. Advancing to a version of a different article is a
// programming-contract violation and panics.
func (s *VersionService) AdvanceCurrent(ctx context.Context, article *model.Article, version *model.ArticleVersion) error {
	if version.ArticleID != article.ID {
		panic(fmt.Sprintf("service: cannot advance article %d to version %d owned by article %d",
			article.ID, version.ID, version.ArticleID))
	}

	q := store.New(s.db)
	if err := q.SetCurrentVersion(ctx, article.ID, version.ID, time.Now()); err != nil {
		return fmt.Errorf("advancing current version: %w", err)
	}
	article.CurrentVersionID = sql.NullInt64{Int64: version.ID, Valid: true}
	return nil
}

// NeedsNewVersion reports whether a save carrying the candidate fields must
// produce a new version. True when there is no current version, or when any
// content-bearing field (title, content, excerpt) differs. Pure metadata
// edits (category, status, tags) never create versions.
func NeedsNewVersion(current *model.ArticleVersion, title, content, excerpt string) bool {
	if current == nil {
		return true
	}
	return current.Title != title || current.Content != content || current.Excerpt != excerpt
}
