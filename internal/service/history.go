// Copyright (c) 2025-2026 Andrey Netrebin
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/andreynetrebin/knowledge-base/internal/model"
	"github.com/andreynetrebin/knowledge-base/internal/store"
)

// HistoryService provides version history browsing, restore, and compare.
type HistoryService struct {
	queries  *store.Queries
	versions *VersionService
}

// NewHistoryService creates a new HistoryService.
func NewHistoryService(db *sql.DB, versions *VersionService) *HistoryService {
	return &HistoryService{
		queries:  store.New(db),
		versions: versions,
	}
}

// ListVersions returns all versions of an article, newest first.
func (s *HistoryService) ListVersions(ctx context.Context, articleID int64) ([]model.ArticleVersion, error) {
	return s.queries.ListVersions(ctx, articleID)
}

// GetVersion fetches a version scoped to its owning article. Requesting a
// version under the wrong article yields store.ErrNotFound.
func (s *HistoryService) GetVersion(ctx context.Context, articleID, versionID int64) (model.ArticleVersion, error) {
	return s.queries.GetVersion(ctx, articleID, versionID)
}

// Adjacent holds a version's neighbors in the newest-first ordering:
// Previous is the next-newer version, Next the next-older. Either is nil at
// the ends of the history.
type Adjacent struct {
	Previous *model.ArticleVersion
	Next     *model.ArticleVersion
}

// AdjacentVersions locates the version in the descending list and returns
// its neighbors.
func (s *HistoryService) AdjacentVersions(ctx context.Context, articleID, versionID int64) (Adjacent, error) {
	versions, err := s.queries.ListVersions(ctx, articleID)
	if err != nil {
		return Adjacent{}, err
	}

	for i := range versions {
		if versions[i].ID != versionID {
			continue
		}
		var adj Adjacent
		if i > 0 {
			adj.Previous = &versions[i-1]
		}
		if i < len(versions)-1 {
			adj.Next = &versions[i+1]
		}
		return adj, nil
	}
	return Adjacent{}, store.ErrNotFound
}

// Restore clones an old version's content into a brand-new version authored
// by actorID and makes it current. The restored version gets the next
// sequential number; numbering never rewinds.
func (s *HistoryService) Restore(ctx context.Context, article *model.Article, versionID, actorID int64, reason string) (model.ArticleVersion, error) {
	old, err := s.queries.GetVersion(ctx, article.ID, versionID)
	if err != nil {
		return model.ArticleVersion{}, err
	}

	if reason == "" {
		reason = fmt.Sprintf("Restored version %s", old.Label())
	}

	restored, err := s.versions.CreateVersion(ctx, article.ID, VersionInput{
		Title:        old.Title,
		Content:      old.Content,
		Excerpt:      old.Excerpt,
		AuthorID:     actorID,
		ChangeReason: reason,
	})
	if err != nil {
		return model.ArticleVersion{}, fmt.Errorf("cloning version %s: %w", old.Label(), err)
	}

	if err := s.versions.AdvanceCurrent(ctx, article, &restored); err != nil {
		return model.ArticleVersion{}, err
	}
	return restored, nil
}

// Diff op tags, matching difflib's opcode tags.
const (
	DiffEqual   = "equal"
	DiffInsert  = "insert"
	DiffDelete  = "delete"
	DiffReplace = "replace"
)

// DiffSpan is one run of the line diff: Op applies to FromLines (the v1
// side) and ToLines (the v2 side).
type DiffSpan struct {
	Op        string
	FromLines []string
	ToLines   []string
}

// Comparison is the result of comparing two versions' content line by line.
// FromLabel/ToLabel carry the version numbers in the caller's argument
// order; swapping the arguments flips labeling but marks the same lines as
// changed.
type Comparison struct {
	From      model.ArticleVersion
	To        model.ArticleVersion
	FromLabel string
	ToLabel   string
	Spans     []DiffSpan
}

// Compare fetches both versions under the article and produces a line-based
// diff of their content. Both versions must belong to the article.
func (s *HistoryService) Compare(ctx context.Context, articleID, v1ID, v2ID int64) (Comparison, error) {
	v1, err := s.queries.GetVersion(ctx, articleID, v1ID)
	if err != nil {
		return Comparison{}, err
	}
	v2, err := s.queries.GetVersion(ctx, articleID, v2ID)
	if err != nil {
		return Comparison{}, err
	}

	fromLines := splitLines(v1.Content)
	toLines := splitLines(v2.Content)

	matcher := difflib.NewMatcher(fromLines, toLines)
	var spans []DiffSpan
	for _, op := range matcher.GetOpCodes() {
		span := DiffSpan{
			FromLines: fromLines[op.I1:op.I2],
			ToLines:   toLines[op.J1:op.J2],
		}
		switch op.Tag {
		case 'e':
			span.Op = DiffEqual
		case 'i':
			span.Op = DiffInsert
		case 'd':
			span.Op = DiffDelete
		case 'r':
			span.Op = DiffReplace
		default:
			continue
		}
		spans = append(spans, span)
	}

	return Comparison{
		From:      v1,
		To:        v2,
		FromLabel: "Version " + v1.Label(),
		ToLabel:   "Version " + v2.Label(),
		Spans:     spans,
	}, nil
}

// ChangedLineCount returns the number of lines marked changed on either
// side, independent of argument order.
func (c Comparison) ChangedLineCount() int {
	n := 0
	for _, span := range c.Spans {
		if span.Op == DiffEqual {
			continue
		}
		n += len(span.FromLines) + len(span.ToLines)
	}
	return n
}

// splitLines splits content for line diffing. A trailing newline does not
// produce a phantom empty line.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	s = strings.TrimSuffix(s, "\n")
	return strings.Split(s, "\n")
}
