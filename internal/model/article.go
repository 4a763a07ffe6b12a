// Copyright (c) 2025-2026 Andrey Netrebin
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"database/sql"
	"time"
)

// Article statuses
const (
	StatusDraft     = "draft"
	StatusPrivate   = "private"
	StatusPublished = "published"
	StatusArchived  = "archived"
)

// ValidStatuses contains all valid article statuses.
var ValidStatuses = []string{StatusDraft, StatusPrivate, StatusPublished, StatusArchived}

// IsValidStatus checks if a status is one of the known article statuses.
func IsValidStatus(status string) bool {
	for _, s := range ValidStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// Article is the stable identity for a piece of content. Its text lives in
// ArticleVersion rows; CurrentVersionID points at the live snapshot.
type Article struct {
	ID               int64         `json:"id"`
	Title            string        `json:"title"`
	Slug             string        `json:"slug"`
	AuthorID         int64         `json:"author_id"`
	CategoryID       int64         `json:"category_id"`
	Status           string        `json:"status"`
	ViewCount        int64         `json:"view_count"`
	IsPinned         bool          `json:"is_pinned"`
	CurrentVersionID sql.NullInt64 `json:"current_version_id,omitempty"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
	PublishedAt      sql.NullTime  `json:"published_at,omitempty"`
}

// IsPublished returns true if the article is published.
func (a Article) IsPublished() bool {
	return a.Status == StatusPublished
}

// IsDraft returns true if the article is a draft.
func (a Article) IsDraft() bool {
	return a.Status == StatusDraft
}

// HasContent returns true if the article has a current version to display.
func (a Article) HasContent() bool {
	return a.CurrentVersionID.Valid
}
