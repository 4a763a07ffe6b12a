// Copyright (c) 2025-2026 Andrey Netrebin
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"strconv"
	"time"
)

// Default change reasons used when the author leaves the field blank.
const (
	ReasonInitialVersion = "Initial version"
	ReasonUpdate         = "Article update"
)

// ArticleVersion is an immutable snapshot of an article's content.
// Version numbers form a gapless 1..N sequence per article; edits never
// mutate an existing row, they append a new one.
type ArticleVersion struct {
	ID            int64     `json:"id"`
	ArticleID     int64     `json:"article_id"`
	Title         string    `json:"title"`
	Content       string    `json:"content"`
	Excerpt       string    `json:"excerpt"`
	AuthorID      int64     `json:"author_id"`
	VersionNumber int64     `json:"version_number"`
	ChangeReason  string    `json:"change_reason"`
	IsDraft       bool      `json:"is_draft"`
	CreatedAt     time.Time `json:"created_at"`
}

// Label returns the human-facing version label, e.g. "v3".
func (v ArticleVersion) Label() string {
	return "v" + strconv.FormatInt(v.VersionNumber, 10)
}
