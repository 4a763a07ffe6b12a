// Copyright (c) 2025-2026 Andrey Netrebin
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"strings"
	"time"
	"unicode/utf8"
)

// Tag name length bounds.
const (
	TagNameMinLen = 2
	TagNameMaxLen = 50
)

// Tag is a flat label attached to articles through the article_tags table.
type Tag struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

// ValidateTagName checks the length bounds on a tag name. Returns an empty
// string when the name is acceptable, otherwise a field error message.
func ValidateTagName(name string) string {
	name = strings.TrimSpace(name)
	n := utf8.RuneCountInString(name)
	switch {
	case n < TagNameMinLen:
		return "Tag must be at least 2 characters"
	case n > TagNameMaxLen:
		return "Tag must be at most 50 characters"
	}
	return ""
}
