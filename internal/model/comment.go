// Copyright (c) 2025-2026 Andrey Netrebin
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"database/sql"
	"time"
)

// Comment statuses. Deleted comments keep their row so replies stay
// anchored; the body is hidden at render time.
const (
	CommentStatusActive  = "active"
	CommentStatusDeleted = "deleted"
	CommentStatusPending = "pending"
)

// Comment is a threaded comment on an article.
type Comment struct {
	ID        int64         `json:"id"`
	ArticleID int64         `json:"article_id"`
	AuthorID  int64         `json:"author_id"`
	ParentID  sql.NullInt64 `json:"parent_id,omitempty"`
	Body      string        `json:"body"`
	Status    string        `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// IsVisible returns true if the comment should be shown to regular readers.
func (c Comment) IsVisible() bool {
	return c.Status == CommentStatusActive
}

// IsReply returns true if the comment is a reply to another comment.
func (c Comment) IsReply() bool {
	return c.ParentID.Valid
}

// Rating is a per-user like (+1) or dislike (-1) on an article. One row per
// (article, user); re-rating replaces the value.
type Rating struct {
	ID        int64     `json:"id"`
	ArticleID int64     `json:"article_id"`
	UserID    int64     `json:"user_id"`
	Value     int64     `json:"value"`
	CreatedAt time.Time `json:"created_at"`
}

// Rating values
const (
	RatingLike    = 1
	RatingDislike = -1
)

// Favorite marks an article as bookmarked by a user.
type Favorite struct {
	ID        int64     `json:"id"`
	ArticleID int64     `json:"article_id"`
	UserID    int64     `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}
