// Copyright (c) 2025-2026 Andrey Netrebin
// SPDX-License-Identifier: GPL-3.0-or-later

// Package access decides article visibility per viewer and maps statuses to
// presentation metadata. Checks are pure functions over an explicit Actor;
// nothing here reads request or session state.
package access

import "github.com/andreynetrebin/knowledge-base/internal/model"

// CanView reports whether the actor may read the article. Authors see all
// of their own articles regardless of status; everyone else, including
// anonymous viewers, sees only published articles.
func CanView(article *model.Article, actor model.Actor) bool {
	if actor.IsAuthenticated && actor.ID == article.AuthorID {
		return true
	}
	return article.Status == model.StatusPublished
}

// CanEdit reports whether the actor may edit metadata or create versions.
// Edit rights are strictly author-owned; staff moderate comments but do not
// gain article-edit rights.
func CanEdit(article *model.Article, actor model.Actor) bool {
	return actor.IsAuthenticated && actor.ID == article.AuthorID
}

// CanModerateComment reports whether the actor may change a comment's
// status: the comment's author, the article's author, or staff.
func CanModerateComment(comment *model.Comment, article *model.Article, actor model.Actor) bool {
	if !actor.IsAuthenticated {
		return false
	}
	return actor.ID == comment.AuthorID || actor.ID == article.AuthorID || actor.IsStaff
}

// DeniedMessage returns the status-specific wording shown when CanView
// fails. The message names the state, never the content.
func DeniedMessage(status string) string {
	switch status {
	case model.StatusDraft:
		return "This article is a draft and is only available to its author."
	case model.StatusPrivate:
		return "This article is private and is only available to its author."
	case model.StatusArchived:
		return "This article has been archived and is only available to its author."
	default:
		return "You do not have access to this article."
	}
}

// Badge is presentation metadata for an article status.
type Badge struct {
	CSSClass    string
	Icon        string
	Description string
}

// statusBadges is the per-status presentation table.
var statusBadges = map[string]Badge{
	model.StatusDraft:     {CSSClass: "badge-secondary", Icon: "pencil", Description: "Draft"},
	model.StatusPrivate:   {CSSClass: "badge-warning", Icon: "lock", Description: "Private"},
	model.StatusPublished: {CSSClass: "badge-success", Icon: "globe", Description: "Published"},
	model.StatusArchived:  {CSSClass: "badge-dark", Icon: "archive", Description: "Archived"},
}

// unknownBadge is returned for statuses not in the table, so bad data never
// breaks rendering.
var unknownBadge = Badge{CSSClass: "badge-light", Icon: "question", Description: "Unknown status"}

// StatusBadge maps a status to its badge. Total: always returns a value.
func StatusBadge(status string) Badge {
	if b, ok := statusBadges[status]; ok {
		return b
	}
	return unknownBadge
}
