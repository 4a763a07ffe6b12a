// Copyright (c) 2025-2026 Andrey Netrebin
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/andreynetrebin/knowledge-base/internal/access"
	"github.com/andreynetrebin/knowledge-base/internal/middleware"
	"github.com/andreynetrebin/knowledge-base/internal/model"
	"github.com/andreynetrebin/knowledge-base/internal/render"
	"github.com/andreynetrebin/knowledge-base/internal/service"
	"github.com/andreynetrebin/knowledge-base/internal/store"
	"github.com/andreynetrebin/knowledge-base/internal/util"
)

// MaxCommentLen caps comment body length.
const MaxCommentLen = 4000

// CommentsHandler serves comment posting and moderation plus article
// ratings and favorites. All endpoints require a signed-in user.
type CommentsHandler struct {
	queries  *store.Queries
	renderer *render.Renderer
	events   *service.EventService
}

// NewCommentsHandler creates a new CommentsHandler.
func NewCommentsHandler(db *sql.DB, renderer *render.Renderer, events *service.EventService) *CommentsHandler {
	return &CommentsHandler{queries: store.New(db), renderer: renderer, events: events}
}

// loadViewable resolves {slug} and checks read access. Interaction with
// an article is gated on being able to see it.
func (h *CommentsHandler) loadViewable(w http.ResponseWriter, r *http.Request) (*model.Article, bool) {
	article, err := h.queries.GetArticleBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		notFoundOr500(w, r, "loading article", err)
		return nil, false
	}
	if !access.CanView(&article, middleware.GetActor(r)) {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return nil, false
	}
	return &article, true
}

// Create handles POST /articles/{slug}/comments. An optional parent_id
// makes the comment a reply; the parent must belong to the same article.
func (h *CommentsHandler) Create(w http.ResponseWriter, r *http.Request) {
	article, ok := h.loadViewable(w, r)
	if !ok {
		return
	}
	target := "/articles/" + article.Slug

	body := strings.TrimSpace(r.PostFormValue("body"))
	if body == "" {
		flashError(w, r, h.renderer, target, "Comment cannot be empty")
		return
	}
	if len(body) > MaxCommentLen {
		flashError(w, r, h.renderer, target, "Comment is too long")
		return
	}

	parentID := util.ParseNullInt64(r.PostFormValue("parent_id"))
	if parentID.Valid {
		parent, err := h.queries.GetCommentByID(r.Context(), parentID.Int64)
		if err != nil || parent.ArticleID != article.ID {
			flashError(w, r, h.renderer, target, "Cannot reply to that comment")
			return
		}
	}

	actor := middleware.GetActor(r)
	now := time.Now().UTC()
	comment, err := h.queries.CreateComment(r.Context(), store.CreateCommentParams{
		ArticleID: article.ID,
		AuthorID:  actor.ID,
		ParentID:  parentID,
		Body:      body,
		Status:    model.CommentStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		serverError(w, "creating comment", err)
		return
	}

	h.events.LogInfo(r.Context(), model.EventCategoryComment, "comment posted", &actor.ID,
		map[string]any{"article_id": article.ID, "comment_id": comment.ID})
	flashAndRedirect(w, r, h.renderer, target, "Comment posted", "success")
}

// Delete handles POST /articles/{slug}/comments/{id}/delete. The row is
// kept with status deleted so replies stay anchored.
func (h *CommentsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	article, ok := h.loadViewable(w, r)
	if !ok {
		return
	}
	target := "/articles/" + article.Slug

	comment, err := h.queries.GetCommentByID(r.Context(), urlParamID(r, "id"))
	if err != nil || comment.ArticleID != article.ID {
		notFoundOr500(w, r, "loading comment", err)
		return
	}

	actor := middleware.GetActor(r)
	if !access.CanModerateComment(&comment, article, actor) {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	if _, err := h.queries.SetCommentStatus(r.Context(), comment.ID, model.CommentStatusDeleted, time.Now().UTC()); err != nil {
		serverError(w, "deleting comment", err)
		return
	}

	h.events.LogInfo(r.Context(), model.EventCategoryComment, "comment deleted", &actor.ID,
		map[string]any{"article_id": article.ID, "comment_id": comment.ID})
	flashAndRedirect(w, r, h.renderer, target, "Comment removed", "success")
}

// Rate handles POST /articles/{slug}/rate. value is "1" or "-1";
// repeating the same value withdraws the rating.
func (h *CommentsHandler) Rate(w http.ResponseWriter, r *http.Request) {
	article, ok := h.loadViewable(w, r)
	if !ok {
		return
	}
	target := "/articles/" + article.Slug

	var value int64
	switch r.PostFormValue("value") {
	case "1":
		value = model.RatingLike
	case "-1":
		value = model.RatingDislike
	default:
		flashError(w, r, h.renderer, target, "Invalid rating")
		return
	}

	actor := middleware.GetActor(r)
	existing, err := h.queries.GetRating(r.Context(), article.ID, actor.ID)
	if err != nil {
		serverError(w, "loading rating", err)
		return
	}

	if existing == value {
		if err := h.queries.DeleteRating(r.Context(), article.ID, actor.ID); err != nil {
			serverError(w, "removing rating", err)
			return
		}
		flashAndRedirect(w, r, h.renderer, target, "Rating removed", "success")
		return
	}

	if err := h.queries.UpsertRating(r.Context(), article.ID, actor.ID, value, time.Now().UTC()); err != nil {
		serverError(w, "saving rating", err)
		return
	}
	flashAndRedirect(w, r, h.renderer, target, "Rating saved", "success")
}

// Favorite handles POST /articles/{slug}/favorite, toggling the bookmark.
func (h *CommentsHandler) Favorite(w http.ResponseWriter, r *http.Request) {
	article, ok := h.loadViewable(w, r)
	if !ok {
		return
	}
	target := "/articles/" + article.Slug

	actor := middleware.GetActor(r)
	added, err := h.queries.ToggleFavorite(r.Context(), article.ID, actor.ID, time.Now().UTC())
	if err != nil {
		serverError(w, "toggling favorite", err)
		return
	}

	message := "Removed from favorites"
	if added {
		message = "Added to favorites"
	}
	flashAndRedirect(w, r, h.renderer, target, message, "success")
}
