// Copyright (c) 2025-2026 Andrey Netrebin
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/andreynetrebin/knowledge-base/internal/cache"
	"github.com/andreynetrebin/knowledge-base/internal/middleware"
	"github.com/andreynetrebin/knowledge-base/internal/model"
	"github.com/andreynetrebin/knowledge-base/internal/render"
	"github.com/andreynetrebin/knowledge-base/internal/store"
)

// TagCloudLimit caps how many tags the cloud shows.
const TagCloudLimit = 100

// TagsHandler serves the tag cloud and per-tag article listings.
type TagsHandler struct {
	queries  *store.Queries
	renderer *render.Renderer
	cache    *cache.Manager
}

// NewTagsHandler creates a new TagsHandler.
func NewTagsHandler(db *sql.DB, renderer *render.Renderer, cm *cache.Manager) *TagsHandler {
	return &TagsHandler{queries: store.New(db), renderer: renderer, cache: cm}
}

// Cloud handles GET /tags. The counted tag list is cached briefly since
// it touches every article-tag pair.
func (h *TagsHandler) Cloud(w http.ResponseWriter, r *http.Request) {
	var tags []store.TagWithCount

	if raw, err := h.cache.TagCloud(r.Context()); err == nil {
		if err := json.Unmarshal(raw, &tags); err != nil {
			slog.Warn("decoding cached tag cloud", "error", err)
			tags = nil
		}
	}

	if tags == nil {
		var err error
		tags, err = h.queries.ListTagsWithCounts(r.Context(), TagCloudLimit)
		if err != nil {
			serverError(w, "listing tags", err)
			return
		}
		if raw, err := json.Marshal(tags); err == nil {
			h.cache.StoreTagCloud(r.Context(), raw)
		}
	}

	if err := h.renderer.Render(w, r, "tags", render.Data{
		Title: "Tags",
		User:  middleware.GetUser(r),
		Data:  tags,
	}); err != nil {
		serverError(w, "rendering tag cloud", err)
	}
}

// TagDetailData holds data for the per-tag listing template.
type TagDetailData struct {
	Tag        model.Tag
	Articles   []model.Article
	Pagination Pagination
}

// Detail handles GET /tags/{slug}: articles carrying the tag, subject to
// the viewer's normal visibility rules.
func (h *TagsHandler) Detail(w http.ResponseWriter, r *http.Request) {
	tag, err := h.queries.GetTagBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		notFoundOr500(w, r, "loading tag", err)
		return
	}

	actor := middleware.GetActor(r)
	params := store.ListArticlesParams{VisibleToUserID: actor.ID, TagID: tag.ID}

	total, err := h.queries.CountArticles(r.Context(), params)
	if err != nil {
		serverError(w, "counting articles", err)
		return
	}

	data := TagDetailData{Tag: tag}
	var offset int64
	data.Pagination, offset = paginate(total, ArticlesPerPage, queryPage(r))
	params.Limit = ArticlesPerPage
	params.Offset = offset

	if data.Articles, err = h.queries.ListArticles(r.Context(), params); err != nil {
		serverError(w, "listing articles", err)
		return
	}

	if err := h.renderer.Render(w, r, "tag_detail", render.Data{
		Title: "Tag: " + tag.Name,
		User:  middleware.GetUser(r),
		Data:  data,
	}); err != nil {
		serverError(w, "rendering tag page", err)
	}
}
