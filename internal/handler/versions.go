// Copyright (c) 2025-2026 Andrey Netrebin
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"html/template"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/andreynetrebin/knowledge-base/internal/access"
	"github.com/andreynetrebin/knowledge-base/internal/cache"
	"github.com/andreynetrebin/knowledge-base/internal/middleware"
	"github.com/andreynetrebin/knowledge-base/internal/model"
	"github.com/andreynetrebin/knowledge-base/internal/render"
	"github.com/andreynetrebin/knowledge-base/internal/service"
	"github.com/andreynetrebin/knowledge-base/internal/store"
)

// VersionsHandler serves the edit history of an article: the version
// list, single version pages, diffs, and restores.
type VersionsHandler struct {
	queries  *store.Queries
	history  *service.HistoryService
	renderer *render.Renderer
	cache    *cache.Manager
	events   *service.EventService
}

// NewVersionsHandler creates a new VersionsHandler.
func NewVersionsHandler(db *sql.DB, history *service.HistoryService, renderer *render.Renderer, cm *cache.Manager, events *service.EventService) *VersionsHandler {
	return &VersionsHandler{
		queries:  store.New(db),
		history:  history,
		renderer: renderer,
		cache:    cm,
		events:   events,
	}
}

// loadArticle resolves {slug} and checks that the viewer may see the
// article at all. History pages share the read rule of the article.
func (h *VersionsHandler) loadArticle(w http.ResponseWriter, r *http.Request) (*model.Article, bool) {
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

// VersionListData holds data for the version history template.
type VersionListData struct {
	Article  model.Article
	Versions []model.ArticleVersion
	Editors  map[int64]model.User
	CanEdit  bool
}

// List handles GET /articles/{slug}/history. Versions are shown newest
// first.
func (h *VersionsHandler) List(w http.ResponseWriter, r *http.Request) {
	article, ok := h.loadArticle(w, r)
	if !ok {
		return
	}

	versions, err := h.history.ListVersions(r.Context(), article.ID)
	if err != nil {
		serverError(w, "listing versions", err)
		return
	}

	editors := make(map[int64]model.User)
	for _, v := range versions {
		if _, seen := editors[v.AuthorID]; seen {
			continue
		}
		if u, err := h.queries.GetUserByID(r.Context(), v.AuthorID); err == nil {
			editors[v.AuthorID] = u
		}
	}

	if err := h.renderer.Render(w, r, "version_list", render.Data{
		Title: "History",
		User:  middleware.GetUser(r),
		Data: VersionListData{
			Article:  *article,
			Versions: versions,
			Editors:  editors,
			CanEdit:  access.CanEdit(article, middleware.GetActor(r)),
		},
	}); err != nil {
		serverError(w, "rendering version history", err)
	}
}

// VersionDetailData holds data for the single version template.
type VersionDetailData struct {
	Article      model.Article
	Version      model.ArticleVersion
	RenderedHTML template.HTML
	Editor       model.User
	Adjacent     service.Adjacent
	IsCurrent    bool
	CanEdit      bool
}

// Detail handles GET /articles/{slug}/history/{version}. The page links
// to the chronologically adjacent versions for browsing.
func (h *VersionsHandler) Detail(w http.ResponseWriter, r *http.Request) {
	article, ok := h.loadArticle(w, r)
	if !ok {
		return
	}

	versionID := urlParamID(r, "version")
	version, err := h.history.GetVersion(r.Context(), article.ID, versionID)
	if err != nil {
		notFoundOr500(w, r, "loading version", err)
		return
	}

	adjacent, err := h.history.AdjacentVersions(r.Context(), article.ID, versionID)
	if err != nil {
		serverError(w, "loading adjacent versions", err)
		return
	}

	data := VersionDetailData{
		Article:      *article,
		Version:      version,
		RenderedHTML: render.Markdown(version.Content),
		Adjacent:     adjacent,
		IsCurrent:    article.CurrentVersionID.Valid && article.CurrentVersionID.Int64 == version.ID,
		CanEdit:      access.CanEdit(article, middleware.GetActor(r)),
	}
	if data.Editor, err = h.queries.GetUserByID(r.Context(), version.AuthorID); err != nil {
		serverError(w, "loading editor", err)
		return
	}

	if err := h.renderer.Render(w, r, "version_detail", render.Data{
		Title: version.Title + " (" + version.Label() + ")",
		User:  middleware.GetUser(r),
		Data:  data,
	}); err != nil {
		serverError(w, "rendering version", err)
	}
}

// Restore handles POST /articles/{slug}/history/{version}/restore. The
// old content comes back as a brand new version, so the trail of edits
// is never rewritten.
func (h *VersionsHandler) Restore(w http.ResponseWriter, r *http.Request) {
	article, ok := h.loadArticle(w, r)
	if !ok {
		return
	}

	actor := middleware.GetActor(r)
	if !access.CanEdit(article, actor) {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	restored, err := h.history.Restore(r.Context(), article, urlParamID(r, "version"), actor.ID, r.PostFormValue("reason"))
	if err != nil {
		notFoundOr500(w, r, "restoring version", err)
		return
	}

	h.cache.InvalidateArticle(r.Context(), article.ID)
	h.events.LogInfo(r.Context(), model.EventCategoryVersion, "article version restored", &actor.ID,
		map[string]any{"article_id": article.ID, "restored_as": restored.VersionNumber})
	flashAndRedirect(w, r, h.renderer, "/articles/"+article.Slug,
		"Restored as "+restored.Label(), "success")
}

// CompareData holds data for the version comparison template.
type CompareData struct {
	Article    model.Article
	Comparison service.Comparison
	Changed    int
}

// Compare handles GET /articles/{slug}/compare?from=ID&to=ID.
func (h *VersionsHandler) Compare(w http.ResponseWriter, r *http.Request) {
	article, ok := h.loadArticle(w, r)
	if !ok {
		return
	}

	from, _ := strconv64(r.URL.Query().Get("from"))
	to, _ := strconv64(r.URL.Query().Get("to"))
	if from <= 0 || to <= 0 {
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}

	cmp, err := h.history.Compare(r.Context(), article.ID, from, to)
	if err != nil {
		notFoundOr500(w, r, "comparing versions", err)
		return
	}

	if err := h.renderer.Render(w, r, "version_compare", render.Data{
		Title: cmp.FromLabel + " vs " + cmp.ToLabel,
		User:  middleware.GetUser(r),
		Data: CompareData{
			Article:    *article,
			Comparison: cmp,
			Changed:    cmp.ChangedLineCount(),
		},
	}); err != nil {
		serverError(w, "rendering comparison", err)
	}
}
