// Copyright (c) 2025-2026 Andrey Netrebin
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"errors"
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"

	"github.com/andreynetrebin/knowledge-base/internal/access"
	"github.com/andreynetrebin/knowledge-base/internal/cache"
	"github.com/andreynetrebin/knowledge-base/internal/middleware"
	"github.com/andreynetrebin/knowledge-base/internal/model"
	"github.com/andreynetrebin/knowledge-base/internal/render"
	"github.com/andreynetrebin/knowledge-base/internal/service"
	"github.com/andreynetrebin/knowledge-base/internal/store"
)

// ArticlesHandler serves article listing, reading, and editing.
type ArticlesHandler struct {
	queries        *store.Queries
	articles       *service.ArticleService
	renderer       *render.Renderer
	sessionManager *scs.SessionManager
	cache          *cache.Manager
	events         *service.EventService
}

// NewArticlesHandler creates a new ArticlesHandler.
func NewArticlesHandler(db *sql.DB, articles *service.ArticleService, renderer *render.Renderer, sm *scs.SessionManager, cm *cache.Manager, events *service.EventService) *ArticlesHandler {
	return &ArticlesHandler{
		queries:        store.New(db),
		articles:       articles,
		renderer:       renderer,
		sessionManager: sm,
		cache:          cm,
		events:         events,
	}
}

// ArticleListData holds data for the article list template.
type ArticleListData struct {
	Articles   []model.Article
	Categories []model.Category
	Category   *model.Category
	Tag        *model.Tag
	Search     string
	Pagination Pagination
}

// List handles GET /articles. Catalogue of published articles plus the
// viewer's own, filterable by category, tag, and search text.
func (h *ArticlesHandler) List(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetActor(r)

	params := store.ListArticlesParams{
		VisibleToUserID: actor.ID,
		Search:          strings.TrimSpace(r.URL.Query().Get("q")),
	}

	data := ArticleListData{Search: params.Search}

	if slug := r.URL.Query().Get("category"); slug != "" {
		category, err := h.queries.GetCategoryBySlug(r.Context(), slug)
		if err != nil {
			notFoundOr500(w, r, "loading category filter", err)
			return
		}
		params.CategoryID = category.ID
		data.Category = &category
	}

	if slug := r.URL.Query().Get("tag"); slug != "" {
		tag, err := h.queries.GetTagBySlug(r.Context(), slug)
		if err != nil {
			notFoundOr500(w, r, "loading tag filter", err)
			return
		}
		params.TagID = tag.ID
		data.Tag = &tag
	}

	total, err := h.queries.CountArticles(r.Context(), params)
	if err != nil {
		serverError(w, "counting articles", err)
		return
	}

	var offset int64
	data.Pagination, offset = paginate(total, ArticlesPerPage, queryPage(r))
	params.Limit = ArticlesPerPage
	params.Offset = offset

	data.Articles, err = h.queries.ListArticles(r.Context(), params)
	if err != nil {
		serverError(w, "listing articles", err)
		return
	}

	data.Categories, err = h.queries.ListCategories(r.Context())
	if err != nil {
		serverError(w, "listing categories", err)
		return
	}

	if err := h.renderer.Render(w, r, "articles_list", render.Data{
		Title: "Articles",
		User:  middleware.GetUser(r),
		Data:  data,
	}); err != nil {
		serverError(w, "rendering article list", err)
	}
}

// ArticleDetailData holds data for the article detail template.
type ArticleDetailData struct {
	Article        model.Article
	Version        model.ArticleVersion
	RenderedHTML   template.HTML
	Author         model.User
	Category       model.Category
	Tags           []model.Tag
	Comments       []model.Comment
	CommentAuthors map[int64]model.User
	Likes          int64
	Dislikes       int64
	UserRating     int64
	IsFavorite     bool
	CanEdit        bool
	Badge          access.Badge
	VersionCount   int64
}

// Detail handles GET /articles/{slug}.
func (h *ArticlesHandler) Detail(w http.ResponseWriter, r *http.Request) {
	actor := middleware.GetActor(r)

	article, err := h.queries.GetArticleBySlug(r.Context(), strings.TrimSpace(chi.URLParam(r, "slug")))
	if err != nil {
		notFoundOr500(w, r, "loading article", err)
		return
	}

	if !access.CanView(&article, actor) {
		h.renderDenied(w, r, article.Status)
		return
	}

	version, err := h.articles.CurrentVersion(r.Context(), &article)
	if err != nil {
		notFoundOr500(w, r, "loading current version", err)
		return
	}

	data := ArticleDetailData{
		Article: article,
		Version: *version,
		CanEdit: access.CanEdit(&article, actor),
		Badge:   access.StatusBadge(article.Status),
	}

	// Rendered markdown is cached per version; any content change allocates
	// a new version ID and misses naturally.
	if html, err := h.cache.RenderedHTML(r.Context(), article.ID, version.ID); err == nil {
		data.RenderedHTML = template.HTML(html)
	} else {
		data.RenderedHTML = render.Markdown(version.Content)
		h.cache.StoreRenderedHTML(r.Context(), article.ID, version.ID, string(data.RenderedHTML))
	}

	if data.Author, err = h.queries.GetUserByID(r.Context(), article.AuthorID); err != nil {
		serverError(w, "loading author", err)
		return
	}
	if data.Category, err = h.queries.GetCategoryByID(r.Context(), article.CategoryID); err != nil {
		serverError(w, "loading category", err)
		return
	}
	if data.Tags, err = h.queries.ListTagsForArticle(r.Context(), article.ID); err != nil {
		serverError(w, "loading tags", err)
		return
	}
	if data.Comments, err = h.queries.ListCommentsForArticle(r.Context(), article.ID); err != nil {
		serverError(w, "loading comments", err)
		return
	}
	data.CommentAuthors = make(map[int64]model.User)
	for _, c := range data.Comments {
		if _, seen := data.CommentAuthors[c.AuthorID]; seen {
			continue
		}
		if u, err := h.queries.GetUserByID(r.Context(), c.AuthorID); err == nil {
			data.CommentAuthors[c.AuthorID] = u
		}
	}

	if data.Likes, data.Dislikes, err = h.queries.CountRatings(r.Context(), article.ID); err != nil {
		serverError(w, "counting ratings", err)
		return
	}
	if actor.IsAuthenticated {
		if data.UserRating, err = h.queries.GetRating(r.Context(), article.ID, actor.ID); err != nil {
			serverError(w, "loading rating", err)
			return
		}
		if data.IsFavorite, err = h.queries.IsFavorite(r.Context(), article.ID, actor.ID); err != nil {
			serverError(w, "loading favorite state", err)
			return
		}
	}
	if data.VersionCount, err = h.queries.CountVersions(r.Context(), article.ID); err != nil {
		serverError(w, "counting versions", err)
		return
	}

	h.articles.RecordView(r.Context(), &article)

	if err := h.renderer.Render(w, r, "article_detail", render.Data{
		Title: version.Title,
		User:  middleware.GetUser(r),
		Data:  data,
	}); err != nil {
		serverError(w, "rendering article", err)
	}
}

// renderDenied shows the status-specific denial page with a 403.
func (h *ArticlesHandler) renderDenied(w http.ResponseWriter, r *http.Request, status string) {
	w.WriteHeader(http.StatusForbidden)
	if err := h.renderer.Render(w, r, "access_denied", render.Data{
		Title: "Access Denied",
		User:  middleware.GetUser(r),
		Data:  access.DeniedMessage(status),
	}); err != nil {
		serverError(w, "rendering access denied page", err)
	}
}

// ArticleFormData holds data for the article create/edit form.
type ArticleFormData struct {
	Article    *model.Article
	Input      service.ArticleInput
	TagNames   string
	Categories []model.Category
	Statuses   []string
	IsEdit     bool
}

// NewForm handles GET /articles/new.
func (h *ArticlesHandler) NewForm(w http.ResponseWriter, r *http.Request) {
	h.renderForm(w, r, ArticleFormData{Statuses: model.ValidStatuses}, nil)
}

func (h *ArticlesHandler) renderForm(w http.ResponseWriter, r *http.Request, data ArticleFormData, formErrors map[string]string) {
	var err error
	data.Categories, err = h.queries.ListCategories(r.Context())
	if err != nil {
		serverError(w, "listing categories", err)
		return
	}
	data.Statuses = model.ValidStatuses

	title := "New Article"
	if data.IsEdit {
		title = "Edit Article"
	}
	if err := h.renderer.Render(w, r, "article_form", render.Data{
		Title:  title,
		User:   middleware.GetUser(r),
		Data:   data,
		Errors: formErrors,
	}); err != nil {
		serverError(w, "rendering article form", err)
	}
}

// parseArticleForm extracts an ArticleInput from the posted form.
func parseArticleForm(r *http.Request) service.ArticleInput {
	var tags []string
	for _, name := range strings.Split(r.PostFormValue("tags"), ",") {
		if name = strings.TrimSpace(name); name != "" {
			tags = append(tags, name)
		}
	}

	categoryID, _ := strconv.ParseInt(r.PostFormValue("category_id"), 10, 64)

	return service.ArticleInput{
		Title:        strings.TrimSpace(r.PostFormValue("title")),
		Content:      r.PostFormValue("content"),
		Excerpt:      strings.TrimSpace(r.PostFormValue("excerpt")),
		CategoryID:   categoryID,
		Status:       r.PostFormValue("status"),
		IsPinned:     r.PostFormValue("is_pinned") == "on",
		ChangeReason: strings.TrimSpace(r.PostFormValue("change_reason")),
		TagNames:     tags,
	}
}

// Create handles POST /articles.
func (h *ArticlesHandler) Create(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		flashError(w, r, h.renderer, "/articles/new", "Invalid form data")
		return
	}

	input := parseArticleForm(r)
	if formErrors := input.Validate(); len(formErrors) > 0 {
		h.renderForm(w, r, ArticleFormData{Input: input, TagNames: r.PostFormValue("tags")}, formErrors)
		return
	}

	actor := middleware.GetActor(r)
	article, err := h.articles.Create(r.Context(), input, actor)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			h.renderForm(w, r, ArticleFormData{Input: input, TagNames: r.PostFormValue("tags")},
				map[string]string{"title": "An article with this title already exists"})
			return
		}
		serverError(w, "creating article", err)
		return
	}

	h.cache.InvalidateTagCloud(r.Context())
	h.events.LogInfo(r.Context(), model.EventCategoryArticle, "article created", &actor.ID,
		map[string]any{"article_id": article.ID, "slug": article.Slug})
	flashAndRedirect(w, r, h.renderer, "/articles/"+article.Slug, "Article created", "success")
}

// EditForm handles GET /articles/{slug}/edit.
func (h *ArticlesHandler) EditForm(w http.ResponseWriter, r *http.Request) {
	article, version, ok := h.loadEditable(w, r)
	if !ok {
		return
	}

	tags, err := h.queries.ListTagsForArticle(r.Context(), article.ID)
	if err != nil {
		serverError(w, "loading tags", err)
		return
	}
	names := make([]string, len(tags))
	for i, tag := range tags {
		names[i] = tag.Name
	}

	h.renderForm(w, r, ArticleFormData{
		Article: article,
		Input: service.ArticleInput{
			Title:      version.Title,
			Content:    version.Content,
			Excerpt:    version.Excerpt,
			CategoryID: article.CategoryID,
			Status:     article.Status,
			IsPinned:   article.IsPinned,
		},
		TagNames: strings.Join(names, ", "),
		IsEdit:   true,
	}, nil)
}

// Update handles POST /articles/{slug}/edit.
func (h *ArticlesHandler) Update(w http.ResponseWriter, r *http.Request) {
	article, _, ok := h.loadEditable(w, r)
	if !ok {
		return
	}

	if err := r.ParseForm(); err != nil {
		flashError(w, r, h.renderer, "/articles/"+article.Slug+"/edit", "Invalid form data")
		return
	}

	input := parseArticleForm(r)
	if formErrors := input.Validate(); len(formErrors) > 0 {
		h.renderForm(w, r, ArticleFormData{
			Article: article, Input: input, TagNames: r.PostFormValue("tags"), IsEdit: true,
		}, formErrors)
		return
	}

	actor := middleware.GetActor(r)
	updated, versioned, err := h.articles.Update(r.Context(), article, input, actor)
	if err != nil {
		serverError(w, "updating article", err)
		return
	}

	h.cache.InvalidateArticle(r.Context(), updated.ID)
	h.cache.InvalidateTagCloud(r.Context())

	message := "Article updated"
	if versioned {
		message = "Article updated; a new version was saved"
		h.events.LogInfo(r.Context(), model.EventCategoryVersion, "article version created", &actor.ID,
			map[string]any{"article_id": updated.ID})
	}
	flashAndRedirect(w, r, h.renderer, "/articles/"+updated.Slug, message, "success")
}

// SetStatus handles POST /articles/{slug}/status. Publishing stamps
// published_at; moving out of published clears it.
func (h *ArticlesHandler) SetStatus(w http.ResponseWriter, r *http.Request) {
	article, _, ok := h.loadEditable(w, r)
	if !ok {
		return
	}

	status := r.PostFormValue("status")
	if !model.IsValidStatus(status) {
		flashError(w, r, h.renderer, "/articles/"+article.Slug, "Invalid status")
		return
	}

	updated, err := h.articles.SetStatus(r.Context(), article, status)
	if err != nil {
		serverError(w, "changing article status", err)
		return
	}

	actor := middleware.GetActor(r)
	h.events.LogInfo(r.Context(), model.EventCategoryArticle, "article status changed", &actor.ID,
		map[string]any{"article_id": updated.ID, "status": status})
	flashAndRedirect(w, r, h.renderer, "/articles/"+updated.Slug, "Status changed to "+status, "success")
}

// loadEditable resolves {slug} and enforces the author-only edit rule.
func (h *ArticlesHandler) loadEditable(w http.ResponseWriter, r *http.Request) (*model.Article, *model.ArticleVersion, bool) {
	actor := middleware.GetActor(r)

	article, err := h.queries.GetArticleBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		notFoundOr500(w, r, "loading article", err)
		return nil, nil, false
	}
	if !access.CanEdit(&article, actor) {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return nil, nil, false
	}

	version, err := h.articles.CurrentVersion(r.Context(), &article)
	if err != nil {
		notFoundOr500(w, r, "loading current version", err)
		return nil, nil, false
	}
	return &article, version, true
}
