// Copyright (c) 2025-2026 Andrey Netrebin
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/andreynetrebin/knowledge-base/internal/middleware"
	"github.com/andreynetrebin/knowledge-base/internal/model"
	"github.com/andreynetrebin/knowledge-base/internal/render"
	"github.com/andreynetrebin/knowledge-base/internal/service"
	"github.com/andreynetrebin/knowledge-base/internal/store"
	"github.com/andreynetrebin/knowledge-base/internal/util"
)

// CategoriesHandler serves the category tree and the staff-only
// management endpoints.
type CategoriesHandler struct {
	queries  *store.Queries
	renderer *render.Renderer
	events   *service.EventService
}

// NewCategoriesHandler creates a new CategoriesHandler.
func NewCategoriesHandler(db *sql.DB, renderer *render.Renderer, events *service.EventService) *CategoriesHandler {
	return &CategoriesHandler{queries: store.New(db), renderer: renderer, events: events}
}

// CategoryListData holds data for the category index template.
type CategoryListData struct {
	Categories []model.Category
	Counts     map[int64]int64
}

// List handles GET /categories.
func (h *CategoriesHandler) List(w http.ResponseWriter, r *http.Request) {
	categories, err := h.queries.ListCategories(r.Context())
	if err != nil {
		serverError(w, "listing categories", err)
		return
	}

	actor := middleware.GetActor(r)
	counts := make(map[int64]int64, len(categories))
	for _, c := range categories {
		n, err := h.queries.CountArticles(r.Context(), store.ListArticlesParams{
			VisibleToUserID: actor.ID,
			CategoryID:      c.ID,
		})
		if err != nil {
			serverError(w, "counting articles", err)
			return
		}
		counts[c.ID] = n
	}

	if err := h.renderer.Render(w, r, "categories", render.Data{
		Title: "Categories",
		User:  middleware.GetUser(r),
		Data:  CategoryListData{Categories: categories, Counts: counts},
	}); err != nil {
		serverError(w, "rendering categories", err)
	}
}

// CategoryDetailData holds data for the per-category listing template.
type CategoryDetailData struct {
	Category   model.Category
	Subtree    []model.Category
	Articles   []model.Article
	Pagination Pagination
}

// Detail handles GET /categories/{slug}. Articles from the whole
// subtree are included, so parent categories aggregate their children.
func (h *CategoriesHandler) Detail(w http.ResponseWriter, r *http.Request) {
	category, err := h.queries.GetCategoryBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		notFoundOr500(w, r, "loading category", err)
		return
	}

	subtree, err := h.queries.ListCategorySubtree(r.Context(), category)
	if err != nil {
		serverError(w, "loading category subtree", err)
		return
	}

	actor := middleware.GetActor(r)
	data := CategoryDetailData{Category: category, Subtree: subtree}

	var total int64
	for _, c := range subtree {
		n, err := h.queries.CountArticles(r.Context(), store.ListArticlesParams{
			VisibleToUserID: actor.ID,
			CategoryID:      c.ID,
		})
		if err != nil {
			serverError(w, "counting articles", err)
			return
		}
		total += n
	}

	pagination, offset := paginate(total, ArticlesPerPage, queryPage(r))
	data.Pagination = pagination

	// Page across the subtree in tree order. Subtrees are small, so
	// walking them per request is fine.
	remaining := int64(ArticlesPerPage)
	skip := offset
	for _, c := range subtree {
		if remaining <= 0 {
			break
		}
		articles, err := h.queries.ListArticles(r.Context(), store.ListArticlesParams{
			VisibleToUserID: actor.ID,
			CategoryID:      c.ID,
			Limit:           skip + remaining,
		})
		if err != nil {
			serverError(w, "listing articles", err)
			return
		}
		for _, a := range articles {
			if skip > 0 {
				skip--
				continue
			}
			data.Articles = append(data.Articles, a)
			if remaining--; remaining <= 0 {
				break
			}
		}
	}

	if err := h.renderer.Render(w, r, "category_detail", render.Data{
		Title: category.Name,
		User:  middleware.GetUser(r),
		Data:  data,
	}); err != nil {
		serverError(w, "rendering category", err)
	}
}

// ManageForm handles GET /categories/manage (staff only).
func (h *CategoriesHandler) ManageForm(w http.ResponseWriter, r *http.Request) {
	h.renderManage(w, r, nil)
}

func (h *CategoriesHandler) renderManage(w http.ResponseWriter, r *http.Request, formErrors map[string]string) {
	categories, err := h.queries.ListCategories(r.Context())
	if err != nil {
		serverError(w, "listing categories", err)
		return
	}
	if err := h.renderer.Render(w, r, "category_manage", render.Data{
		Title:  "Manage Categories",
		User:   middleware.GetUser(r),
		Data:   categories,
		Errors: formErrors,
	}); err != nil {
		serverError(w, "rendering category management", err)
	}
}

// Create handles POST /categories/manage (staff only).
func (h *CategoriesHandler) Create(w http.ResponseWriter, r *http.Request) {
	name := strings.TrimSpace(r.PostFormValue("name"))
	if name == "" {
		h.renderManage(w, r, map[string]string{"name": "Name is required"})
		return
	}

	parentID := util.ParseNullInt64(r.PostFormValue("parent_id"))
	if parentID.Valid {
		if _, err := h.queries.GetCategoryByID(r.Context(), parentID.Int64); err != nil {
			h.renderManage(w, r, map[string]string{"parent": "Parent category does not exist"})
			return
		}
	}

	now := time.Now().UTC()
	category, err := h.queries.CreateCategory(r.Context(), store.CreateCategoryParams{
		Name:        name,
		Slug:        util.Slugify(name),
		Description: strings.TrimSpace(r.PostFormValue("description")),
		ParentID:    parentID,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			h.renderManage(w, r, map[string]string{"name": "A category with this name already exists"})
			return
		}
		serverError(w, "creating category", err)
		return
	}

	actor := middleware.GetActor(r)
	h.events.LogInfo(r.Context(), model.EventCategorySystem, "category created", &actor.ID,
		map[string]any{"category_id": category.ID, "slug": category.Slug})
	flashAndRedirect(w, r, h.renderer, "/categories/manage", "Category created", "success")
}

// Update handles POST /categories/manage/{id} (staff only).
func (h *CategoriesHandler) Update(w http.ResponseWriter, r *http.Request) {
	category, err := h.queries.GetCategoryByID(r.Context(), urlParamID(r, "id"))
	if err != nil {
		notFoundOr500(w, r, "loading category", err)
		return
	}

	name := strings.TrimSpace(r.PostFormValue("name"))
	if name == "" {
		h.renderManage(w, r, map[string]string{"name": "Name is required"})
		return
	}

	if _, err := h.queries.UpdateCategory(r.Context(), store.UpdateCategoryParams{
		ID:          category.ID,
		Name:        name,
		Slug:        util.Slugify(name),
		Description: strings.TrimSpace(r.PostFormValue("description")),
		UpdatedAt:   time.Now().UTC(),
	}); err != nil {
		if errors.Is(err, store.ErrConflict) {
			h.renderManage(w, r, map[string]string{"name": "A category with this name already exists"})
			return
		}
		serverError(w, "updating category", err)
		return
	}

	flashAndRedirect(w, r, h.renderer, "/categories/manage", "Category updated", "success")
}

// Delete handles POST /categories/manage/{id}/delete (staff only).
// Deletion is refused while the category still holds articles or
// child categories.
func (h *CategoriesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	category, err := h.queries.GetCategoryByID(r.Context(), urlParamID(r, "id"))
	if err != nil {
		notFoundOr500(w, r, "loading category", err)
		return
	}

	if err := h.queries.DeleteCategory(r.Context(), category.ID); err != nil {
		if errors.Is(err, store.ErrConflict) {
			h.renderManage(w, r, map[string]string{"delete": "Category still has articles or subcategories"})
			return
		}
		serverError(w, "deleting category", err)
		return
	}

	actor := middleware.GetActor(r)
	h.events.LogInfo(r.Context(), model.EventCategorySystem, "category deleted", &actor.ID,
		map[string]any{"category_id": category.ID})
	flashAndRedirect(w, r, h.renderer, "/categories/manage", "Category deleted", "success")
}
