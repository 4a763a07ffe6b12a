// Copyright (c) 2025-2026 Andrey Netrebin
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"net/http"

	"github.com/andreynetrebin/knowledge-base/internal/middleware"
	"github.com/andreynetrebin/knowledge-base/internal/model"
	"github.com/andreynetrebin/knowledge-base/internal/render"
	"github.com/andreynetrebin/knowledge-base/internal/service"
	"github.com/andreynetrebin/knowledge-base/internal/store"
)

// RecentEventsLimit is how many audit events the staff dashboard shows.
const RecentEventsLimit = 50

// DashboardHandler serves the signed-in user's home page: their own
// articles, favorites, and for staff the recent event feed.
type DashboardHandler struct {
	queries  *store.Queries
	renderer *render.Renderer
	events   *service.EventService
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(db *sql.DB, renderer *render.Renderer, events *service.EventService) *DashboardHandler {
	return &DashboardHandler{queries: store.New(db), renderer: renderer, events: events}
}

// DashboardData holds data for the dashboard template.
type DashboardData struct {
	Articles     []model.Article
	StatusCounts map[string]int64
	Favorites    []model.Article
	Events       []model.Event
}

// Home handles GET /dashboard.
func (h *DashboardHandler) Home(w http.ResponseWriter, r *http.Request) {
	user := middleware.GetUser(r)

	var (
		data DashboardData
		err  error
	)
	if data.Articles, err = h.queries.ListArticlesByAuthor(r.Context(), user.ID); err != nil {
		serverError(w, "listing own articles", err)
		return
	}
	if data.StatusCounts, err = h.queries.CountArticlesByAuthorStatus(r.Context(), user.ID); err != nil {
		serverError(w, "counting own articles", err)
		return
	}
	if data.Favorites, err = h.queries.ListFavoriteArticles(r.Context(), user.ID); err != nil {
		serverError(w, "listing favorites", err)
		return
	}

	if user.IsStaff() {
		if data.Events, err = h.events.Recent(r.Context(), RecentEventsLimit); err != nil {
			serverError(w, "listing recent events", err)
			return
		}
	}

	if err := h.renderer.Render(w, r, "dashboard", render.Data{
		Title: "Dashboard",
		User:  user,
		Data:  data,
	}); err != nil {
		serverError(w, "rendering dashboard", err)
	}
}
