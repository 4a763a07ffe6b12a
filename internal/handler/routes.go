// Copyright (c) 2025-2026 Andrey Netrebin
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"io/fs"
	"net/http"

	"github.com/alexedwards/scs/v2"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/andreynetrebin/knowledge-base/internal/cache"
	"github.com/andreynetrebin/knowledge-base/internal/config"
	"github.com/andreynetrebin/knowledge-base/internal/middleware"
	"github.com/andreynetrebin/knowledge-base/internal/render"
	"github.com/andreynetrebin/knowledge-base/internal/service"
)

// Deps bundles everything the route tree needs.
type Deps struct {
	DB             *sql.DB
	Config         *config.Config
	Renderer       *render.Renderer
	SessionManager *scs.SessionManager
	Cache          *cache.Manager
	Articles       *service.ArticleService
	History        *service.HistoryService
	Events         *service.EventService
	Protection     *middleware.LoginProtection
	Static         fs.FS
}

// Routes builds the full application router.
func Routes(d Deps) http.Handler {
	isDev := d.Config.IsDevelopment()

	auth := NewAuthHandler(d.DB, d.Renderer, d.SessionManager, d.Protection, d.Events)
	articles := NewArticlesHandler(d.DB, d.Articles, d.Renderer, d.SessionManager, d.Cache, d.Events)
	versions := NewVersionsHandler(d.DB, d.History, d.Renderer, d.Cache, d.Events)
	comments := NewCommentsHandler(d.DB, d.Renderer, d.Events)
	tags := NewTagsHandler(d.DB, d.Renderer, d.Cache)
	categories := NewCategoriesHandler(d.DB, d.Renderer, d.Events)
	export := NewExportHandler(d.DB, d.Articles)
	dashboard := NewDashboardHandler(d.DB, d.Renderer, d.Events)

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.RequestID)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(middleware.SecurityHeaders(isDev))
	r.Use(d.SessionManager.LoadAndSave)
	r.Use(middleware.CSRF([]byte(d.Config.CSRFSecret), isDev))
	r.Use(middleware.LoadUser(d.SessionManager, d.DB))

	if d.Static != nil {
		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(d.Static))))
	}

	// Public pages.
	r.Get("/", articles.List)
	r.Get("/articles", articles.List)
	r.Get("/articles/{slug}", articles.Detail)
	r.Get("/articles/{slug}/history", versions.List)
	r.Get("/articles/{slug}/history/{version}", versions.Detail)
	r.Get("/articles/{slug}/compare", versions.Compare)
	r.Get("/articles/{slug}/export/{format}", export.Export)
	r.Get("/tags", tags.Cloud)
	r.Get("/tags/{slug}", tags.Detail)
	r.Get("/categories", categories.List)
	r.Get("/categories/{slug}", categories.Detail)

	// Authentication.
	r.Get("/login", auth.LoginForm)
	r.With(d.Protection.Middleware()).Post("/login", auth.Login)
	r.Get("/register", auth.RegisterForm)
	r.Post("/register", auth.Register)

	// Signed-in users.
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(d.SessionManager))

		r.Post("/logout", auth.Logout)
		r.Get("/dashboard", dashboard.Home)

		r.Get("/articles/new", articles.NewForm)
		r.Post("/articles", articles.Create)
		r.Get("/articles/{slug}/edit", articles.EditForm)
		r.Post("/articles/{slug}/edit", articles.Update)
		r.Post("/articles/{slug}/status", articles.SetStatus)
		r.Post("/articles/{slug}/history/{version}/restore", versions.Restore)

		r.Post("/articles/{slug}/comments", comments.Create)
		r.Post("/articles/{slug}/comments/{id}/delete", comments.Delete)
		r.Post("/articles/{slug}/rate", comments.Rate)
		r.Post("/articles/{slug}/favorite", comments.Favorite)
	})

	// Staff only.
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireAuth(d.SessionManager))
		r.Use(middleware.RequireStaff())

		r.Get("/categories/manage", categories.ManageForm)
		r.Post("/categories/manage", categories.Create)
		r.Post("/categories/manage/{id}", categories.Update)
		r.Post("/categories/manage/{id}/delete", categories.Delete)
	})

	return r
}
