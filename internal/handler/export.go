// Copyright (c) 2025-2026 Andrey Netrebin
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"fmt"
	"html"
	"net/http"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/andreynetrebin/knowledge-base/internal/access"
	"github.com/andreynetrebin/knowledge-base/internal/middleware"
	"github.com/andreynetrebin/knowledge-base/internal/render"
	"github.com/andreynetrebin/knowledge-base/internal/service"
	"github.com/andreynetrebin/knowledge-base/internal/store"
)

// ExportHandler serves article downloads in portable formats.
type ExportHandler struct {
	queries  *store.Queries
	articles *service.ArticleService
}

// NewExportHandler creates a new ExportHandler.
func NewExportHandler(db *sql.DB, articles *service.ArticleService) *ExportHandler {
	return &ExportHandler{queries: store.New(db), articles: articles}
}

var htmlTagPattern = regexp.MustCompile(`<[^>]*>`)

// Export handles GET /articles/{slug}/export/{format} where format is
// one of html, md, or txt. The download always reflects the current
// version.
func (h *ExportHandler) Export(w http.ResponseWriter, r *http.Request) {
	article, err := h.queries.GetArticleBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		notFoundOr500(w, r, "loading article", err)
		return
	}
	if !access.CanView(&article, middleware.GetActor(r)) {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	version, err := h.articles.CurrentVersion(r.Context(), &article)
	if err != nil {
		notFoundOr500(w, r, "loading current version", err)
		return
	}

	var (
		body        string
		contentType string
		ext         string
	)
	switch chi.URLParam(r, "format") {
	case "md":
		body = fmt.Sprintf("# %s\n\n%s\n", version.Title, version.Content)
		contentType = "text/markdown; charset=utf-8"
		ext = "md"
	case "txt":
		rendered := string(render.Markdown(version.Content))
		text := html.UnescapeString(htmlTagPattern.ReplaceAllString(rendered, ""))
		body = version.Title + "\n\n" + strings.TrimSpace(text) + "\n"
		contentType = "text/plain; charset=utf-8"
		ext = "txt"
	case "html":
		title := html.EscapeString(version.Title)
		body = fmt.Sprintf("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>%s</title>\n</head>\n<body>\n<h1>%s</h1>\n%s</body>\n</html>\n",
			title, title, render.Markdown(version.Content))
		contentType = "text/html; charset=utf-8"
		ext = "html"
	default:
		http.Error(w, "Unsupported export format", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", article.Slug+"."+ext))
	w.Write([]byte(body))
}
