// Copyright (c) 2025-2026 Andrey Netrebin
// SPDX-License-Identifier: GPL-3.0-or-later

// Package handler implements the HTTP routes: articles and their version
// history, authentication, categories, tags, comments, and the dashboard.
package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/andreynetrebin/knowledge-base/internal/render"
	"github.com/andreynetrebin/knowledge-base/internal/store"
)

// ArticlesPerPage is the page size for article listings.
const ArticlesPerPage = 20

// urlParamID parses a chi URL parameter as an int64 ID. Returns 0 when the
// parameter is missing or not a positive integer.
func urlParamID(r *http.Request, name string) int64 {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0
	}
	return id
}

// queryPage parses the ?page= parameter, defaulting to 1.
func queryPage(r *http.Request) int {
	p, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || p < 1 {
		return 1
	}
	return p
}

// Pagination carries the page-navigation state for list templates.
type Pagination struct {
	Current int
	Total   int
	HasPrev bool
	HasNext bool
	Prev    int
	Next    int
}

// paginate clamps page into range and returns the pagination state plus
// the row offset.
func paginate(totalCount int64, perPage int64, page int) (Pagination, int64) {
	totalPages := int((totalCount + perPage - 1) / perPage)
	if totalPages < 1 {
		totalPages = 1
	}
	if page > totalPages {
		page = totalPages
	}
	if page < 1 {
		page = 1
	}

	p := Pagination{
		Current: page,
		Total:   totalPages,
		HasPrev: page > 1,
		HasNext: page < totalPages,
		Prev:    page - 1,
		Next:    page + 1,
	}
	return p, int64(page-1) * perPage
}

// serverError logs the error and writes a generic 500.
func serverError(w http.ResponseWriter, msg string, err error) {
	slog.Error(msg, "error", err)
	http.Error(w, "Internal Server Error", http.StatusInternalServerError)
}

// notFoundOr500 writes a 404 for store.ErrNotFound and a 500 for anything
// else.
func notFoundOr500(w http.ResponseWriter, r *http.Request, msg string, err error) {
	if errors.Is(err, store.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	serverError(w, msg, err)
}

// flashAndRedirect queues a flash message and sends the browser on.
func flashAndRedirect(w http.ResponseWriter, r *http.Request, renderer *render.Renderer, target, message, kind string) {
	renderer.SetFlash(r, message, kind)
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// flashError is flashAndRedirect with the error styling.
func flashError(w http.ResponseWriter, r *http.Request, renderer *render.Renderer, target, message string) {
	flashAndRedirect(w, r, renderer, target, message, "error")
}

// strconv64 parses a positive int64 from query text.
func strconv64(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}
