// Copyright (c) 2025-2026 Andrey Netrebin
// SPDX-License-Identifier: GPL-3.0-or-later

package handler

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"

	"github.com/andreynetrebin/knowledge-base/internal/auth"
	"github.com/andreynetrebin/knowledge-base/internal/middleware"
	"github.com/andreynetrebin/knowledge-base/internal/model"
	"github.com/andreynetrebin/knowledge-base/internal/render"
	"github.com/andreynetrebin/knowledge-base/internal/service"
	"github.com/andreynetrebin/knowledge-base/internal/session"
	"github.com/andreynetrebin/knowledge-base/internal/store"
)

// AuthHandler serves login, logout, and registration.
type AuthHandler struct {
	queries        *store.Queries
	renderer       *render.Renderer
	sessionManager *scs.SessionManager
	protection     *middleware.LoginProtection
	events         *service.EventService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(db *sql.DB, renderer *render.Renderer, sm *scs.SessionManager, lp *middleware.LoginProtection, events *service.EventService) *AuthHandler {
	return &AuthHandler{
		queries:        store.New(db),
		renderer:       renderer,
		sessionManager: sm,
		protection:     lp,
		events:         events,
	}
}

// LoginForm handles GET /login.
func (h *AuthHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	if middleware.GetUser(r) != nil {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}

	if err := h.renderer.Render(w, r, "login", render.Data{Title: "Sign In"}); err != nil {
		serverError(w, "rendering login form", err)
	}
}

// Login handles POST /login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		flashError(w, r, h.renderer, "/login", "Invalid form data")
		return
	}

	email := strings.ToLower(strings.TrimSpace(r.PostFormValue("email")))
	password := r.PostFormValue("password")
	if email == "" || password == "" {
		flashError(w, r, h.renderer, "/login", "Email and password are required")
		return
	}

	if locked, remaining := h.protection.IsLocked(email); locked {
		flashError(w, r, h.renderer, "/login",
			fmt.Sprintf("Account temporarily locked. Try again in %s.", formatDuration(remaining)))
		return
	}

	user, err := h.queries.GetUserByEmail(r.Context(), email)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			serverError(w, "loading user for login", err)
			return
		}
		h.failLogin(w, r, email)
		return
	}

	ok, err := auth.CheckPassword(password, user.PasswordHash)
	if err != nil || !ok || !user.IsActive {
		h.failLogin(w, r, email)
		return
	}

	// Parameters drift over time; upgrade the stored hash while we still
	// have the cleartext.
	if auth.NeedsRehash(user.PasswordHash) {
		if newHash, err := auth.HashPassword(password); err == nil {
			_ = h.queries.UpdateUserPassword(r.Context(), user.ID, newHash, time.Now())
		}
	}

	h.protection.RecordSuccess(email)
	if err := session.SignIn(r.Context(), h.sessionManager, user.ID); err != nil {
		serverError(w, "establishing session", err)
		return
	}

	h.events.LogInfo(r.Context(), model.EventCategoryAuth, "user signed in", &user.ID, nil)

	target := session.PopRedirect(r.Context(), h.sessionManager)
	if target == "" {
		target = "/dashboard"
	}
	flashAndRedirect(w, r, h.renderer, target, "Welcome back, "+user.Name, "success")
}

func (h *AuthHandler) failLogin(w http.ResponseWriter, r *http.Request, email string) {
	if locked, lockout := h.protection.RecordFailure(email); locked {
		h.events.LogWarning(r.Context(), model.EventCategoryAuth, "account locked after failed logins", nil,
			map[string]any{"email": email, "lockout": lockout.String()})
		flashError(w, r, h.renderer, "/login",
			fmt.Sprintf("Too many failed attempts. Account locked for %s.", formatDuration(lockout)))
		return
	}
	flashError(w, r, h.renderer, "/login", "Invalid email or password")
}

// Logout handles POST /logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	userID := session.UserID(r.Context(), h.sessionManager)
	if err := session.SignOut(r.Context(), h.sessionManager); err != nil {
		slog.Warn("destroying session failed", "error", err)
	}
	if userID != 0 {
		h.events.LogInfo(r.Context(), model.EventCategoryAuth, "user signed out", &userID, nil)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// RegisterForm handles GET /register.
func (h *AuthHandler) RegisterForm(w http.ResponseWriter, r *http.Request) {
	if middleware.GetUser(r) != nil {
		http.Redirect(w, r, "/dashboard", http.StatusSeeOther)
		return
	}

	if err := h.renderer.Render(w, r, "register", render.Data{Title: "Create Account"}); err != nil {
		serverError(w, "rendering registration form", err)
	}
}

// Register handles POST /register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		flashError(w, r, h.renderer, "/register", "Invalid form data")
		return
	}

	email := strings.ToLower(strings.TrimSpace(r.PostFormValue("email")))
	name := strings.TrimSpace(r.PostFormValue("name"))
	password := r.PostFormValue("password")

	formErrors := make(map[string]string)
	if email == "" || !strings.Contains(email, "@") {
		formErrors["email"] = "A valid email address is required"
	}
	if name == "" {
		formErrors["name"] = "Name is required"
	}
	if msg := auth.ValidatePassword(password); msg != "" {
		formErrors["password"] = msg
	}
	if password != r.PostFormValue("password_confirm") {
		formErrors["password_confirm"] = "Passwords do not match"
	}

	if len(formErrors) > 0 {
		if err := h.renderer.Render(w, r, "register", render.Data{
			Title:  "Create Account",
			Errors: formErrors,
			Data:   map[string]string{"Email": email, "Name": name},
		}); err != nil {
			serverError(w, "rendering registration form", err)
		}
		return
	}

	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		serverError(w, "hashing password", err)
		return
	}

	now := time.Now()
	user, err := h.queries.CreateUser(r.Context(), store.CreateUserParams{
		Email:        email,
		Name:         name,
		PasswordHash: passwordHash,
		Role:         model.RoleUser,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			flashError(w, r, h.renderer, "/register", "An account with that email already exists")
			return
		}
		serverError(w, "creating user", err)
		return
	}

	h.events.LogInfo(r.Context(), model.EventCategoryUser, "user registered", &user.ID, nil)

	if err := session.SignIn(r.Context(), h.sessionManager, user.ID); err != nil {
		serverError(w, "establishing session", err)
		return
	}
	flashAndRedirect(w, r, h.renderer, "/dashboard", "Welcome, "+user.Name, "success")
}

// formatDuration renders a lockout duration in whole minutes or seconds.
func formatDuration(d time.Duration) string {
	if d >= time.Minute {
		return fmt.Sprintf("%d minutes", int(d.Round(time.Minute).Minutes()))
	}
	return fmt.Sprintf("%d seconds", int(d.Round(time.Second).Seconds()))
}
