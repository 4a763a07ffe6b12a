// Copyright (c) 2025-2026 Andrey Netrebin
// SPDX-License-Identifier: GPL-3.0-or-later

package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/andreynetrebin/knowledge-base/internal/model"
	"github.com/andreynetrebin/knowledge-base/internal/session"
	"github.com/andreynetrebin/knowledge-base/internal/testutil"
)

func withUser(r *http.Request, u model.User) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), ContextKeyUser, u))
}

func TestGetUser(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if GetUser(r) != nil {
		t.Error("GetUser returned a user for an anonymous request")
	}

	r = withUser(r, model.User{ID: 7, Role: model.RoleUser})
	user := GetUser(r)
	if user == nil || user.ID != 7 {
		t.Errorf("GetUser = %+v, want user 7", user)
	}
}

func TestGetActor(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	if actor := GetActor(r); actor.IsAuthenticated {
		t.Error("anonymous request produced an authenticated actor")
	}

	r = withUser(r, model.User{ID: 3, Role: model.RoleEditor})
	actor := GetActor(r)
	if !actor.IsAuthenticated || !actor.IsStaff || actor.ID != 3 {
		t.Errorf("GetActor = %+v", actor)
	}
}

func TestRequireAuthRedirectsAnonymous(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()

	sm := session.New(db, time.Hour, false)
	handler := sm.LoadAndSave(RequireAuth(sm)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("protected handler reached without auth")
	})))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/articles/new", nil))

	if rec.Code != http.StatusSeeOther {
		t.Errorf("status = %d, want 303", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "/login" {
		t.Errorf("Location = %q, want /login", loc)
	}
}

func TestRequireAuthPassesAuthenticated(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()

	sm := session.New(db, time.Hour, false)
	reached := false
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { reached = true })

	handler := sm.LoadAndSave(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r = withUser(r, model.User{ID: 1, Role: model.RoleUser})
		RequireAuth(sm)(inner).ServeHTTP(w, r)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if !reached {
		t.Error("authenticated request blocked")
	}
}

func TestRequireStaff(t *testing.T) {
	tests := []struct {
		name string
		user *model.User
		want int
	}{
		{"anonymous", nil, http.StatusSeeOther},
		{"regular user", &model.User{ID: 1, Role: model.RoleUser}, http.StatusForbidden},
		{"editor", &model.User{ID: 2, Role: model.RoleEditor}, http.StatusOK},
		{"admin", &model.User{ID: 3, Role: model.RoleAdmin}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := RequireStaff()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			}))

			r := httptest.NewRequest(http.MethodGet, "/events", nil)
			if tt.user != nil {
				r = withUser(r, *tt.user)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, r)

			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d", rec.Code, tt.want)
			}
		})
	}
}

func TestLoadUserClearsStaleSession(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()

	sm := session.New(db, time.Hour, false)
	handler := sm.LoadAndSave(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Session points at a user that does not exist.
		sm.Put(r.Context(), session.KeyUserID, int64(9999))
		LoadUser(sm, db)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if GetUser(r) != nil {
				t.Error("stale session produced a user")
			}
		})).ServeHTTP(w, r)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
}
