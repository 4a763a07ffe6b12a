// Copyright (c) 2025-2026 Andrey Netrebin
// SPDX-License-Identifier: GPL-3.0-or-later

// Package model defines the database row types shared by the store,
// service, and handler layers.
package model

import "time"

// User roles
const (
	RoleAdmin  = "admin"
	RoleEditor = "editor"
	RoleUser   = "user"
)

// User represents an account that can author articles and comments.
type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// IsAdmin returns true if the user has the admin role.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// IsStaff returns true for roles with access to moderation screens.
func (u User) IsStaff() bool {
	return u.Role == RoleAdmin || u.Role == RoleEditor
}

// Actor is the identity shape consumed by access checks. The zero value is
// an anonymous viewer.
type Actor struct {
	ID              int64
	IsAuthenticated bool
	IsStaff         bool
	IsSuperuser     bool
}

// ActorFor builds an Actor from a user row. A nil user is anonymous.
func ActorFor(u *User) Actor {
	if u == nil {
		return Actor{}
	}
	return Actor{
		ID:              u.ID,
		IsAuthenticated: true,
		IsStaff:         u.IsStaff(),
		IsSuperuser:     u.IsAdmin(),
	}
}
