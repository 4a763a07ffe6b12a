// Copyright (c) 2025-2026 Andrey Netrebin
// SPDX-License-Identifier: GPL-3.0-or-later

// Package store provides SQLite-backed persistence for the knowledge base:
// users, categories, articles, version history, tags, comments, ratings,
// favorites, and the event log.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors returned by the store and service layers.
var (
	// ErrNotFound is returned when a row lookup by identifier fails, or
	// when a child row does not belong to the given parent.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a uniqueness constraint is violated,
	// e.g. two concurrent version creations racing on the same number.
	ErrConflict = errors.New("conflict")
)

// DBTX is the subset of *sql.DB and *sql.Tx the query methods need.
type DBTX interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
	QueryContext(context.Context, string, ...any) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...any) *sql.Row
}

// Queries provides typed access to the database.
type Queries struct {
	db DBTX
}

// New creates a Queries instance backed by the given database or transaction.
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx returns a Queries instance bound to the given transaction.
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// InTx runs fn inside a transaction, rolling back if fn returns an error.
// SQLite allows a single writer at a time; concurrent writers queue on
// busy_timeout rather than failing outright, and uniqueness violations that
// slip through are surfaced as ErrConflict by the calling service.
func InTx(ctx context.Context, db *sql.DB, fn func(q *Queries) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	if err := fn(New(tx)); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// isUniqueViolation reports whether err is a SQLite uniqueness constraint error.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// mapRowErr converts sql.ErrNoRows into ErrNotFound, leaving other errors alone.
func mapRowErr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
