// Copyright (c) 2025-2026 Andrey Netrebin
// SPDX-License-Identifier: GPL-3.0-or-later

// Package cache caches rendered article HTML and the tag cloud, backed by
// Redis when configured and process memory otherwise.
package cache

import (
	"context"
	"time"
)

// Cache is the backend contract. Implementations must be safe for
// concurrent use.
type Cache interface {
	// Get returns the value, or ErrMiss when absent or expired.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores the value. A zero ttl means the backend default.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a key; deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// DeleteByPrefix removes every key with the given prefix.
	DeleteByPrefix(ctx context.Context, prefix string) error

	// Close releases backend resources.
	Close() error
}

// Error is a sentinel error type for cache operations.
type Error string

func (e Error) Error() string { return string(e) }

const (
	// ErrMiss means the key was absent or expired.
	ErrMiss Error = "cache miss"

	// ErrClosed means the cache was closed.
	ErrClosed Error = "cache closed"
)
