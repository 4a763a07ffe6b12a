// Copyright (c) 2025-2026 Andrey Netrebin
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Manager exposes the domain operations the handlers use: rendered
// article HTML and the tag cloud. Rendered HTML is keyed by version ID,
// so publishing or restoring a version naturally misses the old entry.
type Manager struct {
	backend Cache
}

// Options selects and configures the backend.
type Options struct {
	RedisURL string // empty selects the memory backend
	Prefix   string
	TTL      time.Duration
}

// NewManager builds a manager on the configured backend. When Redis is
// configured but unreachable the manager falls back to memory so the app
// still starts.
func NewManager(opts Options) *Manager {
	if opts.RedisURL != "" {
		backend, err := NewRedis(opts.RedisURL, opts.Prefix, opts.TTL)
		if err == nil {
			slog.Info("cache backend ready", "backend", "redis")
			return &Manager{backend: backend}
		}
		slog.Warn("redis unavailable, falling back to memory cache", "error", err)
	}
	return &Manager{backend: NewMemory(opts.TTL)}
}

// NewManagerWithBackend wraps an explicit backend. Used by tests.
func NewManagerWithBackend(backend Cache) *Manager {
	return &Manager{backend: backend}
}

func renderedKey(articleID, versionID int64) string {
	return fmt.Sprintf("article:%d:rendered:%d", articleID, versionID)
}

const tagCloudKey = "tags:cloud"

// RenderedHTML returns the cached rendered body for a version, or ErrMiss.
func (m *Manager) RenderedHTML(ctx context.Context, articleID, versionID int64) (string, error) {
	b, err := m.backend.Get(ctx, renderedKey(articleID, versionID))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// StoreRenderedHTML caches the rendered body for a version.
func (m *Manager) StoreRenderedHTML(ctx context.Context, articleID, versionID int64, html string) {
	if err := m.backend.Set(ctx, renderedKey(articleID, versionID), []byte(html), 0); err != nil {
		slog.Warn("caching rendered article failed", "article_id", articleID, "error", err)
	}
}

// InvalidateArticle drops every cached rendering of an article.
func (m *Manager) InvalidateArticle(ctx context.Context, articleID int64) {
	if err := m.backend.DeleteByPrefix(ctx, fmt.Sprintf("article:%d:", articleID)); err != nil {
		slog.Warn("invalidating article cache failed", "article_id", articleID, "error", err)
	}
}

// TagCloud returns the cached tag cloud JSON, or ErrMiss.
func (m *Manager) TagCloud(ctx context.Context) ([]byte, error) {
	return m.backend.Get(ctx, tagCloudKey)
}

// StoreTagCloud caches the tag cloud with a short TTL; tag counts drift
// quickly as articles publish.
func (m *Manager) StoreTagCloud(ctx context.Context, data []byte) {
	if err := m.backend.Set(ctx, tagCloudKey, data, 5*time.Minute); err != nil {
		slog.Warn("caching tag cloud failed", "error", err)
	}
}

// InvalidateTagCloud drops the cached tag cloud.
func (m *Manager) InvalidateTagCloud(ctx context.Context) {
	if err := m.backend.Delete(ctx, tagCloudKey); err != nil {
		slog.Warn("invalidating tag cloud failed", "error", err)
	}
}

// Close releases the backend.
func (m *Manager) Close() error {
	return m.backend.Close()
}
