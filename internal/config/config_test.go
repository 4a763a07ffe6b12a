// Copyright (c) 2025-2026 Andrey Netrebin
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"strings"
	"testing"
	"time"
)

func validSecret() string {
	return strings.Repeat("s", MinSecretLen)
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("KB_CSRF_SECRET", validSecret())

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.ServerAddr() != "localhost:8080" {
		t.Errorf("ServerAddr = %q", cfg.ServerAddr())
	}
	if !cfg.IsDevelopment() {
		t.Error("default env should be development")
	}
	if cfg.UseRedisCache() {
		t.Error("Redis cache enabled without a URL")
	}
	if cfg.SessionLifetime != 24*time.Hour {
		t.Errorf("SessionLifetime = %v", cfg.SessionLifetime)
	}
}

func TestLoadMissingSecret(t *testing.T) {
	t.Setenv("KB_CSRF_SECRET", "")

	if _, err := Load(); err == nil {
		t.Error("Load succeeded without a CSRF secret")
	}
}

func TestLoadShortSecret(t *testing.T) {
	t.Setenv("KB_CSRF_SECRET", "too-short")

	if _, err := Load(); err == nil {
		t.Error("Load accepted a short CSRF secret")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("KB_CSRF_SECRET", validSecret())
	t.Setenv("KB_SERVER_PORT", "9000")
	t.Setenv("KB_ENV", "production")
	t.Setenv("KB_REDIS_URL", "redis://localhost:6379/0")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ServerPort != 9000 {
		t.Errorf("ServerPort = %d", cfg.ServerPort)
	}
	if cfg.IsDevelopment() {
		t.Error("production env reported as development")
	}
	if !cfg.UseRedisCache() {
		t.Error("Redis cache not enabled")
	}
}

func TestLoadBadRateLimit(t *testing.T) {
	t.Setenv("KB_CSRF_SECRET", validSecret())
	t.Setenv("KB_LOGIN_RATE_PER_MINUTE", "0")

	if _, err := Load(); err == nil {
		t.Error("Load accepted a zero rate limit")
	}
}
