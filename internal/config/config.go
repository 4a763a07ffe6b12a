// Copyright (c) 2025-2026 Andrey Netrebin
// SPDX-License-Identifier: GPL-3.0-or-later

package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// MinSecretLen is the minimum length for the CSRF secret; shorter values
// are trivially brute-forceable.
const MinSecretLen = 32

// Config is the application configuration, loaded from KB_* environment
// variables.
type Config struct {
	DBPath     string `env:"KB_DB_PATH" envDefault:"./data/kb.db"`
	CSRFSecret string `env:"KB_CSRF_SECRET,required"`
	ServerHost string `env:"KB_SERVER_HOST" envDefault:"localhost"`
	ServerPort int    `env:"KB_SERVER_PORT" envDefault:"8080"`
	Env        string `env:"KB_ENV" envDefault:"development"`
	LogLevel   string `env:"KB_LOG_LEVEL" envDefault:"info"`

	SessionLifetime time.Duration `env:"KB_SESSION_LIFETIME" envDefault:"24h"`

	// Redis is optional; when unset the cache falls back to memory.
	RedisURL    string        `env:"KB_REDIS_URL"`
	CachePrefix string        `env:"KB_CACHE_PREFIX" envDefault:"kb:"`
	CacheTTL    time.Duration `env:"KB_CACHE_TTL" envDefault:"1h"`

	// Login rate limiting.
	LoginRatePerMinute int `env:"KB_LOGIN_RATE_PER_MINUTE" envDefault:"10"`

	DoSeed bool `env:"KB_DO_SEED" envDefault:"false"`
}

// IsDevelopment reports whether the app runs in development mode. Secure
// cookies are disabled there so plain-HTTP localhost works.
func (c Config) IsDevelopment() bool {
	return c.Env == "development"
}

// ServerAddr returns host:port for the HTTP listener.
func (c Config) ServerAddr() string {
	return fmt.Sprintf("%s:%d", c.ServerHost, c.ServerPort)
}

// UseRedisCache reports whether a Redis URL is configured.
func (c Config) UseRedisCache() bool {
	return c.RedisURL != ""
}

// Load parses the environment and validates the secrets.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if len(cfg.CSRFSecret) < MinSecretLen {
		return nil, fmt.Errorf("KB_CSRF_SECRET must be at least %d bytes, got %d; "+
			"generate one with: openssl rand -base64 32",
			MinSecretLen, len(cfg.CSRFSecret))
	}

	if cfg.LoginRatePerMinute <= 0 {
		return nil, fmt.Errorf("KB_LOGIN_RATE_PER_MINUTE must be positive, got %d", cfg.LoginRatePerMinute)
	}

	return cfg, nil
}
