// Copyright (c) 2025-2026 Andrey Netrebin
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/andreynetrebin/knowledge-base/internal/cache"
	"github.com/andreynetrebin/knowledge-base/internal/config"
	"github.com/andreynetrebin/knowledge-base/internal/handler"
	"github.com/andreynetrebin/knowledge-base/internal/logging"
	"github.com/andreynetrebin/knowledge-base/internal/middleware"
	"github.com/andreynetrebin/knowledge-base/internal/render"
	"github.com/andreynetrebin/knowledge-base/internal/service"
	"github.com/andreynetrebin/knowledge-base/internal/session"
	"github.com/andreynetrebin/knowledge-base/internal/store"
	"github.com/andreynetrebin/knowledge-base/web"
)

// Version information, injected at build time via ldflags.
var (
	appVersion   = "dev"
	appGitCommit = "unknown"
	appBuildTime = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")

	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "kb - knowledge base server\n\n")
		_, _ = fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		_, _ = fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		_, _ = fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		_, _ = fmt.Fprintf(os.Stderr, "  KB_CSRF_SECRET     CSRF signing key (required, min 32 bytes)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  KB_DB_PATH         SQLite database path (default: ./data/kb.db)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  KB_SERVER_PORT     Server port (default: 8080)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  KB_ENV             Environment: development|production (default: development)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  KB_REDIS_URL       Redis URL for distributed caching (optional)\n")
		_, _ = fmt.Fprintf(os.Stderr, "  KB_DO_SEED         Seed the default admin account on startup\n")
	}

	flag.Parse()

	if *showVersion {
		_, _ = fmt.Printf("kb %s (commit: %s, built: %s)\n", appVersion, appGitCommit, appBuildTime)
		os.Exit(0)
	}

	if err := run(); err != nil {
		slog.Error("application error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Load .env if present (development)
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logLevel := logging.ParseLevel(cfg.LogLevel)
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	// Ensure data directory exists
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}

	slog.Info("initializing database", "path", cfg.DBPath)
	db, err := store.NewDB(cfg.DBPath)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer func(db *sql.DB) {
		if err := db.Close(); err != nil {
			slog.Error("error closing database connection", "error", err)
		}
	}(db)

	slog.Info("running database migrations")
	if err := store.Migrate(db); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	slog.Info("database ready")

	// Upgrade logger to also write WARN and ERROR records to the events table
	textHandler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	logger = slog.New(logging.NewEventLogHandler(textHandler, db))
	slog.SetDefault(logger)
	slog.Info("event log integration enabled", "min_level", "warn")

	ctx := context.Background()
	if cfg.DoSeed {
		if err := store.Seed(ctx, db); err != nil {
			return fmt.Errorf("seeding database: %w", err)
		}
	}

	sessionManager := session.New(db, cfg.SessionLifetime, !cfg.IsDevelopment())
	slog.Info("session manager initialized")

	cacheManager := cache.NewManager(cache.Options{
		RedisURL: cfg.RedisURL,
		Prefix:   cfg.CachePrefix,
		TTL:      cfg.CacheTTL,
	})
	defer func() {
		if err := cacheManager.Close(); err != nil {
			slog.Error("error closing cache", "error", err)
		}
	}()
	if cfg.UseRedisCache() {
		slog.Info("cache manager initialized", "backend", "redis", "url", cfg.RedisURL)
	} else {
		slog.Info("cache manager initialized", "backend", "memory")
	}

	templatesFS, err := fs.Sub(web.Templates, "templates")
	if err != nil {
		return fmt.Errorf("getting templates fs: %w", err)
	}
	renderer, err := render.New(templatesFS, sessionManager)
	if err != nil {
		return fmt.Errorf("initializing renderer: %w", err)
	}

	staticFS, err := fs.Sub(web.Static, "static")
	if err != nil {
		return fmt.Errorf("getting static fs: %w", err)
	}

	versions := service.NewVersionService(db)
	router := handler.Routes(handler.Deps{
		DB:             db,
		Config:         cfg,
		Renderer:       renderer,
		SessionManager: sessionManager,
		Cache:          cacheManager,
		Articles:       service.NewArticleService(db, versions),
		History:        service.NewHistoryService(db, versions),
		Events:         service.NewEventService(db),
		Protection:     middleware.NewLoginProtection(cfg.LoginRatePerMinute),
		Static:         staticFS,
	})

	srv := &http.Server{
		Addr:              cfg.ServerAddr(),
		Handler:           router,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		slog.Info("starting server", "addr", cfg.ServerAddr(), "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped")
	return nil
}
