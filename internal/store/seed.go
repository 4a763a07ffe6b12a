package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/andreynetrebin/knowledge-base/internal/auth"
	"github.com/andreynetrebin/knowledge-base/internal/model"
)

// Default admin credentials
const (
	DefaultAdminEmail    = "admin@example.com"
	DefaultAdminPassword = "changeme"
	DefaultAdminName     = "Administrator"
)

// DefaultCategoryName is created on first run so article forms always have
// at least one category to offer.
const DefaultCategoryName = "General"

// Seed creates initial data in the database: the admin account and a root
// category. Safe to call on every startup.
func Seed(ctx context.Context, db *sql.DB) error {
	queries := New(db)
	now := time.Now()

	_, err := queries.GetUserByEmail(ctx, DefaultAdminEmail)
	switch {
	case err == nil:
		slog.Info("admin user already exists, skipping seed")
	case errors.Is(err, ErrNotFound):
		passwordHash, err := auth.HashPassword(DefaultAdminPassword)
		if err != nil {
			return fmt.Errorf("hashing password: %w", err)
		}

		user, err := queries.CreateUser(ctx, CreateUserParams{
			Email:        DefaultAdminEmail,
			Name:         DefaultAdminName,
			PasswordHash: passwordHash,
			Role:         model.RoleAdmin,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
		if err != nil {
			return fmt.Errorf("creating admin user: %w", err)
		}
		slog.Info("created default admin user",
			"id", user.ID,
			"email", user.Email,
			"password", DefaultAdminPassword,
		)
	default:
		return fmt.Errorf("checking for admin user: %w", err)
	}

	_, err = queries.GetCategoryBySlug(ctx, "general")
	if errors.Is(err, ErrNotFound) {
		if _, err := queries.CreateCategory(ctx, CreateCategoryParams{
			Name:      DefaultCategoryName,
			Slug:      "general",
			ParentID:  sql.NullInt64{},
			CreatedAt: now,
			UpdatedAt: now,
		}); err != nil {
			return fmt.Errorf("creating default category: %w", err)
		}
		slog.Info("created default category", "slug", "general")
	} else if err != nil {
		return fmt.Errorf("checking for default category: %w", err)
	}

	return nil
}
