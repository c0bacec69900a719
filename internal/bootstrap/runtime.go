// Package bootstrap wires the process-wide runtime dependencies.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"collectorhub/internal/cache"
	"collectorhub/internal/config"
	"collectorhub/internal/database"
	"collectorhub/internal/middleware"
	"collectorhub/internal/models"
	"collectorhub/internal/repository"
	"collectorhub/internal/seed"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Options control runtime initialization behavior.
type Options struct {
	SeedBuiltIns bool
}

// InitRuntime connects to the database and Redis and optionally applies the
// built-in catalog. The Redis client is nil when Redis is unreachable.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	rdb := cache.Connect(ctx, cfg.RedisURL)

	if err := EnsureDevRootAdmin(ctx, cfg, repository.NewUserRepository(db), db); err != nil {
		return nil, nil, fmt.Errorf("failed to bootstrap development root admin: %w", err)
	}

	if opts.SeedBuiltIns {
		if err := seed.Builtins(ctx, repository.NewMembershipRepository(db)); err != nil {
			return nil, nil, fmt.Errorf("failed to seed built-in categories: %w", err)
		}
	}

	return db, rdb, nil
}

// EnsureDevRootAdmin creates or promotes the development root account. It is
// a no-op outside development or when DEV_BOOTSTRAP_ROOT is off.
func EnsureDevRootAdmin(ctx context.Context, cfg *config.Config, users repository.UserRepository, db *gorm.DB) error {
	if cfg == nil || db == nil {
		return nil
	}
	if !strings.EqualFold(cfg.Env, "development") || !cfg.DevBootstrapRoot {
		return nil
	}

	username := strings.TrimSpace(cfg.DevRootUsername)
	if username == "" {
		username = "collectorhub_root"
	}
	email := strings.TrimSpace(strings.ToLower(cfg.DevRootEmail))
	if email == "" {
		email = "root@collectorhub.local"
	}
	if cfg.DevRootPassword == "" {
		return fmt.Errorf("DEV_ROOT_PASSWORD must be set when DEV_BOOTSTRAP_ROOT is enabled")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(cfg.DevRootPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash root password: %w", err)
	}

	root := &models.User{Username: username, Email: email, Password: string(hashed), IsAdmin: true}
	if err := users.EnsureByUsername(ctx, root); err != nil {
		return err
	}
	if !root.IsAdmin {
		if err := db.WithContext(ctx).Model(&models.User{}).Where("id = ?", root.ID).Update("is_admin", true).Error; err != nil {
			return err
		}
	}

	middleware.Logger.InfoContext(ctx, "development root admin ensured",
		slog.Uint64("user_id", uint64(root.ID)), slog.String("username", username))
	return nil
}
