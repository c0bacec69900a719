package database

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"collectorhub/internal/middleware"

	"gorm.io/gorm"
)

// Schema modes accepted by DB_SCHEMA_MODE.
const (
	// SchemaModeHybrid creates tables with AutoMigrate, then applies the SQL
	// migrations that AutoMigrate cannot express (partial unique indexes).
	SchemaModeHybrid = "hybrid"
	// SchemaModeSQL only applies SQL migrations; tables are managed elsewhere.
	SchemaModeSQL = "sql"
)

// SchemaStatus summarizes what ApplySchema would do.
type SchemaStatus struct {
	Mode               string
	WillRunAutoMigrate bool
	AppliedVersions    []int
	PendingMigrations  []Migration
}

func normalizedSchemaMode(mode string) (string, error) {
	mode = strings.ToLower(strings.TrimSpace(mode))
	switch mode {
	case "":
		return SchemaModeHybrid, nil
	case SchemaModeHybrid, SchemaModeSQL:
		return mode, nil
	default:
		return "", fmt.Errorf("unsupported DB_SCHEMA_MODE %q", mode)
	}
}

// ApplySchema brings the database up to date for the given mode.
func ApplySchema(ctx context.Context, db *gorm.DB, mode string) error {
	mode, err := normalizedSchemaMode(mode)
	if err != nil {
		return err
	}

	if mode == SchemaModeHybrid {
		middleware.Logger.InfoContext(ctx, "Running GORM AutoMigrate", slog.String("mode", mode))
		if err := db.WithContext(ctx).AutoMigrate(PersistentModels()...); err != nil {
			return fmt.Errorf("auto-migrate: %w", err)
		}
	}

	if err := RunMigrations(ctx, db); err != nil {
		return fmt.Errorf("run sql migrations: %w", err)
	}
	return nil
}

// GetSchemaStatus reports applied and pending migrations without changing anything
// except creating the migration log table if it is missing.
func GetSchemaStatus(ctx context.Context, db *gorm.DB, mode string) (*SchemaStatus, error) {
	mode, err := normalizedSchemaMode(mode)
	if err != nil {
		return nil, err
	}

	applied, err := AppliedVersions(ctx, db)
	if err != nil {
		return nil, err
	}
	all, err := Migrations()
	if err != nil {
		return nil, err
	}

	status := &SchemaStatus{
		Mode:               mode,
		WillRunAutoMigrate: mode == SchemaModeHybrid,
		AppliedVersions:    applied,
	}
	for _, m := range all {
		if !containsVersion(applied, m.Version) {
			status.PendingMigrations = append(status.PendingMigrations, m)
		}
	}
	return status, nil
}
