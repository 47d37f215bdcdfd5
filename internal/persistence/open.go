package persistence

import (
	"context"
	"fmt"

	"storydesk/internal/config"
)

// Open connects to the configured store
func Open(ctx context.Context, cfg config.Database) (Database, error) {
	switch cfg.Driver {
	case "", DialectPostgres:
		if cfg.URL == "" {
			return nil, fmt.Errorf("database URL is required for the postgres driver")
		}
		return NewPostgresDB(ctx, cfg.URL)
	case DialectSQLite:
		return OpenSQLite(cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
	}
}

// OpenAndMigrate connects and applies pending migrations
func OpenAndMigrate(ctx context.Context, cfg config.Database, dimensions int) (Database, error) {
	db, err := Open(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := NewMigrationManager(db, dimensions).Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return db, nil
}
