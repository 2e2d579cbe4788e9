package sqldb

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

func (d Dialect) gooseDialect() goose.Dialect {
	if d == DialectPostgres {
		return goose.DialectPostgres
	}
	return goose.DialectSQLite3
}

// Migrate applies every pending schema migration.
func (d *DB) Migrate(ctx context.Context) error {
	fsys, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		return fmt.Errorf("sqldb: migrations: %w", err)
	}

	provider, err := goose.NewProvider(d.dialect.gooseDialect(), d.db, fsys)
	if err != nil {
		return fmt.Errorf("sqldb: migration provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("sqldb: apply migrations: %w", err)
	}

	for _, result := range results {
		d.logger.InfoContext(ctx, "migration applied",
			slog.Int64("version", result.Source.Version),
			slog.String("path", result.Source.Path),
			slog.Duration("duration", result.Duration),
		)
	}
	return nil
}

// SchemaVersion reports the highest applied migration version.
func (d *DB) SchemaVersion(ctx context.Context) (int64, error) {
	fsys, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		return 0, fmt.Errorf("sqldb: migrations: %w", err)
	}
	provider, err := goose.NewProvider(d.dialect.gooseDialect(), d.db, fsys)
	if err != nil {
		return 0, fmt.Errorf("sqldb: migration provider: %w", err)
	}
	return provider.GetDBVersion(ctx)
}
