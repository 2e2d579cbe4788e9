// Package sqldb implements persistence.Store on SQLite (modernc.org/sqlite) or
// PostgreSQL (pgx). Queries are built with squirrel and the schema is managed
// by goose migrations embedded in the binary.
package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/sethvargo/go-retry"
	_ "modernc.org/sqlite"

	"github.com/example/college-admin/internal/persistence"
)

// Dialect identifies the SQL backend.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// ParseDialect accepts the configured store driver name.
func ParseDialect(value string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "sqlite", "sqlite3":
		return DialectSQLite, nil
	case "postgres", "postgresql", "pgx":
		return DialectPostgres, nil
	default:
		return "", fmt.Errorf("sqldb: unsupported dialect %q", value)
	}
}

func (d Dialect) driverName() string {
	if d == DialectPostgres {
		return "pgx"
	}
	return "sqlite"
}

func (d Dialect) placeholder() sq.PlaceholderFormat {
	if d == DialectPostgres {
		return sq.Dollar
	}
	return sq.Question
}

// Options configures Open.
type Options struct {
	Dialect Dialect
	DSN     string
	Logger  *slog.Logger
}

// DB is a persistence.Store backed by database/sql.
type DB struct {
	db      *sql.DB
	dialect Dialect
	builder sq.StatementBuilderType
	logger  *slog.Logger
	retries uint64
}

var _ persistence.Store = (*DB)(nil)

// Open connects to the database and verifies the connection. Call Migrate
// before first use.
func Open(ctx context.Context, opts Options) (*DB, error) {
	if opts.DSN == "" {
		return nil, errors.New("sqldb: dsn is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	dsn := opts.DSN
	if opts.Dialect == DialectSQLite {
		dsn = withSQLitePragmas(dsn)
	}

	db, err := sql.Open(opts.Dialect.driverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("sqldb: open %s: %w", opts.Dialect, err)
	}

	if opts.Dialect == DialectSQLite {
		// A single connection serialises writers and keeps per-connection pragmas in effect.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(16)
		db.SetConnMaxIdleTime(5 * time.Minute)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqldb: ping %s: %w", opts.Dialect, err)
	}

	return &DB{
		db:      db,
		dialect: opts.Dialect,
		builder: sq.StatementBuilder.PlaceholderFormat(opts.Dialect.placeholder()),
		logger:  logger.With(slog.String("component", "sqldb"), slog.String("dialect", string(opts.Dialect))),
		retries: 3,
	}, nil
}

func withSQLitePragmas(dsn string) string {
	pragmas := []string{"foreign_keys(1)", "busy_timeout(5000)"}
	var missing []string
	for _, pragma := range pragmas {
		name := pragma[:strings.Index(pragma, "(")]
		if !strings.Contains(dsn, "_pragma="+name) {
			missing = append(missing, "_pragma="+pragma)
		}
	}
	if len(missing) == 0 {
		return dsn
	}
	separator := "?"
	if strings.Contains(dsn, "?") {
		separator = "&"
	}
	return dsn + separator + strings.Join(missing, "&")
}

// Dialect reports the backend in use.
func (d *DB) Dialect() Dialect {
	return d.dialect
}

// Close closes the connection pool.
func (d *DB) Close() error {
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}

// Ping tests the database connection.
func (d *DB) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// TransactionFunc runs inside a transaction.
type TransactionFunc func(tx *sql.Tx) error

// WithTransaction executes fn within a transaction. The transaction is rolled
// back when fn returns an error or panics, and committed otherwise.
func (d *DB) WithTransaction(ctx context.Context, fn TransactionFunc) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqldb: begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("sqldb: transaction failed (rollback error: %v): %w", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqldb: commit transaction: %w", mapError(err))
	}
	return nil
}

// withRetry reruns fn while the database reports lock contention.
func (d *DB) withRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	backoff := retry.WithMaxRetries(d.retries, retry.NewExponential(20*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn(ctx)
		if err != nil && isRetryable(err) {
			d.logger.WarnContext(ctx, "retrying after lock contention", slog.Any("error", err))
			return retry.RetryableError(err)
		}
		return err
	})
}

// exec runs a built statement and maps driver errors.
func (d *DB) exec(ctx context.Context, builder sq.Sqlizer) (sql.Result, error) {
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("sqldb: build statement: %w", err)
	}

	var result sql.Result
	err = d.withRetry(ctx, func(ctx context.Context) error {
		var execErr error
		result, execErr = d.db.ExecContext(ctx, query, args...)
		return execErr
	})
	if err != nil {
		return nil, mapError(err)
	}
	return result, nil
}

// query runs a built select and hands each row to scan.
func (d *DB) query(ctx context.Context, builder sq.Sqlizer, scan func(*sql.Rows) error) error {
	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("sqldb: build query: %w", err)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return mapError(err)
	}
	defer rows.Close()

	for rows.Next() {
		if err := scan(rows); err != nil {
			return err
		}
	}
	return mapError(rows.Err())
}

// queryRow runs a built select expected to return one row.
func (d *DB) queryRow(ctx context.Context, builder sq.Sqlizer, dest ...any) error {
	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("sqldb: build query: %w", err)
	}
	return mapError(d.db.QueryRowContext(ctx, query, args...).Scan(dest...))
}

func rowsAffected(result sql.Result) (int, error) {
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqldb: rows affected: %w", err)
	}
	return int(n), nil
}

// mapError translates driver errors into persistence sentinels.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return persistence.ErrNotFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return fmt.Errorf("%w: %s", persistence.ErrDuplicate, pgErr.ConstraintName)
		case "23503":
			return fmt.Errorf("%w: %s", persistence.ErrForeignKeyViolation, pgErr.ConstraintName)
		case "23514", "23502":
			return fmt.Errorf("%w: %s", persistence.ErrConstraintViolation, pgErr.ConstraintName)
		}
		return err
	}

	message := err.Error()
	switch {
	case strings.Contains(message, "UNIQUE constraint failed"):
		return fmt.Errorf("%w: %v", persistence.ErrDuplicate, err)
	case strings.Contains(message, "FOREIGN KEY constraint failed"):
		return fmt.Errorf("%w: %v", persistence.ErrForeignKeyViolation, err)
	case strings.Contains(message, "CHECK constraint failed"), strings.Contains(message, "NOT NULL constraint failed"):
		return fmt.Errorf("%w: %v", persistence.ErrConstraintViolation, err)
	}
	return err
}

func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	message := err.Error()
	return strings.Contains(message, "database is locked") || strings.Contains(message, "SQLITE_BUSY")
}
