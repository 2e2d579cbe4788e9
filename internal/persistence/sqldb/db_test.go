package sqldb

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"testing"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/example/college-admin/internal/persistence"
)

func TestParseDialect(t *testing.T) {
	t.Parallel()

	cases := map[string]Dialect{
		"sqlite":     DialectSQLite,
		"SQLite3":    DialectSQLite,
		"postgres":   DialectPostgres,
		" pgx ":      DialectPostgres,
		"postgresql": DialectPostgres,
	}
	for input, want := range cases {
		got, err := ParseDialect(input)
		if err != nil || got != want {
			t.Fatalf("ParseDialect(%q) = %v, %v; want %v", input, got, err, want)
		}
	}
	if _, err := ParseDialect("mysql"); err == nil {
		t.Fatalf("expected error for unsupported dialect")
	}
}

func TestDialectPlaceholder(t *testing.T) {
	t.Parallel()

	cases := map[Dialect]string{
		DialectSQLite:   "id = ?",
		DialectPostgres: "id = $1",
	}
	for dialect, want := range cases {
		query, args, err := sq.StatementBuilder.PlaceholderFormat(dialect.placeholder()).
			Select("id").From("users").Where(sq.Eq{"id": "u1"}).ToSql()
		if err != nil {
			t.Fatalf("%s: ToSql returned error: %v", dialect, err)
		}
		if !strings.Contains(query, want) || len(args) != 1 {
			t.Fatalf("%s: expected %q in query, got %q with args %v", dialect, want, query, args)
		}
	}
}

func TestWithSQLitePragmas(t *testing.T) {
	t.Parallel()

	if got := withSQLitePragmas("file:college.db"); got != "file:college.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)" {
		t.Fatalf("unexpected dsn %q", got)
	}
	if got := withSQLitePragmas("file:college.db?_pragma=foreign_keys(1)"); got != "file:college.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)" {
		t.Fatalf("unexpected dsn %q", got)
	}
}

func TestMapError(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
		want error
	}{
		{"no rows", sql.ErrNoRows, persistence.ErrNotFound},
		{"pg unique", &pgconn.PgError{Code: "23505"}, persistence.ErrDuplicate},
		{"pg foreign key", &pgconn.PgError{Code: "23503"}, persistence.ErrForeignKeyViolation},
		{"pg check", &pgconn.PgError{Code: "23514"}, persistence.ErrConstraintViolation},
		{"sqlite unique", errors.New("constraint failed: UNIQUE constraint failed: users.email (2067)"), persistence.ErrDuplicate},
		{"sqlite foreign key", errors.New("constraint failed: FOREIGN KEY constraint failed (787)"), persistence.ErrForeignKeyViolation},
		{"sqlite check", fmt.Errorf("wrapped: %w", errors.New("CHECK constraint failed: personal_events")), persistence.ErrConstraintViolation},
	}
	for _, tc := range cases {
		if got := mapError(tc.err); !errors.Is(got, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}

	other := errors.New("disk I/O error")
	if got := mapError(other); got != other {
		t.Fatalf("unknown errors must pass through, got %v", got)
	}
}

func TestIsRetryable(t *testing.T) {
	t.Parallel()

	if !isRetryable(errors.New("database is locked (5) (SQLITE_BUSY)")) {
		t.Fatalf("expected busy sqlite error to be retryable")
	}
	if !isRetryable(&pgconn.PgError{Code: "40001"}) {
		t.Fatalf("expected serialization failure to be retryable")
	}
	if isRetryable(&pgconn.PgError{Code: "23505"}) {
		t.Fatalf("unique violation must not be retried")
	}
}
