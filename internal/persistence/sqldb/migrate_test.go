package sqldb_test

import (
	"context"
	"testing"

	"github.com/example/college-admin/internal/testfixtures"
)

func TestMigrate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	db := testfixtures.NewSQLiteStore(t)

	version, err := db.SchemaVersion(ctx)
	if err != nil {
		t.Fatalf("SchemaVersion failed: %v", err)
	}
	if version != 1 {
		t.Fatalf("expected schema version 1, got %d", version)
	}

	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("second Migrate should be a no-op: %v", err)
	}
	if err := db.Ping(ctx); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}
}
