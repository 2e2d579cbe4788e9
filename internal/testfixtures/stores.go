package testfixtures

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/example/college-admin/internal/persistence"
	"github.com/example/college-admin/internal/persistence/memory"
	"github.com/example/college-admin/internal/persistence/sqldb"
)

// NamedStore pairs a store implementation with a label for subtests.
type NamedStore struct {
	Name  string
	Store persistence.Store
}

// NewSQLiteStore opens a migrated SQLite database in a temporary directory.
// The store is closed when the test finishes.
func NewSQLiteStore(tb testing.TB) *sqldb.DB {
	tb.Helper()

	ctx := context.Background()
	dsn := "file:" + filepath.Join(tb.TempDir(), "college.db")

	db, err := sqldb.Open(ctx, sqldb.Options{Dialect: sqldb.DialectSQLite, DSN: dsn})
	if err != nil {
		tb.Fatalf("failed to open storage: %v", err)
	}
	tb.Cleanup(func() { _ = db.Close() })

	if err := db.Migrate(ctx); err != nil {
		tb.Fatalf("failed to migrate storage: %v", err)
	}
	return db
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore(tb testing.TB) *memory.Store {
	tb.Helper()
	store := memory.New()
	tb.Cleanup(func() { _ = store.Close() })
	return store
}

// NewStores returns one fresh instance of every store implementation so
// contract tests can run the same assertions against each.
func NewStores(tb testing.TB) []NamedStore {
	tb.Helper()
	return []NamedStore{
		{Name: "memory", Store: NewMemoryStore(tb)},
		{Name: "sqlite", Store: NewSQLiteStore(tb)},
	}
}

// Dataset is a set of rows inserted in dependency order by Seed.
type Dataset struct {
	Users          []persistence.User
	Courses        []persistence.Course
	Slots          []persistence.CourseSlot
	Enrollments    []persistence.Enrollment
	PersonalEvents []persistence.PersonalEvent
	Tasks          []persistence.Task
	Notifications  []persistence.Notification
}

// Seed inserts every row of data into store or fails the test.
func Seed(tb testing.TB, store persistence.Store, data Dataset) {
	tb.Helper()
	if err := SeedContext(context.Background(), store, data); err != nil {
		tb.Fatalf("seed failed: %v", err)
	}
}

// SeedContext inserts every row of data into store.
func SeedContext(ctx context.Context, store persistence.Store, data Dataset) error {
	for _, user := range data.Users {
		if err := store.CreateUser(ctx, user); err != nil {
			return fmt.Errorf("user %s: %w", user.ID, err)
		}
	}
	for _, course := range data.Courses {
		if err := store.CreateCourse(ctx, course); err != nil {
			return fmt.Errorf("course %s: %w", course.ID, err)
		}
	}
	for _, slot := range data.Slots {
		if err := store.CreateCourseSlot(ctx, slot); err != nil {
			return fmt.Errorf("slot %s: %w", slot.ID, err)
		}
	}
	for _, enrollment := range data.Enrollments {
		if err := store.UpsertEnrollment(ctx, enrollment); err != nil {
			return fmt.Errorf("enrollment %s: %w", enrollment.ID, err)
		}
	}
	for _, event := range data.PersonalEvents {
		if err := store.CreatePersonalEvent(ctx, event); err != nil {
			return fmt.Errorf("personal event %s: %w", event.ID, err)
		}
	}
	for _, task := range data.Tasks {
		if err := store.CreateTask(ctx, task); err != nil {
			return fmt.Errorf("task %s: %w", task.ID, err)
		}
	}
	for _, notification := range data.Notifications {
		if err := store.CreateNotification(ctx, notification); err != nil {
			return fmt.Errorf("notification %s: %w", notification.ID, err)
		}
	}
	return nil
}
