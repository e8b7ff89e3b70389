package auth

import (
	"context"
	"database/sql"
	"testing"

	"github.com/gustavobizon/sprint-programacao/internal/infrastructure/database"
	"github.com/gustavobizon/sprint-programacao/migrations"
)

const testSecret = "test-secret-key-at-least-32-chars!"

// testDB opens an in-memory SQLite database with all migrations applied.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.Open(database.Config{Path: ":memory:", BusyTimeout: 1})
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := db.Migrate(context.Background(), migrations.FS, nil); err != nil {
		t.Fatalf("migrating test db: %v", err)
	}
	return db.DB
}
