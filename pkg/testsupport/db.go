package testsupport

import (
	"context"
	"database/sql"
	"testing"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// NewTestDB opens an isolated in-memory sqlite database and creates a table
// for each given model (pass typed nil pointers, e.g. (*User)(nil)). The
// database is closed automatically when the test finishes.
//
// The pool is pinned to a single connection because every sqlite :memory:
// connection is its own database.
func NewTestDB(t *testing.T, models ...any) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open(sqliteshim.ShimName, ":memory:")
	if err != nil {
		t.Fatalf("failed to open in-memory database: %v", err)
	}
	sqldb.SetMaxOpenConns(1)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { db.Close() })

	for _, model := range models {
		if _, err := db.NewCreateTable().Model(model).IfNotExists().Exec(context.Background()); err != nil {
			t.Fatalf("failed to create table for %T: %v", model, err)
		}
	}

	return db
}
