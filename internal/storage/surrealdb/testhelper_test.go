package surrealdb

import (
	"context"
	"fmt"
	"testing"

	surreal "github.com/surrealdb/surrealdb.go"

	"github.com/bobmcallan/tradesim/internal/common"
	tcommon "github.com/bobmcallan/tradesim/tests/common"
)

// testDB starts the shared SurrealDB container and returns a connected *surreal.DB
// using a unique database name per test to ensure isolation.
func testDB(t *testing.T) *surreal.DB {
	t.Helper()

	sc := tcommon.StartSurrealDB(t)
	ctx := context.Background()

	db, err := surreal.New(sc.Address())
	if err != nil {
		t.Fatalf("connect to SurrealDB: %v", err)
	}

	if _, err := db.SignIn(ctx, map[string]interface{}{
		"user": "root",
		"pass": "root",
	}); err != nil {
		t.Fatalf("sign in to SurrealDB: %v", err)
	}

	if err := db.Use(ctx, tcommon.Namespace, tcommon.IsolatedDatabase(t, "store")); err != nil {
		t.Fatalf("select namespace/database: %v", err)
	}

	for _, table := range []string{"portfolio", "system_kv"} {
		sql := fmt.Sprintf("DEFINE TABLE IF NOT EXISTS %s SCHEMALESS", table)
		if _, err := surreal.Query[any](ctx, db, sql, nil); err != nil {
			t.Fatalf("define table %s: %v", table, err)
		}
	}

	t.Cleanup(func() {
		db.Close(context.Background())
	})

	return db
}

// testLogger returns a silent logger for tests.
func testLogger() *common.Logger {
	return common.NewSilentLogger()
}
