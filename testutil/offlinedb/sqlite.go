package offlinedb

import (
	"database/sql"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // "sqlite" driver
)

// SQLite opens a private in-memory SQLite database. The handle is closed on cleanup.
func SQLite(tb testing.TB) *sql.DB {
	tb.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		tb.Fatalf("opening sqlite failed: %v", err)
	}

	// every connection would get its own in-memory database
	db.SetMaxOpenConns(1)
	tb.Cleanup(func() { _ = db.Close() })

	return db
}

// SQLiteX wraps SQLite for sqlx.
func SQLiteX(tb testing.TB) *sqlx.DB {
	tb.Helper()

	return sqlx.NewDb(SQLite(tb), "sqlite")
}
