package offlinedb

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver
)

const (
	maxOpenConnections = 10
	maxIdleConnections = 2
	maxConnLifetime    = time.Hour
)

// SQLDB opens the PostgreSQL test database through lib/pq. The handle is closed on cleanup.
func SQLDB(tb testing.TB) *sql.DB {
	tb.Helper()

	db, err := sql.Open("postgres", PostgresDSN(tb))
	if err != nil {
		tb.Fatalf("opening the database failed: %v", err)
	}

	configure(tb, db)

	return db
}

// SQLX opens the PostgreSQL test database through sqlx and lib/pq. The handle is closed on cleanup.
func SQLX(tb testing.TB) *sqlx.DB {
	tb.Helper()

	db, err := sqlx.Open("postgres", PostgresDSN(tb))
	if err != nil {
		tb.Fatalf("opening the database failed: %v", err)
	}

	configure(tb, db.DB)

	return db
}

func configure(tb testing.TB, db *sql.DB) {
	tb.Helper()

	db.SetMaxOpenConns(maxOpenConnections)
	db.SetMaxIdleConns(maxIdleConnections)
	db.SetConnMaxLifetime(maxConnLifetime)
	tb.Cleanup(func() { _ = db.Close() })

	if pingErr := db.PingContext(context.Background()); pingErr != nil {
		tb.Skipf("postgres unreachable: %v", pingErr)
	}
}
