package offlinedb

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PGXPool connects a pgx pool to the PostgreSQL test database. The pool is closed on cleanup.
func PGXPool(tb testing.TB) *pgxpool.Pool {
	tb.Helper()

	const maxConnections = int32(10)
	const minConnections = int32(1)
	const connectTimeout = time.Second * 5

	dbConfig, err := pgxpool.ParseConfig(PostgresDSN(tb))
	if err != nil {
		tb.Fatalf("parsing %s failed: %v", EnvPostgresDSN, err)
	}

	dbConfig.MaxConns = maxConnections
	dbConfig.MinConns = minConnections
	dbConfig.ConnConfig.ConnectTimeout = connectTimeout

	pool, err := pgxpool.NewWithConfig(context.Background(), dbConfig)
	if err != nil {
		tb.Fatalf("creating the pgx pool failed: %v", err)
	}
	tb.Cleanup(pool.Close)

	if pingErr := pool.Ping(context.Background()); pingErr != nil {
		tb.Skipf("postgres unreachable: %v", pingErr)
	}

	return pool
}
