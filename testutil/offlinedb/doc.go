// Package offlinedb opens the databases the offline store is tested against.
//
// SQLite runs in memory and is always available. The PostgreSQL helpers connect to the database named
// by the HIT_TEST_POSTGRES_DSN environment variable through each supported adapter (pgx.Pool, sql.DB,
// sqlx.DB) and skip the calling test when it is unset or unreachable.
package offlinedb
