// Package adapters provide database adapter implementations for the offline hit store.
//
// The offline store can run on a pgxpool.Pool, a sql.DB or a sqlx.DB. Every adapter satisfies the
// DBAdapter interface, so the store only deals with fully rendered SQL strings and generic rows.
package adapters
