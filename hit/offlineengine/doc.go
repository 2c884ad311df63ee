// Package offlineengine provides a SQL-backed store for hits which could not be delivered yet.
//
// The Store works on PostgreSQL through a pgxpool.Pool, a sql.DB (lib/pq) or a sqlx.DB, and on SQLite
// through a sql.DB opened with the "sqlite" driver (modernc.org/sqlite) together with
// WithDialect(DialectSQLite). All SQL is rendered with goqu for the configured dialect.
//
// Each stored hit gets a UUIDv7 id; Pending returns hits oldest first, so a delivery loop looks like:
//
//	pending, err := store.Pending(ctx, 50)
//	if err != nil {
//		return err
//	}
//
//	var delivered, failed []string
//	for _, h := range pending {
//		if sender.Send(ctx, h.URL) != nil {
//			failed = append(failed, h.ID)
//			continue
//		}
//		delivered = append(delivered, h.ID)
//	}
//
//	_, _ = store.Delete(ctx, delivered...)
//	_, _ = store.IncrementRetry(ctx, failed...)
//
// Observability follows the rest of the module: optional hit.Logger, hit.ContextualLogger,
// hit.MetricsCollector and hit.TracingCollector, configured with the With... options.
package offlineengine
