package offlineengine_test

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/at-internet/atinternet-apple-sdk-sub002/hit/offlineengine"
	"github.com/at-internet/atinternet-apple-sdk-sub002/testutil/offlinedb"
)

// postgresStores opens one store per adapter, each on its own table which is dropped on cleanup.
func postgresStores(t *testing.T) map[string]*offlineengine.Store {
	t.Helper()

	tableName := func() string {
		return "offline_hits_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	}

	pool := offlinedb.PGXPool(t)
	sqlDB := offlinedb.SQLDB(t)
	sqlxDB := offlinedb.SQLX(t)

	stores := make(map[string]*offlineengine.Store, 3)

	pgxTable := tableName()
	fromPool, err := offlineengine.NewStoreFromPGXPool(pool, offlineengine.WithTableName(pgxTable))
	require.NoError(t, err)
	stores["pgx.Pool"] = fromPool
	t.Cleanup(func() { _, _ = pool.Exec(context.Background(), `DROP TABLE IF EXISTS "`+pgxTable+`"`) })

	sqlTable := tableName()
	fromSQLDB, err := offlineengine.NewStoreFromSQLDB(sqlDB, offlineengine.WithTableName(sqlTable))
	require.NoError(t, err)
	stores["sql.DB"] = fromSQLDB
	t.Cleanup(func() { _, _ = sqlDB.Exec(`DROP TABLE IF EXISTS "` + sqlTable + `"`) })

	sqlxTable := tableName()
	fromSQLX, err := offlineengine.NewStoreFromSQLX(sqlxDB, offlineengine.WithTableName(sqlxTable))
	require.NoError(t, err)
	stores["sqlx.DB"] = fromSQLX
	t.Cleanup(func() { _, _ = sqlxDB.Exec(`DROP TABLE IF EXISTS "` + sqlxTable + `"`) })

	return stores
}

func Test_Postgres_Store_Lifecycle(t *testing.T) {
	for name, store := range postgresStores(t) {
		t.Run(name, func(t *testing.T) {
			// setup
			ctx := context.Background()
			require.NoError(t, store.CreateTable(ctx))

			// arrange
			require.NoError(t, store.Save(ctx,
				"https://logs.xiti.com/hit.xiti?s=1&mh=1-2-7&p=a",
				"https://logs.xiti.com/hit.xiti?s=1&mh=2-2-7&p=o'brien",
			))

			// act
			pending, err := store.Pending(ctx, 0)
			require.NoError(t, err)
			require.Len(t, pending, 2)

			retried, err := store.IncrementRetry(ctx, pending[0].ID)
			require.NoError(t, err)

			deleted, err := store.Delete(ctx, pending[1].ID)
			require.NoError(t, err)

			remaining, err := store.Pending(ctx, 0)
			require.NoError(t, err)

			count, err := store.Count(ctx)
			require.NoError(t, err)

			// assert
			assert.Equal(t, "https://logs.xiti.com/hit.xiti?s=1&mh=2-2-7&p=o'brien", pending[1].URL)
			assert.Equal(t, int64(1), retried)
			assert.Equal(t, int64(1), deleted)
			require.Len(t, remaining, 1)
			assert.Equal(t, 1, remaining[0].RetryCount)
			assert.Equal(t, 1, count)
		})
	}
}
