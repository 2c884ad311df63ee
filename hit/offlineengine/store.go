package offlineengine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"  // dialect registration
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"

	"github.com/at-internet/atinternet-apple-sdk-sub002/hit"
	"github.com/at-internet/atinternet-apple-sdk-sub002/hit/offlineengine/internal/adapters"
)

const (
	// DialectPostgres renders SQL for PostgreSQL.
	DialectPostgres = "postgres"

	// DialectSQLite renders SQL for SQLite.
	DialectSQLite = "sqlite3"

	defaultTableName = "offline_hits"

	colID         = "id"
	colURL        = "url"
	colCreatedAt  = "created_at"
	colRetryCount = "retry_count"

	logMsgBuildQueryFailed  = "failed to build query"
	logMsgDBQueryFailed     = "database query execution failed"
	logMsgDBExecFailed      = "database execution failed"
	logMsgCloseRowsFailed   = "failed to close database rows"
	logMsgScanRowFailed     = "failed to scan database row"
	logMsgRowsAffectedFail  = "failed to get rows affected count"
	logMsgIDGenerationFail  = "failed to generate hit id"
	logMsgHitsSaved         = "hits saved"
	logMsgHitsLoaded        = "pending hits loaded"
	logMsgHitsDeleted       = "hits deleted"
	logMsgRetriesIncreased  = "retry counts increased"
	logMsgHitsCounted       = "hits counted"
	logMsgSQLExecuted       = "executed sql for: "
	logMsgOperation         = "offline store operation: "
	logAttrError            = "error"
	logAttrQuery            = "query"
	logAttrHitCount         = "hit_count"
	logAttrRowsAffected     = "rows_affected"
	logAttrDurationMS       = "duration_ms"
	logAttrTable            = "table"
	errorTypeBuildQuery     = "build_query"
	errorTypeDatabaseQuery  = "database_query"
	errorTypeDatabaseExec   = "database_exec"
	errorTypeRowScan        = "row_scan"
	errorTypeIDGeneration   = "id_generation"
	operationSave           = "save"
	operationPending        = "pending"
	operationDelete         = "delete"
	operationIncrementRetry = "increment_retry"
	operationCount          = "count"
	operationCreateTable    = "create_table"
)

var (
	// ErrNilDatabaseConnection is returned when a constructor receives a nil connection.
	ErrNilDatabaseConnection = errors.New("database connection must not be nil")

	// ErrEmptyTableName is returned when an empty table name is configured.
	ErrEmptyTableName = errors.New("table name must not be empty")

	// ErrUnsupportedDialect is returned for dialects other than DialectPostgres and DialectSQLite.
	ErrUnsupportedDialect = errors.New("unsupported sql dialect")

	// ErrNilClock is returned when a nil time source is supplied to WithClock.
	ErrNilClock = errors.New("clock must not be nil")

	// ErrBuildingQueryFailed is returned when a SQL statement could not be rendered.
	ErrBuildingQueryFailed = errors.New("building the query failed")

	// ErrSavingHitsFailed is returned when storing hits failed.
	ErrSavingHitsFailed = errors.New("saving hits failed")

	// ErrQueryingHitsFailed is returned when reading hits failed.
	ErrQueryingHitsFailed = errors.New("querying hits failed")

	// ErrDeletingHitsFailed is returned when deleting hits failed.
	ErrDeletingHitsFailed = errors.New("deleting hits failed")

	// ErrUpdatingHitsFailed is returned when increasing retry counts failed.
	ErrUpdatingHitsFailed = errors.New("updating hits failed")

	// ErrScanningDBRowFailed is returned when a result row could not be scanned.
	ErrScanningDBRowFailed = errors.New("scanning db row failed")

	// ErrCreatingTableFailed is returned when the hits table could not be created.
	ErrCreatingTableFailed = errors.New("creating the hits table failed")
)

// OfflineHit is a stored hit URL waiting for delivery.
type OfflineHit struct {
	ID         string
	URL        string
	CreatedAt  time.Time
	RetryCount int
}

// Store persists built hit URLs in a SQL table until they are delivered.
//
// Columns: id (text, UUIDv7), url (text), created_at (bigint, unix milliseconds), retry_count (integer).
// A Store is safe for concurrent use as far as the underlying connection is.
type Store struct {
	db               adapters.DBAdapter
	tableName        string
	dialect          string
	now              func() time.Time
	logger           hit.Logger
	contextualLogger hit.ContextualLogger
	metricsCollector hit.MetricsCollector
	tracingCollector hit.TracingCollector
}

// NewStoreFromPGXPool creates a new Store using a pgx Pool with optional configuration.
func NewStoreFromPGXPool(db *pgxpool.Pool, options ...Option) (*Store, error) {
	if db == nil {
		return nil, ErrNilDatabaseConnection
	}

	return newStore(adapters.NewPGXAdapter(db), options...)
}

// NewStoreFromSQLDB creates a new Store using a sql.DB with optional configuration.
func NewStoreFromSQLDB(db *sql.DB, options ...Option) (*Store, error) {
	if db == nil {
		return nil, ErrNilDatabaseConnection
	}

	return newStore(adapters.NewSQLAdapter(db), options...)
}

// NewStoreFromSQLX creates a new Store using a sqlx.DB with optional configuration.
func NewStoreFromSQLX(db *sqlx.DB, options ...Option) (*Store, error) {
	if db == nil {
		return nil, ErrNilDatabaseConnection
	}

	return newStore(adapters.NewSQLXAdapter(db), options...)
}

func newStore(db adapters.DBAdapter, options ...Option) (*Store, error) {
	s := &Store{
		db:        db,
		tableName: defaultTableName,
		dialect:   DialectPostgres,
		now:       time.Now,
	}

	for _, option := range options {
		if err := option(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// TableName returns the configured table name.
func (s *Store) TableName() string {
	return s.tableName
}

// CreateTable creates the hits table and its ordering index if they do not exist.
func (s *Store) CreateTable(ctx context.Context) error {
	table := quoteIdentifier(s.tableName)
	statements := []string{
		fmt.Sprintf(
			"CREATE TABLE IF NOT EXISTS %s (%s TEXT PRIMARY KEY, %s TEXT NOT NULL, %s BIGINT NOT NULL, %s INTEGER NOT NULL DEFAULT 0)",
			table, colID, colURL, colCreatedAt, colRetryCount,
		),
		fmt.Sprintf(
			"CREATE INDEX IF NOT EXISTS %s ON %s (%s, %s)",
			quoteIdentifier(s.tableName+"_"+colCreatedAt+"_idx"), table, colCreatedAt, colID,
		),
	}

	for _, statement := range statements {
		if _, _, err := s.exec(ctx, operationCreateTable, statement); err != nil {
			return errors.Join(ErrCreatingTableFailed, err)
		}
	}

	return nil
}

// Save stores the hits, each under a new UUIDv7 id. Saving nothing is a no-op.
func (s *Store) Save(ctx context.Context, hits ...string) error {
	if len(hits) == 0 {
		return nil
	}

	tracer, ctx := s.startTracing(ctx, operationSave, map[string]string{spanAttrHitCount: fmt.Sprint(len(hits))})
	metrics := s.startMetrics(ctx, operationSave)

	createdAt := s.now().UnixMilli()
	rows := make([]any, 0, len(hits))
	for _, hitURL := range hits {
		id, err := uuid.NewV7()
		if err != nil {
			s.logError(ctx, logMsgIDGenerationFail, err)
			tracer.finishError(errorTypeIDGeneration)
			metrics.recordError(errorTypeIDGeneration)
			return errors.Join(ErrSavingHitsFailed, err)
		}

		rows = append(rows, goqu.Record{
			colID:         id.String(),
			colURL:        hitURL,
			colCreatedAt:  createdAt,
			colRetryCount: 0,
		})
	}

	sqlQuery, err := s.render(ctx, goqu.Dialect(s.dialect).Insert(s.tableName).Rows(rows...))
	if err != nil {
		tracer.finishError(errorTypeBuildQuery)
		metrics.recordError(errorTypeBuildQuery)
		return err
	}

	rowsAffected, duration, err := s.exec(ctx, operationSave, sqlQuery)
	if err != nil {
		tracer.finishError(errorTypeDatabaseExec)
		metrics.recordError(errorTypeDatabaseExec)
		return errors.Join(ErrSavingHitsFailed, err)
	}

	s.logOperation(ctx, logMsgHitsSaved, logAttrHitCount, rowsAffected, logAttrDurationMS, toMilliseconds(duration))
	tracer.finishSuccess(map[string]string{spanAttrRowsAffected: fmt.Sprint(rowsAffected)}, duration)
	metrics.recordSuccess(metricHitsSaved, float64(rowsAffected), duration)

	return nil
}

// Pending returns up to limit stored hits, oldest first. A limit <= 0 returns all hits.
func (s *Store) Pending(ctx context.Context, limit int) ([]OfflineHit, error) {
	tracer, ctx := s.startTracing(ctx, operationPending, map[string]string{spanAttrLimit: fmt.Sprint(limit)})
	metrics := s.startMetrics(ctx, operationPending)

	selectStmt := goqu.Dialect(s.dialect).
		From(s.tableName).
		Select(colID, colURL, colCreatedAt, colRetryCount).
		Order(goqu.I(colCreatedAt).Asc(), goqu.I(colID).Asc())

	if limit > 0 {
		selectStmt = selectStmt.Limit(uint(limit))
	}

	sqlQuery, err := s.render(ctx, selectStmt)
	if err != nil {
		tracer.finishError(errorTypeBuildQuery)
		metrics.recordError(errorTypeBuildQuery)
		return nil, err
	}

	rows, duration, err := s.query(ctx, operationPending, sqlQuery)
	if err != nil {
		tracer.finishError(errorTypeDatabaseQuery)
		metrics.recordError(errorTypeDatabaseQuery)
		return nil, err
	}
	defer s.closeRows(ctx, rows)

	hits := make([]OfflineHit, 0)
	for rows.Next() {
		var (
			h          OfflineHit
			createdAt  int64
			retryCount int64
		)

		if scanErr := rows.Scan(&h.ID, &h.URL, &createdAt, &retryCount); scanErr != nil {
			s.logError(ctx, logMsgScanRowFailed, scanErr)
			tracer.finishError(errorTypeRowScan)
			metrics.recordError(errorTypeRowScan)
			return nil, errors.Join(ErrScanningDBRowFailed, scanErr)
		}

		h.CreatedAt = time.UnixMilli(createdAt).UTC()
		h.RetryCount = int(retryCount)
		hits = append(hits, h)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		s.logError(ctx, logMsgDBQueryFailed, rowsErr)
		tracer.finishError(errorTypeDatabaseQuery)
		metrics.recordError(errorTypeDatabaseQuery)
		return nil, errors.Join(ErrQueryingHitsFailed, rowsErr)
	}

	s.logOperation(ctx, logMsgHitsLoaded, logAttrHitCount, len(hits), logAttrDurationMS, toMilliseconds(duration))
	tracer.finishSuccess(map[string]string{spanAttrHitCount: fmt.Sprint(len(hits))}, duration)
	metrics.recordSuccess(metricHitsLoaded, float64(len(hits)), duration)

	return hits, nil
}

// Delete removes the hits with the given ids and returns how many were removed.
func (s *Store) Delete(ctx context.Context, ids ...string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	deleteStmt := goqu.Dialect(s.dialect).
		Delete(s.tableName).
		Where(goqu.C(colID).In(ids))

	return s.modify(ctx, operationDelete, deleteStmt, ErrDeletingHitsFailed, logMsgHitsDeleted, metricHitsDeleted)
}

// IncrementRetry increases the retry count of the hits with the given ids by one.
func (s *Store) IncrementRetry(ctx context.Context, ids ...string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	updateStmt := goqu.Dialect(s.dialect).
		Update(s.tableName).
		Set(goqu.Record{colRetryCount: goqu.L(colRetryCount + " + 1")}).
		Where(goqu.C(colID).In(ids))

	return s.modify(ctx, operationIncrementRetry, updateStmt, ErrUpdatingHitsFailed, logMsgRetriesIncreased, metricRetriesIncreased)
}

// Count returns the number of stored hits.
func (s *Store) Count(ctx context.Context) (int, error) {
	tracer, ctx := s.startTracing(ctx, operationCount, nil)
	metrics := s.startMetrics(ctx, operationCount)

	sqlQuery, err := s.render(ctx, goqu.Dialect(s.dialect).From(s.tableName).Select(goqu.COUNT(goqu.Star())))
	if err != nil {
		tracer.finishError(errorTypeBuildQuery)
		metrics.recordError(errorTypeBuildQuery)
		return 0, err
	}

	rows, duration, err := s.query(ctx, operationCount, sqlQuery)
	if err != nil {
		tracer.finishError(errorTypeDatabaseQuery)
		metrics.recordError(errorTypeDatabaseQuery)
		return 0, err
	}
	defer s.closeRows(ctx, rows)

	var count int64
	if rows.Next() {
		if scanErr := rows.Scan(&count); scanErr != nil {
			s.logError(ctx, logMsgScanRowFailed, scanErr)
			tracer.finishError(errorTypeRowScan)
			metrics.recordError(errorTypeRowScan)
			return 0, errors.Join(ErrScanningDBRowFailed, scanErr)
		}
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		tracer.finishError(errorTypeDatabaseQuery)
		metrics.recordError(errorTypeDatabaseQuery)
		return 0, errors.Join(ErrQueryingHitsFailed, rowsErr)
	}

	s.logOperation(ctx, logMsgHitsCounted, logAttrHitCount, count, logAttrDurationMS, toMilliseconds(duration))
	tracer.finishSuccess(map[string]string{spanAttrHitCount: fmt.Sprint(count)}, duration)
	metrics.recordSuccess(metricHitsCounted, float64(count), duration)

	return int(count), nil
}

type sqlRenderer interface {
	ToSQL() (string, []any, error)
}

// modify runs a DELETE or UPDATE statement with full observability and returns the affected rows.
func (s *Store) modify(
	ctx context.Context,
	operation string,
	stmt sqlRenderer,
	failure error,
	logMsg string,
	metric string,
) (int64, error) {

	tracer, ctx := s.startTracing(ctx, operation, nil)
	metrics := s.startMetrics(ctx, operation)

	sqlQuery, err := s.render(ctx, stmt)
	if err != nil {
		tracer.finishError(errorTypeBuildQuery)
		metrics.recordError(errorTypeBuildQuery)
		return 0, err
	}

	rowsAffected, duration, err := s.exec(ctx, operation, sqlQuery)
	if err != nil {
		tracer.finishError(errorTypeDatabaseExec)
		metrics.recordError(errorTypeDatabaseExec)
		return 0, errors.Join(failure, err)
	}

	s.logOperation(ctx, logMsg, logAttrRowsAffected, rowsAffected, logAttrDurationMS, toMilliseconds(duration))
	tracer.finishSuccess(map[string]string{spanAttrRowsAffected: fmt.Sprint(rowsAffected)}, duration)
	metrics.recordSuccess(metric, float64(rowsAffected), duration)

	return rowsAffected, nil
}

// render turns a goqu statement into interpolated SQL.
func (s *Store) render(ctx context.Context, stmt sqlRenderer) (string, error) {
	sqlQuery, _, err := stmt.ToSQL()
	if err != nil {
		s.logError(ctx, logMsgBuildQueryFailed, err, logAttrTable, s.tableName)
		return "", errors.Join(ErrBuildingQueryFailed, err)
	}

	return sqlQuery, nil
}

// exec executes a statement and returns the affected rows with timing information.
func (s *Store) exec(ctx context.Context, operation, sqlQuery string) (int64, time.Duration, error) {
	start := time.Now()
	result, err := s.db.Exec(ctx, sqlQuery)
	duration := time.Since(start)
	s.logQueryWithDuration(ctx, sqlQuery, operation, duration)

	if err != nil {
		s.logError(ctx, logMsgDBExecFailed, err, logAttrQuery, sqlQuery)
		return 0, duration, err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		s.logError(ctx, logMsgRowsAffectedFail, err)
		return 0, duration, err
	}

	return rowsAffected, duration, nil
}

// query executes a query and returns the rows with timing information.
func (s *Store) query(ctx context.Context, operation, sqlQuery string) (adapters.DBRows, time.Duration, error) {
	start := time.Now()
	rows, err := s.db.Query(ctx, sqlQuery)
	duration := time.Since(start)
	s.logQueryWithDuration(ctx, sqlQuery, operation, duration)

	if err != nil {
		s.logError(ctx, logMsgDBQueryFailed, err, logAttrQuery, sqlQuery)
		return nil, duration, errors.Join(ErrQueryingHitsFailed, err)
	}

	return rows, duration, nil
}

// closeRows closes database rows and logs any errors.
func (s *Store) closeRows(ctx context.Context, rows adapters.DBRows) {
	if err := rows.Close(); err != nil {
		s.logWarn(ctx, logMsgCloseRowsFailed, logAttrError, err.Error())
	}
}

func quoteIdentifier(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
