package offlineengine

import (
	"time"

	"github.com/at-internet/atinternet-apple-sdk-sub002/hit"
)

// Option defines a functional option for configuring a Store.
type Option func(*Store) error

// WithTableName sets the table name for the Store.
func WithTableName(tableName string) Option {
	return func(s *Store) error {
		if tableName == "" {
			return ErrEmptyTableName
		}

		s.tableName = tableName

		return nil
	}
}

// WithDialect sets the SQL dialect queries are rendered in: DialectPostgres (default) or DialectSQLite.
func WithDialect(dialect string) Option {
	return func(s *Store) error {
		switch dialect {
		case DialectPostgres, DialectSQLite:
			s.dialect = dialect
			return nil
		default:
			return ErrUnsupportedDialect
		}
	}
}

// WithLogger sets the logger for the Store.
// The logger will receive messages at different levels based on the logger's configured level:
//
// Debug level: SQL statements with execution timing (development use)
// Info level: hit counts and durations of store operations (production-safe)
// Warn level: non-critical issues like failing to close rows
// Error level: failures that make an operation fail.
func WithLogger(logger hit.Logger) Option {
	return func(s *Store) error {
		s.logger = logger
		return nil
	}
}

// WithContextualLogger sets the contextual logger for the Store.
// It receives the same messages as the Logger, with the operation context for trace correlation.
func WithContextualLogger(logger hit.ContextualLogger) Option {
	return func(s *Store) error {
		s.contextualLogger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for the Store.
// It will receive operation durations, saved and loaded hit counts and database errors.
func WithMetrics(collector hit.MetricsCollector) Option {
	return func(s *Store) error {
		s.metricsCollector = collector
		return nil
	}
}

// WithTracing sets the tracing collector for the Store. One span is started per operation.
func WithTracing(collector hit.TracingCollector) Option {
	return func(s *Store) error {
		s.tracingCollector = collector
		return nil
	}
}

// WithClock sets the time source for the created_at column.
func WithClock(now func() time.Time) Option {
	return func(s *Store) error {
		if now == nil {
			return ErrNilClock
		}

		s.now = now

		return nil
	}
}
