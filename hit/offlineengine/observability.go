package offlineengine

import (
	"context"
	"fmt"
	"maps"
	"math"
	"time"

	"github.com/at-internet/atinternet-apple-sdk-sub002/hit"
)

const (
	spanNamePrefix       = "offline."
	spanAttrOperation    = "operation"
	spanAttrTable        = "table"
	spanAttrHitCount     = "hit_count"
	spanAttrRowsAffected = "rows_affected"
	spanAttrLimit        = "limit"
	spanAttrErrorType    = "error_type"
	spanAttrDurationMS   = "duration_ms"
	statusSuccess        = "success"
	statusError          = "error"

	metricOperationDuration = "offline_operation_duration_seconds"
	metricHitsSaved         = "offline_hits_saved"
	metricHitsLoaded        = "offline_hits_loaded"
	metricHitsDeleted       = "offline_hits_deleted"
	metricRetriesIncreased  = "offline_retries_increased"
	metricHitsCounted       = "offline_hits_pending"
	metricDatabaseErrors    = "offline_database_errors_total"
)

/***** Logging *****/

// logQueryWithDuration logs SQL statements with execution time at debug level if a logger is configured.
func (s *Store) logQueryWithDuration(ctx context.Context, sqlQuery, operation string, duration time.Duration) {
	args := []any{logAttrDurationMS, toMilliseconds(duration), logAttrQuery, sqlQuery}

	if s.logger != nil {
		s.logger.Debug(logMsgSQLExecuted+operation, args...)
	}

	if s.contextualLogger != nil {
		s.contextualLogger.DebugContext(ctx, logMsgSQLExecuted+operation, args...)
	}
}

// logOperation logs operational information at info level if a logger is configured.
func (s *Store) logOperation(ctx context.Context, action string, args ...any) {
	if s.logger != nil {
		s.logger.Info(logMsgOperation+action, args...)
	}

	if s.contextualLogger != nil {
		s.contextualLogger.InfoContext(ctx, logMsgOperation+action, args...)
	}
}

func (s *Store) logWarn(ctx context.Context, message string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(message, args...)
	}

	if s.contextualLogger != nil {
		s.contextualLogger.WarnContext(ctx, message, args...)
	}
}

// logError logs error information at the error level if a logger is configured.
func (s *Store) logError(ctx context.Context, message string, err error, args ...any) {
	allArgs := []any{logAttrError, err.Error()}
	allArgs = append(allArgs, args...)

	if s.logger != nil {
		s.logger.Error(message, allArgs...)
	}

	if s.contextualLogger != nil {
		s.contextualLogger.ErrorContext(ctx, message, allArgs...)
	}
}

// toMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func toMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}

/***** Tracing Observer *****/

// tracingObserver encapsulates the span lifecycle of one store operation.
type tracingObserver struct {
	s    *Store
	span hit.SpanContext
}

// startTracing starts a span named "offline.<operation>" if the tracing collector is configured.
func (s *Store) startTracing(ctx context.Context, operation string, attrs map[string]string) (*tracingObserver, context.Context) {
	observer := &tracingObserver{s: s}

	if s.tracingCollector == nil {
		return observer, ctx
	}

	spanAttrs := maps.Clone(attrs)
	if spanAttrs == nil {
		spanAttrs = make(map[string]string, 2)
	}
	spanAttrs[spanAttrOperation] = operation
	spanAttrs[spanAttrTable] = s.tableName

	newCtx, span := s.tracingCollector.StartSpan(ctx, spanNamePrefix+operation, spanAttrs)
	observer.span = span

	return observer, newCtx
}

func (o *tracingObserver) finishSuccess(attrs map[string]string, duration time.Duration) {
	if o.span == nil {
		return
	}

	o.span.SetStatus(statusSuccess)
	o.span.AddAttribute(spanAttrDurationMS, fmt.Sprintf("%.2f", toMilliseconds(duration)))
	o.s.tracingCollector.FinishSpan(o.span, statusSuccess, attrs)
}

func (o *tracingObserver) finishError(errorType string) {
	if o.span == nil {
		return
	}

	o.span.SetStatus(statusError)
	o.span.AddAttribute(spanAttrErrorType, errorType)
	o.s.tracingCollector.FinishSpan(o.span, statusError, map[string]string{spanAttrErrorType: errorType})
}

/***** Metrics Observer *****/

// metricsObserver encapsulates the metrics recording of one store operation.
type metricsObserver struct {
	s         *Store
	ctx       context.Context
	operation string
	start     time.Time
}

func (s *Store) startMetrics(ctx context.Context, operation string) *metricsObserver {
	return &metricsObserver{s: s, ctx: ctx, operation: operation, start: time.Now()}
}

// recordSuccess records the operation duration and the operation's hit or row count.
func (o *metricsObserver) recordSuccess(metric string, value float64, duration time.Duration) {
	collector := o.s.metricsCollector
	if collector == nil {
		return
	}

	labels := map[string]string{spanAttrOperation: o.operation, "status": statusSuccess}

	if contextual, ok := collector.(hit.ContextualMetricsCollector); ok {
		contextual.RecordDurationContext(o.ctx, metricOperationDuration, duration, labels)
		contextual.RecordValueContext(o.ctx, metric, value, labels)
		return
	}

	collector.RecordDuration(metricOperationDuration, duration, labels)
	collector.RecordValue(metric, value, labels)
}

// recordError records the duration so far and increments the database error counter.
func (o *metricsObserver) recordError(errorType string) {
	collector := o.s.metricsCollector
	if collector == nil {
		return
	}

	duration := time.Since(o.start)
	labels := map[string]string{spanAttrOperation: o.operation, "status": statusError}
	errorLabels := map[string]string{spanAttrOperation: o.operation, "status": statusError, spanAttrErrorType: errorType}

	if contextual, ok := collector.(hit.ContextualMetricsCollector); ok {
		contextual.RecordDurationContext(o.ctx, metricOperationDuration, duration, labels)
		contextual.IncrementCounterContext(o.ctx, metricDatabaseErrors, errorLabels)
		return
	}

	collector.RecordDuration(metricOperationDuration, duration, labels)
	collector.IncrementCounter(metricDatabaseErrors, errorLabels)
}
