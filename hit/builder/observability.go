package builder

import (
	"context"
	"math"
	"strconv"
	"time"

	"github.com/at-internet/atinternet-apple-sdk-sub002/hit"
)

const (
	spanNameBuild          = "hit.build"
	spanAttrOperation      = "operation"
	spanAttrParameterCount = "parameter_count"
	spanAttrHitCount       = "hit_count"
	spanAttrOversizedCount = "oversized_count"
	spanAttrDurationMS     = "duration_ms"
	operationBuild         = "build"
	statusSuccess          = "success"
	statusOversized        = "oversized"

	metricBuildDuration  = "hit_build_duration_seconds"
	metricHitsBuilt      = "hits_built"
	metricOversizedTotal = "hits_oversized_total"
)

// logDebug logs at debug level to whichever loggers are configured.
func (b Builder) logDebug(ctx context.Context, msg string, args ...any) {
	if b.logger != nil {
		b.logger.Debug(msg, args...)
	}

	if b.contextualLogger != nil {
		b.contextualLogger.DebugContext(ctx, msg, args...)
	}
}

// logWarn logs at warn level to whichever loggers are configured.
func (b Builder) logWarn(ctx context.Context, msg string, args ...any) {
	if b.logger != nil {
		b.logger.Warn(msg, args...)
	}

	if b.contextualLogger != nil {
		b.contextualLogger.WarnContext(ctx, msg, args...)
	}
}

// toMilliseconds converts a time.Duration to float64 milliseconds with 3 decimal places.
func toMilliseconds(d time.Duration) float64 {
	return math.Round(float64(d.Nanoseconds())/1e6*1000) / 1000
}

// === Tracing Observer ===

// buildTracingObserver encapsulates the span lifecycle of one build.
type buildTracingObserver struct {
	b    Builder
	span hit.SpanContext
}

// startBuildTracing starts a span if the tracing collector is configured.
func (b Builder) startBuildTracing(ctx context.Context, parameterCount int) (*buildTracingObserver, context.Context) {
	observer := &buildTracingObserver{b: b}

	if b.tracingCollector == nil {
		return observer, ctx
	}

	newCtx, span := b.tracingCollector.StartSpan(ctx, spanNameBuild, map[string]string{
		spanAttrOperation:      operationBuild,
		spanAttrParameterCount: strconv.Itoa(parameterCount),
	})
	observer.span = span

	return observer, newCtx
}

// finishSuccess completes the span. Builds which absorbed oversized fragments finish as "oversized".
func (o *buildTracingObserver) finishSuccess(hitCount, oversizedCount int, duration time.Duration) {
	if o.span == nil {
		return
	}

	status := statusSuccess
	if oversizedCount > 0 {
		status = statusOversized
	}

	attrs := map[string]string{
		spanAttrHitCount:       strconv.Itoa(hitCount),
		spanAttrOversizedCount: strconv.Itoa(oversizedCount),
		spanAttrDurationMS:     strconv.FormatFloat(toMilliseconds(duration), 'f', 2, 64),
	}

	o.span.SetStatus(status)
	o.b.tracingCollector.FinishSpan(o.span, status, attrs)
}

// === Metrics Observer ===

// buildMetricsObserver encapsulates the metrics recording of one build.
type buildMetricsObserver struct {
	b   Builder
	ctx context.Context
}

func (b Builder) startBuildMetrics(ctx context.Context) *buildMetricsObserver {
	return &buildMetricsObserver{b: b, ctx: ctx}
}

// recordSuccess records duration, hit count and oversized hits of one build.
func (o *buildMetricsObserver) recordSuccess(hitCount, oversizedCount int, duration time.Duration) {
	collector := o.b.metricsCollector
	if collector == nil {
		return
	}

	labels := map[string]string{spanAttrOperation: operationBuild, "status": statusSuccess}

	if contextual, ok := collector.(hit.ContextualMetricsCollector); ok {
		contextual.RecordDurationContext(o.ctx, metricBuildDuration, duration, labels)
		contextual.RecordValueContext(o.ctx, metricHitsBuilt, float64(hitCount), labels)
	} else {
		collector.RecordDuration(metricBuildDuration, duration, labels)
		collector.RecordValue(metricHitsBuilt, float64(hitCount), labels)
	}

	for range oversizedCount {
		oversizedLabels := map[string]string{spanAttrOperation: operationBuild, "status": statusOversized}
		if contextual, ok := collector.(hit.ContextualMetricsCollector); ok {
			contextual.IncrementCounterContext(o.ctx, metricOversizedTotal, oversizedLabels)
		} else {
			collector.IncrementCounter(metricOversizedTotal, oversizedLabels)
		}
	}
}
