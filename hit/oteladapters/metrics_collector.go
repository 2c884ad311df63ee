package oteladapters

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/at-internet/atinternet-apple-sdk-sub002/hit"
)

// MetricsCollector implements hit.ContextualMetricsCollector on an OpenTelemetry meter.
//
// Durations become float64 histograms in seconds, counters become int64 counters and values become
// float64 gauges. Instruments are created on first use and cached by metric name.
type MetricsCollector struct {
	meter metric.Meter

	mu         sync.Mutex
	histograms map[string]metric.Float64Histogram
	counters   map[string]metric.Int64Counter
	gauges     map[string]metric.Float64Gauge
}

// NewMetricsCollector creates a metrics collector recording into the given meter.
func NewMetricsCollector(meter metric.Meter) *MetricsCollector {
	return &MetricsCollector{
		meter:      meter,
		histograms: make(map[string]metric.Float64Histogram),
		counters:   make(map[string]metric.Int64Counter),
		gauges:     make(map[string]metric.Float64Gauge),
	}
}

// RecordDuration records a duration in seconds.
func (m *MetricsCollector) RecordDuration(name string, duration time.Duration, labels map[string]string) {
	m.RecordDurationContext(context.Background(), name, duration, labels)
}

// IncrementCounter adds one to a counter.
func (m *MetricsCollector) IncrementCounter(name string, labels map[string]string) {
	m.IncrementCounterContext(context.Background(), name, labels)
}

// RecordValue records the current value of a gauge.
func (m *MetricsCollector) RecordValue(name string, value float64, labels map[string]string) {
	m.RecordValueContext(context.Background(), name, value, labels)
}

// RecordDurationContext records a duration in seconds, correlated with the trace in ctx.
func (m *MetricsCollector) RecordDurationContext(ctx context.Context, name string, duration time.Duration, labels map[string]string) {
	histogram, err := m.histogram(name)
	if err != nil {
		return
	}

	histogram.Record(ctx, duration.Seconds(), metric.WithAttributes(toAttributes(labels)...))
}

// IncrementCounterContext adds one to a counter, correlated with the trace in ctx.
func (m *MetricsCollector) IncrementCounterContext(ctx context.Context, name string, labels map[string]string) {
	counter, err := m.counter(name)
	if err != nil {
		return
	}

	counter.Add(ctx, 1, metric.WithAttributes(toAttributes(labels)...))
}

// RecordValueContext records the current value of a gauge, correlated with the trace in ctx.
func (m *MetricsCollector) RecordValueContext(ctx context.Context, name string, value float64, labels map[string]string) {
	gauge, err := m.gauge(name)
	if err != nil {
		return
	}

	gauge.Record(ctx, value, metric.WithAttributes(toAttributes(labels)...))
}

func (m *MetricsCollector) histogram(name string) (metric.Float64Histogram, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if histogram, ok := m.histograms[name]; ok {
		return histogram, nil
	}

	histogram, err := m.meter.Float64Histogram(
		name,
		metric.WithDescription("Duration of hit operations"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	m.histograms[name] = histogram

	return histogram, nil
}

func (m *MetricsCollector) counter(name string) (metric.Int64Counter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if counter, ok := m.counters[name]; ok {
		return counter, nil
	}

	counter, err := m.meter.Int64Counter(name, metric.WithDescription("Count of hit events"))
	if err != nil {
		return nil, err
	}

	m.counters[name] = counter

	return counter, nil
}

func (m *MetricsCollector) gauge(name string) (metric.Float64Gauge, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gauge, ok := m.gauges[name]; ok {
		return gauge, nil
	}

	gauge, err := m.meter.Float64Gauge(name, metric.WithDescription("Last observed hit value"))
	if err != nil {
		return nil, err
	}

	m.gauges[name] = gauge

	return gauge, nil
}

func toAttributes(labels map[string]string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, len(labels))
	for key, value := range labels {
		attrs = append(attrs, attribute.String(key, value))
	}

	return attrs
}

var (
	_ hit.MetricsCollector           = (*MetricsCollector)(nil)
	_ hit.ContextualMetricsCollector = (*MetricsCollector)(nil)
)
