package builder

import (
	"github.com/at-internet/atinternet-apple-sdk-sub002/hit"
)

// Option defines a functional option for configuring a Builder.
type Option func(*Builder) error

// WithLogger sets the logger for the Builder.
// The logger will receive messages at different levels based on the logger's configured level:
//
// Debug level: one message per build with hit count, parameter count and duration
// Warn level: oversized fragments which could not be split and were absorbed into a tagged hit.
func WithLogger(logger hit.Logger) Option {
	return func(b *Builder) error {
		b.logger = logger
		return nil
	}
}

// WithContextualLogger sets the contextual logger for the Builder.
// It receives the same messages as the Logger, with the build context for trace correlation.
func WithContextualLogger(logger hit.ContextualLogger) Option {
	return func(b *Builder) error {
		b.contextualLogger = logger
		return nil
	}
}

// WithMetrics sets the metrics collector for the Builder.
// It will receive build durations, the number of hits per build and oversized hit counts.
func WithMetrics(collector hit.MetricsCollector) Option {
	return func(b *Builder) error {
		b.metricsCollector = collector
		return nil
	}
}

// WithTracing sets the tracing collector for the Builder. One span is started per build.
func WithTracing(collector hit.TracingCollector) Option {
	return func(b *Builder) error {
		b.tracingCollector = collector
		return nil
	}
}

// WithSplittableKeys replaces the keys which may force a new hit boundary.
func WithSplittableKeys(keys ...hit.KeyString) Option {
	return func(b *Builder) error {
		b.splittableKeys = toKeySet(keys)
		return nil
	}
}

// WithMultihitIDGenerator sets the function producing the id shared by all hits of one multihit.
// Ids longer than the space reserved for the multihit marker are truncated.
func WithMultihitIDGenerator(generate func() string) Option {
	return func(b *Builder) error {
		if generate == nil {
			return ErrNilMultihitIDGenerator
		}

		b.multihitID = generate

		return nil
	}
}
