// Package oteladapters provides OpenTelemetry implementations of the hit observability interfaces.
//
// The builder, the tracker and the offline store only depend on the small interfaces declared in
// package hit. Wire these adapters in to export their logs, metrics and spans through an
// OpenTelemetry SDK:
//
//	meter := otel.Meter("hits")
//	tracer := otel.Tracer("hits")
//
//	b, err := builder.New(cfg,
//		builder.WithMetrics(oteladapters.NewMetricsCollector(meter)),
//		builder.WithTracing(oteladapters.NewTracingCollector(tracer)),
//		builder.WithContextualLogger(oteladapters.NewSlogBridgeLogger("hits")),
//	)
package oteladapters
