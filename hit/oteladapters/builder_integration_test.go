package oteladapters_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/at-internet/atinternet-apple-sdk-sub002/hit"
	"github.com/at-internet/atinternet-apple-sdk-sub002/hit/builder"
	"github.com/at-internet/atinternet-apple-sdk-sub002/hit/oteladapters"
)

func Test_Builder_ExportsThroughOpenTelemetry(t *testing.T) {
	// setup
	meterProvider, reader := newManualMeterProvider()
	tracerProvider, exporter := newInMemoryTracerProvider()

	b, err := builder.New(
		builder.DefaultConfiguration("123456"),
		builder.WithMetrics(oteladapters.NewMetricsCollector(meterProvider.Meter("hits"))),
		builder.WithTracing(oteladapters.NewTracingCollector(tracerProvider.Tracer("hits"))),
	)
	require.NoError(t, err)

	buffer := hit.NewBuffer()
	buffer.SetParam("p", hit.String("home"), hit.TypeString)
	buffer.SetParam("vtag", hit.String("2.0.0"), hit.TypeString, hit.Persistent())

	// act
	hits := b.Build(context.Background(), buffer.Snapshot())

	// assert
	require.Len(t, hits, 1)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "hit.build", spans[0].Name)
	assertSpanHasAttribute(t, spans[0], "parameter_count", "2")
	assertSpanHasAttribute(t, spans[0], "hit_count", "1")

	resourceMetrics := collect(t, reader)
	assert.Equal(t, uint64(1), findHistogram(t, resourceMetrics, "hit_build_duration_seconds").DataPoints[0].Count)
	assert.InDelta(t, 1.0, findGauge(t, resourceMetrics, "hits_built").DataPoints[0].Value, 0.0001)
}
