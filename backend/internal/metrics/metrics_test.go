package metrics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func sumOf(t *testing.T, m metricdata.Metrics) int64 {
	t.Helper()
	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "%s is not an int64 sum", m.Name)
	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}
	return total
}

func TestMetrics(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	m, err := New(provider.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()
	m.RecordSubmission(ctx, "History")
	m.RecordSubmission(ctx, "Economics")
	m.RecordConflict(ctx)
	m.RecordForbidden(ctx)
	m.RecordRejected(ctx)
	m.RecordAnalysis(ctx, 0.02, true)
	m.RecordLogin(ctx, false)

	got := collect(t, reader)
	assert.Equal(t, int64(2), sumOf(t, got["marksboard.marks.submitted"]))
	assert.Equal(t, int64(1), sumOf(t, got["marksboard.marks.conflicts"]))
	assert.Contains(t, got, "marksboard.analysis.duration")
}

func TestNilAndMockAreSafe(t *testing.T) {
	ctx := context.Background()
	for _, m := range []*Metrics{nil, NewMock()} {
		assert.NotPanics(t, func() {
			m.RecordSubmission(ctx, "History")
			m.RecordConflict(ctx)
			m.RecordRejected(ctx)
			m.RecordForbidden(ctx)
			m.RecordAnalysis(ctx, 1, false)
			m.RecordLogin(ctx, true)
		})
	}
}
