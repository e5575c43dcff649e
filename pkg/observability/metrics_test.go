package observability_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/Sumatoshi-tech/codeatlas/pkg/observability"
)

func newManualMeter(t *testing.T) (*sdkmetric.MeterProvider, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))

	return mp, reader
}

func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()

	var rm metricdata.ResourceMetrics

	require.NoError(t, reader.Collect(context.Background(), &rm))

	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for idx := range rm.ScopeMetrics {
		for midx := range rm.ScopeMetrics[idx].Metrics {
			if rm.ScopeMetrics[idx].Metrics[midx].Name == name {
				return &rm.ScopeMetrics[idx].Metrics[midx]
			}
		}
	}

	return nil
}

func sumOf(t *testing.T, m *metricdata.Metrics) int64 {
	t.Helper()

	require.NotNil(t, m)

	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "metric %s is not an int64 sum", m.Name)

	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}

	return total
}

func TestREDMetrics_RecordRequest(t *testing.T) {
	t.Parallel()

	mp, reader := newManualMeter(t)

	red, err := observability.NewREDMetrics(mp.Meter("test"))
	require.NoError(t, err)

	red.RecordRequest(context.Background(), "GET /api/commits", observability.StatusOK, 100*time.Millisecond)
	red.RecordRequest(context.Background(), "GET /ws", observability.StatusError, time.Second)

	rm := collectMetrics(t, reader)

	assert.Equal(t, int64(2), sumOf(t, findMetric(rm, "codeatlas.requests.total")))
	assert.Equal(t, int64(1), sumOf(t, findMetric(rm, "codeatlas.errors.total")))
	assert.NotNil(t, findMetric(rm, "codeatlas.request.duration.seconds"))
}

func TestREDMetrics_TrackInflight(t *testing.T) {
	t.Parallel()

	mp, reader := newManualMeter(t)

	red, err := observability.NewREDMetrics(mp.Meter("test"))
	require.NoError(t, err)

	done := red.TrackInflight(context.Background(), "GET")
	assert.Equal(t, int64(1), sumOf(t, findMetric(collectMetrics(t, reader), "codeatlas.inflight.requests")))

	done()
	assert.Equal(t, int64(0), sumOf(t, findMetric(collectMetrics(t, reader), "codeatlas.inflight.requests")))
}

func TestSnapshotMetrics(t *testing.T) {
	t.Parallel()

	mp, reader := newManualMeter(t)

	sm, err := observability.NewSnapshotMetrics(mp.Meter("test"))
	require.NoError(t, err)

	ctx := context.Background()

	sm.RecordBuild(ctx, 10*time.Millisecond, nil)
	sm.RecordBuild(ctx, 20*time.Millisecond, errors.New("boom"))
	sm.RecordCache(ctx, true)
	sm.RecordCache(ctx, false)
	sm.RecordCache(ctx, false)
	sm.RecordMessage(ctx, "fetch", observability.StatusOK)

	closeSession := sm.SessionOpened(ctx)

	rm := collectMetrics(t, reader)

	assert.Equal(t, int64(2), sumOf(t, findMetric(rm, "codeatlas.snapshot.builds.total")))
	assert.Equal(t, int64(1), sumOf(t, findMetric(rm, "codeatlas.snapshot.cache.hits.total")))
	assert.Equal(t, int64(2), sumOf(t, findMetric(rm, "codeatlas.snapshot.cache.misses.total")))
	assert.Equal(t, int64(1), sumOf(t, findMetric(rm, "codeatlas.session.messages.total")))
	assert.Equal(t, int64(1), sumOf(t, findMetric(rm, "codeatlas.sessions.active")))

	closeSession()

	assert.Equal(t, int64(0), sumOf(t, findMetric(collectMetrics(t, reader), "codeatlas.sessions.active")))
}

func TestSnapshotMetrics_NilReceiver(t *testing.T) {
	t.Parallel()

	var sm *observability.SnapshotMetrics

	assert.NotPanics(t, func() {
		sm.RecordBuild(context.Background(), time.Second, nil)
		sm.RecordCache(context.Background(), true)
		sm.RecordMessage(context.Background(), "next", observability.StatusOK)
		sm.SessionOpened(context.Background())()
	})
}
