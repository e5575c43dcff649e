package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricBuildsTotal     = "codeatlas.snapshot.builds.total"
	metricBuildDuration   = "codeatlas.snapshot.build.duration.seconds"
	metricCacheHitsTotal  = "codeatlas.snapshot.cache.hits.total"
	metricCacheMissTotal  = "codeatlas.snapshot.cache.misses.total"
	metricSessionsActive  = "codeatlas.sessions.active"
	metricSessionMessages = "codeatlas.session.messages.total"

	attrCommand = "command"
)

// SnapshotMetrics holds instruments for snapshot building and sessions.
// Every method is safe on a nil receiver.
type SnapshotMetrics struct {
	builds        metric.Int64Counter
	buildDuration metric.Float64Histogram
	cacheHits     metric.Int64Counter
	cacheMisses   metric.Int64Counter
	sessions      metric.Int64UpDownCounter
	messages      metric.Int64Counter
}

// NewSnapshotMetrics creates the instruments from mt.
func NewSnapshotMetrics(mt metric.Meter) (*SnapshotMetrics, error) {
	b := newMetricBuilder(mt)

	sm := &SnapshotMetrics{
		builds:        b.counter(metricBuildsTotal, "Snapshot builds by outcome", "{build}"),
		buildDuration: b.histogram(metricBuildDuration, "Snapshot build duration in seconds", "s", durationBucketBoundaries...),
		cacheHits:     b.counter(metricCacheHitsTotal, "Snapshot cache hits", "{hit}"),
		cacheMisses:   b.counter(metricCacheMissTotal, "Snapshot cache misses", "{miss}"),
		sessions:      b.upDownCounter(metricSessionsActive, "Open visualization sessions", "{session}"),
		messages:      b.counter(metricSessionMessages, "Session requests by command and outcome", "{message}"),
	}

	if b.err != nil {
		return nil, b.err
	}

	return sm, nil
}

// RecordBuild records one snapshot build.
func (sm *SnapshotMetrics) RecordBuild(ctx context.Context, duration time.Duration, err error) {
	if sm == nil {
		return
	}

	status := StatusOK
	if err != nil {
		status = StatusError
	}

	attrs := metric.WithAttributes(attribute.String(attrStatus, status))

	sm.builds.Add(ctx, 1, attrs)
	sm.buildDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordCache records a snapshot cache lookup.
func (sm *SnapshotMetrics) RecordCache(ctx context.Context, hit bool) {
	if sm == nil {
		return
	}

	if hit {
		sm.cacheHits.Add(ctx, 1)

		return
	}

	sm.cacheMisses.Add(ctx, 1)
}

// SessionOpened increments the active session gauge and returns its
// decrement.
func (sm *SnapshotMetrics) SessionOpened(ctx context.Context) func() {
	if sm == nil {
		return func() {}
	}

	sm.sessions.Add(ctx, 1)

	return func() {
		sm.sessions.Add(context.WithoutCancel(ctx), -1)
	}
}

// RecordMessage records one handled session request.
func (sm *SnapshotMetrics) RecordMessage(ctx context.Context, command, status string) {
	if sm == nil {
		return
	}

	sm.messages.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrCommand, command),
		attribute.String(attrStatus, status),
	))
}
