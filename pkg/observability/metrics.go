package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricRequestsTotal    = "codeatlas.requests.total"
	metricRequestDuration  = "codeatlas.request.duration.seconds"
	metricErrorsTotal      = "codeatlas.errors.total"
	metricInflightRequests = "codeatlas.inflight.requests"

	attrOp     = "op"
	attrStatus = "status"

	// StatusOK and StatusError label request outcomes.
	StatusOK    = "ok"
	StatusError = "error"
)

// durationBucketBoundaries covers 1ms to 120s: a cached snapshot answers in
// microseconds, a cold build on a large tree can take a minute.
var durationBucketBoundaries = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120}

// REDMetrics holds the Rate, Error, Duration instruments for requests.
type REDMetrics struct {
	requestsTotal    metric.Int64Counter
	requestDuration  metric.Float64Histogram
	errorsTotal      metric.Int64Counter
	inflightRequests metric.Int64UpDownCounter
}

// NewREDMetrics creates RED instruments from mt.
func NewREDMetrics(mt metric.Meter) (*REDMetrics, error) {
	b := newMetricBuilder(mt)

	red := &REDMetrics{
		requestsTotal:    b.counter(metricRequestsTotal, "Total number of requests", "{request}"),
		requestDuration:  b.histogram(metricRequestDuration, "Request duration in seconds", "s", durationBucketBoundaries...),
		errorsTotal:      b.counter(metricErrorsTotal, "Total number of errors", "{error}"),
		inflightRequests: b.upDownCounter(metricInflightRequests, "Number of in-flight requests", "{request}"),
	}

	if b.err != nil {
		return nil, b.err
	}

	return red, nil
}

// RecordRequest records one completed request. Safe on a nil receiver.
func (rm *REDMetrics) RecordRequest(ctx context.Context, op, status string, duration time.Duration) {
	if rm == nil {
		return
	}

	attrs := metric.WithAttributes(
		attribute.String(attrOp, op),
		attribute.String(attrStatus, status),
	)

	rm.requestsTotal.Add(ctx, 1, attrs)
	rm.requestDuration.Record(ctx, duration.Seconds(), attrs)

	if status == StatusError {
		rm.errorsTotal.Add(ctx, 1, metric.WithAttributes(attribute.String(attrOp, op)))
	}
}

// TrackInflight increments the in-flight gauge and returns its decrement.
func (rm *REDMetrics) TrackInflight(ctx context.Context, op string) func() {
	if rm == nil {
		return func() {}
	}

	attrs := metric.WithAttributes(attribute.String(attrOp, op))
	rm.inflightRequests.Add(ctx, 1, attrs)

	return func() {
		rm.inflightRequests.Add(ctx, -1, attrs)
	}
}
