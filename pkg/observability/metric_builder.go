package observability

import (
	"fmt"

	"go.opentelemetry.io/otel/metric"
)

// metricBuilder collects instrument creation errors so a set of instruments
// can be built with a single error check.
type metricBuilder struct {
	meter metric.Meter
	err   error
}

func newMetricBuilder(mt metric.Meter) *metricBuilder {
	return &metricBuilder{meter: mt}
}

func (b *metricBuilder) counter(name, desc, unit string) metric.Int64Counter {
	c, err := b.meter.Int64Counter(name, metric.WithDescription(desc), metric.WithUnit(unit))
	b.setErr(name, err)

	return c
}

func (b *metricBuilder) histogram(name, desc, unit string, bounds ...float64) metric.Float64Histogram {
	opts := []metric.Float64HistogramOption{
		metric.WithDescription(desc),
		metric.WithUnit(unit),
	}

	if len(bounds) > 0 {
		opts = append(opts, metric.WithExplicitBucketBoundaries(bounds...))
	}

	h, err := b.meter.Float64Histogram(name, opts...)
	b.setErr(name, err)

	return h
}

func (b *metricBuilder) upDownCounter(name, desc, unit string) metric.Int64UpDownCounter {
	c, err := b.meter.Int64UpDownCounter(name, metric.WithDescription(desc), metric.WithUnit(unit))
	b.setErr(name, err)

	return c
}

func (b *metricBuilder) setErr(name string, err error) {
	if err != nil && b.err == nil {
		b.err = fmt.Errorf("create %s: %w", name, err)
	}
}
