package xsnapcache

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/omeyang/xsnap/pkg/storage/xsnapcache"

// 指标名称
const (
	metricHits      = "xsnap.cache.hits"
	metricMisses    = "xsnap.cache.misses"
	metricSets      = "xsnap.cache.sets"
	metricEvictions = "xsnap.cache.evictions"
	metricEntries   = "xsnap.cache.entries"
)

// 未命中原因
const (
	missAbsent   = "absent"
	missExpired  = "expired"
	missMismatch = "mismatch"
)

type metrics struct {
	hits      metric.Int64Counter
	misses    metric.Int64Counter
	sets      metric.Int64Counter
	evictions metric.Int64Counter
}

func newMetrics(mp metric.MeterProvider, count func() int) (*metrics, error) {
	meter := mp.Meter(instrumentationName)

	m := &metrics{}
	var err error
	if m.hits, err = meter.Int64Counter(metricHits,
		metric.WithDescription("cache hits"), metric.WithUnit("1")); err != nil {
		return nil, fmt.Errorf("xsnapcache: create counter %s: %w", metricHits, err)
	}
	if m.misses, err = meter.Int64Counter(metricMisses,
		metric.WithDescription("cache misses by reason"), metric.WithUnit("1")); err != nil {
		return nil, fmt.Errorf("xsnapcache: create counter %s: %w", metricMisses, err)
	}
	if m.sets, err = meter.Int64Counter(metricSets,
		metric.WithDescription("cache writes by result"), metric.WithUnit("1")); err != nil {
		return nil, fmt.Errorf("xsnapcache: create counter %s: %w", metricSets, err)
	}
	if m.evictions, err = meter.Int64Counter(metricEvictions,
		metric.WithDescription("entries evicted on expiry or mismatch"), metric.WithUnit("1")); err != nil {
		return nil, fmt.Errorf("xsnapcache: create counter %s: %w", metricEvictions, err)
	}

	_, err = meter.Int64ObservableGauge(metricEntries,
		metric.WithDescription("entries held in memory"),
		metric.WithUnit("1"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(int64(count()))
			return nil
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("xsnapcache: create gauge %s: %w", metricEntries, err)
	}
	return m, nil
}

func (m *metrics) hit(ctx context.Context, p Partition) {
	m.hits.Add(ctx, 1, metric.WithAttributes(attribute.String("partition", p.String())))
}

func (m *metrics) miss(ctx context.Context, reason string) {
	m.misses.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", reason)))
}

func (m *metrics) set(ctx context.Context, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.sets.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

func (m *metrics) evict(ctx context.Context, n int) {
	if n > 0 {
		m.evictions.Add(ctx, int64(n))
	}
}
