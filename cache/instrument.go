package cache

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// InstrumentedStore wraps a Store and reports operation counts and latency
// to Prometheus. The wrapped store keeps its own Snapshot counters; this
// layer only adds the scrape-friendly view.
type InstrumentedStore struct {
	inner Store

	operations *prometheus.CounterVec
	duration   *prometheus.HistogramVec
}

var _ Store = (*InstrumentedStore)(nil)

// Instrument registers cache metrics on reg and returns the wrapped store.
// Registration fails if the collectors already exist on reg, so wrap each
// store at most once per registry.
func Instrument(inner Store, reg prometheus.Registerer) (*InstrumentedStore, error) {
	s := &InstrumentedStore{
		inner: inner,
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cache_operations_total",
			Help: "Total cache operations by operation and result",
		}, []string{"operation", "result"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cache_operation_duration_seconds",
			Help:    "Cache operation latency in seconds",
			Buckets: []float64{0.0001, 0.001, 0.01, 0.1, 1.0},
		}, []string{"operation"}),
	}

	if err := reg.Register(s.operations); err != nil {
		return nil, err
	}
	if err := reg.Register(s.duration); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *InstrumentedStore) observe(op string, start time.Time, ok bool) {
	result := "success"
	if !ok {
		result = "miss"
	}
	s.operations.WithLabelValues(op, result).Inc()
	s.duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

// Get implements Store.
func (s *InstrumentedStore) Get(ctx context.Context, key string, dest any) bool {
	start := time.Now()
	found := s.inner.Get(ctx, key, dest)
	s.observe("get", start, found)
	return found
}

// Set implements Store.
func (s *InstrumentedStore) Set(ctx context.Context, key string, value any, ttl time.Duration) bool {
	start := time.Now()
	ok := s.inner.Set(ctx, key, value, ttl)
	s.observe("set", start, ok)
	return ok
}

// Delete implements Store.
func (s *InstrumentedStore) Delete(ctx context.Context, key string) bool {
	start := time.Now()
	existed := s.inner.Delete(ctx, key)
	s.observe("delete", start, existed)
	return existed
}

// DeletePattern implements Store.
func (s *InstrumentedStore) DeletePattern(ctx context.Context, pattern string) int {
	start := time.Now()
	count := s.inner.DeletePattern(ctx, pattern)
	s.observe("delete_pattern", start, count > 0)
	return count
}

// Metrics implements Store by delegating to the wrapped store.
func (s *InstrumentedStore) Metrics() Snapshot {
	return s.inner.Metrics()
}
