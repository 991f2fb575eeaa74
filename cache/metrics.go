package cache

import (
	"sync"
	"sync/atomic"
)

// emaWeight is how much of the previous average survives each observation.
// The first observation assigns directly instead of averaging against zero.
const emaWeight = 0.9

// Metrics tracks cache performance counters. Counters are atomic; the
// moving averages are guarded by a mutex since they read-modify-write.
type Metrics struct {
	hits      atomic.Int64
	misses    atomic.Int64
	errors    atomic.Int64
	totalGets atomic.Int64
	totalSets atomic.Int64

	mu                 sync.Mutex
	compressionRatio   float64
	avgCompressionMs   float64
	avgDecompressionMs float64
}

// Snapshot is a point-in-time copy of the cache metrics.
type Snapshot struct {
	Hits               int64   `json:"hits"`
	Misses             int64   `json:"misses"`
	Errors             int64   `json:"errors"`
	TotalGetCalls      int64   `json:"total_get_calls"`
	TotalSetCalls      int64   `json:"total_set_calls"`
	HitRatePercent     float64 `json:"hit_rate_percent"`
	CompressionRatio   float64 `json:"compression_ratio"`
	AvgCompressionMs   float64 `json:"avg_compression_time_ms"`
	AvgDecompressionMs float64 `json:"avg_decompression_time_ms"`
}

func (m *Metrics) recordHit()  { m.hits.Add(1) }
func (m *Metrics) recordMiss() { m.misses.Add(1) }
func (m *Metrics) recordGet()  { m.totalGets.Add(1) }
func (m *Metrics) recordSet()  { m.totalSets.Add(1) }

// recordError counts a failure in any cache operation. Errors are counted,
// never surfaced: the caller sees a miss or a false return instead.
func (m *Metrics) recordError() { m.errors.Add(1) }

// observeCompression folds one compression event into the running averages.
// ratio is original size over compressed size; ms is the time spent.
func (m *Metrics) observeCompression(ratio, ms float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.compressionRatio = ema(m.compressionRatio, ratio)
	m.avgCompressionMs = ema(m.avgCompressionMs, ms)
}

func (m *Metrics) observeDecompression(ms float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.avgDecompressionMs = ema(m.avgDecompressionMs, ms)
}

func ema(current, observed float64) float64 {
	if current == 0 {
		return observed
	}
	return current*emaWeight + observed*(1-emaWeight)
}

// Snapshot returns a consistent copy of the current metrics. HitRatePercent
// is hits over total Get calls, so codec failures and backend errors drag
// the rate down the same way misses do.
func (m *Metrics) Snapshot() Snapshot {
	m.mu.Lock()
	ratio := m.compressionRatio
	compMs := m.avgCompressionMs
	decompMs := m.avgDecompressionMs
	m.mu.Unlock()

	s := Snapshot{
		Hits:               m.hits.Load(),
		Misses:             m.misses.Load(),
		Errors:             m.errors.Load(),
		TotalGetCalls:      m.totalGets.Load(),
		TotalSetCalls:      m.totalSets.Load(),
		CompressionRatio:   ratio,
		AvgCompressionMs:   compMs,
		AvgDecompressionMs: decompMs,
	}
	if s.TotalGetCalls > 0 {
		s.HitRatePercent = float64(s.Hits) / float64(s.TotalGetCalls) * 100
	}
	return s
}
