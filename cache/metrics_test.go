package cache

import (
	"math"
	"testing"
)

func TestEMAFirstObservationAssigns(t *testing.T) {
	if got := ema(0, 4.2); got != 4.2 {
		t.Errorf("ema(0, 4.2) = %v, want 4.2", got)
	}
}

func TestEMAWeighsHistory(t *testing.T) {
	got := ema(10, 20)
	want := 10*emaWeight + 20*(1-emaWeight)
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("ema(10, 20) = %v, want %v", got, want)
	}
}

func TestMetricsSnapshotZeroGets(t *testing.T) {
	var m Metrics
	m.recordSet()

	snap := m.Snapshot()
	if snap.HitRatePercent != 0 {
		t.Errorf("HitRatePercent = %v with no gets, want 0", snap.HitRatePercent)
	}
	if snap.TotalSetCalls != 1 {
		t.Errorf("TotalSetCalls = %d, want 1", snap.TotalSetCalls)
	}
}

func TestMetricsCompressionAverages(t *testing.T) {
	var m Metrics
	m.observeCompression(3.0, 1.5)
	m.observeDecompression(0.4)

	snap := m.Snapshot()
	if snap.CompressionRatio != 3.0 {
		t.Errorf("CompressionRatio = %v, want 3.0", snap.CompressionRatio)
	}
	if snap.AvgCompressionMs != 1.5 {
		t.Errorf("AvgCompressionMs = %v, want 1.5", snap.AvgCompressionMs)
	}
	if snap.AvgDecompressionMs != 0.4 {
		t.Errorf("AvgDecompressionMs = %v, want 0.4", snap.AvgDecompressionMs)
	}

	m.observeCompression(2.0, 0.5)
	snap = m.Snapshot()
	if snap.CompressionRatio >= 3.0 || snap.CompressionRatio <= 2.0 {
		t.Errorf("CompressionRatio = %v, want between 2.0 and 3.0", snap.CompressionRatio)
	}
}
