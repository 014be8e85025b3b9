package extract

import (
	"testing"
	"time"
)

func TestLLMStatsSnapshotPercentiles(t *testing.T) {
	stats := NewLLMStats(time.Hour)
	for _, ms := range []int64{100, 200, 300, 400, 500} {
		stats.Record(OutcomeOK, time.Duration(ms)*time.Millisecond)
	}

	snap := stats.Snapshot()
	if snap.Calls != 5 {
		t.Fatalf("expected calls=5, got %d", snap.Calls)
	}
	if snap.MinMs != 100 || snap.MaxMs != 500 {
		t.Fatalf("expected min=100 max=500, got min=%d max=%d", snap.MinMs, snap.MaxMs)
	}
	if snap.AvgMs != 300 {
		t.Fatalf("expected avg=300, got %f", snap.AvgMs)
	}
	if snap.P50Ms != 300 {
		t.Fatalf("expected p50=300, got %f", snap.P50Ms)
	}
	if snap.P95Ms != 480 {
		t.Fatalf("expected p95=480, got %f", snap.P95Ms)
	}
}

func TestLLMStatsCountsOutcomes(t *testing.T) {
	stats := NewLLMStats(time.Hour)
	stats.Record(OutcomeOK, 50*time.Millisecond)
	stats.Record(OutcomeFailed, 150*time.Millisecond)
	stats.Record(OutcomeCached, 0)
	stats.Record(OutcomeCached, 0)

	snap := stats.Snapshot()
	if snap.Calls != 2 {
		t.Errorf("expected calls=2, got %d", snap.Calls)
	}
	if snap.Failures != 1 {
		t.Errorf("expected failures=1, got %d", snap.Failures)
	}
	if snap.CacheHits != 2 {
		t.Errorf("expected cache_hits=2, got %d", snap.CacheHits)
	}
	if snap.MaxMs != 150 {
		t.Errorf("expected max=150, got %d", snap.MaxMs)
	}
}

func TestLLMStatsWindowDropsOldSamples(t *testing.T) {
	stats := NewLLMStats(10 * time.Millisecond)
	stats.Record(OutcomeOK, 100*time.Millisecond)
	time.Sleep(25 * time.Millisecond)

	if snap := stats.Snapshot(); snap.Calls != 0 {
		t.Fatalf("expected calls=0 after window, got %d", snap.Calls)
	}

	stats.Record(OutcomeOK, 200*time.Millisecond)
	snap := stats.Snapshot()
	if snap.Calls != 1 || snap.MinMs != 200 {
		t.Fatalf("expected one fresh sample of 200ms, got calls=%d min=%d", snap.Calls, snap.MinMs)
	}
}

func TestLLMStatsClampsNegativeDuration(t *testing.T) {
	stats := NewLLMStats(time.Hour)
	stats.Record(OutcomeOK, -time.Second)
	if snap := stats.Snapshot(); snap.MaxMs != 0 {
		t.Fatalf("expected clamped duration=0, got %d", snap.MaxMs)
	}
}
