package extract

import (
	"sort"
	"sync"
	"time"
)

// Outcome classifies one extraction call.
type Outcome string

const (
	OutcomeOK     Outcome = "ok"
	OutcomeFailed Outcome = "failed"
	OutcomeCached Outcome = "cached"
)

type sample struct {
	at         time.Time
	durationMs int64
	outcome    Outcome
}

// StatsSnapshot aggregates the samples inside the window. Latency figures
// cover upstream calls only; cache hits are counted separately.
type StatsSnapshot struct {
	Calls     int     `json:"calls"`
	Failures  int     `json:"failures"`
	CacheHits int     `json:"cache_hits"`
	MinMs     int64   `json:"min_ms"`
	MaxMs     int64   `json:"max_ms"`
	AvgMs     float64 `json:"avg_ms"`
	P50Ms     float64 `json:"p50_ms"`
	P95Ms     float64 `json:"p95_ms"`
	P99Ms     float64 `json:"p99_ms"`
}

// LLMStats keeps a rolling window of extraction outcomes.
type LLMStats struct {
	mu      sync.Mutex
	samples []sample
	window  time.Duration
}

func NewLLMStats(window time.Duration) *LLMStats {
	if window <= 0 {
		window = time.Hour
	}
	return &LLMStats{window: window}
}

// Record adds one call.
func (s *LLMStats) Record(outcome Outcome, elapsed time.Duration) {
	ms := elapsed.Milliseconds()
	if ms < 0 {
		ms = 0
	}
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.dropOldLocked(now)
	s.samples = append(s.samples, sample{at: now, durationMs: ms, outcome: outcome})
}

func (s *LLMStats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dropOldLocked(time.Now())

	var snap StatsSnapshot
	var latencies []int64
	var sum int64
	for _, sm := range s.samples {
		switch sm.outcome {
		case OutcomeCached:
			snap.CacheHits++
			continue
		case OutcomeFailed:
			snap.Failures++
		}
		latencies = append(latencies, sm.durationMs)
		sum += sm.durationMs
	}
	snap.Calls = len(latencies)
	if len(latencies) == 0 {
		return snap
	}

	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
	snap.MinMs = latencies[0]
	snap.MaxMs = latencies[len(latencies)-1]
	snap.AvgMs = float64(sum) / float64(len(latencies))
	snap.P50Ms = percentile(latencies, 50)
	snap.P95Ms = percentile(latencies, 95)
	snap.P99Ms = percentile(latencies, 99)
	return snap
}

func (s *LLMStats) dropOldLocked(now time.Time) {
	cutoff := now.Add(-s.window)
	i := sort.Search(len(s.samples), func(i int) bool {
		return !s.samples[i].at.Before(cutoff)
	})
	if i > 0 {
		s.samples = append(s.samples[:0], s.samples[i:]...)
	}
}

// percentile interpolates linearly between closest ranks.
func percentile(sorted []int64, pct float64) float64 {
	switch {
	case len(sorted) == 0:
		return 0
	case pct <= 0:
		return float64(sorted[0])
	case pct >= 100:
		return float64(sorted[len(sorted)-1])
	}
	rank := float64(len(sorted)-1) * pct / 100
	lo := int(rank)
	if lo+1 >= len(sorted) {
		return float64(sorted[lo])
	}
	frac := rank - float64(lo)
	return float64(sorted[lo]) + frac*float64(sorted[lo+1]-sorted[lo])
}
