package ingestion

import (
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/poiesic/newswire/core"
)

// LaneStats accumulates the totals of one lane across its cycles.
type LaneStats struct {
	lane      string
	cycles    int
	failures  int
	retrieved int
	stored    int
	updated   int
	skipped   int
	startTime time.Time
	started   bool
	clock     func() time.Time
	mu        sync.Mutex
}

// NewLaneStats creates stats for lane. A nil clock means time.Now.
func NewLaneStats(lane string, clock func() time.Time) *LaneStats {
	if clock == nil {
		clock = time.Now
	}
	return &LaneStats{lane: lane, clock: clock}
}

// Start begins timing. Calling it again has no effect.
func (s *LaneStats) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return
	}
	s.startTime = s.clock()
	s.started = true
}

// Record adds the outcome of one cycle. result may be nil when every
// attempt failed before producing counts.
func (s *LaneStats) Record(result *core.FetchCycleResult, succeeded bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cycles++
	if !succeeded {
		s.failures++
	}
	if result == nil {
		return
	}
	s.retrieved += result.Retrieved
	s.stored += result.Stored
	s.updated += result.Updated
	s.skipped += result.SkippedCount()
}

// Snapshot returns a copy of the current totals.
func (s *LaneStats) Snapshot() LaneSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	var elapsed time.Duration
	if s.started {
		elapsed = s.clock().Sub(s.startTime)
	}
	return LaneSnapshot{
		Lane:      s.lane,
		Cycles:    s.cycles,
		Failures:  s.failures,
		Retrieved: s.retrieved,
		Stored:    s.stored,
		Updated:   s.updated,
		Skipped:   s.skipped,
		Elapsed:   elapsed,
	}
}

// LaneSnapshot is a point-in-time copy of LaneStats.
type LaneSnapshot struct {
	Lane      string
	Cycles    int
	Failures  int
	Retrieved int
	Stored    int
	Updated   int
	Skipped   int
	Elapsed   time.Duration
}

// Rate returns stored plus updated records per second.
func (s LaneSnapshot) Rate() float64 {
	if s.Elapsed <= 0 {
		return 0
	}
	return float64(s.Stored+s.Updated) / s.Elapsed.Seconds()
}

// Add returns the sum of two snapshots. The longer elapsed time is kept.
func (s LaneSnapshot) Add(other LaneSnapshot) LaneSnapshot {
	s.Cycles += other.Cycles
	s.Failures += other.Failures
	s.Retrieved += other.Retrieved
	s.Stored += other.Stored
	s.Updated += other.Updated
	s.Skipped += other.Skipped
	s.Elapsed = max(s.Elapsed, other.Elapsed)
	return s
}

// LogValue implements slog.LogValuer.
func (s LaneSnapshot) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int("cycles", s.Cycles),
		slog.Int("failures", s.Failures),
		slog.Int("retrieved", s.Retrieved),
		slog.Int("stored", s.Stored),
		slog.Int("updated", s.Updated),
		slog.Int("skipped", s.Skipped),
		slog.Duration("elapsed", s.Elapsed.Round(time.Millisecond)),
	)
}

// Report writes a one-line summary of the snapshot to w.
func (s LaneSnapshot) Report(w io.Writer) {
	fmt.Fprintf(w, "%s: %d cycles (%d failed) - retrieved %d, stored %d, updated %d, skipped %d - %.1f records/s\n",
		s.Lane, s.Cycles, s.Failures, s.Retrieved, s.Stored, s.Updated, s.Skipped, s.Rate())
}
