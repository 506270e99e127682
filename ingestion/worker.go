package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/poiesic/newswire/core"
	"github.com/poiesic/newswire/storage"
	"github.com/robfig/cron/v3"
)

// DefaultFailureBackoff is how long a lane sleeps after a failed cycle.
const DefaultFailureBackoff = 5 * time.Second

// WorkerState is the lifecycle state of a Worker.
type WorkerState int32

const (
	StateIdle WorkerState = iota
	StateRunning
	StateSleeping
	StateStopped
)

func (s WorkerState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateSleeping:
		return "sleeping"
	case StateStopped:
		return "stopped"
	}
	return fmt.Sprintf("WorkerState(%d)", int32(s))
}

// Worker drives one lane: it runs a cycle through the Retrier, sleeps until
// the next one and stops when shutdown is requested. Cycles of one worker
// never overlap.
type Worker struct {
	lane           core.LaneConfig
	cycle          Cycle
	retrier        *Retrier
	shutdown       *Shutdown
	checkpoints    storage.CheckpointRepository
	schedule       cron.Schedule
	failureBackoff time.Duration
	runID          string
	state          atomic.Int32
	stats          *LaneStats
	checkpoint     core.LaneCheckpoint
	clock          func() time.Time
	logger         *slog.Logger
}

// WorkerOption configures a Worker.
type WorkerOption func(*Worker) error

// WithCheckpoints persists a checkpoint after every cycle.
func WithCheckpoints(repo storage.CheckpointRepository) WorkerOption {
	return func(w *Worker) error {
		w.checkpoints = repo
		return nil
	}
}

// WithFailureBackoff sets the sleep after a failed cycle.
// Default is DefaultFailureBackoff.
func WithFailureBackoff(d time.Duration) WorkerOption {
	return func(w *Worker) error {
		if d < 0 {
			return errors.New("failure backoff must not be negative")
		}
		w.failureBackoff = d
		return nil
	}
}

// WithRunID tags the worker's logs and checkpoints with an orchestrator run.
// Default is a fresh UUID.
func WithRunID(id string) WorkerOption {
	return func(w *Worker) error {
		if id != "" {
			w.runID = id
		}
		return nil
	}
}

// WithWorkerLogger sets a custom logger.
// Default is slog.Default().
func WithWorkerLogger(logger *slog.Logger) WorkerOption {
	return func(w *Worker) error {
		if logger == nil {
			logger = slog.Default()
		}
		w.logger = logger
		return nil
	}
}

// NewWorker creates a worker for lane. The lane is validated and its cron
// schedule, if any, parsed.
func NewWorker(lane core.LaneConfig, cycle Cycle, retrier *Retrier, shutdown *Shutdown, opts ...WorkerOption) (*Worker, error) {
	if cycle == nil {
		return nil, ErrCycleRequired
	}
	if retrier == nil || shutdown == nil {
		return nil, ErrShutdownRequired
	}
	if err := core.ValidateLaneConfig(lane); err != nil {
		return nil, err
	}

	w := &Worker{
		lane:           lane,
		cycle:          cycle,
		retrier:        retrier,
		shutdown:       shutdown,
		failureBackoff: DefaultFailureBackoff,
		runID:          uuid.NewString(),
		clock:          storage.UTCNow,
		logger:         slog.Default(),
	}
	if lane.Schedule != "" {
		schedule, err := cron.ParseStandard(lane.Schedule)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidSchedule, err)
		}
		w.schedule = schedule
	}
	for _, opt := range opts {
		if err := opt(w); err != nil {
			return nil, err
		}
	}

	w.logger = w.logger.With("component", "worker", "lane", lane.Name(), "run_id", w.runID)
	w.stats = NewLaneStats(lane.Name(), w.clock)
	w.checkpoint = core.LaneCheckpoint{Lane: lane.Name()}
	w.setState(StateIdle)
	return w, nil
}

// Lane returns the worker's lane configuration.
func (w *Worker) Lane() core.LaneConfig {
	return w.lane
}

// State returns the current lifecycle state.
func (w *Worker) State() WorkerState {
	return WorkerState(w.state.Load())
}

// Stats returns the lane totals so far.
func (w *Worker) Stats() LaneSnapshot {
	return w.stats.Snapshot()
}

// Run executes cycles until shutdown is requested, or once in once mode.
// It returns with the worker in StateStopped.
func (w *Worker) Run(ctx context.Context) {
	defer w.setState(StateStopped)

	w.stats.Start()
	w.restoreCheckpoint(ctx)
	w.logger.Info("lane started", "once", w.lane.Once, "interval", w.lane.Interval, "schedule", w.lane.Schedule)

	for !w.stopping(ctx) {
		w.setState(StateRunning)
		succeeded := w.runCycle(ctx)
		if w.lane.Once {
			break
		}

		delay := w.nextDelay(succeeded)
		w.setState(StateSleeping)
		w.logger.Debug("lane sleeping", "delay", delay, "succeeded", succeeded)
		if w.shutdown.Wait(delay) {
			break
		}
	}

	w.logger.Info("lane stopped", "stats", w.stats.Snapshot())
}

func (w *Worker) runCycle(ctx context.Context) bool {
	started := w.clock()
	var result *core.FetchCycleResult
	succeeded := w.retrier.Run(ctx, func(ctx context.Context) error {
		r, err := w.cycle.Run(ctx, w.lane)
		if err != nil {
			return err
		}
		result = r
		return nil
	})

	w.stats.Record(result, succeeded)
	if !succeeded {
		w.logger.Error("fetch cycle failed", "attempts", w.retrier.Policy().MaxAttempts)
	}
	w.saveCheckpoint(ctx, started, result, succeeded)
	return succeeded
}

// nextDelay is the cron schedule's next activation or the interval after a
// success, and the failure backoff otherwise.
func (w *Worker) nextDelay(succeeded bool) time.Duration {
	if !succeeded {
		return w.failureBackoff
	}
	if w.schedule != nil {
		now := w.clock()
		return w.schedule.Next(now).Sub(now)
	}
	return w.lane.Interval
}

func (w *Worker) stopping(ctx context.Context) bool {
	return w.shutdown.Requested() || ctx.Err() != nil
}

func (w *Worker) setState(s WorkerState) {
	w.state.Store(int32(s))
}

func (w *Worker) restoreCheckpoint(ctx context.Context) {
	if w.checkpoints == nil {
		return
	}
	cp, err := w.checkpoints.LoadCheckpoint(ctx, w.lane.Name())
	if err != nil {
		w.logger.Warn("error loading lane checkpoint", "err", err)
		return
	}
	if cp == nil {
		return
	}
	w.checkpoint = *cp
	w.logger.Info("resuming lane",
		"lastSuccess", cp.LastSuccess,
		"consecutiveFailures", cp.ConsecutiveFailures)
}

func (w *Worker) saveCheckpoint(ctx context.Context, started time.Time, result *core.FetchCycleResult, succeeded bool) {
	cp := &w.checkpoint
	cp.RunID = w.runID
	cp.LastAttempt = started
	if succeeded {
		cp.LastSuccess = started
		cp.ConsecutiveFailures = 0
	} else {
		cp.ConsecutiveFailures++
	}
	cp.Retrieved, cp.Stored, cp.Updated, cp.Skipped = 0, 0, 0, 0
	if result != nil {
		cp.Retrieved = result.Retrieved
		cp.Stored = result.Stored
		cp.Updated = result.Updated
		cp.Skipped = result.SkippedCount()
	}
	cp.UpdatedAt = w.clock()

	if w.checkpoints == nil {
		return
	}
	saved := *cp
	if err := w.checkpoints.SaveCheckpoint(ctx, &saved); err != nil {
		w.logger.Warn("error saving lane checkpoint", "err", err)
	}
}
