// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ingestion

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/newswire/core"
	"github.com/poiesic/newswire/provider"
	"github.com/poiesic/newswire/storage"
)

const (
	// DefaultPollInterval is how often the orchestrator checks lane liveness.
	DefaultPollInterval = time.Second

	// DefaultJoinTimeout bounds the wait for lanes after a stop is requested.
	DefaultJoinTimeout = 5 * time.Second
)

// Orchestrator starts and supervises the workers of one pipeline.
type Orchestrator struct {
	lane           core.LaneConfig
	cycle          Cycle
	lister         provider.CategoryLister
	shutdown       *Shutdown
	policy         RetryPolicy
	checkpoints    storage.CheckpointRepository
	failureBackoff time.Duration
	pollInterval   time.Duration
	joinTimeout    time.Duration
	handleSignals  bool
	base           *slog.Logger
	logger         *slog.Logger
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator) error

// WithRetryPolicy sets the retry policy of every lane.
func WithRetryPolicy(policy RetryPolicy) OrchestratorOption {
	return func(o *Orchestrator) error {
		if err := policy.Validate(); err != nil {
			return err
		}
		o.policy = policy
		return nil
	}
}

// WithLaneCheckpoints persists lane checkpoints to repo.
func WithLaneCheckpoints(repo storage.CheckpointRepository) OrchestratorOption {
	return func(o *Orchestrator) error {
		o.checkpoints = repo
		return nil
	}
}

// WithLaneFailureBackoff sets the sleep of a lane after a failed cycle.
func WithLaneFailureBackoff(d time.Duration) OrchestratorOption {
	return func(o *Orchestrator) error {
		if d < 0 {
			return errors.New("failure backoff must not be negative")
		}
		o.failureBackoff = d
		return nil
	}
}

// WithSupervision sets the liveness poll interval and the join timeout.
func WithSupervision(pollInterval, joinTimeout time.Duration) OrchestratorOption {
	return func(o *Orchestrator) error {
		if pollInterval <= 0 || joinTimeout <= 0 {
			return errors.New("poll interval and join timeout must be positive")
		}
		o.pollInterval = pollInterval
		o.joinTimeout = joinTimeout
		return nil
	}
}

// WithSignalHandling controls whether Start installs handlers for
// TerminationSignals. Default is true.
func WithSignalHandling(enabled bool) OrchestratorOption {
	return func(o *Orchestrator) error {
		o.handleSignals = enabled
		return nil
	}
}

// WithOrchestratorLogger sets a custom logger.
// Default is slog.Default().
func WithOrchestratorLogger(logger *slog.Logger) OrchestratorOption {
	return func(o *Orchestrator) error {
		if logger == nil {
			logger = slog.Default()
		}
		o.base = logger
		return nil
	}
}

// NewOrchestrator creates an orchestrator. lane is the template every worker
// starts from; its category is replaced per worker. lister may be nil when
// only single lanes are started.
func NewOrchestrator(lane core.LaneConfig, cycle Cycle, lister provider.CategoryLister, shutdown *Shutdown, opts ...OrchestratorOption) (*Orchestrator, error) {
	if cycle == nil {
		return nil, ErrCycleRequired
	}
	if shutdown == nil {
		return nil, ErrShutdownRequired
	}
	o := &Orchestrator{
		lane:           lane,
		cycle:          cycle,
		lister:         lister,
		shutdown:       shutdown,
		policy:         DefaultRetryPolicy(),
		failureBackoff: DefaultFailureBackoff,
		pollInterval:   DefaultPollInterval,
		joinTimeout:    DefaultJoinTimeout,
		handleSignals:  true,
		base:           slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	o.logger = o.base.With("component", "orchestrator", "pipeline", string(lane.Pipeline))
	return o, nil
}

// RunReport summarizes an orchestrator run.
type RunReport struct {
	RunID    string
	Lanes    []LaneSnapshot
	TimedOut bool // Some lanes were still running at the join timeout
}

// Totals sums the lane snapshots.
func (r *RunReport) Totals() LaneSnapshot {
	total := LaneSnapshot{Lane: "total"}
	for _, lane := range r.Lanes {
		total = total.Add(lane)
	}
	return total
}

// Stop requests a graceful stop of every lane.
func (o *Orchestrator) Stop() {
	o.shutdown.Request()
}

// Start runs the requested lane on the calling goroutine, or one worker per
// provider category when requested is empty. It returns once every lane has
// stopped, or the join timeout passed after a stop was requested.
// Cancelling ctx requests a stop.
func (o *Orchestrator) Start(ctx context.Context, requested string) (*RunReport, error) {
	runID := uuid.NewString()
	logger := o.logger.With("run_id", runID)

	var lanes []string
	if requested != "" {
		lanes = []string{requested}
	} else {
		categories, err := o.categories()
		if err != nil {
			return nil, err
		}
		lanes = categories
	}

	workers := make([]*Worker, 0, len(lanes))
	for _, category := range lanes {
		lane := o.lane
		lane.Category = category
		retrier, err := NewRetrier(o.policy, o.shutdown, o.base.With("lane", lane.Name(), "run_id", runID))
		if err != nil {
			return nil, err
		}
		w, err := NewWorker(lane, o.cycle, retrier, o.shutdown,
			WithCheckpoints(o.checkpoints),
			WithFailureBackoff(o.failureBackoff),
			WithRunID(runID),
			WithWorkerLogger(o.base))
		if err != nil {
			return nil, fmt.Errorf("lane %s: %w", lane.Name(), err)
		}
		workers = append(workers, w)
	}

	if o.handleSignals {
		stop := o.shutdown.NotifySignals()
		defer stop()
	}
	released := make(chan struct{})
	defer close(released)
	go func() {
		select {
		case <-ctx.Done():
			o.shutdown.Request()
		case <-released:
		}
	}()

	logger.Info("fetch task started", "lanes", len(workers), "once", o.lane.Once)

	report := &RunReport{RunID: runID}
	if requested != "" {
		workers[0].Run(ctx)
	} else {
		report.TimedOut = o.supervise(ctx, logger, workers)
	}

	for _, w := range workers {
		report.Lanes = append(report.Lanes, w.Stats())
	}
	if report.TimedOut {
		logger.Warn("fetch task stopped with lanes still running", "totals", report.Totals())
	} else {
		logger.Info("fetch task stopped gracefully", "totals", report.Totals())
	}
	return report, nil
}

func (o *Orchestrator) categories() ([]string, error) {
	if o.lister == nil {
		return nil, ErrCategoriesUnsupported
	}
	categories, ok := o.lister.Categories()
	if !ok {
		return nil, ErrCategoriesUnsupported
	}
	if len(categories) == 0 {
		return nil, fmt.Errorf("%w: provider returned no categories", ErrCategoriesUnsupported)
	}
	return categories, nil
}

// supervise runs every worker in a pool and polls their liveness. After a
// stop is requested it waits up to the join timeout and reports whether any
// worker was still running then.
func (o *Orchestrator) supervise(ctx context.Context, logger *slog.Logger, workers []*Worker) bool {
	pool, err := ants.NewPool(len(workers))
	if err != nil {
		// ants only fails on an invalid size; fall back to plain goroutines
		logger.Warn("error creating lane pool", "err", err)
	} else {
		defer pool.Release()
	}

	var wg sync.WaitGroup
	for _, w := range workers {
		task := func() {
			defer wg.Done()
			w.Run(ctx)
		}
		wg.Add(1)
		if pool == nil || pool.Submit(task) != nil {
			go task()
		}
	}

	allStopped := make(chan struct{})
	go func() {
		wg.Wait()
		close(allStopped)
	}()

	ticker := time.NewTicker(o.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-allStopped:
			return false
		case <-ticker.C:
			logger.Debug("lanes active", "active", countActive(workers))
			continue
		case <-o.shutdown.Done():
		}

		logger.Info("stop requested, waiting for lanes", "active", countActive(workers), "timeout", o.joinTimeout)
		timer := time.NewTimer(o.joinTimeout)
		defer timer.Stop()
		select {
		case <-allStopped:
			return false
		case <-timer.C:
			for _, w := range workers {
				if w.State() != StateStopped {
					logger.Warn("lane did not stop before join timeout", "lane", w.Lane().Name(), "state", w.State().String())
				}
			}
			return true
		}
	}
}

func countActive(workers []*Worker) int {
	active := 0
	for _, w := range workers {
		if w.State() != StateStopped {
			active++
		}
	}
	return active
}
