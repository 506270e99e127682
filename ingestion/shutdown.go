package ingestion

import (
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"sync/atomic"
	"syscall"
	"time"
)

// TerminationSignals are the signals that request a graceful stop.
var TerminationSignals = []os.Signal{os.Interrupt, syscall.SIGTERM, syscall.SIGHUP}

// Shutdown is a process-wide stop flag. It is set at most once and never
// cleared. Every worker and the orchestrator share the same instance.
type Shutdown struct {
	requested atomic.Bool
	once      sync.Once
	done      chan struct{}
	logger    *slog.Logger
}

// NewShutdown creates a signal in the not-requested state.
func NewShutdown() *Shutdown {
	return &Shutdown{
		done:   make(chan struct{}),
		logger: slog.Default().With("component", "shutdown"),
	}
}

// Request sets the flag and wakes every waiter. It is idempotent and never blocks.
func (s *Shutdown) Request() {
	s.once.Do(func() {
		s.requested.Store(true)
		close(s.done)
	})
}

// Requested reports whether a stop was requested.
func (s *Shutdown) Requested() bool {
	return s.requested.Load()
}

// Done returns a channel that is closed once a stop is requested.
func (s *Shutdown) Done() <-chan struct{} {
	return s.done
}

// Wait sleeps for d or until a stop is requested, whichever comes first.
// It returns true if the sleep was interrupted by the stop.
func (s *Shutdown) Wait(d time.Duration) bool {
	if s.Requested() {
		return true
	}
	if d <= 0 {
		return false
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-s.done:
		return true
	case <-timer.C:
		return s.Requested()
	}
}

// NotifySignals requests a stop when one of sigs arrives. With no sigs,
// TerminationSignals are used. The returned function uninstalls the handler.
func (s *Shutdown) NotifySignals(sigs ...os.Signal) (stop func()) {
	if len(sigs) == 0 {
		sigs = TerminationSignals
	}
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, sigs...)

	quit := make(chan struct{})
	go s.watch(ch, quit)

	var once sync.Once
	return func() {
		once.Do(func() {
			signal.Stop(ch)
			close(quit)
		})
	}
}

// watch forwards the first signal on ch to Request. Later signals are
// drained so the sender never blocks.
func (s *Shutdown) watch(ch <-chan os.Signal, quit <-chan struct{}) {
	for {
		select {
		case sig := <-ch:
			if s.Requested() {
				s.logger.Debug("signal ignored, stop already requested", "signal", sig.String())
				continue
			}
			s.logger.Info("termination signal received, stopping", "signal", sig.String())
			s.Request()
		case <-quit:
			return
		}
	}
}
