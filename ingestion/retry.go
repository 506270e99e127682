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
	"time"

	"github.com/poiesic/newswire/provider"
	"github.com/poiesic/newswire/storage"
)

const (
	// DefaultMaxAttempts is the number of attempts per cycle.
	DefaultMaxAttempts = 3

	// DefaultAttemptDelay precedes every attempt, including the first.
	DefaultAttemptDelay = 5 * time.Second

	// DefaultRetryDelay follows a failed attempt that is not the last.
	DefaultRetryDelay = 5 * time.Second
)

// RetryPolicy bounds how a cycle is retried.
type RetryPolicy struct {
	MaxAttempts  int
	AttemptDelay time.Duration
	RetryDelay   time.Duration
}

// DefaultRetryPolicy returns the policy used when none is configured.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:  DefaultMaxAttempts,
		AttemptDelay: DefaultAttemptDelay,
		RetryDelay:   DefaultRetryDelay,
	}
}

// Validate checks the policy.
func (p RetryPolicy) Validate() error {
	if p.MaxAttempts <= 0 {
		return ErrInvalidMaxAttempts
	}
	if p.AttemptDelay < 0 || p.RetryDelay < 0 {
		return errors.New("retry delays must not be negative")
	}
	return nil
}

// Retrier runs an operation until it succeeds, the attempts run out or a
// stop is requested.
type Retrier struct {
	policy   RetryPolicy
	shutdown *Shutdown
	logger   *slog.Logger
}

// NewRetrier creates a Retrier. A nil logger means slog.Default().
func NewRetrier(policy RetryPolicy, shutdown *Shutdown, logger *slog.Logger) (*Retrier, error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	if shutdown == nil {
		return nil, ErrShutdownRequired
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Retrier{
		policy:   policy,
		shutdown: shutdown,
		logger:   logger.With("component", "retrier"),
	}, nil
}

// Policy returns the retry policy.
func (r *Retrier) Policy() RetryPolicy {
	return r.policy
}

// Run executes operation and reports whether an attempt succeeded.
// Each attempt is preceded by AttemptDelay; a failed attempt that is not the
// last is followed by RetryDelay. A stop requested before an attempt or
// during a wait ends the run with false and starts no further attempts.
// Errors and panics from operation are logged with their cause and never
// propagate.
func (r *Retrier) Run(ctx context.Context, operation func(ctx context.Context) error) bool {
	for attempt := 1; attempt <= r.policy.MaxAttempts; attempt++ {
		if r.stopped(ctx) || r.shutdown.Wait(r.policy.AttemptDelay) || r.stopped(ctx) {
			r.logger.Info("retry aborted, stop requested", "attempt", attempt)
			return false
		}

		err := safeCall(ctx, operation)
		if err == nil {
			if attempt > 1 {
				r.logger.Debug("operation succeeded after retry", "attempt", attempt)
			}
			return true
		}

		r.logger.Warn("attempt failed",
			"attempt", attempt,
			"maxAttempts", r.policy.MaxAttempts,
			"cause", FailureCause(err),
			"err", err)

		// Don't sleep after the last attempt
		if attempt == r.policy.MaxAttempts {
			break
		}
		if r.shutdown.Wait(r.policy.RetryDelay) {
			r.logger.Info("retry aborted, stop requested", "attempt", attempt)
			return false
		}
	}

	r.logger.Error("all attempts failed", "attempts", r.policy.MaxAttempts)
	return false
}

func (r *Retrier) stopped(ctx context.Context) bool {
	return r.shutdown.Requested() || ctx.Err() != nil
}

// safeCall runs operation and converts a panic into an error.
func safeCall(ctx context.Context, operation func(ctx context.Context) error) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("%w: %v", ErrCyclePanicked, p)
		}
	}()
	return operation(ctx)
}

// Failure causes reported by FailureCause.
const (
	CauseNetwork     = "network"
	CauseTimeout     = "timeout"
	CauseRejected    = "provider_rejected"
	CauseHTTP        = "http"
	CausePersistence = "persistence"
	CauseUnknown     = "unknown"
)

// FailureCause classifies a cycle error for diagnostics.
func FailureCause(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, provider.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return CauseTimeout
	case errors.Is(err, provider.ErrNetwork):
		return CauseNetwork
	case errors.Is(err, provider.ErrRejected):
		return CauseRejected
	case errors.Is(err, provider.ErrHTTP):
		return CauseHTTP
	case errors.Is(err, storage.ErrTransactionFailed), errors.Is(err, storage.ErrStorageClosed):
		return CausePersistence
	}
	return CauseUnknown
}
