package ingestion

import "errors"

var (
	// ErrFetcherRequired is returned when a cycle is built without a provider fetcher.
	ErrFetcherRequired = errors.New("provider fetcher required")

	// ErrUpserterRequired is returned when a cycle is built without an upserter.
	ErrUpserterRequired = errors.New("upserter required")

	// ErrAIProviderRequired is returned when an AI provider is not provided.
	ErrAIProviderRequired = errors.New("AI provider required")

	// ErrCycleRequired is returned when a worker or orchestrator has no cycle to run.
	ErrCycleRequired = errors.New("fetch cycle required")

	// ErrShutdownRequired is returned when a component is built without a shutdown signal.
	ErrShutdownRequired = errors.New("shutdown signal required")

	// ErrCategoriesUnsupported is returned when every lane was requested but
	// the provider cannot list its categories. It is not retried.
	ErrCategoriesUnsupported = errors.New("provider does not support listing categories")

	// ErrInvalidMaxAttempts is returned when the retry policy allows no attempts.
	ErrInvalidMaxAttempts = errors.New("max attempts must be greater than 0")

	// ErrInvalidSchedule is returned when a lane's cron expression does not parse.
	ErrInvalidSchedule = errors.New("invalid lane schedule")

	// ErrCyclePanicked wraps a panic recovered from a fetch cycle.
	ErrCyclePanicked = errors.New("fetch cycle panicked")
)
