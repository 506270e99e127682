// Package ingestion runs the recurring fetch lanes that bring news into storage.
//
// A lane is one independently scheduled stream, usually scoped to a single
// provider category. Each lane is driven by a Worker that repeats a cycle:
//
//	fetch -> normalize -> enrich -> upsert
//
// The Normalizer turns provider records into canonical articles and sources,
// dropping records that miss critical fields or point at unsafe URLs. The
// Enricher attaches keywords and a language; an article without keywords is
// not stored. Persistence goes through storage.Upserter, which is idempotent
// on the natural key so a cycle can always be retried.
//
// A Retrier wraps every cycle with a fixed pre-attempt delay and a bounded
// number of attempts. All waits observe a shared Shutdown signal and return
// as soon as it is requested. In-flight HTTP calls and store writes are not
// interrupted.
//
// The Orchestrator runs a single lane on the calling goroutine or one worker
// per provider category in a pool, installs the termination signal handlers
// and joins the workers with a bounded timeout.
//
// Usage:
//
//	shutdown := ingestion.NewShutdown()
//	cycle, _ := ingestion.NewArticleCycle(client, enricher, upserter, shutdown)
//	orch, _ := ingestion.NewOrchestrator(lane, cycle, client, shutdown)
//	report, err := orch.Start(ctx, "")
package ingestion
