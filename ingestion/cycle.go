package ingestion

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/newswire/core"
	"github.com/poiesic/newswire/provider"
	"github.com/poiesic/newswire/storage"
)

// Cycle is one fetch, normalize, enrich and persist pass for a lane.
// A returned error means the cycle failed and may be retried.
type Cycle interface {
	Run(ctx context.Context, lane core.LaneConfig) (*core.FetchCycleResult, error)
}

// CycleFunc adapts a function to the Cycle interface.
type CycleFunc func(ctx context.Context, lane core.LaneConfig) (*core.FetchCycleResult, error)

// Run calls f(ctx, lane).
func (f CycleFunc) Run(ctx context.Context, lane core.LaneConfig) (*core.FetchCycleResult, error) {
	return f(ctx, lane)
}

// ArticleCycle ingests top headlines. Articles are insert-only.
type ArticleCycle struct {
	fetcher    provider.HeadlineFetcher
	normalizer *Normalizer
	enricher   *Enricher
	upserter   *storage.Upserter
	shutdown   *Shutdown
	logger     *slog.Logger
}

// NewArticleCycle creates the articles pipeline cycle.
func NewArticleCycle(fetcher provider.HeadlineFetcher, enricher *Enricher, upserter *storage.Upserter, shutdown *Shutdown) (*ArticleCycle, error) {
	switch {
	case fetcher == nil:
		return nil, ErrFetcherRequired
	case enricher == nil:
		return nil, ErrAIProviderRequired
	case upserter == nil:
		return nil, ErrUpserterRequired
	case shutdown == nil:
		return nil, ErrShutdownRequired
	}
	logger := slog.Default().With("component", "article_cycle")
	return &ArticleCycle{
		fetcher:    fetcher,
		normalizer: NewNormalizer(nil),
		enricher:   enricher,
		upserter:   upserter,
		shutdown:   shutdown,
		logger:     logger,
	}, nil
}

// Run fetches the lane's headlines and stores the new ones. Once a stop is
// requested no further records are prepared; the ones already prepared are
// still persisted.
func (c *ArticleCycle) Run(ctx context.Context, lane core.LaneConfig) (*core.FetchCycleResult, error) {
	country := lane.Country
	if country == "" {
		country = core.DefaultCountry
	}
	raw, err := c.fetcher.TopHeadlines(ctx, provider.HeadlinesRequest{
		Country:  country,
		Category: lane.Category,
		PageSize: lane.PageSize,
	})
	if err != nil {
		return nil, fmt.Errorf("fetch headlines: %w", err)
	}

	result := &core.FetchCycleResult{Retrieved: len(raw)}
	candidates := make([]*core.Article, 0, len(raw))
	consumed := 0
	for article, skip := range c.normalizer.Articles(raw, lane.Category) {
		if c.shutdown.Requested() {
			break
		}
		consumed++
		if skip != nil {
			result.Skipped = append(result.Skipped, *skip)
			continue
		}
		candidates = append(candidates, article)
	}
	for _, r := range raw[consumed:] {
		result.Skip(r.URL, core.SkipShutdown, "")
	}
	if consumed < len(raw) {
		c.logger.Info("stop requested, persisting prepared articles",
			"lane", lane.Name(),
			"prepared", len(candidates),
			"abandoned", len(raw)-consumed)
	}

	kept, dropped := c.enricher.EnrichAll(ctx, candidates)
	result.Skipped = append(result.Skipped, dropped...)

	stored, err := c.upserter.UpsertArticles(ctx, kept)
	result.Merge(stored)
	if err != nil {
		return result, err
	}

	c.logger.Info("fetch cycle complete", "lane", lane.Name(), "result", result)
	return result, nil
}

// SourceCycle ingests provider sources, inserting new ones and updating
// changed ones.
type SourceCycle struct {
	fetcher    provider.SourceFetcher
	normalizer *Normalizer
	upserter   *storage.Upserter
	shutdown   *Shutdown
	logger     *slog.Logger
}

// NewSourceCycle creates the sources pipeline cycle.
func NewSourceCycle(fetcher provider.SourceFetcher, upserter *storage.Upserter, shutdown *Shutdown) (*SourceCycle, error) {
	switch {
	case fetcher == nil:
		return nil, ErrFetcherRequired
	case upserter == nil:
		return nil, ErrUpserterRequired
	case shutdown == nil:
		return nil, ErrShutdownRequired
	}
	return &SourceCycle{
		fetcher:    fetcher,
		normalizer: NewNormalizer(nil),
		upserter:   upserter,
		shutdown:   shutdown,
		logger:     slog.Default().With("component", "source_cycle"),
	}, nil
}

// Run fetches the lane's sources and reconciles them with storage.
func (c *SourceCycle) Run(ctx context.Context, lane core.LaneConfig) (*core.FetchCycleResult, error) {
	raw, err := c.fetcher.Sources(ctx, provider.SourcesRequest{
		Category: lane.Category,
		Language: lane.Language,
		Country:  lane.Country,
	})
	if err != nil {
		return nil, fmt.Errorf("fetch sources: %w", err)
	}

	result := &core.FetchCycleResult{Retrieved: len(raw)}
	candidates := make([]*core.Source, 0, len(raw))
	consumed := 0
	for source, skip := range c.normalizer.Sources(raw) {
		if c.shutdown.Requested() {
			break
		}
		consumed++
		if skip != nil {
			result.Skipped = append(result.Skipped, *skip)
			continue
		}
		candidates = append(candidates, source)
	}
	for _, r := range raw[consumed:] {
		result.Skip(r.Name, core.SkipShutdown, "")
	}

	stored, err := c.upserter.UpsertSources(ctx, candidates)
	result.Merge(stored)
	if err != nil {
		return result, err
	}

	c.logger.Info("fetch cycle complete", "lane", lane.Name(), "result", result)
	return result, nil
}
