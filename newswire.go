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

// Package newswire wires storage, enrichment and the news provider into
// ready-to-run ingestion orchestrators.
package newswire

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/poiesic/newswire/ai"
	"github.com/poiesic/newswire/ai/keywords"
	"github.com/poiesic/newswire/ai/lingua"
	"github.com/poiesic/newswire/ai/openai"
	"github.com/poiesic/newswire/config"
	"github.com/poiesic/newswire/core"
	"github.com/poiesic/newswire/ingestion"
	"github.com/poiesic/newswire/provider"
	"github.com/poiesic/newswire/provider/newsapi"
	"github.com/poiesic/newswire/storage"
	"github.com/poiesic/newswire/storage/badger"
	"github.com/poiesic/newswire/storage/postgres"
	"golang.org/x/sync/errgroup"
)

// Service owns the long-lived components shared by the ingestion lanes.
type Service struct {
	cfg      config.Config
	store    storage.Backend
	provider ai.AIProvider
	news     provider.NewsProvider
	upserter *storage.Upserter
	enricher *ingestion.Enricher
	shutdown *ingestion.Shutdown
	logger   *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*serviceOptions)

type serviceOptions struct {
	store    storage.Backend
	provider ai.AIProvider
	news     provider.NewsProvider
	shutdown *ingestion.Shutdown
	logger   *slog.Logger
}

// WithStore uses store instead of opening the configured backend.
// The service takes ownership of store.
func WithStore(store storage.Backend) ServiceOption {
	return func(o *serviceOptions) {
		o.store = store
	}
}

// WithAIProvider uses p instead of the configured keyword backend.
func WithAIProvider(p ai.AIProvider) ServiceOption {
	return func(o *serviceOptions) {
		o.provider = p
	}
}

// WithNewsProvider uses p instead of the newsapi.org client.
func WithNewsProvider(p provider.NewsProvider) ServiceOption {
	return func(o *serviceOptions) {
		o.news = p
	}
}

// WithShutdown shares an existing shutdown signal.
func WithShutdown(s *ingestion.Shutdown) ServiceOption {
	return func(o *serviceOptions) {
		o.shutdown = s
	}
}

// WithLogger sets the logger handed to every component.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(o *serviceOptions) {
		o.logger = logger
	}
}

// NewService opens the store and builds the shared components described by
// cfg. The caller must Close the service.
func NewService(ctx context.Context, cfg config.Config, opts ...ServiceOption) (*Service, error) {
	options := &serviceOptions{}
	for _, opt := range opts {
		opt(options)
	}
	logger := options.logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Service{
		cfg:      cfg,
		store:    options.store,
		provider: options.provider,
		news:     options.news,
		shutdown: options.shutdown,
		logger:   logger.With("component", "service"),
	}
	if s.shutdown == nil {
		s.shutdown = ingestion.NewShutdown()
	}

	var err error
	if s.store == nil {
		if s.store, err = openStore(ctx, cfg.Storage); err != nil {
			return nil, err
		}
	}

	if s.provider == nil {
		if s.provider, err = newAIProvider(cfg.AIConfig()); err != nil {
			s.closeStore()
			return nil, fmt.Errorf("create ai provider: %w", err)
		}
	}

	if s.news == nil {
		client, clientErr := newsapi.NewClient(cfg.NewsAPI.APIKey,
			newsapi.WithBaseURL(cfg.NewsAPI.BaseURL),
			newsapi.WithHTTPClient(&http.Client{Timeout: cfg.NewsAPI.Timeout}))
		if clientErr != nil {
			s.closeProvider()
			s.closeStore()
			return nil, clientErr
		}
		s.news = client
	}

	if s.upserter, err = storage.NewUpserter(s.store, logger); err != nil {
		s.closeProvider()
		s.closeStore()
		return nil, err
	}

	enricherOpts := []ingestion.EnricherOption{
		ingestion.WithEnricherLogger(logger),
		ingestion.WithMinConfidence(cfg.AIConfig().MinConfidence),
	}
	if cfg.Keywords.PoolSize > 0 {
		enricherOpts = append(enricherOpts, ingestion.WithEnrichPoolSize(cfg.Keywords.PoolSize))
	}
	if s.enricher, err = ingestion.NewEnricher(s.provider, enricherOpts...); err != nil {
		s.closeProvider()
		s.closeStore()
		return nil, err
	}

	return s, nil
}

func openStore(ctx context.Context, cfg config.StorageConfig) (storage.Backend, error) {
	switch cfg.Backend {
	case config.StoragePostgres:
		store, err := postgres.Open(ctx, cfg.PostgresURL, cfg.MaxConns)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.StorageBadger, "":
		store, err := badger.Open(cfg.Path)
		if err != nil {
			return nil, err
		}
		return store, nil
	}
	return nil, fmt.Errorf("%w: unknown storage backend %q", config.ErrInvalidConfig, cfg.Backend)
}

func newAIProvider(cfg *ai.Config) (ai.AIProvider, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.KeywordBackend == ai.KeywordBackendLLM {
		return openai.NewProvider(cfg)
	}
	extractor, err := keywords.NewExtractor(cfg)
	if err != nil {
		return nil, err
	}
	p, err := ai.NewProvider(lingua.NewDetector(cfg), extractor)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Close releases the enricher, the AI provider and the store, in that order.
func (s *Service) Close() error {
	if s.enricher != nil {
		s.enricher.Release()
	}
	s.closeProvider()

	if err := s.store.Close(); err != nil {
		s.logger.Error("error closing store", "err", err)
		return err
	}
	return nil
}

func (s *Service) closeProvider() {
	if err := s.provider.Close(); err != nil {
		s.logger.Error("error closing AI provider", "err", err)
	}
}

func (s *Service) closeStore() {
	if err := s.store.Close(); err != nil {
		s.logger.Error("error closing store", "err", err)
	}
}

// Shutdown returns the signal shared by every orchestrator of the service.
func (s *Service) Shutdown() *ingestion.Shutdown {
	return s.shutdown
}

// Store returns the underlying store.
func (s *Service) Store() storage.Backend {
	return s.store
}

// Categories reports the categories of the news provider.
func (s *Service) Categories() ([]string, bool) {
	return s.news.Categories()
}

// Lane returns the configured lane template of pipeline.
func (s *Service) Lane(pipeline core.Pipeline, once bool) core.LaneConfig {
	return s.cfg.Lane(pipeline, once)
}

// NewOrchestrator builds the orchestrator of lane.Pipeline with the
// configured retry and supervision settings. opts are applied last.
func (s *Service) NewOrchestrator(lane core.LaneConfig, opts ...ingestion.OrchestratorOption) (*ingestion.Orchestrator, error) {
	var cycle ingestion.Cycle
	switch lane.Pipeline {
	case core.PipelineArticles:
		c, err := ingestion.NewArticleCycle(s.news, s.enricher, s.upserter, s.shutdown)
		if err != nil {
			return nil, err
		}
		cycle = c
	case core.PipelineSources:
		c, err := ingestion.NewSourceCycle(s.news, s.upserter, s.shutdown)
		if err != nil {
			return nil, err
		}
		cycle = c
	default:
		return nil, fmt.Errorf("%w: unknown pipeline %q", core.ErrInvalidLane, lane.Pipeline)
	}

	retry := s.cfg.Retry
	base := []ingestion.OrchestratorOption{
		ingestion.WithRetryPolicy(ingestion.RetryPolicy{
			MaxAttempts:  retry.MaxAttempts,
			AttemptDelay: retry.AttemptDelay,
			RetryDelay:   retry.RetryDelay,
		}),
		ingestion.WithLaneCheckpoints(s.store),
		ingestion.WithLaneFailureBackoff(retry.FailureBackoff),
		ingestion.WithSupervision(s.cfg.Supervision.PollInterval, s.cfg.Supervision.JoinTimeout),
		ingestion.WithOrchestratorLogger(s.logger),
	}
	return ingestion.NewOrchestrator(lane, cycle, s.news, s.shutdown, append(base, opts...)...)
}

// Status is a snapshot of what the store holds.
type Status struct {
	Articles    int
	Sources     int
	Checkpoints []*core.LaneCheckpoint
}

// Status counts stored records and lists lane checkpoints concurrently.
func (s *Service) Status(ctx context.Context) (*Status, error) {
	status := &Status{}
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.store.CountArticles(ctx)
		if err != nil {
			return fmt.Errorf("count articles: %w", err)
		}
		status.Articles = n
		return nil
	})
	g.Go(func() error {
		n, err := s.store.CountSources(ctx)
		if err != nil {
			return fmt.Errorf("count sources: %w", err)
		}
		status.Sources = n
		return nil
	})
	g.Go(func() error {
		checkpoints, err := s.store.ListCheckpoints(ctx)
		if err != nil {
			return fmt.Errorf("list checkpoints: %w", err)
		}
		status.Checkpoints = checkpoints
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return status, nil
}

// RecentArticles returns up to limit stored articles, newest first.
func (s *Service) RecentArticles(ctx context.Context, limit int) ([]*core.Article, error) {
	return s.store.RecentArticles(ctx, limit)
}
