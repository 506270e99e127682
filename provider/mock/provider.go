// Package mock provides a test double for provider.NewsProvider.
package mock

import (
	"context"
	"slices"
	"sync"

	"github.com/poiesic/newswire/core"
	"github.com/poiesic/newswire/provider"
)

// MockProvider is a test double for provider.NewsProvider.
// It is safe for concurrent use by several lanes.
type MockProvider struct {
	// TopHeadlinesFunc is called by TopHeadlines if set.
	// If nil, returns the articles registered for the request's category.
	TopHeadlinesFunc func(ctx context.Context, req provider.HeadlinesRequest) ([]core.RawArticle, error)

	// SourcesFunc is called by Sources if set.
	// If nil, returns the registered sources.
	SourcesFunc func(ctx context.Context, req provider.SourcesRequest) ([]core.RawSource, error)

	mu             sync.Mutex
	articles       map[string][]core.RawArticle
	sources        []core.RawSource
	categories     []string
	noCategories   bool
	headlineCalls  []provider.HeadlinesRequest
	sourceRequests []provider.SourcesRequest
}

var _ provider.NewsProvider = (*MockProvider)(nil)

// NewMockProvider creates a mock that supports core.Categories and returns
// no records.
func NewMockProvider() *MockProvider {
	return &MockProvider{
		articles:   make(map[string][]core.RawArticle),
		categories: slices.Clone(core.Categories),
	}
}

// WithArticles registers the headlines returned for category.
func (m *MockProvider) WithArticles(category string, articles ...core.RawArticle) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.articles[category] = append(m.articles[category], articles...)
	return m
}

// WithSources registers the sources returned by Sources.
func (m *MockProvider) WithSources(sources ...core.RawSource) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sources = append(m.sources, sources...)
	return m
}

// WithCategories replaces the supported categories.
func (m *MockProvider) WithCategories(categories ...string) *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.categories = categories
	return m
}

// WithoutCategories makes Categories report the capability as missing.
func (m *MockProvider) WithoutCategories() *MockProvider {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.noCategories = true
	return m
}

// TopHeadlines records req and returns the configured headlines.
func (m *MockProvider) TopHeadlines(ctx context.Context, req provider.HeadlinesRequest) ([]core.RawArticle, error) {
	m.mu.Lock()
	m.headlineCalls = append(m.headlineCalls, req)
	fn := m.TopHeadlinesFunc
	articles := slices.Clone(m.articles[req.Category])
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	return articles, nil
}

// Sources records req and returns the configured sources.
func (m *MockProvider) Sources(ctx context.Context, req provider.SourcesRequest) ([]core.RawSource, error) {
	m.mu.Lock()
	m.sourceRequests = append(m.sourceRequests, req)
	fn := m.SourcesFunc
	var sources []core.RawSource
	for _, s := range m.sources {
		if req.Category == "" || s.Category == req.Category {
			sources = append(sources, s)
		}
	}
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	return sources, nil
}

// Categories returns the configured categories.
func (m *MockProvider) Categories() ([]string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.noCategories {
		return nil, false
	}
	return slices.Clone(m.categories), true
}

// HeadlineCalls returns a copy of every TopHeadlines request.
func (m *MockProvider) HeadlineCalls() []provider.HeadlinesRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.headlineCalls)
}

// SourceCalls returns a copy of every Sources request.
func (m *MockProvider) SourceCalls() []provider.SourcesRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.sourceRequests)
}

// CallCount returns the total number of fetch calls.
func (m *MockProvider) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.headlineCalls) + len(m.sourceRequests)
}

// Reset clears recorded calls and custom functions.
func (m *MockProvider) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.headlineCalls = nil
	m.sourceRequests = nil
	m.TopHeadlinesFunc = nil
	m.SourcesFunc = nil
}
