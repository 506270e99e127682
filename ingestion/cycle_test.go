package ingestion

import (
	"context"
	"fmt"
	"testing"

	aimock "github.com/poiesic/newswire/ai/mock"
	"github.com/poiesic/newswire/core"
	"github.com/poiesic/newswire/provider"
	providermock "github.com/poiesic/newswire/provider/mock"
	"github.com/poiesic/newswire/storage"
	"github.com/poiesic/newswire/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type cycleFixture struct {
	store    *badger.Store
	upserter *storage.Upserter
	enricher *Enricher
	provider *providermock.MockProvider
	shutdown *Shutdown
}

func newCycleFixture(t *testing.T) *cycleFixture {
	t.Helper()
	store, err := badger.NewMemoryStore()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	upserter, err := storage.NewUpserter(store, nil)
	require.NoError(t, err)

	extractor := aimock.NewMockKeywordExtractor()
	enricher, err := NewEnricher(aimock.NewMockProviderWithServices(aimock.NewMockLanguageDetector(), extractor))
	require.NoError(t, err)
	t.Cleanup(enricher.Release)

	return &cycleFixture{
		store:    store,
		upserter: upserter,
		enricher: enricher,
		provider: providermock.NewMockProvider(),
		shutdown: NewShutdown(),
	}
}

func (f *cycleFixture) articleCycle(t *testing.T) *ArticleCycle {
	t.Helper()
	c, err := NewArticleCycle(f.provider, f.enricher, f.upserter, f.shutdown)
	require.NoError(t, err)
	return c
}

func (f *cycleFixture) sourceCycle(t *testing.T) *SourceCycle {
	t.Helper()
	c, err := NewSourceCycle(f.provider, f.upserter, f.shutdown)
	require.NoError(t, err)
	return c
}

func rawHeadline(i int) core.RawArticle {
	return core.RawArticle{
		Title:       fmt.Sprintf("Headline number %d about elections", i),
		URL:         fmt.Sprintf("https://news.example.com/%d", i),
		Description: "Voters turned out in large numbers.",
		Content:     "Voters turned out in large numbers across the region. [+900 chars]",
		SourceName:  "Example News",
		PublishedAt: "2024-05-01T08:00:00Z",
	}
}

func articlesLane(category string) core.LaneConfig {
	return core.LaneConfig{Pipeline: core.PipelineArticles, Category: category, PageSize: 20, Once: true}
}

func storedArticle(t *testing.T, store storage.Store, url string) (*core.Article, error) {
	t.Helper()
	var article *core.Article
	err := store.WithReadTransaction(context.Background(), func(ctx context.Context, tx storage.Tx) error {
		var err error
		article, err = tx.GetArticle(ctx, url)
		return err
	})
	return article, err
}

func TestNewCycles_Validation(t *testing.T) {
	f := newCycleFixture(t)

	_, err := NewArticleCycle(nil, f.enricher, f.upserter, f.shutdown)
	assert.ErrorIs(t, err, ErrFetcherRequired)
	_, err = NewArticleCycle(f.provider, nil, f.upserter, f.shutdown)
	assert.ErrorIs(t, err, ErrAIProviderRequired)
	_, err = NewArticleCycle(f.provider, f.enricher, nil, f.shutdown)
	assert.ErrorIs(t, err, ErrUpserterRequired)
	_, err = NewSourceCycle(f.provider, f.upserter, nil)
	assert.ErrorIs(t, err, ErrShutdownRequired)
}

func TestArticleCycle_StoresHeadlines(t *testing.T) {
	f := newCycleFixture(t)
	bad := rawHeadline(99)
	bad.URL = "http://10.0.0.5/internal"
	f.provider.WithArticles("sports", rawHeadline(1), rawHeadline(2), bad)
	c := f.articleCycle(t)

	result, err := c.Run(context.Background(), articlesLane("sports"))
	require.NoError(t, err)
	assert.Equal(t, 3, result.Retrieved)
	assert.Equal(t, 2, result.Stored)
	assert.Equal(t, map[core.SkipReason]int{core.SkipInvalidURL: 1}, result.SkipCounts())

	calls := f.provider.HeadlineCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, provider.HeadlinesRequest{Country: core.DefaultCountry, Category: "sports", PageSize: 20}, calls[0])

	article, err := storedArticle(t, f.store, "https://news.example.com/1")
	require.NoError(t, err)
	assert.Equal(t, "sports", article.Category)
	assert.Equal(t, "Voters turned out in large numbers across the region.", article.Content)
	assert.Equal(t, "en", article.Language)
	assert.NotEmpty(t, article.Keywords)
}

func TestArticleCycle_IsIdempotent(t *testing.T) {
	f := newCycleFixture(t)
	f.provider.WithArticles("business", rawHeadline(1), rawHeadline(2))
	c := f.articleCycle(t)

	_, err := c.Run(context.Background(), articlesLane("business"))
	require.NoError(t, err)
	before, err := f.store.CountArticles(context.Background())
	require.NoError(t, err)

	result, err := c.Run(context.Background(), articlesLane("business"))
	require.NoError(t, err)
	assert.Equal(t, 0, result.Stored)
	assert.Equal(t, 2, result.SkipCounts()[core.SkipAlreadyStored])

	after, err := f.store.CountArticles(context.Background())
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestArticleCycle_KeywordDisqualification(t *testing.T) {
	f := newCycleFixture(t)
	empty := core.RawArticle{
		Title:       "A b c",
		URL:         "https://news.example.com/empty",
		Description: "d e f",
		Content:     "g h i",
		SourceName:  "Wire",
		PublishedAt: "2024-05-01T08:00:00Z",
	}
	f.provider.WithArticles("general", rawHeadline(1), empty)
	c := f.articleCycle(t)

	result, err := c.Run(context.Background(), articlesLane("general"))
	require.NoError(t, err)
	assert.Equal(t, 1, result.Stored)
	assert.Equal(t, 1, result.SkipCounts()[core.SkipNoKeywords])

	_, err = storedArticle(t, f.store, "https://news.example.com/empty")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestArticleCycle_FetchError(t *testing.T) {
	f := newCycleFixture(t)
	f.provider.TopHeadlinesFunc = func(ctx context.Context, req provider.HeadlinesRequest) ([]core.RawArticle, error) {
		return nil, &provider.ProviderError{Kind: provider.KindRejected, Op: "top-headlines", StatusCode: 429}
	}
	c := f.articleCycle(t)

	_, err := c.Run(context.Background(), articlesLane("health"))
	require.Error(t, err)
	assert.ErrorIs(t, err, provider.ErrRejected)
	assert.Equal(t, CauseRejected, FailureCause(err))
}

func TestArticleCycle_PersistenceError(t *testing.T) {
	f := newCycleFixture(t)
	f.provider.WithArticles("science", rawHeadline(1))
	c := f.articleCycle(t)
	require.NoError(t, f.store.Close())

	result, err := c.Run(context.Background(), articlesLane("science"))
	require.Error(t, err)
	assert.Equal(t, CausePersistence, FailureCause(err))
	assert.Equal(t, 0, result.Stored)
}

func TestArticleCycle_StopsConsumingOnShutdown(t *testing.T) {
	f := newCycleFixture(t)
	f.provider.WithArticles("technology", rawHeadline(1), rawHeadline(2), rawHeadline(3))
	f.shutdown.Request()
	c := f.articleCycle(t)

	result, err := c.Run(context.Background(), articlesLane("technology"))
	require.NoError(t, err)
	assert.Equal(t, 3, result.Retrieved)
	assert.Equal(t, 0, result.Stored)
	assert.Equal(t, 3, result.SkipCounts()[core.SkipShutdown])
}

func TestSourceCycle_InsertAndUpdate(t *testing.T) {
	f := newCycleFixture(t)
	wire := core.RawSource{ID: "wire", Name: "Wire", Description: "Wire news", URL: "https://wire.example.com",
		Category: "business", Language: "en", Country: "us"}
	daily := core.RawSource{ID: "daily", Name: "Daily", Description: "Daily news", URL: "https://daily.example.com",
		Category: "business", Language: "en", Country: "gb"}
	f.provider.WithSources(wire, daily)
	c := f.sourceCycle(t)
	lane := core.LaneConfig{Pipeline: core.PipelineSources, Category: "business", Once: true}

	result, err := c.Run(context.Background(), lane)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Retrieved)
	assert.Equal(t, 2, result.Stored)

	// Change one source's country
	f.provider.SourcesFunc = func(ctx context.Context, req provider.SourcesRequest) ([]core.RawSource, error) {
		changed := daily
		changed.Country = "ie"
		return []core.RawSource{wire, changed}, nil
	}
	result, err = c.Run(context.Background(), lane)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Stored)
	assert.Equal(t, 1, result.Updated)
	assert.Equal(t, 1, result.SkipCounts()[core.SkipUnchanged])

	count, err := f.store.CountSources(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
