package badger

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/poiesic/newswire/core"
	"github.com/poiesic/newswire/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewMemoryStore()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func newTestUpserter(t *testing.T, store *Store) *storage.Upserter {
	t.Helper()
	upserter, err := storage.NewUpserter(store, nil)
	require.NoError(t, err)
	return upserter
}

func testArticle(url string, published time.Time) *core.Article {
	return &core.Article{
		Title:       "Title for " + url,
		Content:     "content",
		Description: "description",
		URL:         url,
		Category:    "general",
		Source:      "Wire",
		Author:      "Wire",
		PublishedAt: published,
		Language:    "en",
		Keywords:    []core.Keyword{{Term: "news", Score: 1}},
	}
}

func TestStore_UpsertArticles(t *testing.T) {
	store := newTestStore(t)
	upserter := newTestUpserter(t, store)
	ctx := context.Background()
	now := time.Now().UTC()

	result, err := upserter.UpsertArticles(ctx, []*core.Article{
		testArticle("https://example.com/a", now),
		testArticle("https://example.com/b", now.Add(time.Minute)),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Stored)
	assert.Empty(t, result.Skipped)

	count, err := store.CountArticles(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	err = store.WithReadTransaction(ctx, func(ctx context.Context, tx storage.Tx) error {
		article, err := tx.GetArticle(ctx, "https://example.com/a")
		require.NoError(t, err)
		assert.Equal(t, core.ArticleID("https://example.com/a"), article.Id)
		assert.False(t, article.FetchedAt.IsZero())
		assert.Equal(t, []core.Keyword{{Term: "news", Score: 1}}, article.Keywords)
		return nil
	})
	require.NoError(t, err)
}

func TestStore_UpsertArticlesIdempotent(t *testing.T) {
	store := newTestStore(t)
	upserter := newTestUpserter(t, store)
	ctx := context.Background()
	now := time.Now().UTC()

	batch := func() []*core.Article {
		return []*core.Article{
			testArticle("https://example.com/a", now),
			testArticle("https://example.com/b", now),
		}
	}

	first, err := upserter.UpsertArticles(ctx, batch())
	require.NoError(t, err)
	assert.Equal(t, 2, first.Stored)

	second, err := upserter.UpsertArticles(ctx, batch())
	require.NoError(t, err)
	assert.Equal(t, 0, second.Stored)
	assert.Equal(t, 2, second.SkipCounts()[core.SkipAlreadyStored])

	count, err := store.CountArticles(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestStore_UpsertArticlesBatchDuplicate(t *testing.T) {
	store := newTestStore(t)
	upserter := newTestUpserter(t, store)
	ctx := context.Background()
	now := time.Now().UTC()

	first := testArticle("https://example.com/a", now)
	first.Title = "first"
	last := testArticle("https://example.com/a", now)
	last.Title = "last"

	result, err := upserter.UpsertArticles(ctx, []*core.Article{first, last})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Stored)
	assert.Equal(t, 1, result.SkipCounts()[core.SkipBatchDuplicate])

	err = store.WithReadTransaction(ctx, func(ctx context.Context, tx storage.Tx) error {
		article, err := tx.GetArticle(ctx, "https://example.com/a")
		require.NoError(t, err)
		assert.Equal(t, "last", article.Title)
		return nil
	})
	require.NoError(t, err)
}

func TestStore_UpsertArticlesEmpty(t *testing.T) {
	store := newTestStore(t)
	upserter := newTestUpserter(t, store)

	result, err := upserter.UpsertArticles(context.Background(), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Stored)
	assert.Empty(t, result.Skipped)
}

func TestStore_UpsertArticlesConcurrentLanes(t *testing.T) {
	store := newTestStore(t)
	upserter := newTestUpserter(t, store)
	ctx := context.Background()
	now := time.Now().UTC()

	const lanes = 8
	var wg sync.WaitGroup
	results := make([]*core.FetchCycleResult, lanes)
	errs := make([]error, lanes)
	for i := 0; i < lanes; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = upserter.UpsertArticles(ctx, []*core.Article{
				testArticle("https://example.com/shared", now),
				testArticle(fmt.Sprintf("https://example.com/lane-%d", i), now),
			})
		}(i)
	}
	wg.Wait()

	sharedStored := 0
	for i := 0; i < lanes; i++ {
		if errs[i] != nil {
			// A lane that exhausted its conflict replays stores nothing.
			assert.ErrorIs(t, errs[i], storage.ErrTransactionFailed)
			assert.Equal(t, 0, results[i].Stored)
			continue
		}
		if results[i].SkipCounts()[core.SkipAlreadyStored] == 0 {
			sharedStored++
		}
	}
	assert.LessOrEqual(t, sharedStored, 1)

	err := store.WithReadTransaction(ctx, func(ctx context.Context, tx storage.Tx) error {
		existing, err := tx.ExistingArticleURLs(ctx, []string{"https://example.com/shared"})
		require.NoError(t, err)
		assert.Len(t, existing, 1)
		return nil
	})
	require.NoError(t, err)
}

func TestStore_UpsertSources(t *testing.T) {
	store := newTestStore(t)
	upserter := newTestUpserter(t, store)
	ctx := context.Background()

	result, err := upserter.UpsertSources(ctx, []*core.Source{
		{Name: "Wire", URL: "https://wire.example.com", Category: "general", Language: "en", Country: "us"},
		{Name: "Daily", URL: "https://daily.example.com", Category: "business", Language: "en", Country: "gb"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Stored)
	assert.Equal(t, 0, result.Updated)

	t.Run("unchanged", func(t *testing.T) {
		result, err := upserter.UpsertSources(ctx, []*core.Source{
			{Name: "Wire", URL: "https://wire.example.com", Category: "general", Language: "en", Country: "us"},
		})
		require.NoError(t, err)
		assert.Equal(t, 0, result.Stored)
		assert.Equal(t, 0, result.Updated)
		assert.Equal(t, 1, result.SkipCounts()[core.SkipUnchanged])
	})

	t.Run("changed", func(t *testing.T) {
		result, err := upserter.UpsertSources(ctx, []*core.Source{
			{Name: "Daily", URL: "https://daily.example.com", Category: "technology", Language: "en", Country: "gb"},
		})
		require.NoError(t, err)
		assert.Equal(t, 0, result.Stored)
		assert.Equal(t, 1, result.Updated)

		err = store.WithReadTransaction(ctx, func(ctx context.Context, tx storage.Tx) error {
			source, err := tx.GetSource(ctx, "Daily")
			require.NoError(t, err)
			assert.Equal(t, "technology", source.Category)
			assert.Equal(t, core.SourceID("Daily"), source.Id)
			return nil
		})
		require.NoError(t, err)
	})

	count, err := store.CountSources(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestStore_GetMissing(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.WithReadTransaction(ctx, func(ctx context.Context, tx storage.Tx) error {
		_, err := tx.GetArticle(ctx, "https://example.com/missing")
		assert.ErrorIs(t, err, storage.ErrNotFound)
		_, err = tx.GetSource(ctx, "missing")
		assert.ErrorIs(t, err, storage.ErrNotFound)
		return nil
	})
	require.NoError(t, err)
}

func TestStore_UpdateMissingSource(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.WithTransaction(ctx, func(ctx context.Context, tx storage.Tx) error {
		return tx.UpdateSource(ctx, &core.Source{Name: "ghost"})
	})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStore_ReadTransactionRejectsWrites(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.WithReadTransaction(ctx, func(ctx context.Context, tx storage.Tx) error {
		_, err := tx.InsertArticles(ctx, []*core.Article{testArticle("https://example.com/a", time.Now())})
		return err
	})
	assert.Error(t, err)

	count, err := store.CountArticles(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}

func TestStore_RecentArticles(t *testing.T) {
	store := newTestStore(t)
	upserter := newTestUpserter(t, store)
	ctx := context.Background()
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	_, err := upserter.UpsertArticles(ctx, []*core.Article{
		testArticle("https://example.com/middle", base.Add(time.Hour)),
		testArticle("https://example.com/oldest", base),
		testArticle("https://example.com/newest", base.Add(2*time.Hour)),
	})
	require.NoError(t, err)

	recent, err := store.RecentArticles(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "https://example.com/newest", recent[0].URL)
	assert.Equal(t, "https://example.com/middle", recent[1].URL)

	all, err := store.RecentArticles(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	none, err := store.RecentArticles(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestStore_Closed(t *testing.T) {
	store, err := NewMemoryStore()
	require.NoError(t, err)
	require.NoError(t, store.Close())

	err = store.WithTransaction(context.Background(), func(ctx context.Context, tx storage.Tx) error {
		return nil
	})
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
}

func TestCheckpointRepository(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	missing, err := store.LoadCheckpoint(ctx, "articles/sports")
	require.NoError(t, err)
	assert.Nil(t, missing)

	attempt := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	checkpoint := &core.LaneCheckpoint{
		Lane:                "articles/sports",
		RunID:               "run-1",
		LastAttempt:         attempt,
		ConsecutiveFailures: 2,
		Retrieved:           10,
		Stored:              7,
		Skipped:             3,
	}
	require.NoError(t, store.SaveCheckpoint(ctx, checkpoint))
	require.NoError(t, store.SaveCheckpoint(ctx, &core.LaneCheckpoint{Lane: "sources", RunID: "run-1"}))

	loaded, err := store.LoadCheckpoint(ctx, "articles/sports")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "run-1", loaded.RunID)
	assert.True(t, attempt.Equal(loaded.LastAttempt))
	assert.True(t, loaded.LastSuccess.IsZero())
	assert.Equal(t, 2, loaded.ConsecutiveFailures)
	assert.Equal(t, 7, loaded.Stored)
	assert.False(t, loaded.UpdatedAt.IsZero())

	all, err := store.ListCheckpoints(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "articles/sports", all[0].Lane)
	assert.Equal(t, "sources", all[1].Lane)
}
