package storage

import (
	"context"
	"time"

	"github.com/poiesic/newswire/core"
)

// ArticleTx provides article operations inside a transaction.
type ArticleTx interface {
	// ExistingArticleURLs returns the subset of urls that are already stored.
	ExistingArticleURLs(ctx context.Context, urls []string) (map[string]bool, error)

	// InsertArticles inserts articles whose URL is not yet stored.
	// A conflicting row is ignored without aborting the others.
	// Returns the articles that were actually inserted.
	// Sets Id and FetchedAt on inserted articles.
	InsertArticles(ctx context.Context, articles []*core.Article) ([]*core.Article, error)

	// GetArticle retrieves an article by URL.
	// Returns ErrNotFound if the article doesn't exist.
	GetArticle(ctx context.Context, url string) (*core.Article, error)
}

// SourceTx provides source operations inside a transaction.
type SourceTx interface {
	// ExistingSourceNames returns the subset of names that are already stored.
	ExistingSourceNames(ctx context.Context, names []string) (map[string]bool, error)

	// InsertSources inserts sources whose name is not yet stored, ignoring
	// per-row conflicts. Returns the sources that were actually inserted.
	InsertSources(ctx context.Context, sources []*core.Source) ([]*core.Source, error)

	// GetSource retrieves a source by name.
	// Returns ErrNotFound if the source doesn't exist.
	GetSource(ctx context.Context, name string) (*core.Source, error)

	// UpdateSource overwrites the mutable fields of an existing source.
	// Returns ErrNotFound if the source doesn't exist.
	UpdateSource(ctx context.Context, source *core.Source) error
}

// Tx groups the operations of one upsert batch.
type Tx interface {
	ArticleTx
	SourceTx
}

// Store is a transactional persistent store for articles and sources.
// Implementations must be safe for concurrent use by multiple lanes.
type Store interface {
	// WithTransaction executes fn within a read-write transaction.
	// If fn returns an error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	// WithReadTransaction executes fn within a read-only transaction.
	WithReadTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	// CountArticles returns the number of stored articles.
	CountArticles(ctx context.Context) (int, error)

	// CountSources returns the number of stored sources.
	CountSources(ctx context.Context) (int, error)

	// RecentArticles returns up to limit articles, newest PublishedAt first.
	RecentArticles(ctx context.Context, limit int) ([]*core.Article, error)

	// Close closes the storage backend and releases resources.
	Close() error
}

// CheckpointRepository persists per-lane progress.
type CheckpointRepository interface {
	// SaveCheckpoint persists a checkpoint, replacing any previous one for the lane.
	SaveCheckpoint(ctx context.Context, checkpoint *core.LaneCheckpoint) error

	// LoadCheckpoint retrieves the checkpoint for a lane.
	// Returns nil, nil if no checkpoint exists.
	LoadCheckpoint(ctx context.Context, lane string) (*core.LaneCheckpoint, error)

	// ListCheckpoints returns every stored checkpoint ordered by lane name.
	ListCheckpoints(ctx context.Context) ([]*core.LaneCheckpoint, error)
}

// Backend is a Store that also keeps lane checkpoints.
type Backend interface {
	Store
	CheckpointRepository
}

// Clock returns the current time. Stores use it to stamp FetchedAt/UpdatedAt.
type Clock func() time.Time

// UTCNow is the default Clock.
func UTCNow() time.Time {
	return time.Now().UTC()
}
