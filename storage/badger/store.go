package badger

import (
	"bytes"
	"context"
	"errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/newswire/core"
	"github.com/poiesic/newswire/storage"
)

// Store implements storage.Backend on top of BadgerDB.
type Store struct {
	*CheckpointRepository
	backend *Backend
	clock   storage.Clock
}

var _ storage.Backend = (*Store)(nil)

// NewStore creates a Store over an open backend. The store owns the backend
// and closes it on Close.
func NewStore(backend *Backend) *Store {
	return &Store{
		CheckpointRepository: NewCheckpointRepository(backend),
		backend:              backend,
		clock:                storage.UTCNow,
	}
}

// Open opens (or creates) a BadgerDB store in the directory at path.
func Open(path string) (*Store, error) {
	backend, err := OpenBackend(path, false)
	if err != nil {
		return nil, err
	}
	return NewStore(backend), nil
}

// Close closes the underlying backend.
func (s *Store) Close() error {
	return s.backend.Close()
}

// WithTransaction runs fn in a read-write transaction. The transaction is
// replayed when badger detects a conflicting concurrent write, which happens
// when two lanes insert the same natural key at once.
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx storage.Tx) error) error {
	if s.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	return s.backend.Update(ctx, func(tx *badger.Txn) error {
		return fn(ctx, &txn{tx: tx, clock: s.clock})
	})
}

// WithReadTransaction runs fn in a read-only transaction.
func (s *Store) WithReadTransaction(ctx context.Context, fn func(ctx context.Context, tx storage.Tx) error) error {
	if s.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	return s.backend.WithTx(func(tx *badger.Txn) error {
		return fn(ctx, &txn{tx: tx, clock: s.clock, readOnly: true})
	}, false)
}

// CountArticles counts primary article keys.
func (s *Store) CountArticles(ctx context.Context) (int, error) {
	return s.countPrefix([]byte(articleRecordPrefix + ":"))
}

// CountSources counts primary source keys.
func (s *Store) CountSources(ctx context.Context) (int, error) {
	return s.countPrefix([]byte(sourceRecordPrefix + ":"))
}

func (s *Store) countPrefix(prefix []byte) (int, error) {
	count := 0
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = prefix
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			count++
		}
		return nil
	}, false)
	return count, err
}

// RecentArticles walks the date index backwards from the newest entry.
func (s *Store) RecentArticles(ctx context.Context, limit int) ([]*core.Article, error) {
	if limit <= 0 {
		return nil, nil
	}
	var results []*core.Article
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		prefix := []byte(articleDatePrefix + ":")
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true
		opts.Prefix = prefix
		iter := tx.NewIterator(opts)
		defer iter.Close()

		// In reverse mode Seek lands on the last key <= the seek key.
		seekKey := append(bytes.Clone(prefix), 0xFF)
		for iter.Seek(seekKey); iter.Valid() && len(results) < limit; iter.Next() {
			var url string
			err := iter.Item().Value(func(val []byte) error {
				url = string(val)
				return nil
			})
			if err != nil {
				return err
			}

			article, err := readArticle(tx, makeArticleKey(url))
			if err != nil {
				return err
			}
			if article != nil {
				results = append(results, article)
			}
		}
		return nil
	}, false)
	return results, err
}

// txn implements storage.Tx over a badger transaction.
type txn struct {
	tx       *badger.Txn
	clock    storage.Clock
	readOnly bool
}

var _ storage.Tx = (*txn)(nil)

func (t *txn) ExistingArticleURLs(ctx context.Context, urls []string) (map[string]bool, error) {
	return t.existing(urls, makeArticleKey)
}

func (t *txn) InsertArticles(ctx context.Context, articles []*core.Article) ([]*core.Article, error) {
	if t.readOnly {
		return nil, badger.ErrReadOnlyTxn
	}
	inserted := make([]*core.Article, 0, len(articles))
	for _, article := range articles {
		key := makeArticleKey(article.URL)
		exists, err := t.exists(key)
		if err != nil {
			return nil, err
		}
		if exists {
			continue
		}

		article.Id = core.ArticleID(article.URL)
		article.FetchedAt = t.clock()

		if err := t.tx.Set(key, storage.MarshalArticle(article)); err != nil {
			return nil, err
		}
		dateKey := makeArticleDateKey(article.PublishedAt, article.Id)
		if err := t.tx.Set(dateKey, []byte(article.URL)); err != nil {
			return nil, err
		}
		inserted = append(inserted, article)
	}
	return inserted, nil
}

func (t *txn) GetArticle(ctx context.Context, url string) (*core.Article, error) {
	article, err := readArticle(t.tx, makeArticleKey(url))
	if err != nil {
		return nil, err
	}
	if article == nil {
		return nil, storage.ErrNotFound
	}
	return article, nil
}

func (t *txn) ExistingSourceNames(ctx context.Context, names []string) (map[string]bool, error) {
	return t.existing(names, makeSourceKey)
}

func (t *txn) InsertSources(ctx context.Context, sources []*core.Source) ([]*core.Source, error) {
	if t.readOnly {
		return nil, badger.ErrReadOnlyTxn
	}
	inserted := make([]*core.Source, 0, len(sources))
	for _, source := range sources {
		key := makeSourceKey(source.Name)
		exists, err := t.exists(key)
		if err != nil {
			return nil, err
		}
		if exists {
			continue
		}

		source.Id = core.SourceID(source.Name)
		source.UpdatedAt = t.clock()
		if err := t.tx.Set(key, storage.MarshalSource(source)); err != nil {
			return nil, err
		}
		inserted = append(inserted, source)
	}
	return inserted, nil
}

func (t *txn) GetSource(ctx context.Context, name string) (*core.Source, error) {
	source, err := readSource(t.tx, makeSourceKey(name))
	if err != nil {
		return nil, err
	}
	if source == nil {
		return nil, storage.ErrNotFound
	}
	return source, nil
}

func (t *txn) UpdateSource(ctx context.Context, source *core.Source) error {
	if t.readOnly {
		return badger.ErrReadOnlyTxn
	}
	key := makeSourceKey(source.Name)
	exists, err := t.exists(key)
	if err != nil {
		return err
	}
	if !exists {
		return storage.ErrNotFound
	}
	if source.Id == 0 {
		source.Id = core.SourceID(source.Name)
	}
	source.UpdatedAt = t.clock()
	return t.tx.Set(key, storage.MarshalSource(source))
}

func (t *txn) existing(keys []string, makeKey func(string) []byte) (map[string]bool, error) {
	found := make(map[string]bool)
	for _, k := range keys {
		exists, err := t.exists(makeKey(k))
		if err != nil {
			return nil, err
		}
		if exists {
			found[k] = true
		}
	}
	return found, nil
}

func (t *txn) exists(key []byte) (bool, error) {
	_, err := t.tx.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// readArticle reads an article from the transaction.
// Returns nil, nil when the key is absent.
func readArticle(tx *badger.Txn, key []byte) (*core.Article, error) {
	item, err := tx.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var article *core.Article
	err = item.Value(func(val []byte) error {
		var err error
		article, err = storage.UnmarshalArticle(val)
		return err
	})
	return article, err
}

// readSource reads a source from the transaction.
// Returns nil, nil when the key is absent.
func readSource(tx *badger.Txn, key []byte) (*core.Source, error) {
	item, err := tx.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, nil
		}
		return nil, err
	}

	var source *core.Source
	err = item.Value(func(val []byte) error {
		var err error
		source, err = storage.UnmarshalSource(val)
		return err
	})
	return source, err
}
