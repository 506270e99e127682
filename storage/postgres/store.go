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

// Package postgres implements storage.Backend on PostgreSQL using pgx.
//
// Natural keys are enforced by primary keys on articles.url and sources.name.
// Inserts use ON CONFLICT DO NOTHING so a row raced in by another lane is
// skipped without aborting the batch.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/poiesic/newswire/core"
	"github.com/poiesic/newswire/storage"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS articles (
	url          TEXT PRIMARY KEY,
	id           BIGINT NOT NULL,
	title        TEXT NOT NULL,
	content      TEXT NOT NULL,
	description  TEXT NOT NULL,
	category     TEXT NOT NULL,
	source       TEXT NOT NULL,
	author       TEXT NOT NULL,
	image_url    TEXT NOT NULL DEFAULT '',
	published_at TIMESTAMPTZ NOT NULL,
	fetched_at   TIMESTAMPTZ NOT NULL,
	keywords     JSONB NOT NULL DEFAULT '[]',
	language     TEXT NOT NULL,
	is_featured  BOOLEAN NOT NULL DEFAULT FALSE,
	is_archived  BOOLEAN NOT NULL DEFAULT FALSE
);
CREATE INDEX IF NOT EXISTS articles_published_at_idx ON articles (published_at DESC);
CREATE TABLE IF NOT EXISTS sources (
	name       TEXT PRIMARY KEY,
	id         BIGINT NOT NULL,
	url        TEXT NOT NULL,
	category   TEXT NOT NULL,
	language   TEXT NOT NULL,
	country    TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS lane_checkpoints (
	lane                 TEXT PRIMARY KEY,
	run_id               TEXT NOT NULL,
	last_attempt         TIMESTAMPTZ,
	last_success         TIMESTAMPTZ,
	consecutive_failures INTEGER NOT NULL,
	retrieved            INTEGER NOT NULL,
	stored               INTEGER NOT NULL,
	updated              INTEGER NOT NULL,
	skipped              INTEGER NOT NULL,
	updated_at           TIMESTAMPTZ NOT NULL
);`

const articleColumns = `url, id, title, content, description, category, source, author, image_url,
	published_at, fetched_at, keywords, language, is_featured, is_archived`

// DefaultMaxConns is the pool size used when Open is given zero.
const DefaultMaxConns = 4

// Store implements storage.Backend over a pgx connection pool.
type Store struct {
	pool   *pgxpool.Pool
	clock  storage.Clock
	closed atomic.Bool
	logger *slog.Logger
}

var _ storage.Backend = (*Store)(nil)

// Open connects to the database at dsn and bootstraps the schema.
func Open(ctx context.Context, dsn string, maxConns int) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if maxConns <= 0 {
		maxConns = DefaultMaxConns
	}
	cfg.MaxConns = int32(maxConns)

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	s := NewStore(pool)
	if err := s.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	s.logger.Debug("connected", "max_conns", maxConns)
	return s, nil
}

// NewStore wraps an existing pool. The store takes ownership of the pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{
		pool:   pool,
		clock:  storage.UTCNow,
		logger: slog.Default().With("component", "postgres"),
	}
}

// EnsureSchema creates the tables and indexes if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Close closes the pool.
func (s *Store) Close() error {
	if s.closed.CompareAndSwap(false, true) {
		s.pool.Close()
	}
	return nil
}

// WithTransaction runs fn in a read-write transaction.
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx storage.Tx) error) error {
	return s.withTx(ctx, pgx.TxOptions{}, fn)
}

// WithReadTransaction runs fn in a read-only transaction.
func (s *Store) WithReadTransaction(ctx context.Context, fn func(ctx context.Context, tx storage.Tx) error) error {
	return s.withTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly}, fn)
}

func (s *Store) withTx(ctx context.Context, opts pgx.TxOptions, fn func(ctx context.Context, tx storage.Tx) error) error {
	if s.closed.Load() {
		return storage.ErrStorageClosed
	}
	return pgx.BeginTxFunc(ctx, s.pool, opts, func(tx pgx.Tx) error {
		return fn(ctx, &txn{tx: tx, clock: s.clock})
	})
}

// CountArticles returns the number of stored articles.
func (s *Store) CountArticles(ctx context.Context) (int, error) {
	return s.count(ctx, "SELECT count(*) FROM articles")
}

// CountSources returns the number of stored sources.
func (s *Store) CountSources(ctx context.Context) (int, error) {
	return s.count(ctx, "SELECT count(*) FROM sources")
}

func (s *Store) count(ctx context.Context, query string) (int, error) {
	if s.closed.Load() {
		return 0, storage.ErrStorageClosed
	}
	var n int64
	if err := s.pool.QueryRow(ctx, query).Scan(&n); err != nil {
		return 0, err
	}
	return int(n), nil
}

// RecentArticles returns up to limit articles, newest first.
func (s *Store) RecentArticles(ctx context.Context, limit int) ([]*core.Article, error) {
	if limit <= 0 {
		return nil, nil
	}
	if s.closed.Load() {
		return nil, storage.ErrStorageClosed
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+articleColumns+` FROM articles ORDER BY published_at DESC, url LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []*core.Article
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, article)
	}
	return results, rows.Err()
}

// SaveCheckpoint upserts the checkpoint row for a lane.
func (s *Store) SaveCheckpoint(ctx context.Context, checkpoint *core.LaneCheckpoint) error {
	if s.closed.Load() {
		return storage.ErrStorageClosed
	}
	checkpoint.UpdatedAt = s.clock()
	_, err := s.pool.Exec(ctx, `
		INSERT INTO lane_checkpoints
		(lane, run_id, last_attempt, last_success, consecutive_failures,
		 retrieved, stored, updated, skipped, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		ON CONFLICT (lane) DO UPDATE SET
			run_id = EXCLUDED.run_id,
			last_attempt = EXCLUDED.last_attempt,
			last_success = EXCLUDED.last_success,
			consecutive_failures = EXCLUDED.consecutive_failures,
			retrieved = EXCLUDED.retrieved,
			stored = EXCLUDED.stored,
			updated = EXCLUDED.updated,
			skipped = EXCLUDED.skipped,
			updated_at = EXCLUDED.updated_at`,
		checkpoint.Lane, checkpoint.RunID, nullTime(checkpoint.LastAttempt), nullTime(checkpoint.LastSuccess),
		checkpoint.ConsecutiveFailures, checkpoint.Retrieved, checkpoint.Stored, checkpoint.Updated,
		checkpoint.Skipped, checkpoint.UpdatedAt,
	)
	return err
}

const checkpointColumns = `lane, run_id, last_attempt, last_success, consecutive_failures,
	retrieved, stored, updated, skipped, updated_at`

// LoadCheckpoint returns the checkpoint for lane, or nil, nil if none exists.
func (s *Store) LoadCheckpoint(ctx context.Context, lane string) (*core.LaneCheckpoint, error) {
	if s.closed.Load() {
		return nil, storage.ErrStorageClosed
	}
	row := s.pool.QueryRow(ctx, `SELECT `+checkpointColumns+` FROM lane_checkpoints WHERE lane = $1`, lane)
	checkpoint, err := scanCheckpoint(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return checkpoint, err
}

// ListCheckpoints returns all checkpoints ordered by lane.
func (s *Store) ListCheckpoints(ctx context.Context) ([]*core.LaneCheckpoint, error) {
	if s.closed.Load() {
		return nil, storage.ErrStorageClosed
	}
	rows, err := s.pool.Query(ctx, `SELECT `+checkpointColumns+` FROM lane_checkpoints ORDER BY lane`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var checkpoints []*core.LaneCheckpoint
	for rows.Next() {
		checkpoint, err := scanCheckpoint(rows)
		if err != nil {
			return nil, err
		}
		checkpoints = append(checkpoints, checkpoint)
	}
	return checkpoints, rows.Err()
}

// txn implements storage.Tx over a pgx transaction.
type txn struct {
	tx    pgx.Tx
	clock storage.Clock
}

var _ storage.Tx = (*txn)(nil)

func (t *txn) ExistingArticleURLs(ctx context.Context, urls []string) (map[string]bool, error) {
	return t.existing(ctx, `SELECT url FROM articles WHERE url = ANY($1)`, urls)
}

func (t *txn) InsertArticles(ctx context.Context, articles []*core.Article) ([]*core.Article, error) {
	if len(articles) == 0 {
		return nil, nil
	}
	now := t.clock()
	b := &pgx.Batch{}
	for _, a := range articles {
		keywords, err := encodeKeywords(a.Keywords)
		if err != nil {
			return nil, err
		}
		b.Queue(`INSERT INTO articles (`+articleColumns+`)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
			ON CONFLICT (url) DO NOTHING`,
			a.URL, int64(core.ArticleID(a.URL)), a.Title, a.Content, a.Description, a.Category,
			a.Source, a.Author, a.ImageURL, a.PublishedAt, now, keywords, a.Language,
			a.IsFeatured, a.IsArchived,
		)
	}

	br := t.tx.SendBatch(ctx, b)
	inserted := make([]*core.Article, 0, len(articles))
	for _, a := range articles {
		tag, err := br.Exec()
		if err != nil {
			_ = br.Close()
			return nil, err
		}
		if tag.RowsAffected() == 1 {
			a.Id = core.ArticleID(a.URL)
			a.FetchedAt = now
			inserted = append(inserted, a)
		}
	}
	if err := br.Close(); err != nil {
		return nil, err
	}
	return inserted, nil
}

func (t *txn) GetArticle(ctx context.Context, url string) (*core.Article, error) {
	row := t.tx.QueryRow(ctx, `SELECT `+articleColumns+` FROM articles WHERE url = $1`, url)
	article, err := scanArticle(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	return article, err
}

func (t *txn) ExistingSourceNames(ctx context.Context, names []string) (map[string]bool, error) {
	return t.existing(ctx, `SELECT name FROM sources WHERE name = ANY($1)`, names)
}

func (t *txn) InsertSources(ctx context.Context, sources []*core.Source) ([]*core.Source, error) {
	if len(sources) == 0 {
		return nil, nil
	}
	now := t.clock()
	b := &pgx.Batch{}
	for _, s := range sources {
		b.Queue(`INSERT INTO sources (name, id, url, category, language, country, updated_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7)
			ON CONFLICT (name) DO NOTHING`,
			s.Name, int64(core.SourceID(s.Name)), s.URL, s.Category, s.Language, s.Country, now,
		)
	}

	br := t.tx.SendBatch(ctx, b)
	inserted := make([]*core.Source, 0, len(sources))
	for _, s := range sources {
		tag, err := br.Exec()
		if err != nil {
			_ = br.Close()
			return nil, err
		}
		if tag.RowsAffected() == 1 {
			s.Id = core.SourceID(s.Name)
			s.UpdatedAt = now
			inserted = append(inserted, s)
		}
	}
	if err := br.Close(); err != nil {
		return nil, err
	}
	return inserted, nil
}

// GetSource and UpdateSource run inside savepoints so a failed statement
// leaves the outer transaction usable for the rest of the batch.
func (t *txn) GetSource(ctx context.Context, name string) (*core.Source, error) {
	var (
		s  core.Source
		id int64
	)
	err := t.savepoint(ctx, func(sp pgx.Tx) error {
		return sp.QueryRow(ctx,
			`SELECT name, id, url, category, language, country, updated_at FROM sources WHERE name = $1`, name,
		).Scan(&s.Name, &id, &s.URL, &s.Category, &s.Language, &s.Country, &s.UpdatedAt)
	})
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	s.Id = core.ID(id)
	s.UpdatedAt = s.UpdatedAt.UTC()
	return &s, nil
}

func (t *txn) UpdateSource(ctx context.Context, source *core.Source) error {
	now := t.clock()
	err := t.savepoint(ctx, func(sp pgx.Tx) error {
		tag, err := sp.Exec(ctx,
			`UPDATE sources SET url = $2, category = $3, language = $4, country = $5, updated_at = $6
			WHERE name = $1`,
			source.Name, source.URL, source.Category, source.Language, source.Country, now,
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return storage.ErrNotFound
		}
		return nil
	})
	if err != nil {
		return err
	}
	source.UpdatedAt = now
	return nil
}

// savepoint runs fn in a nested transaction, rolled back when fn fails.
func (t *txn) savepoint(ctx context.Context, fn func(sp pgx.Tx) error) error {
	return pgx.BeginFunc(ctx, t.tx, fn)
}

func (t *txn) existing(ctx context.Context, query string, keys []string) (map[string]bool, error) {
	found := make(map[string]bool)
	if len(keys) == 0 {
		return found, nil
	}
	rows, err := t.tx.Query(ctx, query, keys)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		found[k] = true
	}
	return found, rows.Err()
}

type keywordRow struct {
	Term  string  `json:"term"`
	Score float64 `json:"score"`
}

func encodeKeywords(keywords []core.Keyword) (string, error) {
	rows := make([]keywordRow, len(keywords))
	for i, k := range keywords {
		rows[i] = keywordRow{Term: k.Term, Score: k.Score}
	}
	data, err := json.Marshal(rows)
	if err != nil {
		return "", fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
	}
	return string(data), nil
}

func decodeKeywords(data []byte) ([]core.Keyword, error) {
	var rows []keywordRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	keywords := make([]core.Keyword, len(rows))
	for i, r := range rows {
		keywords[i] = core.Keyword{Term: r.Term, Score: r.Score}
	}
	return keywords, nil
}

func scanArticle(row pgx.Row) (*core.Article, error) {
	var (
		a        core.Article
		id       int64
		keywords []byte
	)
	err := row.Scan(&a.URL, &id, &a.Title, &a.Content, &a.Description, &a.Category, &a.Source,
		&a.Author, &a.ImageURL, &a.PublishedAt, &a.FetchedAt, &keywords, &a.Language,
		&a.IsFeatured, &a.IsArchived)
	if err != nil {
		return nil, err
	}
	a.Id = core.ID(id)
	a.PublishedAt = a.PublishedAt.UTC()
	a.FetchedAt = a.FetchedAt.UTC()
	if a.Keywords, err = decodeKeywords(keywords); err != nil {
		return nil, err
	}
	return &a, nil
}

func scanCheckpoint(row pgx.Row) (*core.LaneCheckpoint, error) {
	var (
		c                        core.LaneCheckpoint
		lastAttempt, lastSuccess *time.Time
	)
	err := row.Scan(&c.Lane, &c.RunID, &lastAttempt, &lastSuccess, &c.ConsecutiveFailures,
		&c.Retrieved, &c.Stored, &c.Updated, &c.Skipped, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if lastAttempt != nil {
		c.LastAttempt = lastAttempt.UTC()
	}
	if lastSuccess != nil {
		c.LastSuccess = lastSuccess.UTC()
	}
	c.UpdatedAt = c.UpdatedAt.UTC()
	return &c, nil
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
