package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/poiesic/newswire/core"
)

// Upserter reconciles a batch of canonical records against a Store.
// Each batch runs in a single transaction. Articles are insert-only;
// sources are inserted or, when a mutable field changed, updated.
type Upserter struct {
	store  Store
	logger *slog.Logger
}

// NewUpserter creates an Upserter for store.
func NewUpserter(store Store, logger *slog.Logger) (*Upserter, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Upserter{
		store:  store,
		logger: logger.With("component", "upserter"),
	}, nil
}

// UpsertArticles stores the articles whose URL is not yet present.
// Duplicate URLs within the batch resolve to the last occurrence.
// On a transaction failure the returned result has Stored == 0 and the
// error wraps ErrTransactionFailed.
func (u *Upserter) UpsertArticles(ctx context.Context, candidates []*core.Article) (*core.FetchCycleResult, error) {
	result := &core.FetchCycleResult{}
	batch := dedupByKey(candidates, func(a *core.Article) string { return a.URL }, result)
	if len(batch) == 0 {
		return result, nil
	}

	var (
		stored int
		skips  []core.Skip
	)
	err := u.store.WithTransaction(ctx, func(ctx context.Context, tx Tx) error {
		// Reset in case the store retries the transaction.
		stored, skips = 0, nil

		urls := make([]string, len(batch))
		for i, a := range batch {
			urls[i] = a.URL
		}
		existing, err := tx.ExistingArticleURLs(ctx, urls)
		if err != nil {
			return err
		}

		fresh := make([]*core.Article, 0, len(batch))
		for _, a := range batch {
			if existing[a.URL] {
				skips = append(skips, core.Skip{Key: a.URL, Reason: core.SkipAlreadyStored})
				continue
			}
			fresh = append(fresh, a)
		}
		if len(fresh) == 0 {
			return nil
		}

		inserted, err := tx.InsertArticles(ctx, fresh)
		if err != nil {
			return err
		}
		stored = len(inserted)
		skips = append(skips, conflictSkips(fresh, inserted, func(a *core.Article) string { return a.URL })...)
		return nil
	})
	if err != nil {
		u.logger.Error("article batch failed", "batch", len(batch), "err", err)
		return result, fmt.Errorf("%w: %w", ErrTransactionFailed, err)
	}

	result.Stored = stored
	result.Skipped = append(result.Skipped, skips...)
	return result, nil
}

// UpsertSources inserts new sources and updates existing ones whose url,
// category, language or country changed. A failure inside the update loop is
// logged and ends the loop; the inserts and the updates made before it are
// still committed and counted.
func (u *Upserter) UpsertSources(ctx context.Context, candidates []*core.Source) (*core.FetchCycleResult, error) {
	result := &core.FetchCycleResult{}
	batch := dedupByKey(candidates, func(s *core.Source) string { return s.Name }, result)
	if len(batch) == 0 {
		return result, nil
	}

	var (
		stored  int
		updated int
		skips   []core.Skip
	)
	err := u.store.WithTransaction(ctx, func(ctx context.Context, tx Tx) error {
		stored, updated, skips = 0, 0, nil

		names := make([]string, len(batch))
		for i, s := range batch {
			names[i] = s.Name
		}
		existing, err := tx.ExistingSourceNames(ctx, names)
		if err != nil {
			return err
		}

		fresh := make([]*core.Source, 0, len(batch))
		known := make([]*core.Source, 0, len(batch))
		for _, s := range batch {
			if existing[s.Name] {
				known = append(known, s)
			} else {
				fresh = append(fresh, s)
			}
		}

		if len(fresh) > 0 {
			inserted, err := tx.InsertSources(ctx, fresh)
			if err != nil {
				return err
			}
			stored = len(inserted)
			skips = append(skips, conflictSkips(fresh, inserted, func(s *core.Source) string { return s.Name })...)
		}

		for _, s := range known {
			changed, err := updateSource(ctx, tx, s)
			if errors.Is(err, ErrNotFound) {
				continue
			}
			if err != nil {
				u.logger.Error("source update failed", "name", s.Name, "updated", updated, "err", err)
				break
			}
			if changed {
				updated++
			} else {
				skips = append(skips, core.Skip{Key: s.Name, Reason: core.SkipUnchanged})
			}
		}
		return nil
	})
	if err != nil {
		u.logger.Error("source batch failed", "batch", len(batch), "err", err)
		return result, fmt.Errorf("%w: %w", ErrTransactionFailed, err)
	}

	result.Stored = stored
	result.Updated = updated
	result.Skipped = append(result.Skipped, skips...)
	return result, nil
}

// updateSource persists candidate over the stored source when a mutable field differs.
func updateSource(ctx context.Context, tx Tx, candidate *core.Source) (bool, error) {
	current, err := tx.GetSource(ctx, candidate.Name)
	if err != nil {
		return false, err
	}
	if !sourceChanged(current, candidate) {
		return false, nil
	}
	current.URL = candidate.URL
	current.Category = candidate.Category
	current.Language = candidate.Language
	current.Country = candidate.Country
	if err := tx.UpdateSource(ctx, current); err != nil {
		return false, err
	}
	return true, nil
}

func sourceChanged(current, candidate *core.Source) bool {
	return current.URL != candidate.URL ||
		current.Category != candidate.Category ||
		current.Language != candidate.Language ||
		current.Country != candidate.Country
}

// dedupByKey collapses records sharing a natural key. The survivor is the last
// occurrence, kept at the position of the first. Replaced records are recorded
// as batch duplicates.
func dedupByKey[T any](records []*T, key func(*T) string, result *core.FetchCycleResult) []*T {
	index := make(map[string]int, len(records))
	out := make([]*T, 0, len(records))
	for _, r := range records {
		if r == nil {
			continue
		}
		k := key(r)
		if i, ok := index[k]; ok {
			out[i] = r
			result.Skip(k, core.SkipBatchDuplicate, "")
			continue
		}
		index[k] = len(out)
		out = append(out, r)
	}
	return out
}

// conflictSkips reports the attempted records missing from inserted.
func conflictSkips[T any](attempted, inserted []*T, key func(*T) string) []core.Skip {
	if len(attempted) == len(inserted) {
		return nil
	}
	ok := make(map[string]bool, len(inserted))
	for _, r := range inserted {
		ok[key(r)] = true
	}
	var skips []core.Skip
	for _, r := range attempted {
		if k := key(r); !ok[k] {
			skips = append(skips, core.Skip{Key: k, Reason: core.SkipConflict})
		}
	}
	return skips
}
