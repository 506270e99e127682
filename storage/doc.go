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

// Package storage provides the storage abstraction layer for newswire.
//
// Backends implement a small set of transactional primitives (Store and Tx).
// The dedup and upsert algorithm lives once in Upserter and runs unchanged
// against every backend:
//
//   - badger: embedded BadgerDB, the default
//   - postgres: PostgreSQL through pgx
//
// # Natural Keys
//
// Articles are keyed by URL and sources by name. Backends must make a second
// insert of the same key a no-op, even when two lanes race inside concurrent
// transactions. BadgerDB gets this from conflict detection and transaction
// replay; PostgreSQL from unique constraints and ON CONFLICT DO NOTHING.
//
// # Usage
//
//	store, err := badger.Open("/path/to/db")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	upserter, err := storage.NewUpserter(store, slog.Default())
//	result, err := upserter.UpsertArticles(ctx, articles)
//
// Use in tests with in-memory storage:
//
//	store, err := badger.NewMemoryStore()
//
// # Thread Safety
//
// All Store implementations must be safe for concurrent use by multiple
// lanes.
package storage
