// Copyright 2025 RepoLens Contributors
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
//
// SPDX-License-Identifier: Apache-2.0

package ingestion

import "context"

// Store is the result cache the pipeline commits snapshots to. Backends
// live in pkg/cache (in-process map, filesystem directory, networked
// key-value service); the pipeline only sees this contract.
//
// Entries are replaced wholesale per key, never edited in place, and a
// returned snapshot must not be mutated by the caller. Writers for the
// same key are serialized by the pipeline's in-flight guard, so a
// backend only needs last-write-wins semantics for same-key races.
type Store interface {
	// Save atomically replaces the entry for key with snap, stamped
	// with the store's TTL.
	Save(ctx context.Context, key string, snap *Snapshot) error

	// Load returns the entry regardless of freshness, or (nil, nil)
	// when absent. Stale reads back degraded-mode fallbacks.
	Load(ctx context.Context, key string) (*Snapshot, error)

	// LoadFresh returns the entry only while it is fresh; (nil, nil)
	// when absent or expired.
	LoadFresh(ctx context.Context, key string) (*Snapshot, error)

	// IsFresh reports whether a fresh entry exists for key.
	IsFresh(ctx context.Context, key string) (bool, error)

	// Invalidate removes the entry immediately, forcing the next
	// ingest to refetch.
	Invalidate(ctx context.Context, key string) error
}
