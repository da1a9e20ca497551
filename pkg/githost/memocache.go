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

package githost

import (
	"sync"
	"time"
)

// memoCache is a short-TTL in-memory cache for successful remote reads,
// keyed by "owner/repo/path". It absorbs repeated requests for the same
// subtree within one ingestion run and is much shorter-lived than the
// result cache: entries expire after ttl and are swept lazily on access.
type memoCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]memoEntry
}

type memoEntry struct {
	value     any
	expiresAt time.Time
}

func newMemoCache(ttl time.Duration, now func() time.Time) *memoCache {
	if now == nil {
		now = time.Now
	}
	return &memoCache{
		ttl:     ttl,
		now:     now,
		entries: make(map[string]memoEntry),
	}
}

// get returns a cached value if one exists and is still fresh.
func (c *memoCache) get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().After(e.expiresAt) {
		delete(c.entries, key)
		return nil, false
	}
	return e.value, true
}

// set stores a value for the cache TTL. Failed reads are never stored.
func (c *memoCache) set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = memoEntry{value: value, expiresAt: c.now().Add(c.ttl)}
}

// purge drops every entry. Used on auth refresh so a new token does not
// serve results fetched with the old one.
func (c *memoCache) purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]memoEntry)
}

// size returns the live entry count, sweeping expired entries first.
func (c *memoCache) size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	for k, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, k)
		}
	}
	return len(c.entries)
}
