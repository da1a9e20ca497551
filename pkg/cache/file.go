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

package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/repolens/repolens/pkg/githost"
	"github.com/repolens/repolens/pkg/ingestion"
)

var _ ingestion.Store = (*FileStore)(nil)

// fileEntry is the on-disk envelope: the snapshot plus its expiry, so
// freshness survives process restarts.
type fileEntry struct {
	Key       string              `json:"key"`
	Snapshot  *ingestion.Snapshot `json:"snapshot"`
	ExpiresAt time.Time           `json:"expires_at"`
}

// EntryInfo describes one cached snapshot for listing commands.
type EntryInfo struct {
	Key       string    `json:"key"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Fresh     bool      `json:"fresh"`
	SizeBytes int64     `json:"size_bytes"`
}

// FileStore persists snapshots as one JSON file per repository, named
// owner_name.json under dir. Writes go through a temp file and rename
// so a crash never leaves a half-written entry.
type FileStore struct {
	dir string
	ttl time.Duration
	now func() time.Time
}

// NewFileStore creates a file store rooted at dir, creating it if
// needed. ttl <= 0 selects DefaultTTL.
func NewFileStore(dir string, ttl time.Duration) (*FileStore, error) {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, githost.NewCacheUnavailable(fmt.Errorf("create cache dir: %w", err))
	}
	return &FileStore{dir: dir, ttl: ttl, now: time.Now}, nil
}

func (s *FileStore) Save(_ context.Context, key string, snap *ingestion.Snapshot) error {
	entry := fileEntry{
		Key:       key,
		Snapshot:  snap,
		ExpiresAt: s.now().Add(s.ttl),
	}
	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return githost.NewCacheUnavailable(fmt.Errorf("marshal cache entry: %w", err))
	}

	path := s.entryPath(key)
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return githost.NewCacheUnavailable(fmt.Errorf("write cache temp: %w", err))
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return githost.NewCacheUnavailable(fmt.Errorf("rename cache entry: %w", err))
	}
	return nil
}

func (s *FileStore) Load(_ context.Context, key string) (*ingestion.Snapshot, error) {
	entry, err := s.read(key)
	if err != nil || entry == nil {
		return nil, err
	}
	return entry.Snapshot, nil
}

func (s *FileStore) LoadFresh(_ context.Context, key string) (*ingestion.Snapshot, error) {
	entry, err := s.read(key)
	if err != nil || entry == nil {
		return nil, err
	}
	if !s.now().Before(entry.ExpiresAt) {
		return nil, nil
	}
	return entry.Snapshot, nil
}

func (s *FileStore) IsFresh(_ context.Context, key string) (bool, error) {
	entry, err := s.read(key)
	if err != nil || entry == nil {
		return false, err
	}
	return s.now().Before(entry.ExpiresAt), nil
}

func (s *FileStore) Invalidate(_ context.Context, key string) error {
	if err := os.Remove(s.entryPath(key)); err != nil && !os.IsNotExist(err) {
		return githost.NewCacheUnavailable(fmt.Errorf("remove cache entry: %w", err))
	}
	return nil
}

// Purge removes every entry file and reports how many were removed.
func (s *FileStore) Purge(_ context.Context) (int, error) {
	paths, err := filepath.Glob(filepath.Join(s.dir, "*.json"))
	if err != nil {
		return 0, githost.NewCacheUnavailable(err)
	}
	removed := 0
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return removed, githost.NewCacheUnavailable(fmt.Errorf("remove %s: %w", p, err))
		}
		removed++
	}
	return removed, nil
}

// List enumerates cached entries sorted by key. Unreadable files are
// skipped rather than failing the listing.
func (s *FileStore) List(_ context.Context) ([]EntryInfo, error) {
	paths, err := filepath.Glob(filepath.Join(s.dir, "*.json"))
	if err != nil {
		return nil, githost.NewCacheUnavailable(err)
	}
	infos := make([]EntryInfo, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		var entry fileEntry
		if err := json.Unmarshal(data, &entry); err != nil || entry.Snapshot == nil {
			continue
		}
		infos = append(infos, EntryInfo{
			Key:       entry.Key,
			CreatedAt: entry.Snapshot.CreatedAt,
			ExpiresAt: entry.ExpiresAt,
			Fresh:     s.now().Before(entry.ExpiresAt),
			SizeBytes: int64(len(data)),
		})
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Key < infos[j].Key })
	return infos, nil
}

func (s *FileStore) read(key string) (*fileEntry, error) {
	data, err := os.ReadFile(s.entryPath(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, githost.NewCacheUnavailable(fmt.Errorf("read cache entry: %w", err))
	}
	var entry fileEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		// A corrupt entry is treated as absent; the next save replaces it.
		return nil, nil
	}
	return &entry, nil
}

func (s *FileStore) entryPath(key string) string {
	return filepath.Join(s.dir, sanitizeKey(key)+".json")
}

// sanitizeKey maps a cache key to a safe flat filename: owner/name
// becomes owner_name.
func sanitizeKey(key string) string {
	var b strings.Builder
	for _, r := range key {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '-', r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
