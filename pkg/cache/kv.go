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
	"time"

	"github.com/repolens/repolens/pkg/githost"
	"github.com/repolens/repolens/pkg/ingestion"
)

var _ ingestion.Store = (*KVStore)(nil)

// KeyValue is the minimal surface a key-value backend must offer.
// Backends with native expiry (Redis, memcached) drop entries at TTL
// themselves; Get on a missing or expired key returns (nil, nil).
type KeyValue interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// KVStore adapts a KeyValue backend into a snapshot store. Because the
// backend expires entries natively, a stale entry is indistinguishable
// from an absent one: Load and LoadFresh behave identically.
type KVStore struct {
	kv     KeyValue
	ttl    time.Duration
	prefix string
}

// NewKVStore wraps kv. ttl <= 0 selects DefaultTTL. Keys are stored
// under a "repolens:" prefix so the backend can be shared.
func NewKVStore(kv KeyValue, ttl time.Duration) *KVStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &KVStore{kv: kv, ttl: ttl, prefix: "repolens:"}
}

func (s *KVStore) Save(ctx context.Context, key string, snap *ingestion.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return githost.NewCacheUnavailable(fmt.Errorf("marshal snapshot: %w", err))
	}
	if err := s.kv.SetWithTTL(ctx, s.prefix+key, data, s.ttl); err != nil {
		return githost.NewCacheUnavailable(err)
	}
	return nil
}

func (s *KVStore) Load(ctx context.Context, key string) (*ingestion.Snapshot, error) {
	data, err := s.kv.Get(ctx, s.prefix+key)
	if err != nil {
		return nil, githost.NewCacheUnavailable(err)
	}
	if data == nil {
		return nil, nil
	}
	var snap ingestion.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, nil
	}
	return &snap, nil
}

func (s *KVStore) LoadFresh(ctx context.Context, key string) (*ingestion.Snapshot, error) {
	return s.Load(ctx, key)
}

func (s *KVStore) IsFresh(ctx context.Context, key string) (bool, error) {
	data, err := s.kv.Get(ctx, s.prefix+key)
	if err != nil {
		return false, githost.NewCacheUnavailable(err)
	}
	return data != nil, nil
}

func (s *KVStore) Invalidate(ctx context.Context, key string) error {
	if err := s.kv.Delete(ctx, s.prefix+key); err != nil {
		return githost.NewCacheUnavailable(err)
	}
	return nil
}
