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

package embedding

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore holds embedded chunks in process and answers cosine
// similarity queries. Vectors are expected unit-length, so the dot
// product is the cosine.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memEntry
}

type memEntry struct {
	vector   []float32
	text     string
	metadata map[string]string
}

// Match is one similarity hit.
type Match struct {
	ID       string
	Score    float32
	Text     string
	Metadata map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]memEntry)}
}

func (s *MemoryStore) Upsert(_ context.Context, id string, vector []float32, text string, metadata map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[id] = memEntry{vector: vector, text: text, metadata: metadata}
	return nil
}

// Search returns the topK entries most similar to query, best first.
func (s *MemoryStore) Search(_ context.Context, query []float32, topK int) ([]Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matches := make([]Match, 0, len(s.entries))
	for id, e := range s.entries {
		matches = append(matches, Match{
			ID:       id,
			Score:    dot(query, e.vector),
			Text:     e.text,
			Metadata: e.metadata,
		})
	}
	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ID < matches[j].ID
	})
	if topK > 0 && len(matches) > topK {
		matches = matches[:topK]
	}
	return matches, nil
}

// Len reports how many chunks are stored.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func dot(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float32
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}
