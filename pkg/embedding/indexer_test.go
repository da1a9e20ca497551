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
	"errors"
	"io"
	"log/slog"
	"math"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/repolens/repolens/pkg/ingestion"
)

func TestMockProviderDeterministic(t *testing.T) {
	p := NewMockProvider(64)
	a, err := p.Embed(context.Background(), "some chunk of code")
	if err != nil {
		t.Fatal(err)
	}
	b, err := p.Embed(context.Background(), "some chunk of code")
	if err != nil {
		t.Fatal(err)
	}
	if len(a) != 64 {
		t.Fatalf("expected 64 dims, got %d", len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("vector not deterministic at dim %d", i)
		}
	}

	// Unit length.
	var norm float64
	for _, v := range a {
		norm += float64(v) * float64(v)
	}
	if math.Abs(math.Sqrt(norm)-1.0) > 1e-4 {
		t.Errorf("vector not normalized: |v| = %f", math.Sqrt(norm))
	}

	c, _ := p.Embed(context.Background(), "different text")
	same := true
	for i := range a {
		if a[i] != c[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("different texts produced identical vectors")
	}
}

func testSnap(files map[string]string) *ingestion.Snapshot {
	var b strings.Builder
	for path, content := range files {
		b.WriteString(ingestion.FileSectionHeader(path))
		b.WriteString(content)
		b.WriteString("\n\n")
	}
	return &ingestion.Snapshot{ContentText: b.String()}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestIndexSnapshotUpsertsEveryChunk(t *testing.T) {
	snap := testSnap(map[string]string{
		"main.go": "First sentence here. Second sentence here.",
	})
	store := NewMemoryStore()
	ix := NewIndexer(IndexerConfig{Workers: 2, ChunkSize: 30}, NewMockProvider(32), store, quietLogger())

	res, err := ix.IndexSnapshot(context.Background(), "acme/repo", snap)
	if err != nil {
		t.Fatal(err)
	}
	if res.Errors != 0 {
		t.Fatalf("unexpected errors: %d", res.Errors)
	}
	if res.Chunks != store.Len() {
		t.Fatalf("indexed %d chunks but stored %d", res.Chunks, store.Len())
	}
	if res.Chunks == 0 {
		t.Fatal("expected at least one chunk")
	}
}

func TestIndexSnapshotSearchFindsRelevantChunk(t *testing.T) {
	snap := testSnap(map[string]string{
		"auth.go": "Authentication middleware validates bearer tokens.",
		"db.go":   "Database pool configuration and connection retries.",
	})
	store := NewMemoryStore()
	provider := NewMockProvider(64)
	ix := NewIndexer(DefaultIndexerConfig(), provider, store, quietLogger())

	if _, err := ix.IndexSnapshot(context.Background(), "acme/repo", snap); err != nil {
		t.Fatal(err)
	}

	// Querying with an indexed chunk's own text must rank it first.
	query, err := provider.Embed(context.Background(), "Authentication middleware validates bearer tokens.")
	if err != nil {
		t.Fatal(err)
	}
	matches, err := store.Search(context.Background(), query, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matches))
	}
	if matches[0].Metadata["path"] != "auth.go" {
		t.Errorf("expected auth.go to rank first, got %q", matches[0].Metadata["path"])
	}
}

type failingProvider struct {
	mu    sync.Mutex
	calls int
}

func (f *failingProvider) Embed(context.Context, string) ([]float32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.calls%2 == 0 {
		return nil, errors.New("provider unavailable")
	}
	return []float32{1, 0, 0}, nil
}

func TestIndexSnapshotCountsFailuresWithoutAborting(t *testing.T) {
	snap := testSnap(map[string]string{
		"a.go": "Alpha sentence one. Alpha sentence two. Alpha sentence three. Alpha sentence four.",
	})
	store := NewMemoryStore()
	ix := NewIndexer(IndexerConfig{Workers: 1, ChunkSize: 25}, &failingProvider{}, store, quietLogger())

	res, err := ix.IndexSnapshot(context.Background(), "acme/repo", snap)
	if err != nil {
		t.Fatal(err)
	}
	if res.Errors == 0 {
		t.Error("expected some chunk failures")
	}
	if store.Len() == 0 {
		t.Error("surviving chunks should still be stored")
	}
	if res.Errors+store.Len() != res.Chunks {
		t.Errorf("errors (%d) + stored (%d) != chunks (%d)", res.Errors, store.Len(), res.Chunks)
	}
}

type recordingProvider struct {
	mu    sync.Mutex
	texts []string
}

func (r *recordingProvider) Embed(_ context.Context, text string) ([]float32, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.texts = append(r.texts, text)
	return []float32{1, 0, 0}, nil
}

func TestIndexSnapshotTruncatesOnRunes(t *testing.T) {
	snap := testSnap(map[string]string{
		"doc.md": "héllo wörld héllo wörld héllo wörld.",
	})
	provider := &recordingProvider{}
	ix := NewIndexer(IndexerConfig{Workers: 1, MaxEmbedChars: 15}, provider, NewMemoryStore(), quietLogger())

	res, err := ix.IndexSnapshot(context.Background(), "acme/repo", snap)
	if err != nil {
		t.Fatal(err)
	}
	if res.Truncated == 0 {
		t.Fatal("expected truncation")
	}
	for _, text := range provider.texts {
		if !utf8.ValidString(text) {
			t.Fatalf("provider received invalid UTF-8: %q", text)
		}
		if n := len([]rune(text)); n > 15 {
			t.Errorf("embedded text is %d runes, limit 15", n)
		}
	}
}

func TestIndexSnapshotEmptyContent(t *testing.T) {
	ix := NewIndexer(DefaultIndexerConfig(), NewMockProvider(8), NewMemoryStore(), quietLogger())
	res, err := ix.IndexSnapshot(context.Background(), "acme/empty", &ingestion.Snapshot{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Chunks != 0 {
		t.Fatalf("expected zero chunks, got %d", res.Chunks)
	}
}
