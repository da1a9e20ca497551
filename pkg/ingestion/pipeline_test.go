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

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repolens/repolens/pkg/githost"
)

type fakeHost struct {
	tree       *githost.TreeNode
	contents   map[string]string
	fileErrs   map[string]error
	treeErr    error
	treeDelay  time.Duration
	treeCalls  atomic.Int64
	fetchCalls atomic.Int64
}

func (h *fakeHost) FetchTree(ctx context.Context, owner, repo string, cfg githost.WalkConfig) (*githost.TreeNode, error) {
	h.treeCalls.Add(1)
	if h.treeDelay > 0 {
		select {
		case <-time.After(h.treeDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if h.treeErr != nil {
		return nil, h.treeErr
	}
	return h.tree, nil
}

func (h *fakeHost) GetFileContent(ctx context.Context, owner, repo, path string) (string, error) {
	h.fetchCalls.Add(1)
	if err, ok := h.fileErrs[path]; ok {
		return "", err
	}
	return h.contents[path], nil
}

type fakeStore struct {
	mu     sync.Mutex
	snaps  map[string]*Snapshot
	fresh  map[string]bool
	failed bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{snaps: map[string]*Snapshot{}, fresh: map[string]bool{}}
}

func (s *fakeStore) Save(ctx context.Context, key string, snap *Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failed {
		return githost.NewCacheUnavailable(nil)
	}
	s.snaps[key] = snap
	s.fresh[key] = true
	return nil
}

func (s *fakeStore) Load(ctx context.Context, key string) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snaps[key], nil
}

func (s *fakeStore) LoadFresh(ctx context.Context, key string) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failed {
		return nil, githost.NewCacheUnavailable(nil)
	}
	if !s.fresh[key] {
		return nil, nil
	}
	return s.snaps[key], nil
}

func (s *fakeStore) IsFresh(ctx context.Context, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fresh[key], nil
}

func (s *fakeStore) Invalidate(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.snaps, key)
	delete(s.fresh, key)
	return nil
}

func hostFile(name, path string, size int64) *githost.TreeNode {
	return &githost.TreeNode{Entry: githost.Entry{Name: name, Path: path, Type: githost.EntryFile, Size: size}}
}

func smallRepoHost() *fakeHost {
	return &fakeHost{
		tree: &githost.TreeNode{
			Entry: githost.Entry{Name: "repo", Type: githost.EntryDir},
			Children: []*githost.TreeNode{
				hostFile("main.go", "main.go", 20),
				hostFile("util.go", "util.go", 20),
			},
		},
		contents: map[string]string{
			"main.go": "package main",
			"util.go": "package main // util",
		},
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestIngestProducesSnapshot(t *testing.T) {
	host := smallRepoHost()
	store := newFakeStore()
	p := NewPipeline(DefaultConfig(), host, store, testLogger())

	res, err := p.Ingest(context.Background(), RepoID{Owner: "acme", Name: "repo"}, false)
	require.NoError(t, err)
	require.NotNil(t, res.Snapshot)
	assert.False(t, res.FromCache)
	assert.Empty(t, res.FileErrors)

	// Content sections appear in priority order: main.go outranks util.go.
	mainIdx := strings.Index(res.Snapshot.ContentText, "File: main.go")
	utilIdx := strings.Index(res.Snapshot.ContentText, "File: util.go")
	require.GreaterOrEqual(t, mainIdx, 0)
	require.GreaterOrEqual(t, utilIdx, 0)
	assert.Less(t, mainIdx, utilIdx)

	assert.Contains(t, res.Snapshot.Summary, "Repository: acme/repo")
	assert.Contains(t, res.Snapshot.Summary, "Files analyzed: 2")
	assert.Len(t, res.Snapshot.FileRecords, 2)

	// The run must have been committed to the cache.
	saved, err := store.LoadFresh(context.Background(), "acme/repo")
	require.NoError(t, err)
	require.NotNil(t, saved)
}

func TestIngestCacheHitSkipsHost(t *testing.T) {
	host := smallRepoHost()
	store := newFakeStore()
	p := NewPipeline(DefaultConfig(), host, store, testLogger())

	id := RepoID{Owner: "acme", Name: "repo"}
	_, err := p.Ingest(context.Background(), id, false)
	require.NoError(t, err)
	require.EqualValues(t, 1, host.treeCalls.Load())

	res, err := p.Ingest(context.Background(), id, false)
	require.NoError(t, err)
	assert.True(t, res.FromCache)
	assert.EqualValues(t, 1, host.treeCalls.Load(), "cache hit must not touch the host")
}

func TestIngestForceRefreshBypassesCache(t *testing.T) {
	host := smallRepoHost()
	store := newFakeStore()
	p := NewPipeline(DefaultConfig(), host, store, testLogger())

	id := RepoID{Owner: "acme", Name: "repo"}
	_, err := p.Ingest(context.Background(), id, false)
	require.NoError(t, err)

	res, err := p.Ingest(context.Background(), id, true)
	require.NoError(t, err)
	assert.False(t, res.FromCache)
	assert.EqualValues(t, 2, host.treeCalls.Load())
}

func TestIngestToleratesPartialFileFailures(t *testing.T) {
	host := smallRepoHost()
	host.fileErrs = map[string]error{
		"util.go": githost.NewTransient("util.go", io.ErrUnexpectedEOF),
	}
	p := NewPipeline(DefaultConfig(), host, newFakeStore(), testLogger())

	res, err := p.Ingest(context.Background(), RepoID{Owner: "acme", Name: "repo"}, false)
	require.NoError(t, err)
	require.Len(t, res.FileErrors, 1)
	assert.Equal(t, "util.go", res.FileErrors[0].Path)
	assert.Equal(t, githost.KindTransient, res.FileErrors[0].Kind)
	assert.Contains(t, res.Snapshot.ContentText, "File: main.go")
	assert.NotContains(t, res.Snapshot.ContentText, "File: util.go")
}

func TestIngestEmptyFileKeepsSection(t *testing.T) {
	host := smallRepoHost()
	host.tree.Children = append(host.tree.Children, hostFile("empty.go", "empty.go", 0))
	host.contents["empty.go"] = ""
	host.fileErrs = map[string]error{
		"util.go": githost.NewTransient("util.go", io.ErrUnexpectedEOF),
	}
	p := NewPipeline(DefaultConfig(), host, newFakeStore(), testLogger())

	res, err := p.Ingest(context.Background(), RepoID{Owner: "acme", Name: "repo"}, false)
	require.NoError(t, err)

	// An empty file fetched successfully keeps its section header; only
	// the failed fetch is skipped.
	assert.Contains(t, res.Snapshot.ContentText, FileSectionHeader("empty.go"))
	assert.NotContains(t, res.Snapshot.ContentText, "File: util.go")
}

func TestIngestAllFilesFailedIsFatal(t *testing.T) {
	host := smallRepoHost()
	reset := time.Now().Add(time.Hour)
	host.fileErrs = map[string]error{
		"main.go": githost.NewRateLimited("main.go", reset),
		"util.go": githost.NewRateLimited("util.go", reset),
	}
	p := NewPipeline(DefaultConfig(), host, newFakeStore(), testLogger())

	_, err := p.Ingest(context.Background(), RepoID{Owner: "acme", Name: "repo"}, false)
	require.Error(t, err)
	// A uniformly rate-limited run surfaces as rate limited.
	assert.Equal(t, githost.KindRateLimited, githost.KindOf(err))
}

func TestIngestTooLargeRepoRejected(t *testing.T) {
	host := smallRepoHost()
	cfg := DefaultConfig()
	cfg.MaxTotalBytes = 10 // both candidate files total 40 bytes
	p := NewPipeline(cfg, host, newFakeStore(), testLogger())

	_, err := p.Ingest(context.Background(), RepoID{Owner: "acme", Name: "repo"}, false)
	require.Error(t, err)
	assert.Equal(t, githost.KindTooLarge, githost.KindOf(err))
	assert.EqualValues(t, 0, host.fetchCalls.Load(), "size guard must run before content fetch")
}

func TestIngestTruncatesAtCap(t *testing.T) {
	host := smallRepoHost()
	host.contents["main.go"] = strings.Repeat("a", 400)
	host.contents["util.go"] = strings.Repeat("b", 400)
	cfg := DefaultConfig()
	cfg.MaxContentChars = 300
	p := NewPipeline(cfg, host, newFakeStore(), testLogger())

	res, err := p.Ingest(context.Background(), RepoID{Owner: "acme", Name: "repo"}, false)
	require.NoError(t, err)

	text := res.Snapshot.ContentText
	require.True(t, strings.HasSuffix(text, TruncationMarker))
	assert.Equal(t, 1, strings.Count(text, TruncationMarker))
	assert.Equal(t, cfg.MaxContentChars+len(TruncationMarker), len([]rune(text)))
}

func TestIngestDeduplicatesConcurrentCalls(t *testing.T) {
	host := smallRepoHost()
	host.treeDelay = 100 * time.Millisecond
	p := NewPipeline(DefaultConfig(), host, newFakeStore(), testLogger())

	id := RepoID{Owner: "acme", Name: "repo"}
	const callers = 8
	results := make([]*Result, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = p.Ingest(context.Background(), id, false)
		}(i)
	}
	wg.Wait()

	assert.EqualValues(t, 1, host.treeCalls.Load(), "concurrent callers must share one run")
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		require.NotNil(t, results[i].Snapshot)
		assert.Equal(t, results[0].Snapshot.ContentText, results[i].Snapshot.ContentText)
	}
}

func TestIngestSurvivesBrokenCache(t *testing.T) {
	host := smallRepoHost()
	store := newFakeStore()
	store.failed = true
	p := NewPipeline(DefaultConfig(), host, store, testLogger())

	res, err := p.Ingest(context.Background(), RepoID{Owner: "acme", Name: "repo"}, false)
	require.NoError(t, err)
	require.NotNil(t, res.Snapshot)
	assert.False(t, res.FromCache)
}

func TestIngestTreeFailurePropagates(t *testing.T) {
	host := smallRepoHost()
	host.treeErr = githost.NewNotFound("acme/missing")
	p := NewPipeline(DefaultConfig(), host, newFakeStore(), testLogger())

	_, err := p.Ingest(context.Background(), RepoID{Owner: "acme", Name: "missing"}, false)
	require.Error(t, err)
	assert.Equal(t, githost.KindNotFound, githost.KindOf(err))
}

func TestInvalidateForcesRefetch(t *testing.T) {
	host := smallRepoHost()
	store := newFakeStore()
	p := NewPipeline(DefaultConfig(), host, store, testLogger())

	id := RepoID{Owner: "acme", Name: "repo"}
	_, err := p.Ingest(context.Background(), id, false)
	require.NoError(t, err)
	require.NoError(t, p.Invalidate(context.Background(), id))

	res, err := p.Ingest(context.Background(), id, false)
	require.NoError(t, err)
	assert.False(t, res.FromCache)
	assert.EqualValues(t, 2, host.treeCalls.Load())
}
