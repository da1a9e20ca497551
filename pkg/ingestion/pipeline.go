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
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/repolens/repolens/pkg/githost"
)

// Host is the remote source the pipeline reads from. *githost.Client
// satisfies it; tests inject fakes.
type Host interface {
	FetchTree(ctx context.Context, owner, repo string, cfg githost.WalkConfig) (*githost.TreeNode, error)
	GetFileContent(ctx context.Context, owner, repo, path string) (string, error)
}

// Pipeline orchestrates ingestion: cache fast path, in-flight
// deduplication, tree fetch, classification, bounded content fetch,
// snapshot build, cache commit.
//
// The cache is injected, never reached through an ambient global, so a
// pipeline is testable in isolation and a deployment decides the
// store's lifetime.
type Pipeline struct {
	config   Config
	host     Host
	store    Store
	logger   *slog.Logger
	inflight *inflightGuard
	now      func() time.Time
}

// NewPipeline creates a pipeline over the given host and result cache.
// store may be nil, in which case every call does the full fetch work.
func NewPipeline(config Config, host Host, store Store, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		config:   config.withDefaults(),
		host:     host,
		store:    store,
		logger:   logger,
		inflight: newInflightGuard(),
		now:      time.Now,
	}
}

// Ingest returns a snapshot for id, from cache when fresh, otherwise by
// running the full pipeline. With forceRefresh the cache check is
// skipped and the committed snapshot supersedes any existing entry.
//
// Concurrent calls for the same id share one run: the first caller does
// the work, the rest await its outcome. Every caller gets the same
// snapshot or the same error.
func (p *Pipeline) Ingest(ctx context.Context, id RepoID, forceRefresh bool) (*Result, error) {
	key := id.Key()

	// Fast path: a fresh cache entry answers without touching the
	// network or the guard.
	if !forceRefresh && p.store != nil {
		snap, err := p.store.LoadFresh(ctx, key)
		if err != nil {
			p.logger.Warn("ingest.cache.unavailable", "repo", key, "err", err)
			recordCacheDegraded()
		} else if snap != nil {
			recordCacheHit()
			p.logger.Info("ingest.cache.hit", "repo", key, "created_at", snap.CreatedAt)
			return &Result{Snapshot: snap, FromCache: true}, nil
		}
	}
	recordCacheMiss()

	run, leader := p.inflight.join(key)
	if !leader {
		recordDedupedWait()
		p.logger.Info("ingest.deduped", "repo", key)
		select {
		case <-run.done:
			return run.result, run.err
		case <-ctx.Done():
			return nil, githost.NewTimeout(key, ctx.Err())
		}
	}

	result, err := p.run(ctx, id, forceRefresh)
	p.inflight.finish(key, run, result, err)
	return result, err
}

// run executes one full ingestion for id. Only ever called by the
// in-flight leader for id's key.
func (p *Pipeline) run(parent context.Context, id RepoID, forceRefresh bool) (*Result, error) {
	start := p.now()
	key := id.Key()
	recordRun()

	ctx, cancel := context.WithTimeout(parent, p.config.Deadline)
	defer cancel()

	p.logger.Info("ingest.run.start", "repo", key, "force", forceRefresh)

	// A second chance for callers that piled up behind a finished run:
	// the leader before us may have committed a snapshot already.
	if !forceRefresh && p.store != nil {
		if snap, err := p.store.LoadFresh(ctx, key); err == nil && snap != nil {
			return &Result{Snapshot: snap, FromCache: true}, nil
		}
	}

	p.logger.Info("ingest.stage", "repo", key, "stage", "fetching")
	treeStart := p.now()
	hostTree, err := p.host.FetchTree(ctx, id.Owner, id.Name, p.config.Walk)
	observeTree(p.now().Sub(treeStart).Seconds())
	if err != nil {
		recordRunFailure()
		p.logger.Warn("ingest.run.failed", "repo", key, "stage", "fetching", "kind", string(githost.KindOf(err)), "err", err)
		return nil, err
	}

	p.logger.Info("ingest.stage", "repo", key, "stage", "classifying")
	root := FromHostTree(hostTree)
	root.Name = id.Name
	filtered := Filter(root, p.config.Classifier)
	ranked := Classify(root, p.config.Classifier)

	if err := p.checkSize(id, ranked); err != nil {
		recordRunFailure()
		return nil, err
	}

	selected := ranked
	if len(selected) > p.config.TopFiles {
		selected = selected[:p.config.TopFiles]
	}
	p.logger.Info("ingest.classify.complete",
		"repo", key,
		"candidates", len(ranked),
		"selected", len(selected),
	)

	contentStart := p.now()
	contents, fileErrors := p.fetchContents(ctx, id, selected)
	observeContent(p.now().Sub(contentStart).Seconds())

	if len(selected) > 0 && len(fileErrors) == len(selected) {
		recordRunFailure()
		err := p.aggregateFailure(fileErrors)
		p.logger.Warn("ingest.run.failed", "repo", key, "stage", "content", "err", err)
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		recordRunFailure()
		return nil, githost.NewTimeout(key, err)
	}

	p.logger.Info("ingest.stage", "repo", key, "stage", "chunking")
	contentText, truncated := p.foldContent(selected, contents)
	if truncated {
		recordTruncation()
		p.logger.Info("ingest.content.truncated", "repo", key, "max_chars", p.config.MaxContentChars)
	}

	records := make([]FileRecord, 0, len(selected))
	for _, f := range selected {
		records = append(records, FileRecord{Path: f.Path, Kind: "file", Score: f.Score})
	}

	snap := &Snapshot{
		Summary:     buildSummary(id, len(records), contentText),
		TreeText:    RenderTree(filtered),
		ContentText: contentText,
		FileRecords: records,
		CreatedAt:   p.now(),
	}

	p.logger.Info("ingest.stage", "repo", key, "stage", "caching")
	if p.store != nil {
		if err := p.store.Save(ctx, key, snap); err != nil {
			// Degraded mode: the snapshot is still good, it just will
			// not outlive this call.
			recordCacheDegraded()
			p.logger.Warn("ingest.cache.unavailable", "repo", key, "op", "save", "err", err)
		}
	}

	total := p.now().Sub(start)
	observeTotal(total.Seconds())
	p.logger.Info("ingest.run.complete",
		"repo", key,
		"files", len(records),
		"file_errors", len(fileErrors),
		"content_chars", len(contentText),
		"truncated", truncated,
		"duration_ms", total.Milliseconds(),
	)

	return &Result{
		Snapshot:   snap,
		FileErrors: fileErrors,
		Duration:   total,
	}, nil
}

// checkSize enforces the repository size guard over the filtered
// candidate set, before any content is fetched.
func (p *Pipeline) checkSize(id RepoID, ranked []*FileNode) error {
	var total int64
	for _, f := range ranked {
		total += f.Size
	}
	if total > p.config.MaxTotalBytes {
		err := githost.NewTooLarge(id.Key(),
			fmt.Errorf("candidate files total %d bytes, limit %d", total, p.config.MaxTotalBytes))
		p.logger.Warn("ingest.run.failed", "repo", id.Key(), "stage", "classifying", "kind", "too_large", "total_bytes", total)
		return err
	}
	return nil
}

// fileContent is one fetch outcome. The ok flag distinguishes a
// successfully fetched empty file from a failed fetch.
type fileContent struct {
	text string
	ok   bool
}

// fetchContents pulls file contents for the selected files with a
// bounded worker pool. Results come back indexed by selection position
// so the fold preserves priority order no matter the completion order.
// Individual failures are recorded and skipped, never fatal here.
func (p *Pipeline) fetchContents(ctx context.Context, id RepoID, selected []*FileNode) ([]fileContent, []FileError) {
	contents := make([]fileContent, len(selected))
	errsByIndex := make([]*FileError, len(selected))

	jobs := make(chan int, len(selected))
	var wg sync.WaitGroup
	for w := 0; w < p.config.ContentBatchSize; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if ctx.Err() != nil {
					return
				}
				f := selected[i]
				text, err := p.host.GetFileContent(ctx, id.Owner, id.Name, f.Path)
				if err != nil {
					recordFileError()
					p.logger.Warn("ingest.file.error", "repo", id.Key(), "path", f.Path, "kind", string(githost.KindOf(err)), "err", err)
					errsByIndex[i] = &FileError{Path: f.Path, Kind: githost.KindOf(err), Message: err.Error()}
					continue
				}
				contents[i] = fileContent{text: text, ok: true}
			}
		}()
	}
	for i := range selected {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	var fileErrors []FileError
	for _, fe := range errsByIndex {
		if fe != nil {
			fileErrors = append(fileErrors, *fe)
		}
	}
	return contents, fileErrors
}

// foldContent concatenates fetched contents in priority order, each
// prefixed with its path header, and enforces the character cap. When
// the cap is hit the text is cut at exactly MaxContentChars characters
// and the truncation marker appended once.
func (p *Pipeline) foldContent(selected []*FileNode, contents []fileContent) (string, bool) {
	var b strings.Builder
	for i, f := range selected {
		// Only failed fetches are skipped; an empty file still gets
		// its section header.
		if !contents[i].ok {
			continue
		}
		b.WriteString(FileSectionHeader(f.Path))
		b.WriteString(contents[i].text)
		b.WriteString("\n\n")
	}

	text := b.String()
	runes := []rune(text)
	if len(runes) <= p.config.MaxContentChars {
		return text, false
	}
	return string(runes[:p.config.MaxContentChars]) + TruncationMarker, true
}

// aggregateFailure collapses an all-files-failed run into one error.
// When every failure shares a kind, that kind propagates (so e.g. a
// fully rate-limited run surfaces as rate_limited); mixed failures
// surface as transient.
func (p *Pipeline) aggregateFailure(fileErrors []FileError) error {
	kind := fileErrors[0].Kind
	for _, fe := range fileErrors[1:] {
		if fe.Kind != kind {
			kind = githost.KindTransient
			break
		}
	}
	return &githost.Error{
		Kind: kind,
		Err:  fmt.Errorf("all %d selected files failed to fetch", len(fileErrors)),
	}
}

// Cached returns whatever snapshot the store holds for id, fresh or
// stale, without triggering a fetch. (nil, nil) when absent.
func (p *Pipeline) Cached(ctx context.Context, id RepoID) (*Snapshot, error) {
	if p.store == nil {
		return nil, nil
	}
	return p.store.Load(ctx, id.Key())
}

// Invalidate drops the cache entry for id, forcing the next Ingest to
// refetch.
func (p *Pipeline) Invalidate(ctx context.Context, id RepoID) error {
	if p.store == nil {
		return nil
	}
	return p.store.Invalidate(ctx, id.Key())
}
