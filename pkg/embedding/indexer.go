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
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/repolens/repolens/pkg/ingestion"
)

// Store receives embedded chunks. Implementations decide persistence;
// the indexer only guarantees each chunk is upserted once per run.
type Store interface {
	Upsert(ctx context.Context, id string, vector []float32, text string, metadata map[string]string) error
}

// IndexerConfig bounds one indexing run.
type IndexerConfig struct {
	Workers   int
	ChunkSize int
	// MaxEmbedChars truncates a chunk before embedding; embedding
	// models tokenize code poorly, so this stays conservative.
	MaxEmbedChars int
}

func DefaultIndexerConfig() IndexerConfig {
	return IndexerConfig{
		Workers:       4,
		ChunkSize:     ingestion.DefaultChunkSize,
		MaxEmbedChars: 2000,
	}
}

func (c IndexerConfig) withDefaults() IndexerConfig {
	def := DefaultIndexerConfig()
	if c.Workers <= 0 {
		c.Workers = def.Workers
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = def.ChunkSize
	}
	if c.MaxEmbedChars <= 0 {
		c.MaxEmbedChars = def.MaxEmbedChars
	}
	return c
}

// Indexer chunks snapshot content, embeds each chunk, and upserts the
// vectors into a store.
type Indexer struct {
	config   IndexerConfig
	provider Provider
	store    Store
	logger   *slog.Logger
}

func NewIndexer(config IndexerConfig, provider Provider, store Store, logger *slog.Logger) *Indexer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Indexer{
		config:   config.withDefaults(),
		provider: provider,
		store:    store,
		logger:   logger,
	}
}

// IndexResult summarizes one indexing run.
type IndexResult struct {
	Chunks    int
	Errors    int
	Truncated int
}

// IndexSnapshot embeds every content chunk of snap under the given
// repository key. Per-chunk failures are counted, never fatal; only
// context cancellation aborts the run.
func (ix *Indexer) IndexSnapshot(ctx context.Context, repoKey string, snap *ingestion.Snapshot) (*IndexResult, error) {
	var chunks []ingestion.ContentChunk
	for _, section := range ingestion.SplitSections(snap.ContentText) {
		chunks = append(chunks, ingestion.ChunkFile(section.Path, section.Content, ix.config.ChunkSize)...)
	}
	if len(chunks) == 0 {
		return &IndexResult{}, nil
	}

	var errorCount, truncatedCount atomic.Int64

	jobs := make(chan int, len(chunks))
	var wg sync.WaitGroup
	for w := 0; w < ix.config.Workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if ctx.Err() != nil {
					return
				}
				if truncated := ix.indexChunk(ctx, repoKey, chunks[i], &errorCount); truncated {
					truncatedCount.Add(1)
				}
			}
		}()
	}
	for i := range chunks {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := &IndexResult{
		Chunks:    len(chunks),
		Errors:    int(errorCount.Load()),
		Truncated: int(truncatedCount.Load()),
	}
	if result.Errors > 0 || result.Truncated > 0 {
		ix.logger.Info("embedding.index.summary",
			"repo", repoKey,
			"chunks", result.Chunks,
			"errors", result.Errors,
			"truncated", result.Truncated,
			"workers", ix.config.Workers,
		)
	}
	return result, nil
}

func (ix *Indexer) indexChunk(ctx context.Context, repoKey string, chunk ingestion.ContentChunk, errorCount *atomic.Int64) bool {
	text := chunk.Text
	truncated := false
	// Cut on runes so a multi-byte character is never split into
	// invalid UTF-8 for the provider.
	if runes := []rune(text); len(runes) > ix.config.MaxEmbedChars {
		text = string(runes[:ix.config.MaxEmbedChars])
		truncated = true
	}

	vec, err := ix.provider.Embed(ctx, text)
	if err != nil {
		errorCount.Add(1)
		ix.logger.Warn("embedding.chunk.failed",
			"repo", repoKey, "path", chunk.SourceFilePath, "index", chunk.Index, "err", err)
		return truncated
	}

	id := fmt.Sprintf("%s:%s:%d", repoKey, chunk.SourceFilePath, chunk.Index)
	metadata := map[string]string{
		"repo":  repoKey,
		"path":  chunk.SourceFilePath,
		"chunk": fmt.Sprintf("%d/%d", chunk.Index+1, chunk.TotalChunks),
	}
	if err := ix.store.Upsert(ctx, id, vec, chunk.Text, metadata); err != nil {
		errorCount.Add(1)
		ix.logger.Warn("embedding.upsert.failed",
			"repo", repoKey, "path", chunk.SourceFilePath, "index", chunk.Index, "err", err)
	}
	return truncated
}
