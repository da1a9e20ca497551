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
	"time"

	"github.com/repolens/repolens/pkg/githost"
)

// TruncationMarker is appended when ContentText hits its size cap.
// Truncation is always explicit; content is never silently dropped.
const TruncationMarker = "\n\n[... content truncated ...]"

// Config bounds one pipeline instance. Zero-value fields fall back to
// the defaults from DefaultConfig.
type Config struct {
	// Walk bounds the recursive tree fetch.
	Walk githost.WalkConfig

	// Classifier controls filtering and priority scoring.
	Classifier ClassifierConfig

	// TopFiles is how many top-ranked files get their content fetched
	// (default 30).
	TopFiles int

	// ContentBatchSize is how many file contents are fetched
	// concurrently (default 5). A backpressure bound, like the walk
	// batch size.
	ContentBatchSize int

	// MaxContentChars caps ContentText length in characters
	// (default 800000). Excess is cut at exactly this length and the
	// truncation marker appended.
	MaxContentChars int

	// MaxTotalBytes is the repository size guard: when the filtered
	// candidate files together exceed this many bytes the run fails
	// with a too_large error before any content is fetched
	// (default 3000000, roughly 750K estimated tokens).
	MaxTotalBytes int64

	// Deadline bounds one whole ingest call end to end (default 50s).
	// On expiry in-flight fetches are abandoned and no partial
	// snapshot is committed.
	Deadline time.Duration

	// ChunkSize is the maximum chunk length handed to the embedding
	// feed (default 1000 characters).
	ChunkSize int
}

// DefaultConfig returns the stock pipeline bounds.
func DefaultConfig() Config {
	return Config{
		Walk:             githost.DefaultWalkConfig(),
		Classifier:       DefaultClassifierConfig(),
		TopFiles:         30,
		ContentBatchSize: 5,
		MaxContentChars:  800_000,
		MaxTotalBytes:    3_000_000,
		Deadline:         50 * time.Second,
		ChunkSize:        DefaultChunkSize,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.TopFiles <= 0 {
		c.TopFiles = def.TopFiles
	}
	if c.ContentBatchSize <= 0 {
		c.ContentBatchSize = def.ContentBatchSize
	}
	if c.MaxContentChars <= 0 {
		c.MaxContentChars = def.MaxContentChars
	}
	if c.MaxTotalBytes <= 0 {
		c.MaxTotalBytes = def.MaxTotalBytes
	}
	if c.Deadline <= 0 {
		c.Deadline = def.Deadline
	}
	if c.ChunkSize <= 0 {
		c.ChunkSize = def.ChunkSize
	}
	return c
}
