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
	"fmt"
	"strings"
	"time"

	"github.com/repolens/repolens/pkg/githost"
)

// RepoID identifies a repository. It is the cache key everywhere;
// Key() normalizes owner and name to lowercase so "Acme/Widgets" and
// "acme/widgets" share one cache entry.
type RepoID struct {
	Owner string `json:"owner"`
	Name  string `json:"name"`
}

// NewRepoID builds a RepoID from owner and repository name.
func NewRepoID(owner, name string) RepoID {
	return RepoID{Owner: owner, Name: name}
}

// Key returns the normalized cache key for this repository.
func (id RepoID) Key() string {
	return strings.ToLower(id.Owner) + "/" + strings.ToLower(id.Name)
}

// String returns owner/name as typed by the caller.
func (id RepoID) String() string {
	return id.Owner + "/" + id.Name
}

// FileRecord is the per-file entry stored in a snapshot, in priority
// order.
type FileRecord struct {
	Path  string `json:"path"`
	Kind  string `json:"kind"`
	Score int    `json:"priority_score"`
}

// Snapshot is the unit of caching: a bounded textual representation of
// a repository. Immutable once stored; a refresh produces a new
// snapshot that supersedes this one rather than mutating it.
type Snapshot struct {
	// Summary is a short human-readable header: repository name, file
	// count and an estimated token size.
	Summary string `json:"summary"`

	// TreeText is the rendered filtered tree.
	TreeText string `json:"tree_text"`

	// ContentText concatenates the prioritized file contents, each
	// prefixed with its path. Its length never exceeds the configured
	// maximum plus the truncation marker.
	ContentText string `json:"content_text"`

	// FileRecords lists the selected files in priority order.
	FileRecords []FileRecord `json:"file_records"`

	// CreatedAt is when the snapshot was built.
	CreatedAt time.Time `json:"created_at"`
}

// FileError records an isolated failure on one file during ingestion.
// These never abort the run.
type FileError struct {
	Path    string            `json:"path"`
	Kind    githost.ErrorKind `json:"kind"`
	Message string            `json:"message"`
}

func (e FileError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Path, e.Kind, e.Message)
}

// Result is what an Ingest call hands back: the snapshot, whether it
// came from cache, and any per-file failures from this run.
type Result struct {
	Snapshot   *Snapshot     `json:"snapshot"`
	FromCache  bool          `json:"from_cache"`
	FileErrors []FileError   `json:"file_errors,omitempty"`
	Duration   time.Duration `json:"duration"`
}

// estimateTokens approximates the LLM token count of text. The 4:1
// character heuristic matches what the upstream size guard expects.
func estimateTokens(text string) int {
	return len(text) / 4
}

// formatTokens renders a token count the way the summary displays it,
// e.g. "1.2K" or "3.4M".
func formatTokens(n int) string {
	switch {
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	case n >= 1_000:
		return fmt.Sprintf("%.1fK", float64(n)/1_000)
	default:
		return fmt.Sprintf("%d", n)
	}
}

// buildSummary renders the snapshot header.
func buildSummary(id RepoID, fileCount int, contentText string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Repository: %s\n", id.String())
	fmt.Fprintf(&b, "Files analyzed: %d\n", fileCount)
	fmt.Fprintf(&b, "Estimated tokens: %s\n", formatTokens(estimateTokens(contentText)))
	return b.String()
}
