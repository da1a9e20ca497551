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

// Package assemble turns a cached snapshot into a bounded context
// document: summary and tree first, then whole files in priority
// order until the character budget runs out. Assembly is pure; it
// never refetches anything.
package assemble

import (
	"path"
	"strings"

	"github.com/repolens/repolens/pkg/ingestion"
)

// Options bound the assembled context.
type Options struct {
	// MaxChars is the hard size limit for the whole document.
	MaxChars int
	// MaxFiles caps how many file sections are considered. 0 means no cap.
	MaxFiles int
	// Query pulls matching files forward. Files whose path or content
	// contains a query term (case-insensitive) come right after the
	// overview files, still in priority order. Empty means no reordering.
	Query string
}

// DefaultOptions returns the stock assembly bounds.
func DefaultOptions() Options {
	return Options{MaxChars: 200_000, MaxFiles: 0}
}

// Context is an assembled context document.
type Context struct {
	Text          string
	IncludedFiles []string
	OmittedFiles  []string
}

// overviewNames are files promoted ahead of everything else because
// they orient a reader in an unfamiliar repository.
var overviewNames = map[string]bool{
	"readme.md":      true,
	"readme":         true,
	"package.json":   true,
	"go.mod":         true,
	"cargo.toml":     true,
	"pyproject.toml": true,
	"setup.py":       true,
}

// Build assembles a context document from snap. The document never
// exceeds MaxChars: the summary and tree preamble count against the
// budget too, the tree is dropped whole when it does not fit, and the
// summary is cut as a last resort. Files are included whole or not at
// all; a file that would blow the budget is omitted and later, smaller
// files may still fit. Section order follows the snapshot's priority
// order, with overview files pulled to the front.
func Build(snap *ingestion.Snapshot, opts Options) *Context {
	if opts.MaxChars <= 0 {
		opts.MaxChars = DefaultOptions().MaxChars
	}

	var b strings.Builder
	summary := []rune(snap.Summary + "\n")
	if len(summary) > opts.MaxChars {
		summary = summary[:opts.MaxChars]
	}
	b.WriteString(string(summary))
	used := len(summary)

	// TreeText is unbounded (wide repositories), so it is budgeted
	// like a section: included whole or not at all.
	if tree := []rune(snap.TreeText + "\n"); used+len(tree) <= opts.MaxChars {
		b.WriteString(string(tree))
		used += len(tree)
	}

	sections := ingestion.SplitSections(snap.ContentText)
	if opts.MaxFiles > 0 && len(sections) > opts.MaxFiles {
		sections = sections[:opts.MaxFiles]
	}

	overview, rest := partition(sections)
	rest = promoteMatches(rest, opts.Query)

	ctx := &Context{}

	appendSection := func(s ingestion.FileSection, label string) bool {
		text := renderSection(s, label)
		n := len([]rune(text))
		if used+n > opts.MaxChars {
			ctx.OmittedFiles = append(ctx.OmittedFiles, s.Path)
			return false
		}
		b.WriteString(text)
		used += n
		ctx.IncludedFiles = append(ctx.IncludedFiles, s.Path)
		return true
	}

	for _, s := range overview {
		appendSection(s, "Overview")
	}
	for _, s := range rest {
		appendSection(s, "File")
	}

	ctx.Text = b.String()
	return ctx
}

func partition(sections []ingestion.FileSection) (overview, rest []ingestion.FileSection) {
	for _, s := range sections {
		if overviewNames[strings.ToLower(path.Base(s.Path))] {
			overview = append(overview, s)
		} else {
			rest = append(rest, s)
		}
	}
	return overview, rest
}

// promoteMatches splits sections into query matches and the rest,
// matches first. Relative order inside each group is preserved.
func promoteMatches(sections []ingestion.FileSection, query string) []ingestion.FileSection {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return sections
	}
	var matched, unmatched []ingestion.FileSection
	for _, s := range sections {
		haystack := strings.ToLower(s.Path) + "\n" + strings.ToLower(s.Content)
		hit := false
		for _, term := range terms {
			if strings.Contains(haystack, term) {
				hit = true
				break
			}
		}
		if hit {
			matched = append(matched, s)
		} else {
			unmatched = append(unmatched, s)
		}
	}
	return append(matched, unmatched...)
}

func renderSection(s ingestion.FileSection, label string) string {
	var b strings.Builder
	b.WriteString("## ")
	b.WriteString(label)
	b.WriteString(": ")
	b.WriteString(s.Path)
	b.WriteString("\n\n")
	b.WriteString(s.Content)
	b.WriteString("\n\n")
	return b.String()
}
