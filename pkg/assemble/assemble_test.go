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

package assemble

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repolens/repolens/pkg/ingestion"
)

func snapWith(files map[string]string, order ...string) *ingestion.Snapshot {
	var b strings.Builder
	for _, path := range order {
		b.WriteString(ingestion.FileSectionHeader(path))
		b.WriteString(files[path])
		b.WriteString("\n\n")
	}
	return &ingestion.Snapshot{
		Summary:     "Repository: acme/repo\nFiles analyzed: 3\n",
		TreeText:    "repo/\n├── README.md\n└── main.go\n",
		ContentText: b.String(),
	}
}

func TestBuildPutsOverviewFirst(t *testing.T) {
	snap := snapWith(map[string]string{
		"src/main.go": "package main",
		"README.md":   "# Repo",
		"src/util.go": "package main // util",
	}, "src/main.go", "README.md", "src/util.go")

	ctx := Build(snap, DefaultOptions())

	require.Equal(t, []string{"README.md", "src/main.go", "src/util.go"}, ctx.IncludedFiles)
	assert.Empty(t, ctx.OmittedFiles)

	readmeIdx := strings.Index(ctx.Text, "## Overview: README.md")
	mainIdx := strings.Index(ctx.Text, "## File: src/main.go")
	require.GreaterOrEqual(t, readmeIdx, 0)
	require.GreaterOrEqual(t, mainIdx, 0)
	assert.Less(t, readmeIdx, mainIdx)

	// Summary and tree lead the document.
	assert.True(t, strings.HasPrefix(ctx.Text, "Repository: acme/repo"))
	assert.Contains(t, ctx.Text, "├── README.md")
}

func TestBuildRespectsCharBudget(t *testing.T) {
	big := strings.Repeat("x", 500)
	small := "package main"
	snap := snapWith(map[string]string{
		"big.go":   big,
		"small.go": small,
	}, "big.go", "small.go")

	opts := Options{MaxChars: len(snap.Summary) + len(snap.TreeText) + 100}
	ctx := Build(snap, opts)

	// The oversized file is skipped whole; the later smaller one still fits.
	assert.Equal(t, []string{"small.go"}, ctx.IncludedFiles)
	assert.Equal(t, []string{"big.go"}, ctx.OmittedFiles)
	assert.NotContains(t, ctx.Text, big)
	assert.Contains(t, ctx.Text, small)
	assert.LessOrEqual(t, len([]rune(ctx.Text)), opts.MaxChars)
}

func TestBuildMaxFilesCap(t *testing.T) {
	snap := snapWith(map[string]string{
		"a.go": "a",
		"b.go": "b",
		"c.go": "c",
	}, "a.go", "b.go", "c.go")

	ctx := Build(snap, Options{MaxChars: 100_000, MaxFiles: 2})
	assert.Equal(t, []string{"a.go", "b.go"}, ctx.IncludedFiles)
	assert.NotContains(t, ctx.Text, "## File: c.go")
}

func TestBuildIsPure(t *testing.T) {
	snap := snapWith(map[string]string{"main.go": "package main"}, "main.go")
	before := snap.ContentText

	a := Build(snap, DefaultOptions())
	b := Build(snap, DefaultOptions())
	assert.Equal(t, a.Text, b.Text)
	assert.Equal(t, before, snap.ContentText)
}

func TestBuildEmptySnapshot(t *testing.T) {
	snap := &ingestion.Snapshot{Summary: "Repository: acme/empty\n", TreeText: "empty/\n"}
	ctx := Build(snap, DefaultOptions())
	assert.Empty(t, ctx.IncludedFiles)
	assert.Contains(t, ctx.Text, "Repository: acme/empty")
}

func TestBuildQueryPromotesMatches(t *testing.T) {
	snap := snapWith(map[string]string{
		"src/server.go": "package srv // http listener",
		"src/auth.go":   "package srv // token validation",
		"src/db.go":     "package srv // postgres pool",
	}, "src/server.go", "src/auth.go", "src/db.go")

	ctx := Build(snap, Options{Query: "token"})
	require.Equal(t, []string{"src/auth.go", "src/server.go", "src/db.go"}, ctx.IncludedFiles)

	// Path matches count too.
	ctx = Build(snap, Options{Query: "db"})
	assert.Equal(t, []string{"src/db.go", "src/server.go", "src/auth.go"}, ctx.IncludedFiles)

	// Overview files stay ahead of query matches.
	snap = snapWith(map[string]string{
		"README.md": "# Repo",
		"a.go":      "package a // token",
		"b.go":      "package b",
	}, "a.go", "b.go", "README.md")
	ctx = Build(snap, Options{Query: "token"})
	assert.Equal(t, []string{"README.md", "a.go", "b.go"}, ctx.IncludedFiles)
}

func TestBuildBudgetCoversPreamble(t *testing.T) {
	snap := snapWith(map[string]string{"main.go": "package main"}, "main.go")
	snap.TreeText = strings.Repeat("├── some/deep/path.go\n", 250)

	ctx := Build(snap, Options{MaxChars: 100})
	if n := len([]rune(ctx.Text)); n > 100 {
		t.Fatalf("document is %d chars, budget 100", n)
	}
	// The oversized tree is dropped whole; the small file still fits.
	assert.NotContains(t, ctx.Text, "some/deep/path.go")
	assert.Equal(t, []string{"main.go"}, ctx.IncludedFiles)

	// With room to spare the tree comes back.
	ctx = Build(snap, DefaultOptions())
	assert.Contains(t, ctx.Text, "some/deep/path.go")
	assert.Equal(t, []string{"main.go"}, ctx.IncludedFiles)
}

func TestBuildBudgetSmallerThanSummary(t *testing.T) {
	snap := snapWith(map[string]string{"main.go": "package main"}, "main.go")

	ctx := Build(snap, Options{MaxChars: 10})
	if n := len([]rune(ctx.Text)); n > 10 {
		t.Fatalf("document is %d chars, budget 10", n)
	}
}
