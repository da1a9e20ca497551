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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func file(name, path string, size int64) *FileNode {
	return &FileNode{Name: name, Path: path, Size: size}
}

func dir(name, path string, children ...*FileNode) *FileNode {
	return &FileNode{Name: name, Path: path, Dir: true, Children: children}
}

func TestFilterExcludesDirsAndBinaries(t *testing.T) {
	root := dir("repo", "",
		dir("node_modules", "node_modules",
			file("index.js", "node_modules/index.js", 10),
		),
		dir("src", "src",
			file("app.py", "src/app.py", 100),
			file("logo.png", "src/logo.png", 5000),
		),
		file("README.md", "README.md", 50),
	)

	got := Filter(root, DefaultClassifierConfig())

	require.Len(t, got.Children, 2)
	assert.Equal(t, "src", got.Children[0].Name)
	require.Len(t, got.Children[0].Children, 1)
	assert.Equal(t, "app.py", got.Children[0].Children[0].Name)
	assert.Equal(t, "README.md", got.Children[1].Name)

	// The input tree must be untouched.
	assert.Len(t, root.Children, 3)
	assert.Len(t, root.Children[1].Children, 2)
}

func TestClassifyPriorityOrder(t *testing.T) {
	root := dir("repo", "",
		dir("src", "src",
			file("helper.py", "src/helper.py", 10),
			file("main.py", "src/main.py", 10),
		),
		file("notes.txt", "notes.txt", 10),
		file("util.go", "util.go", 10),
	)

	ranked := Classify(root, DefaultClassifierConfig())
	require.Len(t, ranked, 4)

	// main.py: source ext (5) + entry point (10) + important dir (3).
	assert.Equal(t, "src/main.py", ranked[0].Path)
	assert.Equal(t, 18, ranked[0].Score)
	// helper.py: source ext + important dir.
	assert.Equal(t, "src/helper.py", ranked[1].Path)
	assert.Equal(t, 8, ranked[1].Score)
	// util.go: source ext only.
	assert.Equal(t, "util.go", ranked[2].Path)
	assert.Equal(t, 5, ranked[2].Score)
	assert.Equal(t, "notes.txt", ranked[3].Path)
	assert.Equal(t, 0, ranked[3].Score)
}

func TestClassifyStableForEqualScores(t *testing.T) {
	root := dir("repo", "",
		file("a.go", "a.go", 1),
		file("b.go", "b.go", 1),
		file("c.go", "c.go", 1),
	)

	first := Classify(root, DefaultClassifierConfig())
	for i := 0; i < 10; i++ {
		again := Classify(root, DefaultClassifierConfig())
		for j := range first {
			assert.Equal(t, first[j].Path, again[j].Path)
		}
	}
	assert.Equal(t, "a.go", first[0].Path)
	assert.Equal(t, "b.go", first[1].Path)
	assert.Equal(t, "c.go", first[2].Path)
}

func TestClassifyIdempotent(t *testing.T) {
	root := dir("repo", "",
		dir("vendor", "vendor", file("dep.go", "vendor/dep.go", 1)),
		file("main.go", "main.go", 1),
	)

	cfg := DefaultClassifierConfig()
	a := Classify(root, cfg)
	b := Classify(root, cfg)
	require.Equal(t, len(a), len(b))
	for i := range a {
		assert.Equal(t, a[i].Path, b[i].Path)
		assert.Equal(t, a[i].Score, b[i].Score)
	}
}

func TestEntryPointMatchesBaseName(t *testing.T) {
	root := dir("repo", "",
		dir("cmd", "cmd",
			dir("tool", "cmd/tool",
				file("main.go", "cmd/tool/main.go", 1),
			),
		),
	)

	ranked := Classify(root, DefaultClassifierConfig())
	require.Len(t, ranked, 1)
	// Entry point bonus applies by base name, not only at the root.
	assert.GreaterOrEqual(t, ranked[0].Score, 15)
}

func TestConfigurableWeights(t *testing.T) {
	root := dir("repo", "",
		file("main.py", "main.py", 1),
		file("other.py", "other.py", 1),
	)

	cfg := DefaultClassifierConfig()
	cfg.Weights = ScoreWeights{SourceExtension: 1, EntryPoint: 100, ImportantDir: 1}
	ranked := Classify(root, cfg)
	require.Len(t, ranked, 2)
	assert.Equal(t, "main.py", ranked[0].Path)
	assert.Equal(t, 101, ranked[0].Score)
	assert.Equal(t, 1, ranked[1].Score)
}
