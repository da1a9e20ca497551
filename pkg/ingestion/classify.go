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
	"path"
	"sort"
	"strings"
)

// ScoreWeights are the additive priority bonuses applied during
// classification. The shipped values are defaults, not constants;
// deployments can tune them.
type ScoreWeights struct {
	// SourceExtension is added when the file extension is in the
	// source-code set.
	SourceExtension int `yaml:"source_extension"`

	// EntryPoint is added when the file name or path suffix exactly
	// matches a canonical entry-point name.
	EntryPoint int `yaml:"entry_point"`

	// ImportantDir is added when the file lives under an important
	// directory name.
	ImportantDir int `yaml:"important_dir"`
}

// ClassifierConfig controls filtering and scoring. Zero-value fields
// fall back to the defaults from DefaultClassifierConfig.
type ClassifierConfig struct {
	ExcludedDirs     map[string]bool
	BinaryExtensions map[string]bool
	SourceExtensions map[string]bool
	EntryPointNames  []string
	ImportantDirs    map[string]bool
	Weights          ScoreWeights
}

// DefaultClassifierConfig returns the stock exclusion sets and score
// weights.
func DefaultClassifierConfig() ClassifierConfig {
	return ClassifierConfig{
		ExcludedDirs: toSet(
			".git", ".svn", ".hg",
			"node_modules", "vendor", "bower_components",
			".npm", ".yarn", "__pycache__", ".venv", "venv",
			"dist", "build", "out", "target", "bin", "obj",
			".idea", ".vscode", ".vs",
			".next", ".nuxt", "coverage",
		),
		BinaryExtensions: toSet(
			".png", ".jpg", ".jpeg", ".gif", ".webp", ".ico", ".svg", ".bmp",
			".mp3", ".mp4", ".wav", ".avi", ".mov", ".webm",
			".zip", ".tar", ".gz", ".bz2", ".7z", ".rar",
			".exe", ".dll", ".so", ".dylib", ".o", ".a", ".lib", ".class",
			".pdf", ".woff", ".woff2", ".ttf", ".eot", ".otf",
			".pyc", ".pyo", ".wasm", ".bin", ".db", ".sqlite",
			".lock",
		),
		SourceExtensions: toSet(
			".go", ".ts", ".tsx", ".js", ".jsx", ".py", ".rb", ".rs",
			".java", ".kt", ".c", ".h", ".cc", ".cpp", ".hpp", ".cs",
			".php", ".swift", ".scala", ".sh", ".sql",
			".md", ".html", ".css", ".scss", ".yaml", ".yml", ".toml", ".json",
		),
		EntryPointNames: []string{
			"README.md", "readme.md",
			"package.json", "go.mod", "Cargo.toml", "pyproject.toml",
			"setup.py", "requirements.txt", "Gemfile", "pom.xml", "build.gradle",
			"Makefile", "Dockerfile", "docker-compose.yml",
			"main.go", "main.py", "index.ts", "index.js",
			"app/layout.tsx", "app/page.tsx", "src/index.ts", "src/main.ts",
		},
		ImportantDirs: toSet(
			"src", "lib", "app", "pkg", "internal", "cmd",
			"components", "pages", "api", "core", "server",
		),
		Weights: ScoreWeights{
			SourceExtension: 5,
			EntryPoint:      10,
			ImportantDir:    3,
		},
	}
}

func toSet(items ...string) map[string]bool {
	s := make(map[string]bool, len(items))
	for _, it := range items {
		s[it] = true
	}
	return s
}

func (c ClassifierConfig) withDefaults() ClassifierConfig {
	def := DefaultClassifierConfig()
	if c.ExcludedDirs == nil {
		c.ExcludedDirs = def.ExcludedDirs
	}
	if c.BinaryExtensions == nil {
		c.BinaryExtensions = def.BinaryExtensions
	}
	if c.SourceExtensions == nil {
		c.SourceExtensions = def.SourceExtensions
	}
	if c.EntryPointNames == nil {
		c.EntryPointNames = def.EntryPointNames
	}
	if c.ImportantDirs == nil {
		c.ImportantDirs = def.ImportantDirs
	}
	if c.Weights == (ScoreWeights{}) {
		c.Weights = def.Weights
	}
	return c
}

// Filter returns a copy of the tree with excluded directories pruned
// (descendants included) and binary files dropped. The input tree is
// not modified. Nothing from a pruned subtree appears downstream, not
// even in the rendered tree text.
func Filter(root *FileNode, cfg ClassifierConfig) *FileNode {
	cfg = cfg.withDefaults()
	return filterNode(root, cfg)
}

func filterNode(n *FileNode, cfg ClassifierConfig) *FileNode {
	if n == nil {
		return nil
	}
	out := &FileNode{Name: n.Name, Path: n.Path, Dir: n.Dir, Size: n.Size, Score: n.Score}
	for _, c := range n.Children {
		if c.Dir {
			if cfg.ExcludedDirs[c.Name] {
				continue
			}
			out.Children = append(out.Children, filterNode(c, cfg))
			continue
		}
		if cfg.BinaryExtensions[strings.ToLower(path.Ext(c.Name))] {
			continue
		}
		out.Children = append(out.Children, &FileNode{Name: c.Name, Path: c.Path, Size: c.Size, Score: c.Score})
	}
	return out
}

// Classify filters the tree and returns its files ordered by descending
// priority score. Ties preserve traversal order (stable sort), which
// keeps the output deterministic for cache reproducibility and tests.
// Classify performs no I/O.
func Classify(root *FileNode, cfg ClassifierConfig) []*FileNode {
	cfg = cfg.withDefaults()
	filtered := filterNode(root, cfg)

	var files []*FileNode
	collectFiles(filtered, &files)

	for _, f := range files {
		f.Score = score(f.Path, cfg)
	}

	sort.SliceStable(files, func(i, j int) bool {
		return files[i].Score > files[j].Score
	})
	return files
}

func collectFiles(n *FileNode, out *[]*FileNode) {
	if n == nil {
		return
	}
	for _, c := range n.Children {
		if c.Dir {
			collectFiles(c, out)
			continue
		}
		*out = append(*out, c)
	}
}

// score computes the additive priority of one file path.
func score(filePath string, cfg ClassifierConfig) int {
	s := 0
	if cfg.SourceExtensions[strings.ToLower(path.Ext(filePath))] {
		s += cfg.Weights.SourceExtension
	}
	if matchesEntryPoint(filePath, cfg.EntryPointNames) {
		s += cfg.Weights.EntryPoint
	}
	if underImportantDir(filePath, cfg.ImportantDirs) {
		s += cfg.Weights.ImportantDir
	}
	return s
}

// matchesEntryPoint reports whether the file name or a path suffix
// exactly matches a canonical entry-point name.
func matchesEntryPoint(filePath string, names []string) bool {
	base := path.Base(filePath)
	for _, name := range names {
		if base == name || filePath == name || strings.HasSuffix(filePath, "/"+name) {
			return true
		}
	}
	return false
}

// underImportantDir reports whether any ancestor directory of the file
// is in the important set.
func underImportantDir(filePath string, dirs map[string]bool) bool {
	segs := strings.Split(filePath, "/")
	for _, seg := range segs[:max(0, len(segs)-1)] {
		if dirs[seg] {
			return true
		}
	}
	return false
}
