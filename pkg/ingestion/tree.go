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
	"strings"

	"github.com/repolens/repolens/pkg/githost"
)

// FileNode is one entry of a fetched repository tree. Directories own
// their children in traversal order; files carry a priority score once
// classified. The tree is built fresh per fetch and discarded after the
// snapshot is produced.
type FileNode struct {
	Name     string
	Path     string
	Dir      bool
	Size     int64
	Score    int
	Children []*FileNode
}

// FromHostTree converts the fetcher's tree into the pipeline's node
// type. Listing order is preserved; it is the tiebreak for the stable
// priority sort later.
func FromHostTree(t *githost.TreeNode) *FileNode {
	if t == nil {
		return nil
	}
	n := &FileNode{
		Name: t.Name,
		Path: t.Path,
		Dir:  t.Type == githost.EntryDir,
		Size: t.Size,
	}
	for _, c := range t.Children {
		n.Children = append(n.Children, FromHostTree(c))
	}
	return n
}

// RenderTree renders the filtered tree as indented text, directories
// suffixed with a slash. Output is deterministic for a given tree.
func RenderTree(root *FileNode) string {
	if root == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(root.Name)
	b.WriteString("/\n")
	renderChildren(&b, root.Children, "")
	return b.String()
}

func renderChildren(b *strings.Builder, nodes []*FileNode, prefix string) {
	for i, n := range nodes {
		last := i == len(nodes)-1
		connector := "├── "
		childPrefix := prefix + "│   "
		if last {
			connector = "└── "
			childPrefix = prefix + "    "
		}
		b.WriteString(prefix)
		b.WriteString(connector)
		b.WriteString(n.Name)
		if n.Dir {
			b.WriteString("/")
		}
		b.WriteString("\n")
		if n.Dir {
			renderChildren(b, n.Children, childPrefix)
		}
	}
}
