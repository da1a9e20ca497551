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

package githost

import (
	"context"
	"sync"
	"time"
)

// TreeNode is one node of a fetched repository tree. Directories carry
// their children in listing order; files carry none. Ownership is
// strictly parent to child, so the tree is acyclic by construction.
type TreeNode struct {
	Entry
	Children []*TreeNode
}

// WalkConfig bounds the recursive tree fetch.
type WalkConfig struct {
	// MaxDepth is how many directory levels below the root are
	// expanded (default 2). Directories deeper than this appear as
	// leaf nodes without children.
	MaxDepth int

	// BatchSize is how many child directories are listed concurrently
	// (default 3). Small on purpose: this is backpressure against the
	// upstream rate limit, not a throughput knob.
	BatchSize int

	// BatchDelay is the pause between directory batches (default 1s).
	BatchDelay time.Duration
}

// DefaultWalkConfig returns the walk bounds from the ingestion contract.
func DefaultWalkConfig() WalkConfig {
	return WalkConfig{
		MaxDepth:   2,
		BatchSize:  3,
		BatchDelay: time.Second,
	}
}

func (w WalkConfig) withDefaults() WalkConfig {
	if w.MaxDepth <= 0 {
		w.MaxDepth = 2
	}
	if w.BatchSize <= 0 {
		w.BatchSize = 3
	}
	if w.BatchDelay < 0 {
		w.BatchDelay = 0
	}
	return w
}

// workItem pairs a directory node with its depth below the root. The
// explicit worklist keeps the depth bound a first-class parameter
// instead of an ad-hoc recursion counter.
type workItem struct {
	node  *TreeNode
	depth int
}

// FetchTree lists owner/repo recursively down to cfg.MaxDepth and
// returns the root node. The root listing failing is fatal; a failed
// subdirectory listing only prunes that subtree, logged as a warning.
func (c *Client) FetchTree(ctx context.Context, owner, repo string, cfg WalkConfig) (*TreeNode, error) {
	cfg = cfg.withDefaults()

	root := &TreeNode{Entry: Entry{Name: repo, Path: "", Type: EntryDir}}
	entries, err := c.GetDirectory(ctx, owner, repo, "")
	if err != nil {
		return nil, err
	}

	queue := c.attachChildren(root, entries, 1, cfg.MaxDepth)

	for len(queue) > 0 {
		batch := queue
		if len(batch) > cfg.BatchSize {
			batch = batch[:cfg.BatchSize]
		}
		queue = queue[len(batch):]

		results := make([][]workItem, len(batch))
		var wg sync.WaitGroup
		for i, item := range batch {
			wg.Add(1)
			go func(i int, item workItem) {
				defer wg.Done()
				entries, err := c.GetDirectory(ctx, owner, repo, item.node.Path)
				if err != nil {
					c.logger.Warn("githost.walk.subdir.skipped",
						"path", item.node.Path,
						"kind", string(KindOf(err)),
						"err", err,
					)
					return
				}
				results[i] = c.attachChildren(item.node, entries, item.depth+1, cfg.MaxDepth)
			}(i, item)
		}
		wg.Wait()

		if err := ctx.Err(); err != nil {
			return nil, NewTimeout(owner+"/"+repo, err)
		}

		for _, r := range results {
			queue = append(queue, r...)
		}

		if len(queue) > 0 && cfg.BatchDelay > 0 {
			if err := c.sleep(ctx, cfg.BatchDelay); err != nil {
				return nil, NewTimeout(owner+"/"+repo, err)
			}
		}
	}

	return root, nil
}

// attachChildren converts a listing into child nodes and returns the
// directories that still need expansion at childDepth.
func (c *Client) attachChildren(parent *TreeNode, entries []Entry, childDepth, maxDepth int) []workItem {
	var pending []workItem
	for _, e := range entries {
		child := &TreeNode{Entry: e}
		parent.Children = append(parent.Children, child)
		if e.Type == EntryDir && childDepth < maxDepth {
			pending = append(pending, workItem{node: child, depth: childDepth})
		}
	}
	return pending
}
