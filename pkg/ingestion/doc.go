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

// Package ingestion turns a remote repository into a bounded, cacheable
// snapshot of its tree and most relevant file contents.
//
// The pipeline runs in stages: fetch the tree (bounded depth), classify
// and prioritize files (pure, deterministic), fetch the top-ranked
// contents with bounded concurrency, fold them into a size-capped
// content string, and commit the snapshot to the result cache.
//
// Two invariants matter to callers:
//
//   - At most one ingestion runs per repository at a time. Concurrent
//     callers for the same repository await the first caller's result
//     instead of duplicating the expensive fetch work.
//   - A failure on one file never aborts the run. Per-file failures are
//     collected and returned alongside the snapshot; only when every
//     selected file fails is the run treated as failed.
//
// Classification and chunking perform no I/O and are deterministic, so
// re-ingesting identical input always produces an identical snapshot.
package ingestion
