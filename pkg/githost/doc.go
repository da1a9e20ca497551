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

// Package githost implements a rate-limit-aware client for remote
// source-control hosting APIs (GitHub's REST contents API by default).
//
// The client wraps every remote read with:
//   - per-call timeouts (60s for directory listings, 15s for file reads)
//   - a bounded retry policy with exponential backoff, applied only to
//     rate-limit and transient network failures
//   - a short-lived in-memory memo cache that absorbs bursts of requests
//     for the same subtree within one ingestion run
//
// Directory trees are fetched with an explicit worklist bounded by depth,
// fanning out child-directory listings in small batches with a fixed
// inter-batch delay. The small batch size is a deliberate backpressure
// control against the upstream rate limit.
//
// All failures carry a machine-readable Kind (see Error) so callers can
// distinguish not-found, auth, rate-limit, and timeout conditions without
// string matching.
package githost
