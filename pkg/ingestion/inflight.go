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

import "sync"

// inflightRun is the shared state one leader publishes to every caller
// that joined the same ingestion. done is closed exactly once, after
// result and err are set.
type inflightRun struct {
	done   chan struct{}
	result *Result
	err    error
}

// inflightGuard enforces the at-most-one-ingestion-per-repository rule.
// The first caller for a key becomes the leader and runs the work;
// callers arriving while the run is open wait on the same run. The
// check-and-insert is a single critical section, so the rule holds even
// when duplicate requests land within the same instant.
type inflightGuard struct {
	mu   sync.Mutex
	runs map[string]*inflightRun
}

func newInflightGuard() *inflightGuard {
	return &inflightGuard{runs: make(map[string]*inflightRun)}
}

// join returns the open run for key, creating it when absent. leader is
// true for the caller that created the run; that caller must finish it.
func (g *inflightGuard) join(key string) (run *inflightRun, leader bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if r, ok := g.runs[key]; ok {
		return r, false
	}
	r := &inflightRun{done: make(chan struct{})}
	g.runs[key] = r
	return r, true
}

// finish publishes the outcome, releases the key, and wakes all
// waiters. Called exactly once per run, on success and on failure
// alike, so a failed run never wedges the key.
func (g *inflightGuard) finish(key string, run *inflightRun, result *Result, err error) {
	run.result = result
	run.err = err

	g.mu.Lock()
	delete(g.runs, key)
	g.mu.Unlock()

	close(run.done)
}
