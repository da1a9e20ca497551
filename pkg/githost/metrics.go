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
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// metricsHost holds Prometheus metrics for the remote fetcher.
type metricsHost struct {
	once sync.Once

	dirFetches   prometheus.Counter
	fileFetches  prometheus.Counter
	fetchRetries prometheus.Counter
	memoHits     prometheus.Counter
	memoMisses   prometheus.Counter
	rateLimited  prometheus.Counter

	fetchDuration prometheus.Histogram
}

var hostMetrics metricsHost

func (m *metricsHost) init() {
	m.once.Do(func() {
		m.dirFetches = prometheus.NewCounter(prometheus.CounterOpts{Name: "repolens_host_dir_fetches_total", Help: "Directory listings requested from the remote host"})
		m.fileFetches = prometheus.NewCounter(prometheus.CounterOpts{Name: "repolens_host_file_fetches_total", Help: "File contents requested from the remote host"})
		m.fetchRetries = prometheus.NewCounter(prometheus.CounterOpts{Name: "repolens_host_fetch_retries_total", Help: "Fetch attempts retried after a retryable failure"})
		m.memoHits = prometheus.NewCounter(prometheus.CounterOpts{Name: "repolens_host_memo_hits_total", Help: "Remote reads served from the short-lived memo cache"})
		m.memoMisses = prometheus.NewCounter(prometheus.CounterOpts{Name: "repolens_host_memo_misses_total", Help: "Remote reads that missed the memo cache"})
		m.rateLimited = prometheus.NewCounter(prometheus.CounterOpts{Name: "repolens_host_rate_limited_total", Help: "Responses rejected by the upstream rate limit"})

		buckets := []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}
		m.fetchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "repolens_host_fetch_seconds", Help: "Duration of individual remote fetches", Buckets: buckets})

		prometheus.MustRegister(
			m.dirFetches, m.fileFetches, m.fetchRetries,
			m.memoHits, m.memoMisses, m.rateLimited,
			m.fetchDuration,
		)
	})
}

// record helpers - used by the client for metrics tracking
func recordDirFetch()          { hostMetrics.init(); hostMetrics.dirFetches.Inc() }
func recordFileFetch()         { hostMetrics.init(); hostMetrics.fileFetches.Inc() }
func recordFetchRetry()        { hostMetrics.init(); hostMetrics.fetchRetries.Inc() }
func recordMemoHit()           { hostMetrics.init(); hostMetrics.memoHits.Inc() }
func recordMemoMiss()          { hostMetrics.init(); hostMetrics.memoMisses.Inc() }
func recordRateLimited()       { hostMetrics.init(); hostMetrics.rateLimited.Inc() }
func observeFetch(sec float64) { hostMetrics.init(); hostMetrics.fetchDuration.Observe(sec) }
