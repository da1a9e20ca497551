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
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// metricsIngestion holds Prometheus metrics for the pipeline.
type metricsIngestion struct {
	once sync.Once

	runs         prometheus.Counter
	runFailures  prometheus.Counter
	cacheHits    prometheus.Counter
	cacheMisses  prometheus.Counter
	dedupedWaits prometheus.Counter
	fileErrors   prometheus.Counter
	truncations  prometheus.Counter
	cacheDegrade prometheus.Counter

	treeDuration    prometheus.Histogram
	contentDuration prometheus.Histogram
	totalDuration   prometheus.Histogram
}

var ingMetrics metricsIngestion

func (m *metricsIngestion) init() {
	m.once.Do(func() {
		m.runs = prometheus.NewCounter(prometheus.CounterOpts{Name: "repolens_ingest_runs_total", Help: "Ingestion runs started (cache misses that did real work)"})
		m.runFailures = prometheus.NewCounter(prometheus.CounterOpts{Name: "repolens_ingest_run_failures_total", Help: "Ingestion runs that failed without committing a snapshot"})
		m.cacheHits = prometheus.NewCounter(prometheus.CounterOpts{Name: "repolens_ingest_cache_hits_total", Help: "Ingest calls served from a fresh result-cache entry"})
		m.cacheMisses = prometheus.NewCounter(prometheus.CounterOpts{Name: "repolens_ingest_cache_misses_total", Help: "Ingest calls that missed the result cache"})
		m.dedupedWaits = prometheus.NewCounter(prometheus.CounterOpts{Name: "repolens_ingest_deduped_waits_total", Help: "Callers that awaited an already-running ingestion instead of starting one"})
		m.fileErrors = prometheus.NewCounter(prometheus.CounterOpts{Name: "repolens_ingest_file_errors_total", Help: "Per-file fetch failures recorded and skipped"})
		m.truncations = prometheus.NewCounter(prometheus.CounterOpts{Name: "repolens_ingest_truncations_total", Help: "Snapshots whose content hit the size cap"})
		m.cacheDegrade = prometheus.NewCounter(prometheus.CounterOpts{Name: "repolens_ingest_cache_degraded_total", Help: "Runs that proceeded uncached because the store was unavailable"})

		buckets := []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60}
		m.treeDuration = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "repolens_ingest_tree_seconds", Help: "Duration of the tree fetch stage", Buckets: buckets})
		m.contentDuration = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "repolens_ingest_content_seconds", Help: "Duration of the content fetch stage", Buckets: buckets})
		m.totalDuration = prometheus.NewHistogram(prometheus.HistogramOpts{Name: "repolens_ingest_total_seconds", Help: "Duration of whole ingestion runs", Buckets: buckets})

		prometheus.MustRegister(
			m.runs, m.runFailures, m.cacheHits, m.cacheMisses, m.dedupedWaits,
			m.fileErrors, m.truncations, m.cacheDegrade,
			m.treeDuration, m.contentDuration, m.totalDuration,
		)
	})
}

// record helpers - used by the pipeline for metrics tracking
func recordRun()               { ingMetrics.init(); ingMetrics.runs.Inc() }
func recordRunFailure()        { ingMetrics.init(); ingMetrics.runFailures.Inc() }
func recordCacheHit()          { ingMetrics.init(); ingMetrics.cacheHits.Inc() }
func recordCacheMiss()         { ingMetrics.init(); ingMetrics.cacheMisses.Inc() }
func recordDedupedWait()       { ingMetrics.init(); ingMetrics.dedupedWaits.Inc() }
func recordFileError()         { ingMetrics.init(); ingMetrics.fileErrors.Inc() }
func recordTruncation()        { ingMetrics.init(); ingMetrics.truncations.Inc() }
func recordCacheDegraded()     { ingMetrics.init(); ingMetrics.cacheDegrade.Inc() }
func observeTree(sec float64)  { ingMetrics.init(); ingMetrics.treeDuration.Observe(sec) }
func observeContent(s float64) { ingMetrics.init(); ingMetrics.contentDuration.Observe(s) }
func observeTotal(sec float64) { ingMetrics.init(); ingMetrics.totalDuration.Observe(sec) }
