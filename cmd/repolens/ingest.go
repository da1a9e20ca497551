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

package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/repolens/repolens/internal/errors"
	"github.com/repolens/repolens/internal/output"
	"github.com/repolens/repolens/internal/ui"
	"github.com/repolens/repolens/pkg/embedding"
	"github.com/repolens/repolens/pkg/ingestion"
)

// timeRound is the display precision for durations.
const timeRound = 10 * time.Millisecond

// runIngest handles the "ingest" subcommand: fetch, rank and snapshot
// one repository.
func runIngest(args []string, globals globalFlags) {
	fs := flag.NewFlagSet("ingest", flag.ExitOnError)
	force := fs.Bool("force", false, "Bypass the snapshot cache and refetch")
	debug := fs.Bool("debug", false, "Enable debug logging")
	embed := fs.Bool("embed", false, "Chunk and embed the snapshot after ingestion")
	metricsAddr := fs.String("metrics-addr", "", "HTTP listen address for Prometheus metrics (empty to disable)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: repolens ingest <owner>/<repo> [options]

Walks the repository tree through the GitHub contents API, ranks the
files that matter, fetches their content and caches the snapshot under
~/.repolens/cache/ for 6 hours.

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	id, err := parseRepoArg(fs.Args())
	if err != nil {
		errors.FatalError(err, globals.jsonOutput)
	}

	cfg, err := LoadConfig(globals.configPath)
	if err != nil {
		errors.FatalError(err, globals.jsonOutput)
	}

	logger := newLogger(*debug)

	if *metricsAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			srv := &http.Server{Addr: *metricsAddr, Handler: mux}
			logger.Info("metrics.http.start", "addr", *metricsAddr, "path", "/metrics")
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Warn("metrics.http.error", "err", err)
			}
		}()
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	pipeline, _, err := cfg.buildPipeline(logger)
	if err != nil {
		errors.FatalError(err, globals.jsonOutput)
	}

	progress := NewProgressConfig(globals)
	spinner := NewSpinner(progress, fmt.Sprintf("Ingesting %s", id))

	result, err := pipeline.Ingest(ctx, id, *force)
	if spinner != nil {
		_ = spinner.Finish()
	}
	if err != nil {
		errors.FatalError(errors.FromHostError(err, id.String()), globals.jsonOutput)
	}

	if *embed {
		indexEmbeddings(ctx, cfg, logger, id, result.Snapshot)
	}

	if globals.jsonOutput {
		output.JSON(result)
		return
	}
	printIngestResult(id, result)
}

// printIngestResult renders the human-readable ingest summary.
func printIngestResult(id ingestion.RepoID, result *ingestion.Result) {
	ui.Header(fmt.Sprintf("Snapshot: %s", id))
	fmt.Print(result.Snapshot.Summary)
	if result.FromCache {
		ui.Info("Served from cache")
	} else {
		ui.Successf("Ingested in %s", result.Duration.Round(timeRound))
	}
	for _, fe := range result.FileErrors {
		ui.Warningf("Skipped %s: %s", fe.Path, fe.Message)
	}
}

// indexEmbeddings chunks the snapshot and pushes the vectors into the
// in-memory store. Failures here never fail the ingest; the snapshot
// is already committed.
func indexEmbeddings(ctx context.Context, cfg *Config, logger *slog.Logger, id ingestion.RepoID, snap *ingestion.Snapshot) {
	provider, err := embedding.NewProvider(cfg.Embedding.Provider, logger)
	if err != nil {
		ui.Warningf("Embedding disabled: %v", err)
		return
	}
	indexer := embedding.NewIndexer(embedding.IndexerConfig{}, provider, embedding.NewMemoryStore(), logger)
	res, err := indexer.IndexSnapshot(ctx, id.Key(), snap)
	if err != nil {
		ui.Warningf("Embedding failed: %v", err)
		return
	}
	ui.Infof("Embedded %d chunks (%d errors)", res.Chunks, res.Errors)
}

// parseRepoArg extracts owner/name from a positional argument.
func parseRepoArg(args []string) (ingestion.RepoID, error) {
	if len(args) != 1 {
		return ingestion.RepoID{}, errors.NewInputError(
			"Missing repository argument",
			"Expected exactly one <owner>/<repo> argument",
			"Run for example: repolens ingest golang/go",
		)
	}
	owner, name, ok := strings.Cut(args[0], "/")
	if !ok || owner == "" || name == "" || strings.Contains(name, "/") {
		return ingestion.RepoID{}, errors.NewInputError(
			"Invalid repository argument",
			fmt.Sprintf("%q is not of the form <owner>/<repo>", args[0]),
			"Run for example: repolens ingest golang/go",
		)
	}
	return ingestion.NewRepoID(owner, name), nil
}

// newLogger builds the structured logger shared by the subcommands.
// Logs go to stderr so --json output on stdout stays parseable.
func newLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)
	return logger
}
