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
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	flag "github.com/spf13/pflag"

	"github.com/repolens/repolens/internal/errors"
	"github.com/repolens/repolens/pkg/githost"
	"github.com/repolens/repolens/pkg/ingestion"
)

// server carries the shared state behind the HTTP handlers.
type server struct {
	pipeline *ingestion.Pipeline
	host     *githost.Client
	logger   *slog.Logger
}

// collectRequest is the POST /api/collect-repo-data body.
type collectRequest struct {
	Username string `json:"username"`
	Repo     string `json:"repo"`
	Force    bool   `json:"force,omitempty"`
}

// collectResponse is the success envelope for collect-repo-data.
type collectResponse struct {
	Success bool              `json:"success"`
	Data    *ingestion.Result `json:"data"`
}

// apiError is the error envelope shared by every endpoint.
type apiError struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Kind    string `json:"kind,omitempty"`
}

// runServe handles the "serve" subcommand: expose ingestion over HTTP.
func runServe(args []string, globals globalFlags) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := fs.String("addr", ":8080", "HTTP listen address")
	debug := fs.Bool("debug", false, "Enable debug logging")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: repolens serve [options]

Starts the HTTP API:

  POST /api/collect-repo-data   Ingest a repository ({"username","repo","force"})
  GET  /api/repo-data           Return the cached snapshot (?username=&repo=)
  GET  /api/repo-exists         Probe the repository (?username=&repo=)
  GET  /healthz                 Liveness probe
  GET  /metrics                 Prometheus metrics

Options:
%s`, fs.FlagUsages())
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	cfg, err := LoadConfig(globals.configPath)
	if err != nil {
		errors.FatalError(err, globals.jsonOutput)
	}

	logger := newLogger(*debug)

	store, err := cfg.openStore()
	if err != nil {
		errors.FatalError(err, globals.jsonOutput)
	}
	host := githost.NewClient(githost.Config{
		BaseURL: cfg.GitHub.BaseURL,
		Token:   cfg.GitHub.Token,
	}, logger)

	s := &server{
		pipeline: ingestion.NewPipeline(cfg.ingestionConfig(), host, store, logger),
		host:     host,
		logger:   logger,
	}

	srv := &http.Server{
		Addr:              *addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	go func() {
		<-ctx.Done()
		logger.Info("serve.shutdown.start")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("serve.shutdown.error", "err", err)
		}
	}()

	logger.Info("serve.http.start", "addr", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		errors.FatalError(errors.NewNetworkError(
			"HTTP server failed",
			err.Error(),
			"Check that the listen address is free",
			err,
		), globals.jsonOutput)
	}
	logger.Info("serve.shutdown.done")
}

// routes builds the HTTP mux. Split out so tests can drive the
// handlers through httptest.
func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/collect-repo-data", s.handleCollect)
	mux.HandleFunc("/api/repo-data", s.handleRepoData)
	mux.HandleFunc("/api/repo-exists", s.handleRepoExists)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

func (s *server) handleCollect(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "use POST")
		return
	}
	var req collectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Username == "" || req.Repo == "" {
		writeError(w, http.StatusBadRequest, "username and repo are required")
		return
	}

	id := ingestion.NewRepoID(req.Username, req.Repo)
	result, err := s.pipeline.Ingest(r.Context(), id, req.Force)
	if err != nil {
		s.logger.Warn("serve.collect.error", "repo", id.Key(), "err", err)
		writeHostError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, collectResponse{Success: true, Data: result})
}

func (s *server) handleRepoData(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "use GET")
		return
	}
	id, ok := repoFromQuery(w, r)
	if !ok {
		return
	}

	// Read path only: serve what the cache has, never trigger a fetch.
	snap, err := s.pipeline.Cached(r.Context(), id)
	if err != nil {
		writeHostError(w, err)
		return
	}
	if snap == nil {
		writeError(w, http.StatusNotFound, "no snapshot; POST /api/collect-repo-data first")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (s *server) handleRepoExists(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "use GET")
		return
	}
	id, ok := repoFromQuery(w, r)
	if !ok {
		return
	}

	exists, err := s.host.RepoExists(r.Context(), id.Owner, id.Name)
	if err != nil {
		writeHostError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"exists": exists})
}

// repoFromQuery extracts ?username=&repo=, writing a 400 on failure.
func repoFromQuery(w http.ResponseWriter, r *http.Request) (ingestion.RepoID, bool) {
	username := r.URL.Query().Get("username")
	repo := r.URL.Query().Get("repo")
	if username == "" || repo == "" {
		writeError(w, http.StatusBadRequest, "username and repo query parameters are required")
		return ingestion.RepoID{}, false
	}
	return ingestion.NewRepoID(username, repo), true
}

// statusForKind maps a host error onto an HTTP status.
func statusForKind(kind githost.ErrorKind) int {
	switch kind {
	case githost.KindNotFound:
		return http.StatusNotFound
	case githost.KindAuthFailure, githost.KindRateLimited:
		return http.StatusForbidden
	case githost.KindTooLarge:
		return http.StatusBadRequest
	case githost.KindTimeout:
		return http.StatusGatewayTimeout
	case githost.KindCacheUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeHostError(w http.ResponseWriter, err error) {
	kind := githost.KindOf(err)
	writeJSON(w, statusForKind(kind), apiError{
		Error: err.Error(),
		Kind:  string(kind),
	})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, apiError{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
