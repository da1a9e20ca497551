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
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	hosttest "github.com/repolens/repolens/internal/testing"
	"github.com/repolens/repolens/pkg/cache"
	"github.com/repolens/repolens/pkg/githost"
	"github.com/repolens/repolens/pkg/ingestion"
)

// newTestServer wires the HTTP handlers against the fake GitHub API
// and an in-memory snapshot store.
func newTestServer(t *testing.T) (*httptest.Server, *hosttest.GitHubServer) {
	t.Helper()

	gh := hosttest.NewGitHubServer(t, "acme", "widgets", map[string]string{
		"main.go":   "package main\n\nfunc main() {}\n",
		"README.md": "# widgets\n",
	})

	logger := slog.New(slog.NewTextHandler(&strings.Builder{}, nil))
	host := githost.NewClient(githost.Config{
		BaseURL: gh.URL,
		Retry:   githost.RetryConfig{MaxAttempts: 1},
	}, logger)

	cfg := ingestion.DefaultConfig()
	cfg.Walk.BatchDelay = time.Millisecond

	s := &server{
		pipeline: ingestion.NewPipeline(cfg, host, cache.NewMemoryStore(0), logger),
		host:     host,
		logger:   logger,
	}
	srv := httptest.NewServer(s.routes())
	t.Cleanup(srv.Close)
	return srv, gh
}

func postCollect(t *testing.T, srv *httptest.Server, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(srv.URL+"/api/collect-repo-data", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestServeCollectAndFetch(t *testing.T) {
	srv, _ := newTestServer(t)

	// Nothing cached yet.
	resp, err := http.Get(srv.URL + "/api/repo-data?username=acme&repo=widgets")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = postCollect(t, srv, `{"username":"acme","repo":"widgets"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body collectResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.True(t, body.Success)
	require.NotNil(t, body.Data)
	require.NotNil(t, body.Data.Snapshot)
	assert.Contains(t, body.Data.Snapshot.Summary, "acme/widgets")
	assert.Contains(t, body.Data.Snapshot.ContentText, "func main()")

	// Now the snapshot is served from cache.
	resp, err = http.Get(srv.URL + "/api/repo-data?username=acme&repo=widgets")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var snap ingestion.Snapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&snap))
	assert.Contains(t, snap.TreeText, "main.go")
}

func TestServeCollectValidation(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := postCollect(t, srv, `{"username":"acme"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = postCollect(t, srv, `not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err := http.Get(srv.URL + "/api/collect-repo-data")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestServeCollectUnknownRepo(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := postCollect(t, srv, `{"username":"acme","repo":"missing"}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	var body apiError
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.False(t, body.Success)
	assert.Equal(t, "not_found", body.Kind)
}

func TestServeRepoExists(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/repo-exists?username=acme&repo=widgets")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]bool
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.True(t, body["exists"])

	resp, err = http.Get(srv.URL + "/api/repo-exists?username=acme&repo=missing")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body = nil
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.False(t, body["exists"])
}

func TestServeQueryValidation(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/repo-data?username=acme")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServeHealthz(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServeCachedCollectSkipsHost(t *testing.T) {
	srv, gh := newTestServer(t)

	resp := postCollect(t, srv, `{"username":"acme","repo":"widgets"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	after := gh.Requests.Load()

	resp = postCollect(t, srv, `{"username":"acme","repo":"widgets"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body collectResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	require.NotNil(t, body.Data)
	assert.True(t, body.Data.FromCache)
	assert.Equal(t, after, gh.Requests.Load())
}
