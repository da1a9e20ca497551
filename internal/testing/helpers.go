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

// Package testing provides shared test helpers: an in-process GitHub
// contents API double backed by a flat path-to-content map.
package testing

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync/atomic"
	"testing"
)

// GitHubServer is a test double for the GitHub contents API. It serves
// directory listings and base64 file payloads for one repository from
// an in-memory file map.
type GitHubServer struct {
	*httptest.Server
	Requests atomic.Int64

	owner string
	repo  string
	files map[string]string
}

// NewGitHubServer starts a contents API double for owner/repo over the
// given path-to-content map. Paths use forward slashes with no leading
// slash. The server shuts down when the test finishes.
func NewGitHubServer(t *testing.T, owner, repo string, files map[string]string) *GitHubServer {
	t.Helper()

	gs := &GitHubServer{owner: owner, repo: repo, files: files}
	gs.Server = httptest.NewServer(http.HandlerFunc(gs.handle))
	t.Cleanup(gs.Server.Close)
	return gs
}

type contentEntry struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	Type     string `json:"type"`
	Size     int64  `json:"size"`
	Content  string `json:"content,omitempty"`
	Encoding string `json:"encoding,omitempty"`
}

func (gs *GitHubServer) handle(w http.ResponseWriter, r *http.Request) {
	gs.Requests.Add(1)

	repoPrefix := "/repos/" + gs.owner + "/" + gs.repo
	switch {
	case r.URL.Path == repoPrefix:
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"full_name":"` + gs.owner + "/" + gs.repo + `"}`))

	case strings.HasPrefix(r.URL.Path, repoPrefix+"/contents"):
		path := strings.TrimPrefix(r.URL.Path, repoPrefix+"/contents")
		path = strings.Trim(path, "/")
		gs.serveContents(w, path)

	default:
		http.NotFound(w, r)
	}
}

func (gs *GitHubServer) serveContents(w http.ResponseWriter, path string) {
	w.Header().Set("Content-Type", "application/json")

	if content, ok := gs.files[path]; ok {
		// GitHub wraps base64 payloads with embedded newlines.
		encoded := base64.StdEncoding.EncodeToString([]byte(content))
		if len(encoded) > 60 {
			encoded = encoded[:60] + "\n" + encoded[60:]
		}
		_ = json.NewEncoder(w).Encode(contentEntry{
			Name:     baseName(path),
			Path:     path,
			Type:     "file",
			Size:     int64(len(content)),
			Content:  encoded,
			Encoding: "base64",
		})
		return
	}

	entries := gs.listDir(path)
	if entries == nil {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Not Found"}`))
		return
	}
	_ = json.NewEncoder(w).Encode(entries)
}

// listDir resolves path's immediate children, or nil when nothing in
// the file map lives under it.
func (gs *GitHubServer) listDir(path string) []contentEntry {
	prefix := ""
	if path != "" {
		prefix = path + "/"
	}

	seen := map[string]contentEntry{}
	for filePath, content := range gs.files {
		if !strings.HasPrefix(filePath, prefix) {
			continue
		}
		rest := strings.TrimPrefix(filePath, prefix)
		if idx := strings.Index(rest, "/"); idx >= 0 {
			name := rest[:idx]
			seen[name] = contentEntry{Name: name, Path: prefix + name, Type: "dir"}
		} else {
			seen[rest] = contentEntry{Name: rest, Path: filePath, Type: "file", Size: int64(len(content))}
		}
	}
	if len(seen) == 0 && path != "" {
		return nil
	}

	entries := make([]contentEntry, 0, len(seen))
	for _, e := range seen {
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries
}

func baseName(path string) string {
	if idx := strings.LastIndex(path, "/"); idx >= 0 {
		return path[idx+1:]
	}
	return path
}
