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
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// EntryType distinguishes files from directories in a listing.
type EntryType string

const (
	// EntryFile is a regular file.
	EntryFile EntryType = "file"
	// EntryDir is a directory.
	EntryDir EntryType = "dir"
)

// Entry is one item of a remote directory listing.
type Entry struct {
	Name string    `json:"name"`
	Path string    `json:"path"`
	Type EntryType `json:"type"`
	Size int64     `json:"size"`
}

// Config configures a remote host client.
type Config struct {
	// BaseURL of the hosting API. Defaults to https://api.github.com.
	BaseURL string

	// Token is an optional bearer token. Unauthenticated requests work
	// but run under a much smaller rate-limit quota.
	Token string

	// DirTimeout bounds directory listings (default 60s).
	DirTimeout time.Duration

	// FileTimeout bounds single-file reads (default 15s).
	FileTimeout time.Duration

	// MemoTTL is the lifetime of the in-memory read cache (default 5m).
	MemoTTL time.Duration

	// Retry is the fetch-level retry policy.
	Retry RetryConfig

	// HTTPClient overrides the transport, mainly for tests.
	HTTPClient *http.Client
}

// Client fetches directory listings and file contents from a remote
// hosting API with timeouts, bounded retries and a short-lived memo
// cache. Both operations are idempotent reads, which is what makes the
// retry policy safe.
type Client struct {
	baseURL     string
	token       string
	dirTimeout  time.Duration
	fileTimeout time.Duration
	httpClient  *http.Client
	memo        *memoCache
	retry       RetryConfig
	logger      *slog.Logger

	// sleepFn, when set, replaces real sleeps between retry attempts.
	sleepFn func(ctx context.Context, d time.Duration) error
}

// NewClient creates a remote host client.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.github.com"
	}
	if cfg.DirTimeout <= 0 {
		cfg.DirTimeout = 60 * time.Second
	}
	if cfg.FileTimeout <= 0 {
		cfg.FileTimeout = 15 * time.Second
	}
	if cfg.MemoTTL <= 0 {
		cfg.MemoTTL = 5 * time.Minute
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}

	return &Client{
		baseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
		token:       cfg.Token,
		dirTimeout:  cfg.DirTimeout,
		fileTimeout: cfg.FileTimeout,
		httpClient:  cfg.HTTPClient,
		memo:        newMemoCache(cfg.MemoTTL, nil),
		retry:       cfg.Retry,
		logger:      logger,
	}
}

// SetToken replaces the credentials and drops the memo cache so no
// stale result fetched under the old token survives the refresh.
func (c *Client) SetToken(token string) {
	c.token = token
	c.memo.purge()
}

// GetDirectory lists the entries of path within owner/repo. The empty
// path lists the repository root.
func (c *Client) GetDirectory(ctx context.Context, owner, repo, path string) ([]Entry, error) {
	key := "dir:" + owner + "/" + repo + "/" + path
	if v, ok := c.memo.get(key); ok {
		recordMemoHit()
		return v.([]Entry), nil
	}
	recordMemoMiss()

	var entries []Entry
	err := c.withRetry(ctx, "get_directory", func() error {
		callCtx, cancel := context.WithTimeout(ctx, c.dirTimeout)
		defer cancel()

		recordDirFetch()
		start := time.Now()
		body, err := c.doGet(callCtx, c.contentsURL(owner, repo, path), path)
		observeFetch(time.Since(start).Seconds())
		if err != nil {
			return err
		}

		trimmed := strings.TrimLeft(string(body), " \t\r\n")
		if !strings.HasPrefix(trimmed, "[") {
			// A JSON object here means path resolved to a single file.
			return NewNotFound(path + " (not a directory)")
		}

		var listed []struct {
			Name string `json:"name"`
			Path string `json:"path"`
			Type string `json:"type"`
			Size int64  `json:"size"`
		}
		if err := json.Unmarshal(body, &listed); err != nil {
			return NewTransient(path, fmt.Errorf("decode listing: %w", err))
		}

		entries = entries[:0]
		for _, e := range listed {
			t := EntryFile
			if e.Type == "dir" {
				t = EntryDir
			}
			entries = append(entries, Entry{Name: e.Name, Path: e.Path, Type: t, Size: e.Size})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.memo.set(key, entries)
	return entries, nil
}

// GetFileContent fetches and decodes the content of a single file.
// Fails with an is_directory error when path resolves to a directory.
func (c *Client) GetFileContent(ctx context.Context, owner, repo, path string) (string, error) {
	key := "file:" + owner + "/" + repo + "/" + path
	if v, ok := c.memo.get(key); ok {
		recordMemoHit()
		return v.(string), nil
	}
	recordMemoMiss()

	var content string
	err := c.withRetry(ctx, "get_file_content", func() error {
		callCtx, cancel := context.WithTimeout(ctx, c.fileTimeout)
		defer cancel()

		recordFileFetch()
		start := time.Now()
		body, err := c.doGet(callCtx, c.contentsURL(owner, repo, path), path)
		observeFetch(time.Since(start).Seconds())
		if err != nil {
			return err
		}

		trimmed := strings.TrimLeft(string(body), " \t\r\n")
		if strings.HasPrefix(trimmed, "[") {
			return NewIsDirectory(path)
		}

		var file struct {
			Type     string `json:"type"`
			Encoding string `json:"encoding"`
			Content  string `json:"content"`
		}
		if err := json.Unmarshal(body, &file); err != nil {
			return NewTransient(path, fmt.Errorf("decode file: %w", err))
		}
		if file.Type == "dir" {
			return NewIsDirectory(path)
		}

		decoded, err := decodeContent(file.Encoding, file.Content)
		if err != nil {
			return NewTransient(path, err)
		}
		content = decoded
		return nil
	})
	if err != nil {
		return "", err
	}

	c.memo.set(key, content)
	return content, nil
}

// RepoExists probes whether owner/repo exists and is readable with the
// current credentials. NotFound and AuthFailure map to false without
// error; anything else is reported as an error.
func (c *Client) RepoExists(ctx context.Context, owner, repo string) (bool, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.fileTimeout)
	defer cancel()

	_, err := c.doGet(callCtx, fmt.Sprintf("%s/repos/%s/%s", c.baseURL, url.PathEscape(owner), url.PathEscape(repo)), "")
	if err == nil {
		return true, nil
	}
	switch KindOf(err) {
	case KindNotFound, KindAuthFailure:
		return false, nil
	}
	return false, err
}

// contentsURL builds the contents-API URL for a path inside a repo.
func (c *Client) contentsURL(owner, repo, path string) string {
	u := fmt.Sprintf("%s/repos/%s/%s/contents", c.baseURL, url.PathEscape(owner), url.PathEscape(repo))
	if path != "" {
		segs := strings.Split(path, "/")
		for i, s := range segs {
			segs[i] = url.PathEscape(s)
		}
		u += "/" + strings.Join(segs, "/")
	}
	return u
}

// doGet performs one HTTP GET and maps the response onto the error
// taxonomy. It never retries; retrying is the caller's concern.
func (c *Client) doGet(ctx context.Context, rawURL, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, NewTransient(path, err)
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	req.Header.Set("User-Agent", "repolens")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			return nil, NewTimeout(path, err)
		}
		return nil, NewTransient(path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewTransient(path, err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
		return body, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, NewNotFound(path)
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, NewAuthFailure(path, fmt.Errorf("status %d", resp.StatusCode))
	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusTooManyRequests:
		if resp.Header.Get("X-RateLimit-Remaining") == "0" || resp.StatusCode == http.StatusTooManyRequests {
			recordRateLimited()
			return nil, NewRateLimited(path, parseRateLimitReset(resp.Header))
		}
		return nil, NewAuthFailure(path, fmt.Errorf("status %d", resp.StatusCode))
	case resp.StatusCode >= 500:
		return nil, NewTransient(path, fmt.Errorf("status %d", resp.StatusCode))
	default:
		return nil, NewTransient(path, fmt.Errorf("unexpected status %d: %.200s", resp.StatusCode, string(body)))
	}
}

// parseRateLimitReset reads the upstream quota reset time from the
// X-RateLimit-Reset header (unix seconds). Zero time when absent.
func parseRateLimitReset(h http.Header) time.Time {
	raw := h.Get("X-RateLimit-Reset")
	if raw == "" {
		return time.Time{}
	}
	sec, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.Unix(sec, 0)
}

// decodeContent decodes a contents-API payload. GitHub base64 bodies
// contain embedded newlines, which StdEncoding rejects.
func decodeContent(encoding, content string) (string, error) {
	switch encoding {
	case "", "none":
		return content, nil
	case "base64":
		clean := strings.Map(func(r rune) rune {
			if r == '\n' || r == '\r' {
				return -1
			}
			return r
		}, content)
		raw, err := base64.StdEncoding.DecodeString(clean)
		if err != nil {
			return "", fmt.Errorf("decode base64 content: %w", err)
		}
		return string(raw), nil
	default:
		return "", fmt.Errorf("unsupported content encoding %q", encoding)
	}
}
