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
	"errors"
	"fmt"
	"time"
)

// ErrorKind classifies a remote-host failure. Kinds are stable strings so
// they can be surfaced in JSON output and logs without translation.
type ErrorKind string

const (
	// KindNotFound means the repository or path does not exist upstream.
	KindNotFound ErrorKind = "not_found"

	// KindAuthFailure means the upstream host rejected our credentials.
	KindAuthFailure ErrorKind = "auth_failure"

	// KindRateLimited means the upstream quota is exhausted. ResetAt on
	// the Error says when the quota window reopens.
	KindRateLimited ErrorKind = "rate_limited"

	// KindTooLarge means the repository exceeds configured processing limits.
	KindTooLarge ErrorKind = "too_large"

	// KindTimeout means a fetch (or the whole run) exceeded its deadline.
	KindTimeout ErrorKind = "timeout"

	// KindIsDirectory means a file read resolved to a directory.
	KindIsDirectory ErrorKind = "is_directory"

	// KindTransient covers network-level failures worth retrying
	// (connection reset, DNS hiccup, 5xx from the host).
	KindTransient ErrorKind = "transient"

	// KindCacheUnavailable means the result-cache backing store is
	// unreachable. Never fatal: ingestion proceeds uncached.
	KindCacheUnavailable ErrorKind = "cache_unavailable"
)

// Error is the tagged error type for all remote-host operations.
//
// It carries the failure Kind, the repository path involved (when known),
// and for rate-limit errors the upstream reset time. Error supports
// errors.Is/As via Unwrap.
type Error struct {
	Kind    ErrorKind
	Path    string
	ResetAt time.Time
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Path != "" {
		msg = fmt.Sprintf("%s: %s", e.Kind, e.Path)
	}
	if e.Kind == KindRateLimited && !e.ResetAt.IsZero() {
		msg = fmt.Sprintf("%s (resets %s)", msg, e.ResetAt.Format(time.RFC3339))
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying error for errors.Is/As chains.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewNotFound reports a missing repository or path.
func NewNotFound(path string) *Error {
	return &Error{Kind: KindNotFound, Path: path}
}

// NewAuthFailure reports rejected credentials.
func NewAuthFailure(path string, err error) *Error {
	return &Error{Kind: KindAuthFailure, Path: path, Err: err}
}

// NewRateLimited reports an exhausted upstream quota.
func NewRateLimited(path string, resetAt time.Time) *Error {
	return &Error{Kind: KindRateLimited, Path: path, ResetAt: resetAt}
}

// NewTooLarge reports a repository over the processing limits.
func NewTooLarge(path string, err error) *Error {
	return &Error{Kind: KindTooLarge, Path: path, Err: err}
}

// NewTimeout reports a deadline expiry on a fetch or a whole run.
func NewTimeout(path string, err error) *Error {
	return &Error{Kind: KindTimeout, Path: path, Err: err}
}

// NewIsDirectory reports a file read that hit a directory.
func NewIsDirectory(path string) *Error {
	return &Error{Kind: KindIsDirectory, Path: path}
}

// NewTransient reports a retryable network-level failure.
func NewTransient(path string, err error) *Error {
	return &Error{Kind: KindTransient, Path: path, Err: err}
}

// NewCacheUnavailable reports an unreachable cache backing store.
func NewCacheUnavailable(err error) *Error {
	return &Error{Kind: KindCacheUnavailable, Err: err}
}

// KindOf extracts the ErrorKind from err, walking the unwrap chain.
// Returns the empty kind for nil or untagged errors.
func KindOf(err error) ErrorKind {
	var he *Error
	if errors.As(err, &he) {
		return he.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return KindOf(err) == kind
}

// Retryable reports whether err is worth another attempt under the
// fetch-level retry policy. Only rate-limit and transient network
// failures qualify; NotFound and AuthFailure never do.
func Retryable(err error) bool {
	switch KindOf(err) {
	case KindRateLimited, KindTransient:
		return true
	}
	return false
}
