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

// Package errors provides structured error handling for the repolens CLI.
//
// UserError carries what went wrong, why, and how to fix it, plus a
// semantic exit code. FromHostError maps the githost error taxonomy
// into user-facing errors with actionable fixes.
package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"

	"github.com/repolens/repolens/pkg/githost"
)

// Exit codes for different error categories.
const (
	ExitSuccess   = 0
	ExitConfig    = 1
	ExitCache     = 2
	ExitNetwork   = 3
	ExitInput     = 4
	ExitAuth      = 5
	ExitNotFound  = 6
	ExitRateLimit = 7
	ExitTooLarge  = 8
	ExitTimeout   = 9
	// ExitInternal signals a bug that should be reported.
	ExitInternal = 10
)

// UserError is an error with structured context for end users:
// Message says what went wrong, Cause why, Fix how to resolve it.
type UserError struct {
	Message  string
	Cause    string
	Fix      string
	ExitCode int
	// Err is the wrapped underlying error, for errors.Is/As.
	Err error
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a configuration error (missing or invalid
// config files).
func NewConfigError(msg, cause, fix string, err error) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, ExitCode: ExitConfig, Err: err}
}

// NewCacheError creates a cache backend error (unreadable cache dir,
// unreachable key-value backend).
func NewCacheError(msg, cause, fix string, err error) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, ExitCode: ExitCache, Err: err}
}

// NewNetworkError creates a network or remote API error.
func NewNetworkError(msg, cause, fix string, err error) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, ExitCode: ExitNetwork, Err: err}
}

// NewInputError creates an invalid-input error. Input errors do not
// wrap an underlying error.
func NewInputError(msg, cause, fix string) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, ExitCode: ExitInput}
}

// NewNotFoundError creates a resource-not-found error.
func NewNotFoundError(msg, cause, fix string) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, ExitCode: ExitNotFound}
}

// NewInternalError creates an internal error indicating a bug.
func NewInternalError(msg, cause, fix string, err error) *UserError {
	return &UserError{Message: msg, Cause: cause, Fix: fix, ExitCode: ExitInternal, Err: err}
}

// FromHostError maps an error from the githost/ingestion layers onto a
// UserError with a category exit code and a concrete fix. Unrecognized
// errors map to ExitInternal.
func FromHostError(err error, repo string) *UserError {
	if err == nil {
		return nil
	}
	if ue, ok := err.(*UserError); ok {
		return ue
	}

	switch githost.KindOf(err) {
	case githost.KindNotFound:
		return &UserError{
			Message:  fmt.Sprintf("Repository %s not found", repo),
			Cause:    "The repository does not exist, or it is private and no token was provided",
			Fix:      "Check the owner/name spelling, or set github.token in ~/.repolens/config.yaml",
			ExitCode: ExitNotFound,
			Err:      err,
		}
	case githost.KindAuthFailure:
		return &UserError{
			Message:  fmt.Sprintf("Access to %s was denied", repo),
			Cause:    "The GitHub API rejected the request credentials",
			Fix:      "Set a valid token via GITHUB_TOKEN or github.token in ~/.repolens/config.yaml",
			ExitCode: ExitAuth,
			Err:      err,
		}
	case githost.KindRateLimited:
		cause := "The GitHub API rate limit is exhausted"
		var hostErr *githost.Error
		if stderrors.As(err, &hostErr) && !hostErr.ResetAt.IsZero() {
			cause = fmt.Sprintf("The GitHub API rate limit is exhausted until %s",
				hostErr.ResetAt.Local().Format("15:04:05"))
		}
		return &UserError{
			Message:  fmt.Sprintf("Rate limited while fetching %s", repo),
			Cause:    cause,
			Fix:      "Wait for the limit to reset, or configure an authenticated token for a higher quota",
			ExitCode: ExitRateLimit,
			Err:      err,
		}
	case githost.KindTooLarge:
		return &UserError{
			Message:  fmt.Sprintf("Repository %s is too large to ingest", repo),
			Cause:    "The candidate files exceed the configured size limit",
			Fix:      "Raise ingestion.max_total_bytes in ~/.repolens/config.yaml, or ingest a smaller repository",
			ExitCode: ExitTooLarge,
			Err:      err,
		}
	case githost.KindTimeout:
		return &UserError{
			Message:  fmt.Sprintf("Ingesting %s timed out", repo),
			Cause:    "The run exceeded its deadline before all content was fetched",
			Fix:      "Retry, or raise ingestion.deadline_seconds in ~/.repolens/config.yaml",
			ExitCode: ExitTimeout,
			Err:      err,
		}
	case githost.KindCacheUnavailable:
		return &UserError{
			Message:  "The snapshot cache is unavailable",
			Cause:    "The cache backend could not be read or written",
			Fix:      "Check the cache.dir permissions, or switch cache.backend to memory",
			ExitCode: ExitCache,
			Err:      err,
		}
	case githost.KindTransient:
		return &UserError{
			Message:  fmt.Sprintf("Fetching %s failed", repo),
			Cause:    "The GitHub API or the network is temporarily unavailable",
			Fix:      "Retry in a moment; transient failures usually clear quickly",
			ExitCode: ExitNetwork,
			Err:      err,
		}
	}

	return &UserError{
		Message:  fmt.Sprintf("Ingesting %s failed unexpectedly", repo),
		Cause:    err.Error(),
		Fix:      "This is a bug. Please report it at github.com/repolens/repolens/issues",
		ExitCode: ExitInternal,
		Err:      err,
	}
}

var (
	colorError = color.New(color.FgRed, color.Bold)
	colorCause = color.New(color.FgYellow)
	colorFix   = color.New(color.FgGreen)
)

// Format returns the error rendered for terminal display, with Error,
// Cause, and Fix sections. Color respects NO_COLOR and the noColor
// parameter. Empty sections are omitted.
func (e *UserError) Format(noColor bool) string {
	originalNoColor := color.NoColor
	defer func() { color.NoColor = originalNoColor }()

	if noColor || os.Getenv("NO_COLOR") != "" {
		color.NoColor = true
	}

	var out strings.Builder
	out.WriteString(colorError.Sprint("Error: "))
	out.WriteString(e.Message)
	out.WriteString("\n")

	if e.Cause != "" {
		out.WriteString(colorCause.Sprint("Cause: "))
		out.WriteString(e.Cause)
		out.WriteString("\n")
	}
	if e.Fix != "" {
		out.WriteString(colorFix.Sprint("Fix:   "))
		out.WriteString(e.Fix)
		out.WriteString("\n")
	}
	return out.String()
}

// ErrorJSON is the machine-readable rendering used by --json mode.
type ErrorJSON struct {
	Error    string `json:"error"`
	Cause    string `json:"cause,omitempty"`
	Fix      string `json:"fix,omitempty"`
	ExitCode int    `json:"exit_code"`
}

func (e *UserError) ToJSON() ErrorJSON {
	return ErrorJSON{
		Error:    e.Message,
		Cause:    e.Cause,
		Fix:      e.Fix,
		ExitCode: e.ExitCode,
	}
}

// FatalError prints the error and exits with its code. Non-UserError
// values print plainly and exit with ExitInternal. Never returns.
func FatalError(err error, jsonOutput bool) {
	if err == nil {
		return
	}

	if ue, ok := err.(*UserError); ok {
		if jsonOutput {
			enc := json.NewEncoder(os.Stderr)
			enc.SetIndent("", "  ")
			_ = enc.Encode(ue.ToJSON())
		} else {
			fmt.Fprint(os.Stderr, ue.Format(false))
		}
		os.Exit(ue.ExitCode)
	}

	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(ExitInternal)
}
