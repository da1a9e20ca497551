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
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/repolens/repolens/internal/errors"
	"github.com/repolens/repolens/internal/ui"
)

// purger is the optional bulk-delete surface a store may offer.
type purger interface {
	Purge(ctx context.Context) (int, error)
}

// runPurge handles the "purge" subcommand: drop every cached snapshot.
func runPurge(args []string, globals globalFlags) {
	fs := flag.NewFlagSet("purge", flag.ExitOnError)
	confirm := fs.BoolP("yes", "y", false, "Confirm the purge (required)")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: repolens purge [options]

Deletes every cached snapshot. The next ingest of any repository
fetches it again from the GitHub API.

WARNING: This operation is destructive and cannot be undone!

Options:
%s`, fs.FlagUsages())
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	if !*confirm {
		fmt.Fprintf(os.Stderr, "Error: you must pass --yes to confirm the purge\n")
		fmt.Fprintf(os.Stderr, "This will delete every cached snapshot.\n")
		os.Exit(1)
	}

	cfg, err := LoadConfig(globals.configPath)
	if err != nil {
		errors.FatalError(err, globals.jsonOutput)
	}

	store, err := cfg.openStore()
	if err != nil {
		errors.FatalError(errors.FromHostError(err, ""), globals.jsonOutput)
	}

	p, ok := store.(purger)
	if !ok {
		errors.FatalError(errors.NewCacheError(
			"Cache backend does not support purge",
			fmt.Sprintf("Backend %q has no bulk delete", cfg.Cache.Backend),
			"Use 'repolens invalidate <owner>/<repo>' per repository instead",
			nil,
		), globals.jsonOutput)
	}

	n, err := p.Purge(context.Background())
	if err != nil {
		errors.FatalError(errors.FromHostError(err, ""), globals.jsonOutput)
	}
	ui.Successf("Purged %d cached snapshot(s)", n)
}
