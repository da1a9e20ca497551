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
	"os"

	"github.com/repolens/repolens/internal/errors"
	"github.com/repolens/repolens/internal/ui"
)

// runInvalidate handles the "invalidate" subcommand: drop one
// repository's cached snapshot so the next ingest refetches.
func runInvalidate(args []string, globals globalFlags) {
	fs := flag.NewFlagSet("invalidate", flag.ExitOnError)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: repolens invalidate <owner>/<repo>

Drops the cached snapshot for one repository. The next ingest or
context call fetches it again from the GitHub API.
`)
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

	store, err := cfg.openStore()
	if err != nil {
		errors.FatalError(errors.FromHostError(err, id.String()), globals.jsonOutput)
	}

	if err := store.Invalidate(context.Background(), id.Key()); err != nil {
		errors.FatalError(errors.FromHostError(err, id.String()), globals.jsonOutput)
	}
	ui.Successf("Invalidated cached snapshot for %s", id)
}
