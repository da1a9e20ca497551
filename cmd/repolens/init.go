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
	"flag"
	"fmt"
	"os"

	"github.com/repolens/repolens/internal/errors"
	"github.com/repolens/repolens/internal/ui"
)

// initFlags holds the parsed options for the init command.
type initFlags struct {
	force bool
	token string
}

// runInit handles the "init" subcommand: write the default
// configuration file.
func runInit(args []string, globals globalFlags) {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	opts := initFlags{}
	fs.BoolVar(&opts.force, "force", false, "Overwrite an existing configuration")
	fs.StringVar(&opts.token, "token", "", "GitHub token to store in the configuration")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: repolens init [options]

Writes the default configuration to ~/.repolens/config.yaml. Tune the
cache TTL, ingestion bounds and classifier weights by editing the file.

Options:
`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	path := ConfigPath(globals.configPath)
	if _, err := os.Stat(path); err == nil && !opts.force {
		errors.FatalError(errors.NewConfigError(
			"Configuration already exists",
			fmt.Sprintf("Found %s", path),
			"Pass --force to overwrite it",
			nil,
		), globals.jsonOutput)
	}

	cfg := DefaultConfig()
	cfg.GitHub.Token = opts.token
	if err := cfg.Save(path); err != nil {
		errors.FatalError(err, globals.jsonOutput)
	}

	ui.Successf("Wrote %s", path)
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  repolens ingest <owner>/<repo>    Snapshot a repository")
	fmt.Println("  repolens status                   Inspect the cache")
	if opts.token == "" && os.Getenv("GITHUB_TOKEN") == "" {
		fmt.Println()
		ui.Info("No GitHub token configured. Unauthenticated requests are rate-limited to 60/hour; set GITHUB_TOKEN or github.token in the config.")
	}
}
