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

// Package main implements the repolens CLI for ingesting GitHub
// repositories into reviewable snapshots.
//
// Usage:
//
//	repolens init                        Create ~/.repolens/config.yaml
//	repolens ingest <owner>/<repo>       Fetch, rank and snapshot a repository
//	repolens context <owner>/<repo>      Print an LLM-ready context document
//	repolens status [--json]             Show cached snapshots
//	repolens serve                       Start the HTTP API
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/repolens/repolens/internal/ui"
)

// Version information (set via ldflags during build)
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// globalFlags carries the options shared by every subcommand.
type globalFlags struct {
	configPath string
	jsonOutput bool
	noColor    bool
}

// main parses global flags and dispatches to command handlers.
//
// Global flags:
//   - --version: Display version information and exit
//   - --config: Path to config.yaml (default: ~/.repolens/config.yaml)
//   - --json: Machine-readable output where supported
//   - --no-color: Disable ANSI colors
func main() {
	var (
		showVersion = flag.Bool("version", false, "Show version and exit")
		configPath  = flag.String("config", "", "Path to config.yaml (default: ~/.repolens/config.yaml)")
		jsonOutput  = flag.Bool("json", false, "Machine-readable JSON output")
		noColor     = flag.Bool("no-color", false, "Disable colored output")
	)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `RepoLens - GitHub repository snapshots for code review and LLM context

RepoLens walks a repository through the GitHub contents API, ranks the
files that matter, fetches their content and caches the result as a
snapshot you can render, query over HTTP, or feed to a language model.

Usage:
  repolens <command> [options]

Commands:
  init          Create ~/.repolens/config.yaml
  ingest        Fetch, rank and snapshot a repository
  context       Print an LLM-ready context document from a snapshot
  status        Show cached snapshots
  invalidate    Drop one repository's cached snapshot
  purge         Drop every cached snapshot (destructive!)
  serve         Start the HTTP API

Global Options:
  --config      Path to config.yaml
  --json        Machine-readable JSON output
  --no-color    Disable colored output
  --version     Show version and exit

Examples:
  repolens init                          Write the default configuration
  repolens ingest golang/go              Snapshot a repository
  repolens ingest golang/go --force      Bypass the snapshot cache
  repolens context golang/go             Print assembled context
  repolens status --json                 List cached snapshots as JSON
  repolens serve --addr :8080            Serve the HTTP API

Getting Started:
  1. Write the configuration:   repolens init
  2. Snapshot a repository:     repolens ingest <owner>/<repo>
  3. Inspect the cache:         repolens status
  4. Assemble LLM context:      repolens context <owner>/<repo>

Data Storage:
  Snapshots are cached under ~/.repolens/cache/ for 6 hours.

Environment Variables:
  GITHUB_TOKEN       Bearer token for the GitHub API (higher rate limits)
  NO_COLOR           Disable colored output

For detailed command help: repolens <command> --help

`)
	}

	flag.Parse()

	if *showVersion {
		fmt.Printf("repolens version %s\n", version)
		fmt.Printf("commit: %s\n", commit)
		fmt.Printf("built: %s\n", date)
		os.Exit(0)
	}

	globals := globalFlags{
		configPath: *configPath,
		jsonOutput: *jsonOutput,
		noColor:    *noColor,
	}
	ui.InitColors(globals.noColor)

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(1)
	}

	command := args[0]
	cmdArgs := args[1:]

	switch command {
	case "init":
		runInit(cmdArgs, globals)
	case "ingest":
		runIngest(cmdArgs, globals)
	case "context":
		runContext(cmdArgs, globals)
	case "status":
		runStatus(cmdArgs, globals)
	case "invalidate":
		runInvalidate(cmdArgs, globals)
	case "purge":
		runPurge(cmdArgs, globals)
	case "serve":
		runServe(cmdArgs, globals)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		flag.Usage()
		os.Exit(1)
	}
}
