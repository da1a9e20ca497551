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
	"os/signal"
	"syscall"

	"github.com/repolens/repolens/internal/errors"
	"github.com/repolens/repolens/internal/output"
	"github.com/repolens/repolens/pkg/assemble"
)

// runContext handles the "context" subcommand: assemble an LLM-ready
// document from a repository snapshot, ingesting first when the cache
// has nothing fresh.
func runContext(args []string, globals globalFlags) {
	fs := flag.NewFlagSet("context", flag.ExitOnError)
	maxChars := fs.Int("max-chars", 0, "Character budget for the document (default 200000)")
	maxFiles := fs.Int("max-files", 0, "Cap on file sections (0 = no cap)")
	query := fs.String("query", "", "Pull files matching these terms to the front")
	force := fs.Bool("force", false, "Bypass the snapshot cache and refetch")
	debug := fs.Bool("debug", false, "Enable debug logging")
	outPath := fs.String("out", "", "Write the document to a file instead of stdout")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: repolens context <owner>/<repo> [options]

Assembles a single LLM-ready document from the repository snapshot:
summary, directory tree, then whole files with overview files (README,
manifests) promoted to the front, under a hard character budget.

Options:
`)
		fs.PrintDefaults()
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

	logger := newLogger(*debug)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	pipeline, _, err := cfg.buildPipeline(logger)
	if err != nil {
		errors.FatalError(err, globals.jsonOutput)
	}

	result, err := pipeline.Ingest(ctx, id, *force)
	if err != nil {
		errors.FatalError(errors.FromHostError(err, id.String()), globals.jsonOutput)
	}

	doc := assemble.Build(result.Snapshot, assemble.Options{
		MaxChars: *maxChars,
		MaxFiles: *maxFiles,
		Query:    *query,
	})

	if *outPath != "" {
		if err := os.WriteFile(*outPath, []byte(doc.Text), 0644); err != nil {
			errors.FatalError(errors.NewInputError(
				"Cannot write context document",
				fmt.Sprintf("Writing %s failed: %v", *outPath, err),
				"Check the output path and its permissions",
			), globals.jsonOutput)
		}
		fmt.Fprintf(os.Stderr, "Wrote %d files (%d omitted) to %s\n",
			len(doc.IncludedFiles), len(doc.OmittedFiles), *outPath)
		return
	}

	if globals.jsonOutput {
		output.JSON(doc)
		return
	}
	fmt.Print(doc.Text)
}
