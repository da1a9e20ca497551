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
	"time"

	"github.com/repolens/repolens/internal/errors"
	"github.com/repolens/repolens/internal/output"
	"github.com/repolens/repolens/internal/ui"
	"github.com/repolens/repolens/pkg/cache"
)

// statusReport is the --json shape of the status command.
type statusReport struct {
	ConfigPath   string            `json:"config_path"`
	CacheDir     string            `json:"cache_dir"`
	CacheBackend string            `json:"cache_backend"`
	TTLHours     int               `json:"ttl_hours"`
	Entries      []cache.EntryInfo `json:"entries"`
}

// runStatus handles the "status" subcommand: show the configuration in
// effect and every cached snapshot.
func runStatus(args []string, globals globalFlags) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: repolens status [<owner>/<repo>]

Shows the configuration in effect and the cached snapshots with their
freshness and size. With an <owner>/<repo> argument, only that
repository's entry is reported.
`)
	}

	if err := fs.Parse(args); err != nil {
		os.Exit(1)
	}

	var filterKey string
	if fs.NArg() > 0 {
		id, err := parseRepoArg(fs.Args())
		if err != nil {
			errors.FatalError(err, globals.jsonOutput)
		}
		filterKey = id.Key()
	}

	cfg, err := LoadConfig(globals.configPath)
	if err != nil {
		errors.FatalError(err, globals.jsonOutput)
	}

	report := statusReport{
		ConfigPath:   ConfigPath(globals.configPath),
		CacheDir:     cfg.Cache.Dir,
		CacheBackend: cfg.Cache.Backend,
		TTLHours:     cfg.Cache.TTLHours,
		Entries:      []cache.EntryInfo{},
	}

	// Only the file backend has entries that outlive the process.
	if cfg.Cache.Backend == "" || cfg.Cache.Backend == "file" {
		store, err := cache.NewFileStore(cfg.Cache.Dir, time.Duration(cfg.Cache.TTLHours)*time.Hour)
		if err != nil {
			errors.FatalError(errors.FromHostError(err, ""), globals.jsonOutput)
		}
		entries, err := store.List(context.Background())
		if err != nil {
			errors.FatalError(errors.FromHostError(err, ""), globals.jsonOutput)
		}
		report.Entries = entries
	}

	if filterKey != "" {
		kept := []cache.EntryInfo{}
		for _, e := range report.Entries {
			if e.Key == filterKey {
				kept = append(kept, e)
			}
		}
		report.Entries = kept
	}

	if globals.jsonOutput {
		output.JSON(report)
		return
	}

	ui.Header("RepoLens Status")
	fmt.Printf("%s %s\n", ui.Label("Config:"), report.ConfigPath)
	fmt.Printf("%s %s (%s)\n", ui.Label("Cache:"), report.CacheDir, report.CacheBackend)
	fmt.Printf("%s %dh\n", ui.Label("TTL:"), report.TTLHours)
	fmt.Println()

	if len(report.Entries) == 0 {
		fmt.Println("No cached snapshots. Run 'repolens ingest <owner>/<repo>' first.")
		return
	}

	ui.SubHeader(fmt.Sprintf("Cached snapshots (%d)", len(report.Entries)))
	for _, e := range report.Entries {
		state := "fresh"
		if !e.Fresh {
			state = "stale"
		}
		fmt.Printf("  %-40s %-6s %8s  created %s\n",
			e.Key, state, formatBytes(e.SizeBytes),
			e.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
}

// formatBytes renders a byte count for display, e.g. "12.4 KB".
func formatBytes(n int64) string {
	switch {
	case n >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	case n >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	default:
		return fmt.Sprintf("%d B", n)
	}
}
