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
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/repolens/repolens/internal/errors"
	"github.com/repolens/repolens/pkg/cache"
	"github.com/repolens/repolens/pkg/githost"
	"github.com/repolens/repolens/pkg/ingestion"
)

// Config is the repolens configuration, stored as YAML at
// ~/.repolens/config.yaml.
type Config struct {
	GitHub    GitHubConfig    `yaml:"github"`
	Cache     CacheConfig     `yaml:"cache"`
	Ingestion IngestionConfig `yaml:"ingestion"`
	Embedding EmbeddingConfig `yaml:"embedding"`
}

type GitHubConfig struct {
	// Token is an optional bearer token. The GITHUB_TOKEN environment
	// variable takes precedence when set.
	Token   string `yaml:"token,omitempty"`
	BaseURL string `yaml:"base_url,omitempty"`
}

type CacheConfig struct {
	// Backend selects the snapshot store: "file" or "memory".
	Backend  string `yaml:"backend"`
	Dir      string `yaml:"dir,omitempty"`
	TTLHours int    `yaml:"ttl_hours"`
}

type IngestionConfig struct {
	MaxDepth         int                    `yaml:"max_depth"`
	TopFiles         int                    `yaml:"top_files"`
	ContentBatchSize int                    `yaml:"content_batch_size"`
	MaxContentChars  int                    `yaml:"max_content_chars"`
	MaxTotalBytes    int64                  `yaml:"max_total_bytes"`
	DeadlineSeconds  int                    `yaml:"deadline_seconds"`
	Weights          ingestion.ScoreWeights `yaml:"weights"`
}

type EmbeddingConfig struct {
	// Provider selects the embedding backend: "mock", "ollama" or "openai".
	Provider string `yaml:"provider"`
}

// DefaultConfig returns the stock configuration.
func DefaultConfig() *Config {
	ing := ingestion.DefaultConfig()
	return &Config{
		GitHub: GitHubConfig{},
		Cache: CacheConfig{
			Backend:  "file",
			TTLHours: int(cache.DefaultTTL / time.Hour),
		},
		Ingestion: IngestionConfig{
			MaxDepth:         ing.Walk.MaxDepth,
			TopFiles:         ing.TopFiles,
			ContentBatchSize: ing.ContentBatchSize,
			MaxContentChars:  ing.MaxContentChars,
			MaxTotalBytes:    ing.MaxTotalBytes,
			DeadlineSeconds:  int(ing.Deadline / time.Second),
			Weights:          ing.Classifier.Weights,
		},
		Embedding: EmbeddingConfig{Provider: "mock"},
	}
}

// ConfigDir returns ~/.repolens, falling back to the working directory
// when the home directory cannot be resolved.
func ConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".repolens"
	}
	return filepath.Join(home, ".repolens")
}

// ConfigPath returns the config file location. An explicit path wins.
func ConfigPath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	return filepath.Join(ConfigDir(), "config.yaml")
}

// LoadConfig reads the configuration, layering defaults under whatever
// the file provides. A missing file is not an error; defaults apply.
// GITHUB_TOKEN always overrides the file token.
func LoadConfig(explicit string) (*Config, error) {
	cfg := DefaultConfig()
	path := ConfigPath(explicit)

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, errors.NewConfigError(
				"Cannot read repolens configuration",
				fmt.Sprintf("Reading %s failed: %v", path, err),
				"Check the file permissions, or run 'repolens init' to recreate it",
				err,
			)
		}
		if explicit != "" {
			return nil, errors.NewConfigError(
				"Configuration file not found",
				fmt.Sprintf("No file at %s", path),
				"Check the --config path, or run 'repolens init' to create one",
				err,
			)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.NewConfigError(
			"Cannot parse repolens configuration",
			fmt.Sprintf("%s is not valid YAML: %v", path, err),
			"Fix the file by hand, or run 'repolens init --force' to start over",
			err,
		)
	}

	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		cfg.GitHub.Token = token
	}
	if cfg.Cache.Dir == "" {
		cfg.Cache.Dir = filepath.Join(ConfigDir(), "cache")
	}
	return cfg, nil
}

// Save writes the configuration as YAML, creating the directory when
// needed.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return errors.NewConfigError(
			"Cannot create configuration directory",
			fmt.Sprintf("mkdir %s failed: %v", filepath.Dir(path), err),
			"Check the directory permissions",
			err,
		)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return errors.NewInternalError("Cannot encode configuration", err.Error(), "", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return errors.NewConfigError(
			"Cannot write configuration file",
			fmt.Sprintf("Writing %s failed: %v", path, err),
			"Check the file permissions",
			err,
		)
	}
	return nil
}

// ingestionConfig maps the YAML bounds onto the pipeline configuration.
func (c *Config) ingestionConfig() ingestion.Config {
	ing := ingestion.DefaultConfig()
	if c.Ingestion.MaxDepth > 0 {
		ing.Walk.MaxDepth = c.Ingestion.MaxDepth
	}
	if c.Ingestion.TopFiles > 0 {
		ing.TopFiles = c.Ingestion.TopFiles
	}
	if c.Ingestion.ContentBatchSize > 0 {
		ing.ContentBatchSize = c.Ingestion.ContentBatchSize
	}
	if c.Ingestion.MaxContentChars > 0 {
		ing.MaxContentChars = c.Ingestion.MaxContentChars
	}
	if c.Ingestion.MaxTotalBytes > 0 {
		ing.MaxTotalBytes = c.Ingestion.MaxTotalBytes
	}
	if c.Ingestion.DeadlineSeconds > 0 {
		ing.Deadline = time.Duration(c.Ingestion.DeadlineSeconds) * time.Second
	}
	if c.Ingestion.Weights != (ingestion.ScoreWeights{}) {
		ing.Classifier.Weights = c.Ingestion.Weights
	}
	return ing
}

// openStore builds the snapshot store selected by the configuration.
func (c *Config) openStore() (ingestion.Store, error) {
	ttl := time.Duration(c.Cache.TTLHours) * time.Hour
	switch c.Cache.Backend {
	case "", "file":
		store, err := cache.NewFileStore(c.Cache.Dir, ttl)
		if err != nil {
			return nil, errors.FromHostError(err, "")
		}
		return store, nil
	case "memory":
		return cache.NewMemoryStore(ttl), nil
	default:
		return nil, errors.NewConfigError(
			"Unknown cache backend",
			fmt.Sprintf("cache.backend %q is not supported", c.Cache.Backend),
			"Set cache.backend to file or memory in ~/.repolens/config.yaml",
			nil,
		)
	}
}

// buildPipeline wires the host client, snapshot store and pipeline
// from the configuration.
func (c *Config) buildPipeline(logger *slog.Logger) (*ingestion.Pipeline, ingestion.Store, error) {
	store, err := c.openStore()
	if err != nil {
		return nil, nil, err
	}

	host := githost.NewClient(githost.Config{
		BaseURL: c.GitHub.BaseURL,
		Token:   c.GitHub.Token,
	}, logger)

	return ingestion.NewPipeline(c.ingestionConfig(), host, store, logger), store, nil
}
