// Copyright 2025 Poiesic Systems
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


// Package config loads docembed settings from YAML.
package config

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/poiesic/docembed/ai"
	"github.com/poiesic/docembed/section"
	"gopkg.in/yaml.v3"
)

// Storage drivers.
const (
	DriverBadger  = "badger"
	DriverQdrant  = "qdrant"
	DriverChromem = "chromem"
	DriverSQLite  = "sqlite"
)

// Config is the top-level configuration file.
type Config struct {
	LogLevel   string           `yaml:"log_level"`
	Server     ServerConfig     `yaml:"server"`
	Sectioning SectioningConfig `yaml:"sectioning"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Storage    StorageConfig    `yaml:"storage"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	Addr string `yaml:"addr"`

	// MaxConcurrent bounds how many ingestion runs execute at once.
	MaxConcurrent int `yaml:"max_concurrent"`
}

// SectioningConfig configures how documents are split.
type SectioningConfig struct {
	SoftLimit      int  `yaml:"soft_limit"`
	SoftMinimum    int  `yaml:"soft_minimum"`
	FlushRemainder bool `yaml:"flush_remainder"`
}

// EmbeddingConfig configures the embedding service.
type EmbeddingConfig struct {
	Provider      string        `yaml:"provider"`
	Host          string        `yaml:"host"`
	Model         string        `yaml:"model"`
	Token         string        `yaml:"token"`
	MaxAttempts   int           `yaml:"max_attempts"`
	RetryDelay    time.Duration `yaml:"retry_delay"`
	StripNewlines bool          `yaml:"strip_newlines"`
}

// StorageConfig selects and configures the collection store.
type StorageConfig struct {
	// Driver is one of badger, qdrant, chromem or sqlite.
	Driver string `yaml:"driver"`

	// Path is the database directory (badger, chromem) or file (sqlite).
	Path string `yaml:"path"`

	// URL and APIKey address a Qdrant server.
	URL    string `yaml:"url"`
	APIKey string `yaml:"api_key"`

	// InMemory keeps badger, chromem and sqlite data in memory only.
	InMemory bool `yaml:"in_memory"`

	// Timeout bounds each request to a remote store.
	Timeout time.Duration `yaml:"timeout"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	aiCfg := ai.DefaultConfig()
	return &Config{
		LogLevel: "info",
		Server: ServerConfig{
			Addr:          ":8080",
			MaxConcurrent: runtime.NumCPU(),
		},
		Sectioning: SectioningConfig{
			SoftLimit:   section.DefaultSoftLimit,
			SoftMinimum: section.DefaultSoftMinimum,
		},
		Embedding: EmbeddingConfig{
			Provider:    aiCfg.Provider,
			Host:        aiCfg.EmbeddingHost,
			Model:       aiCfg.EmbeddingModel,
			MaxAttempts: aiCfg.MaxAttempts,
			RetryDelay:  aiCfg.RetryDelay,
		},
		Storage: StorageConfig{
			Driver:  DriverBadger,
			Path:    "docembed.db",
			Timeout: 10 * time.Second,
		},
	}
}

// Load reads the YAML file at path on top of the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML on top of the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every section of the configuration.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: log_level %q", ErrInvalidConfig, c.LogLevel)
	}
	if c.Server.MaxConcurrent < 1 {
		return fmt.Errorf("%w: server.max_concurrent must be at least 1", ErrInvalidConfig)
	}
	if c.Sectioning.SoftLimit < 1 {
		return fmt.Errorf("%w: sectioning.soft_limit must be positive", ErrInvalidConfig)
	}
	if c.Sectioning.SoftMinimum < 0 || c.Sectioning.SoftMinimum >= c.Sectioning.SoftLimit {
		return fmt.Errorf("%w: sectioning.soft_minimum must be in [0, soft_limit)", ErrInvalidConfig)
	}
	if err := c.Embedding.AIConfig().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return c.Storage.Validate()
}

// Validate checks that the selected driver has what it needs.
func (s *StorageConfig) Validate() error {
	switch s.Driver {
	case DriverBadger, DriverChromem, DriverSQLite:
		if !s.InMemory && s.Path == "" {
			return fmt.Errorf("%w: storage.path is required for %s", ErrInvalidConfig, s.Driver)
		}
	case DriverQdrant:
		if s.URL == "" {
			return fmt.Errorf("%w: storage.url is required for qdrant", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownDriver, s.Driver)
	}
	if s.Timeout < 0 {
		return fmt.Errorf("%w: storage.timeout cannot be negative", ErrInvalidConfig)
	}
	return nil
}

// AIConfig converts the embedding section into an ai.Config.
func (e *EmbeddingConfig) AIConfig() *ai.Config {
	return ai.NewConfig(
		ai.WithProvider(e.Provider),
		ai.WithEmbeddingHost(e.Host),
		ai.WithEmbeddingModel(e.Model),
		ai.WithToken(e.Token),
		ai.WithMaxAttempts(e.MaxAttempts),
		ai.WithRetryDelay(e.RetryDelay),
		ai.WithStripNewLines(e.StripNewlines),
	)
}

// Options converts the sectioning section into sectionizer options.
func (s *SectioningConfig) Options() []section.Option {
	return []section.Option{
		section.WithSoftLimit(s.SoftLimit),
		section.WithSoftMinimum(s.SoftMinimum),
		section.WithFlushRemainder(s.FlushRemainder),
	}
}
