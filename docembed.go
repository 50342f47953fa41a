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


// Package docembed wires embedders, collection stores and the ingestion
// pipeline together from a single configuration.
package docembed

import (
	"fmt"
	"log/slog"

	"github.com/poiesic/docembed/ai"
	"github.com/poiesic/docembed/ai/ollama"
	"github.com/poiesic/docembed/ai/openai"
	"github.com/poiesic/docembed/config"
	"github.com/poiesic/docembed/ingestion"
	"github.com/poiesic/docembed/search"
	"github.com/poiesic/docembed/section"
	"github.com/poiesic/docembed/storage"
	"github.com/poiesic/docembed/storage/badger"
	"github.com/poiesic/docembed/storage/chromem"
	"github.com/poiesic/docembed/storage/qdrant"
	"github.com/poiesic/docembed/storage/sqlite"
)

// NewEmbedder creates the embedder selected by cfg, wrapped with retries.
func NewEmbedder(cfg *ai.Config) (ai.Embedder, error) {
	if cfg == nil {
		cfg = ai.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var (
		inner ai.Embedder
		err   error
	)
	switch cfg.Provider {
	case ai.ProviderOllama:
		inner, err = ollama.NewEmbedder(cfg)
	default:
		inner, err = openai.NewEmbedder(cfg)
	}
	if err != nil {
		return nil, err
	}
	return ai.NewRetryingEmbedder(inner, cfg.MaxAttempts, cfg.RetryDelay)
}

// OpenStore opens the collection store selected by cfg.
func OpenStore(cfg config.StorageConfig) (storage.CollectionStore, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Driver {
	case config.DriverBadger:
		if cfg.InMemory {
			return badger.NewMemoryStore()
		}
		return badger.NewStore(cfg.Path)
	case config.DriverChromem:
		if cfg.InMemory {
			return chromem.NewMemoryStore(), nil
		}
		return chromem.NewStore(cfg.Path, false)
	case config.DriverSQLite:
		if cfg.InMemory {
			return sqlite.NewMemoryStore()
		}
		return sqlite.NewStore(cfg.Path)
	case config.DriverQdrant:
		return qdrant.NewStore(cfg.URL, qdrant.WithAPIKey(cfg.APIKey), qdrant.WithTimeout(cfg.Timeout))
	}
	return nil, fmt.Errorf("%w: %q", config.ErrUnknownDriver, cfg.Driver)
}

// Service owns a store and an embedder and hands out pipelines and searchers over them.
type Service struct {
	store      storage.CollectionStore
	embedder   ai.Embedder
	sectioning config.SectioningConfig
	logger     *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithStore uses store instead of opening one from the configuration.
// The Service takes ownership and closes it.
func WithStore(store storage.CollectionStore) ServiceOption {
	return func(s *Service) {
		s.store = store
	}
}

// WithEmbedder uses embedder instead of building one from the configuration.
func WithEmbedder(embedder ai.Embedder) ServiceOption {
	return func(s *Service) {
		s.embedder = embedder
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService builds a Service from cfg.
func NewService(cfg *config.Config, opts ...ServiceOption) (*Service, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	s := &Service{
		sectioning: cfg.Sectioning,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.embedder == nil {
		embedder, err := NewEmbedder(cfg.Embedding.AIConfig())
		if err != nil {
			if s.store != nil {
				s.store.Close()
			}
			return nil, err
		}
		s.embedder = embedder
	}
	if s.store == nil {
		store, err := OpenStore(cfg.Storage)
		if err != nil {
			return nil, err
		}
		s.store = store
	}
	return s, nil
}

// Close closes the underlying store.
func (s *Service) Close() error {
	if err := s.store.Close(); err != nil {
		s.logger.Error("error closing collection store", "err", err)
		return err
	}
	return nil
}

// Store returns the collection store owned by the Service.
func (s *Service) Store() storage.CollectionStore {
	return s.store
}

// Embedder returns the embedder used by pipelines and searchers.
func (s *Service) Embedder() ai.Embedder {
	return s.embedder
}

// NewIngestionPipeline creates a pipeline using the configured sectioning.
// Options given here are applied after the defaults.
func (s *Service) NewIngestionPipeline(opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	sectionOpts := append(s.sectioning.Options(), section.WithLogger(s.logger))
	defaults := []ingestion.Option{
		ingestion.WithLogger(s.logger),
		ingestion.WithSectionizer(section.New(sectionOpts...)),
	}
	return ingestion.NewPipeline(s.store, s.embedder, append(defaults, opts...)...)
}

// NewSearcher creates a searcher over the Service's store and embedder.
// Options given here are applied after the defaults.
func (s *Service) NewSearcher(opts ...search.Option) (*search.Searcher, error) {
	defaults := []search.Option{search.WithLogger(s.logger)}
	return search.NewSearcher(s.store, s.embedder, append(defaults, opts...)...)
}
