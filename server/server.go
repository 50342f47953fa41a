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


// Package server exposes document ingestion over HTTP.
//
// Ingestion requests always answer 200 with a text/html body carrying the
// outcome message, whether the pipeline succeeded or aborted. Only requests
// that cannot start a pipeline at all (bad query parameters or body) get a 400.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/docembed/ingestion"
	"github.com/poiesic/docembed/search"
	"github.com/poiesic/docembed/storage"
)

const shutdownTimeout = 10 * time.Second

// Server serves the ingestion, search and collection endpoints.
type Server struct {
	pipeline      *ingestion.Pipeline
	searcher      *search.Searcher
	store         storage.CollectionStore
	pool          *ants.Pool
	maxConcurrent int
	logger        *slog.Logger
	engine        *gin.Engine
}

// Option configures a Server.
type Option func(*Server) error

// WithMaxConcurrent bounds how many ingestion runs execute at once.
// Further requests wait for a free slot. Default is runtime.NumCPU().
func WithMaxConcurrent(n int) Option {
	return func(s *Server) error {
		if n < 1 {
			n = 1
		}
		s.maxConcurrent = n
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// New creates a server. Call Release when done to stop the worker pool.
func New(pipeline *ingestion.Pipeline, searcher *search.Searcher, store storage.CollectionStore, opts ...Option) (*Server, error) {
	if pipeline == nil {
		return nil, ErrPipelineRequired
	}
	if searcher == nil {
		return nil, ErrSearcherRequired
	}
	if store == nil {
		return nil, ErrStoreRequired
	}

	s := &Server{
		pipeline:      pipeline,
		searcher:      searcher,
		store:         store,
		maxConcurrent: runtime.NumCPU(),
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "server")

	pool, err := ants.NewPool(s.maxConcurrent)
	if err != nil {
		return nil, err
	}
	s.pool = pool
	s.engine = s.routes()
	return s, nil
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(s.requestLogger())

	r.POST("/", s.handleIngest)
	r.POST("/ingest", s.handleIngest)
	r.GET("/search", s.handleSearch)
	r.GET("/collections/:name", s.handleCollectionInfo)
	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	return r
}

// Handler returns the HTTP handler for the server's routes.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Release stops the worker pool. Requests waiting for a slot fail.
func (s *Server) Release() {
	s.pool.Release()
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
