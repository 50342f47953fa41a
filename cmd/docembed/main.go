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


package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"unicode/utf8"

	"github.com/poiesic/docembed"
	"github.com/poiesic/docembed/config"
	"github.com/poiesic/docembed/ingestion"
	"github.com/poiesic/docembed/server"
	"github.com/urfave/cli/v2"
)

const configKey = "config"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "docembed",
		Usage: "Split documents into sections and store their embeddings in a vector database",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to YAML configuration file",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:  "driver",
				Usage: "Storage driver (badger, qdrant, chromem, sqlite)",
			},
			&cli.StringFlag{
				Name:    "db",
				Aliases: []string{"d"},
				Usage:   "Database path for badger, chromem or sqlite",
			},
			&cli.StringFlag{
				Name:  "qdrant-url",
				Usage: "Qdrant server URL",
			},
			&cli.StringFlag{
				Name:  "embedding-host",
				Usage: "Embedding service host URL",
			},
			&cli.StringFlag{
				Name:  "embedding-model",
				Usage: "Embedding model name",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Serve the ingestion and search HTTP API",
				Action: serveCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "addr",
						Usage: "Listen address (defaults to server.addr from config)",
					},
					&cli.IntFlag{
						Name:  "max-concurrent",
						Usage: "Maximum number of concurrent ingestion runs",
					},
				},
			},
			{
				Name:      "ingest",
				Usage:     "Ingest a document from a file or stdin",
				ArgsUsage: "[file]",
				Action:    ingestCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "collection",
						Aliases:  []string{"n"},
						Usage:    "Target collection name",
						Required: true,
					},
					&cli.Uint64Flag{
						Name:     "vector-size",
						Usage:    "Vector size used when the collection is created",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "reset",
						Usage: "Delete and recreate the collection before ingesting",
					},
				},
			},
			{
				Name:      "search",
				Usage:     "Find sections similar to a query",
				ArgsUsage: "<query>",
				Action:    searchCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "collection",
						Aliases:  []string{"n"},
						Usage:    "Collection to search",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of results",
						Value: 5,
					},
				},
			},
			{
				Name:   "info",
				Usage:  "Show a collection's vector size and point count",
				Action: infoCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "collection",
						Aliases:  []string{"n"},
						Usage:    "Collection name",
						Required: true,
					},
				},
			},
		},
	}
}

// loadConfig reads the config file, if any, and applies global flag overrides.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg := config.Default()
	if path := c.String("config"); path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if c.IsSet("log-level") || c.String("config") == "" {
		cfg.LogLevel = strings.ToLower(c.String("log-level"))
	}
	if c.IsSet("driver") {
		cfg.Storage.Driver = c.String("driver")
	}
	if c.IsSet("db") {
		cfg.Storage.Path = c.String("db")
	}
	if c.IsSet("qdrant-url") {
		cfg.Storage.URL = c.String("qdrant-url")
	}
	if c.IsSet("embedding-host") {
		cfg.Embedding.Host = c.String("embedding-host")
	}
	if c.IsSet("embedding-model") {
		cfg.Embedding.Model = c.String("embedding-model")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setupLogger(c *cli.Context) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return err
	}

	level, err := parseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	if c.App.Metadata == nil {
		c.App.Metadata = map[string]any{}
	}
	c.App.Metadata[configKey] = cfg
	return nil
}

func parseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", s)
}

func configFrom(c *cli.Context) (*config.Config, error) {
	if cfg, ok := c.App.Metadata[configKey].(*config.Config); ok {
		return cfg, nil
	}
	return loadConfig(c)
}

func openService(c *cli.Context) (*docembed.Service, *config.Config, error) {
	cfg, err := configFrom(c)
	if err != nil {
		return nil, nil, err
	}
	svc, err := docembed.NewService(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to start service: %w", err)
	}
	return svc, cfg, nil
}

func serveCommand(c *cli.Context) error {
	svc, cfg, err := openService(c)
	if err != nil {
		return err
	}
	defer svc.Close()

	addr := cfg.Server.Addr
	if c.IsSet("addr") {
		addr = c.String("addr")
	}
	maxConcurrent := cfg.Server.MaxConcurrent
	if c.IsSet("max-concurrent") {
		maxConcurrent = c.Int("max-concurrent")
	}

	pipeline, err := svc.NewIngestionPipeline()
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}
	searcher, err := svc.NewSearcher()
	if err != nil {
		return fmt.Errorf("failed to create searcher: %w", err)
	}

	srv, err := server.New(pipeline, searcher, svc.Store(), server.WithMaxConcurrent(maxConcurrent))
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	defer srv.Release()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(os.Stderr, "Storage: %s\n", cfg.Storage.Driver)
	fmt.Fprintf(os.Stderr, "Embedding host: %s\n", cfg.Embedding.Host)
	fmt.Fprintf(os.Stderr, "Embedding model: %s\n", cfg.Embedding.Model)
	fmt.Fprintln(os.Stderr)

	return srv.ListenAndServe(ctx, addr)
}

func readDocument(c *cli.Context) (string, error) {
	if c.NArg() > 1 {
		return "", fmt.Errorf("expected at most one file, got %d", c.NArg())
	}
	var r io.Reader = os.Stdin
	if path := c.Args().First(); path != "" && path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return "", fmt.Errorf("failed to open document: %w", err)
		}
		defer f.Close()
		r = f
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("failed to read document: %w", err)
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("document is not valid UTF-8")
	}
	return string(data), nil
}

func ingestCommand(c *cli.Context) error {
	body, err := readDocument(c)
	if err != nil {
		return err
	}

	svc, _, err := openService(c)
	if err != nil {
		return err
	}
	defer svc.Close()

	pipeline, err := svc.NewIngestionPipeline(ingestion.WithMonitor(ingestion.NewProgressMonitor(os.Stderr)))
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_, err = pipeline.Ingest(ctx, ingestion.Request{
		Collection: c.String("collection"),
		VectorSize: c.Uint64("vector-size"),
		Reset:      c.Bool("reset"),
		Body:       body,
	})
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}
	return nil
}

func searchCommand(c *cli.Context) error {
	query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if query == "" {
		return fmt.Errorf("a search query is required")
	}
	if c.Int("limit") <= 0 {
		return fmt.Errorf("limit must be greater than 0")
	}

	svc, _, err := openService(c)
	if err != nil {
		return err
	}
	defer svc.Close()

	searcher, err := svc.NewSearcher()
	if err != nil {
		return fmt.Errorf("failed to create searcher: %w", err)
	}

	results, err := searcher.FindSimilar(c.Context, c.String("collection"), query, c.Int("limit"))
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}
	if len(results) == 0 {
		fmt.Fprintln(c.App.Writer, "No results")
		return nil
	}
	for i, r := range results {
		fmt.Fprintf(c.App.Writer, "%d. [%.4f] id=%d\n%s\n", i+1, r.Score, r.Point.ID, strings.TrimSpace(r.Point.Payload.Text))
	}
	return nil
}

func infoCommand(c *cli.Context) error {
	svc, _, err := openService(c)
	if err != nil {
		return err
	}
	defer svc.Close()

	info, err := svc.Store().CollectionInfo(c.Context, c.String("collection"))
	if err != nil {
		return fmt.Errorf("failed to read collection: %w", err)
	}
	fmt.Fprintf(c.App.Writer, "Collection: %s\n", info.Name)
	fmt.Fprintf(c.App.Writer, "Vector size: %d\n", info.VectorSize)
	fmt.Fprintf(c.App.Writer, "Points: %d\n", info.PointsCount)
	return nil
}
