package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/poiesic/docembed/ai"
	"github.com/poiesic/docembed/core"
	"github.com/poiesic/docembed/section"
	"github.com/poiesic/docembed/storage"
)

// Request describes one ingestion run.
type Request struct {
	Collection string // Target collection name
	VectorSize uint64 // Dimensionality used when the collection is (re)created
	Reset      bool   // Drop and recreate the collection before ingesting
	Body       string // Document text
}

// Report summarizes a pipeline run.
type Report struct {
	Collection string
	StartID    core.PointID // First ID allocated in this run
	Sections   int          // Sections produced by the sectionizer
	Failed     int          // Sections skipped because embedding failed
	Inserted   int          // Points written by the upsert
	Total      uint64       // Collection point count after the run
}

// Pipeline drives a document from raw text to stored points.
// A Pipeline holds no per-run state and may serve concurrent runs.
type Pipeline struct {
	store       storage.CollectionStore
	embedder    ai.Embedder
	sectionizer *section.Sectionizer
	monitor     Monitor
	logger      *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// WithSectionizer replaces the default sectionizer.
func WithSectionizer(s *section.Sectionizer) Option {
	return func(p *Pipeline) error {
		if s == nil {
			return fmt.Errorf("sectionizer cannot be nil")
		}
		p.sectionizer = s
		return nil
	}
}

// WithMonitor sets a monitor observing every run.
func WithMonitor(m Monitor) Option {
	return func(p *Pipeline) error {
		if m == nil {
			m = &noopMonitor{}
		}
		p.monitor = m
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(store storage.CollectionStore, embedder ai.Embedder, opts ...Option) (*Pipeline, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	p := &Pipeline{
		store:    store,
		embedder: embedder,
		monitor:  &noopMonitor{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(p); err != nil {
			return nil, err
		}
	}
	p.logger = p.logger.With("component", "ingestion")
	if p.sectionizer == nil {
		p.sectionizer = section.New(section.WithLogger(p.logger))
	}
	return p, nil
}

// Ingest runs the pipeline for req. The returned report is never nil and
// reflects how far the run got. A non-nil error means the run aborted; use
// Message to render the outcome for callers.
func (p *Pipeline) Ingest(ctx context.Context, req Request) (report *Report, err error) {
	report = &Report{Collection: req.Collection}
	logger := p.logger.With("collection", req.Collection)
	defer func() { p.monitor.Finish(report, err) }()

	start, err := p.startID(ctx, logger, req)
	if err != nil {
		return report, err
	}
	report.StartID = start
	logger.Debug("starting ID", "id", start)
	p.monitor.Start(req.Collection, start)

	ids := NewIDAllocator(start)
	var points []*core.Point
	for text := range p.sectionizer.Sections(req.Body) {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		index := report.Sections
		report.Sections++

		vectors, err := p.embedder.Embed(ctx, text)
		if err != nil {
			report.Failed++
			logger.Error("embedding failed, skipping section", "section", index, "err", err)
			p.monitor.SectionFailed(index, err)
			continue
		}

		hash := core.HashContentHex(text)
		for _, vector := range vectors {
			id := ids.Next()
			points = append(points, &core.Point{
				ID:     id,
				Vector: vector,
				Payload: core.Payload{
					Text: text,
					Extra: map[string]string{
						core.PayloadSection:     strconv.Itoa(index),
						core.PayloadContentHash: hash,
					},
				},
			})
			logger.Debug("created vector", "id", id, "length", len(vector))
		}
		p.monitor.SectionEmbedded(index, len(vectors))
	}

	if err := p.store.UpsertPoints(ctx, req.Collection, points...); err != nil {
		logger.Error("cannot upsert into database", "points", len(points), "err", err)
		return report, fmt.Errorf("%w: %w", ErrUpsert, err)
	}
	report.Inserted = len(points)

	// A failed re-count reports the run as an upsert failure even though the points were written.
	info, err := p.store.CollectionInfo(ctx, req.Collection)
	if err != nil {
		logger.Error("cannot get collection stat", "err", err)
		return report, fmt.Errorf("%w: %w", ErrUpsert, err)
	}
	report.Total = info.PointsCount
	logger.Info("ingestion complete",
		"sections", report.Sections, "failed", report.Failed,
		"inserted", report.Inserted, "total", report.Total)
	return report, nil
}

// startID prepares the collection and returns the first ID of the run.
func (p *Pipeline) startID(ctx context.Context, logger *slog.Logger, req Request) (core.PointID, error) {
	if req.Reset {
		logger.Debug("reset the collection")
		if err := p.store.DeleteCollection(ctx, req.Collection); err != nil {
			logger.Debug("delete before reset failed, ignoring", "err", err)
		}
		params := core.CollectionParams{VectorSize: req.VectorSize}
		if err := p.store.CreateCollection(ctx, req.Collection, params); err != nil {
			logger.Error("cannot create collection", "vector_size", req.VectorSize, "err", err)
			return 0, fmt.Errorf("%w: %w", ErrCreateCollection, err)
		}
		return 0, nil
	}

	logger.Debug("continue with existing collection")
	info, err := p.store.CollectionInfo(ctx, req.Collection)
	if err != nil {
		logger.Error("cannot get collection stat", "err", err)
		return 0, fmt.Errorf("%w: %w", ErrQueryCollection, err)
	}
	return core.PointID(info.PointsCount), nil
}
