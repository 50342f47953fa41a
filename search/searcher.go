package search

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/poiesic/docembed/ai"
	"github.com/poiesic/docembed/core"
	"github.com/poiesic/docembed/storage"
)

// candidateFactor controls how many nearest points are fetched per requested
// hit so the verbatim boost can promote results from just below the cut.
const candidateFactor = 3

// Searcher provides semantic search over a collection with a verbatim-match boost.
type Searcher struct {
	store    storage.CollectionStore
	embedder ai.Embedder
	minScore float32
	logger   *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithMinScore drops candidates whose similarity is below score.
// Default is 0, which keeps every candidate.
func WithMinScore(score float32) Option {
	return func(s *Searcher) error {
		if score < -1 || score > 1 {
			return fmt.Errorf("min score %v out of range [-1, 1]", score)
		}
		s.minScore = score
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(store storage.CollectionStore, embedder ai.Embedder, opts ...Option) (*Searcher, error) {
	if store == nil {
		return nil, ErrStoreRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	s := &Searcher{
		store:    store,
		embedder: embedder,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "search")
	return s, nil
}

// FindSimilar searches collection for sections similar to query.
// Returns up to maxHits results, ranked by relevance score.
func (s *Searcher) FindSimilar(ctx context.Context, collection, query string, maxHits int) ([]*core.ScoredPoint, error) {
	return s.FindSimilarWithMonitor(ctx, collection, query, maxHits, nil)
}

// FindSimilarWithMonitor is FindSimilar with callbacks at each stage.
func (s *Searcher) FindSimilarWithMonitor(ctx context.Context, collection, query string, maxHits int, monitor SearchMonitor) ([]*core.ScoredPoint, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if maxHits <= 0 {
		return nil, fmt.Errorf("%w: maxHits must be positive", storage.ErrInvalidQuery)
	}
	monitor.Start(collection, query)

	vectors, err := s.embedder.Embed(ctx, query)
	if err != nil {
		s.logger.Error("error generating embedding for query", "query", query, "err", err)
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, ai.ErrEmptyEmbedding
	}

	candidates, err := s.store.Search(ctx, collection, vectors[0], maxHits*candidateFactor)
	if err != nil {
		s.logger.Error("error querying for similar sections", "collection", collection, "err", err)
		return nil, err
	}
	monitor.AfterSemanticSearch(candidates)

	m := newMatcher(query)
	results := make([]*core.ScoredPoint, 0, len(candidates))
	for _, c := range candidates {
		if c.Score < s.minScore {
			continue
		}
		score := c.Score
		if m.matches(c.Point.Payload.Text) {
			score += verbatimBoost
			monitor.VerbatimHit(c.Point)
		}
		results = append(results, &core.ScoredPoint{Point: c.Point, Score: score})
	}

	results = storage.TopScored(results, maxHits)
	s.logger.Debug("search complete", "collection", collection, "candidates", len(candidates), "results", len(results))
	monitor.Finish(results)
	return results, nil
}
