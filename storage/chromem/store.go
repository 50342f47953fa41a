package chromem

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strconv"
	"sync"

	"github.com/philippgille/chromem-go"
	"github.com/poiesic/docembed/core"
	"github.com/poiesic/docembed/storage"
)

// metaVectorSize is the collection metadata key recording the vector size.
const metaVectorSize = "vector_size"

// errNoEmbeddingFunc is returned if chromem ever asks us to embed text.
// Points always carry their vector so this only fires on misuse.
var errNoEmbeddingFunc = errors.New("chromem: documents must carry an embedding")

func noEmbedding(context.Context, string) ([]float32, error) {
	return nil, errNoEmbeddingFunc
}

// Store implements storage.CollectionStore on top of chromem-go.
// chromem normalizes vectors on insert, so GetPoint returns unit-length vectors.
type Store struct {
	db     *chromem.DB
	logger *slog.Logger

	mu    sync.Mutex
	sizes map[string]uint64
}

var _ storage.CollectionStore = (*Store)(nil)

// NewMemoryStore creates a store that keeps everything in memory.
func NewMemoryStore() storage.CollectionStore {
	return newStore(chromem.NewDB())
}

// NewStore creates a store persisted under path.
func NewStore(path string, compress bool) (storage.CollectionStore, error) {
	db, err := chromem.NewPersistentDB(path, compress)
	if err != nil {
		return nil, fmt.Errorf("failed to open chromem database: %w", err)
	}
	return newStore(db), nil
}

func newStore(db *chromem.DB) *Store {
	return &Store{
		db:     db,
		logger: slog.Default().With("component", "chromem-store"),
		sizes:  make(map[string]uint64),
	}
}

// Close is a no-op; persistent databases are written on every change.
func (s *Store) Close() error {
	return nil
}

func (s *Store) collection(name string) (*chromem.Collection, error) {
	c := s.db.GetCollection(name, noEmbedding)
	if c == nil {
		return nil, fmt.Errorf("%w: %s", storage.ErrCollectionNotFound, name)
	}
	return c, nil
}

// vectorSize returns the vector size recorded at creation, or 0 for a
// collection created by another process.
func (s *Store) vectorSize(name string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sizes[name]
}

// CreateCollection creates an empty collection.
func (s *Store) CreateCollection(ctx context.Context, name string, params core.CollectionParams) error {
	if err := core.ValidateCollectionName(name); err != nil {
		return err
	}
	if err := core.ValidateCollectionParams(params); err != nil {
		return err
	}
	if s.db.GetCollection(name, noEmbedding) != nil {
		return fmt.Errorf("%w: %s", storage.ErrCollectionExists, name)
	}

	meta := map[string]string{metaVectorSize: strconv.FormatUint(params.VectorSize, 10)}
	if _, err := s.db.CreateCollection(name, meta, noEmbedding); err != nil {
		return fmt.Errorf("failed to create collection %s: %w", name, err)
	}

	s.mu.Lock()
	s.sizes[name] = params.VectorSize
	s.mu.Unlock()
	return nil
}

// DeleteCollection removes a collection and all of its points.
func (s *Store) DeleteCollection(ctx context.Context, name string) error {
	if _, err := s.collection(name); err != nil {
		return err
	}
	if err := s.db.DeleteCollection(name); err != nil {
		return fmt.Errorf("failed to delete collection %s: %w", name, err)
	}
	s.mu.Lock()
	delete(s.sizes, name)
	s.mu.Unlock()
	return nil
}

// CollectionInfo returns the vector size and point count of a collection.
func (s *Store) CollectionInfo(ctx context.Context, name string) (*core.CollectionInfo, error) {
	c, err := s.collection(name)
	if err != nil {
		return nil, err
	}
	return &core.CollectionInfo{
		Name:        name,
		VectorSize:  s.vectorSize(name),
		PointsCount: uint64(c.Count()),
	}, nil
}

// UpsertPoints adds points as chromem documents keyed by decimal ID.
func (s *Store) UpsertPoints(ctx context.Context, name string, points ...*core.Point) error {
	if len(points) == 0 {
		return nil
	}
	c, err := s.collection(name)
	if err != nil {
		return err
	}

	size := s.vectorSize(name)
	docs := make([]chromem.Document, 0, len(points))
	for _, p := range points {
		if err := core.ValidatePoint(p, size); err != nil {
			if errors.Is(err, core.ErrVectorSizeMismatch) {
				return fmt.Errorf("%w: point %d: %w", storage.ErrDimensionMismatch, p.ID, err)
			}
			return err
		}
		docs = append(docs, chromem.Document{
			ID:        strconv.FormatUint(uint64(p.ID), 10),
			Metadata:  p.Payload.Extra,
			Embedding: p.Vector,
			Content:   p.Payload.Text,
		})
	}

	if err := c.AddDocuments(ctx, docs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("failed to add documents to %s: %w", name, err)
	}
	return nil
}

// GetPoint retrieves a single point by ID.
func (s *Store) GetPoint(ctx context.Context, name string, id core.PointID) (*core.Point, error) {
	c, err := s.collection(name)
	if err != nil {
		return nil, err
	}
	doc, err := c.GetByID(ctx, strconv.FormatUint(uint64(id), 10))
	if err != nil {
		return nil, fmt.Errorf("%w: %d", storage.ErrNotFound, id)
	}
	return toPoint(doc.ID, doc.Embedding, doc.Content, doc.Metadata)
}

// Search returns up to limit points ordered by cosine similarity.
func (s *Store) Search(ctx context.Context, name string, vector []float32, limit int) ([]*core.ScoredPoint, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", storage.ErrInvalidQuery)
	}
	c, err := s.collection(name)
	if err != nil {
		return nil, err
	}
	if size := s.vectorSize(name); size > 0 && uint64(len(vector)) != size {
		return nil, fmt.Errorf("%w: got %d, want %d", storage.ErrDimensionMismatch, len(vector), size)
	}

	// chromem rejects nResults larger than the collection
	n := min(limit, c.Count())
	if n == 0 {
		return nil, nil
	}
	results, err := c.QueryEmbedding(ctx, vector, n, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", name, err)
	}

	scored := make([]*core.ScoredPoint, 0, len(results))
	for _, r := range results {
		point, err := toPoint(r.ID, r.Embedding, r.Content, r.Metadata)
		if err != nil {
			return nil, err
		}
		scored = append(scored, &core.ScoredPoint{Point: point, Score: r.Similarity})
	}
	return storage.TopScored(scored, limit), nil
}

func toPoint(id string, vector []float32, content string, meta map[string]string) (*core.Point, error) {
	parsed, err := strconv.ParseUint(id, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: document id %q: %w", storage.ErrSerializationFailed, id, err)
	}
	point := &core.Point{
		ID:      core.PointID(parsed),
		Vector:  vector,
		Payload: core.Payload{Text: content},
	}
	if len(meta) > 0 {
		point.Payload.Extra = meta
	}
	return point, nil
}
