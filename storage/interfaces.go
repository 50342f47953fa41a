package storage

import (
	"context"

	"github.com/poiesic/docembed/core"
)

// CollectionManager manages the lifecycle of named collections.
type CollectionManager interface {
	// CreateCollection creates an empty collection with the given vector size.
	// Returns ErrCollectionExists if a collection with that name already exists.
	CreateCollection(ctx context.Context, name string, params core.CollectionParams) error

	// DeleteCollection removes a collection and all of its points.
	// Returns ErrCollectionNotFound if the collection doesn't exist.
	DeleteCollection(ctx context.Context, name string) error

	// CollectionInfo returns the vector size and current point count of a collection.
	// Returns ErrCollectionNotFound if the collection doesn't exist.
	CollectionInfo(ctx context.Context, name string) (*core.CollectionInfo, error)
}

// PointRepository stores and queries points within a collection.
type PointRepository interface {
	// UpsertPoints inserts points, replacing any existing point with the same ID.
	// The batch is applied atomically where the backend supports it.
	// An empty batch is a no-op.
	// Returns ErrDimensionMismatch if a vector length differs from the collection's vector size.
	UpsertPoints(ctx context.Context, name string, points ...*core.Point) error

	// GetPoint retrieves a single point by ID.
	// Returns ErrNotFound if the point doesn't exist.
	GetPoint(ctx context.Context, name string, id core.PointID) (*core.Point, error)

	// Search returns up to limit points ordered by similarity to vector (highest first).
	Search(ctx context.Context, name string, vector []float32, limit int) ([]*core.ScoredPoint, error)
}

// CollectionStore is the full storage surface used by the ingestion pipeline and searcher.
// Implementations must be thread-safe and support concurrent access.
type CollectionStore interface {
	CollectionManager
	PointRepository

	// Close closes the storage backend and releases resources.
	Close() error
}
