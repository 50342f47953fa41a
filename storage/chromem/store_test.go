package chromem

import (
	"context"
	"testing"

	"github.com/poiesic/docembed/core"
	"github.com/poiesic/docembed/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStore_CollectionLifecycle(t *testing.T) {
	store := NewMemoryStore()
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, store.CreateCollection(ctx, "docs", core.CollectionParams{VectorSize: 2}))
	assert.ErrorIs(t, store.CreateCollection(ctx, "docs", core.CollectionParams{VectorSize: 2}), storage.ErrCollectionExists)

	info, err := store.CollectionInfo(ctx, "docs")
	require.NoError(t, err)
	assert.Equal(t, &core.CollectionInfo{Name: "docs", VectorSize: 2}, info)

	require.NoError(t, store.DeleteCollection(ctx, "docs"))
	_, err = store.CollectionInfo(ctx, "docs")
	assert.ErrorIs(t, err, storage.ErrCollectionNotFound)
	assert.ErrorIs(t, store.DeleteCollection(ctx, "docs"), storage.ErrCollectionNotFound)
}

func TestStore_UpsertAndGet(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.CreateCollection(ctx, "docs", core.CollectionParams{VectorSize: 2}))

	err := store.UpsertPoints(ctx, "docs",
		&core.Point{ID: 0, Vector: []float32{1, 0}, Payload: core.Payload{Text: "east", Extra: map[string]string{"section": "0"}}},
		&core.Point{ID: 1, Vector: []float32{0, 1}, Payload: core.Payload{Text: "north"}},
	)
	require.NoError(t, err)

	info, err := store.CollectionInfo(ctx, "docs")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), info.PointsCount)

	got, err := store.GetPoint(ctx, "docs", 0)
	require.NoError(t, err)
	assert.Equal(t, "east", got.Payload.Text)
	assert.Equal(t, "0", got.Payload.Extra["section"])
	assert.InDeltaSlice(t, []float32{1, 0}, got.Vector, 1e-6)

	_, err = store.GetPoint(ctx, "docs", 5)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStore_UpsertErrors(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	err := store.UpsertPoints(ctx, "missing", &core.Point{ID: 0, Vector: []float32{1}})
	assert.ErrorIs(t, err, storage.ErrCollectionNotFound)

	require.NoError(t, store.CreateCollection(ctx, "docs", core.CollectionParams{VectorSize: 2}))
	err = store.UpsertPoints(ctx, "docs", &core.Point{ID: 0, Vector: []float32{1, 0, 0}})
	assert.ErrorIs(t, err, storage.ErrDimensionMismatch)

	assert.NoError(t, store.UpsertPoints(ctx, "docs"))
}

func TestStore_Search(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	require.NoError(t, store.CreateCollection(ctx, "docs", core.CollectionParams{VectorSize: 2}))

	results, err := store.Search(ctx, "docs", []float32{1, 0}, 5)
	require.NoError(t, err)
	assert.Empty(t, results)

	require.NoError(t, store.UpsertPoints(ctx, "docs",
		&core.Point{ID: 0, Vector: []float32{1, 0}, Payload: core.Payload{Text: "east"}},
		&core.Point{ID: 1, Vector: []float32{0, 1}, Payload: core.Payload{Text: "north"}},
	))

	results, err = store.Search(ctx, "docs", []float32{0.9, 0.1}, 5)
	require.NoError(t, err)
	require.Len(t, results, 2, "limit is clamped to the collection size")
	assert.Equal(t, "east", results[0].Point.Payload.Text)
	assert.Greater(t, results[0].Score, results[1].Score)

	_, err = store.Search(ctx, "docs", []float32{1}, 1)
	assert.ErrorIs(t, err, storage.ErrDimensionMismatch)

	_, err = store.Search(ctx, "docs", []float32{1, 0}, 0)
	assert.ErrorIs(t, err, storage.ErrInvalidQuery)
}

func TestNewStore_Persistent(t *testing.T) {
	store, err := NewStore(t.TempDir(), false)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.CreateCollection(ctx, "docs", core.CollectionParams{VectorSize: 2}))
	require.NoError(t, store.UpsertPoints(ctx, "docs", &core.Point{ID: 3, Vector: []float32{0, 1}, Payload: core.Payload{Text: "kept"}}))

	got, err := store.GetPoint(ctx, "docs", 3)
	require.NoError(t, err)
	assert.Equal(t, "kept", got.Payload.Text)
}
