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


package badger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/docembed/core"
	"github.com/poiesic/docembed/storage"
)

// Store implements storage.CollectionStore on top of BadgerDB.
type Store struct {
	backend     *Backend
	ownsBackend bool
	logger      *slog.Logger
}

var _ storage.CollectionStore = (*Store)(nil)

// NewStore opens (or creates) a BadgerDB database in the directory at path.
func NewStore(path string) (storage.CollectionStore, error) {
	backend, err := OpenBackend(path, false)
	if err != nil {
		return nil, err
	}
	return newStore(backend, true), nil
}

// NewStoreWithBackend creates a store on an existing backend.
// The caller keeps ownership of backend and must close it.
func NewStoreWithBackend(backend *Backend) (storage.CollectionStore, error) {
	if backend == nil {
		return nil, fmt.Errorf("backend cannot be nil")
	}
	return newStore(backend, false), nil
}

func newStore(backend *Backend, owns bool) *Store {
	return &Store{
		backend:     backend,
		ownsBackend: owns,
		logger:      backend.logger.With("component", "badger-store"),
	}
}

// Close closes the backend if the store opened it.
func (s *Store) Close() error {
	if !s.ownsBackend || s.backend.IsClosed() {
		return nil
	}
	return s.backend.Close()
}

func (s *Store) checkOpen() error {
	if s.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	return nil
}

// readParams loads a collection's parameters inside tx.
func readParams(tx *badger.Txn, name string) (core.CollectionParams, error) {
	item, err := tx.Get(makeCollectionKey(name))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return core.CollectionParams{}, fmt.Errorf("%w: %s", storage.ErrCollectionNotFound, name)
	}
	if err != nil {
		return core.CollectionParams{}, err
	}
	var params core.CollectionParams
	err = item.Value(func(val []byte) error {
		var err error
		params, err = storage.UnmarshalCollectionParams(val)
		return err
	})
	return params, err
}

// CreateCollection creates an empty collection.
func (s *Store) CreateCollection(ctx context.Context, name string, params core.CollectionParams) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if err := core.ValidateCollectionName(name); err != nil {
		return err
	}
	if err := core.ValidateCollectionParams(params); err != nil {
		return err
	}

	return s.backend.WithTx(func(tx *badger.Txn) error {
		key := makeCollectionKey(name)
		if _, err := tx.Get(key); err == nil {
			return fmt.Errorf("%w: %s", storage.ErrCollectionExists, name)
		} else if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		if err := tx.Set(key, storage.MarshalCollectionParams(params)); err != nil {
			return err
		}
		s.logger.Debug("created collection", "collection", name, "vector_size", params.VectorSize)
		return tx.Commit()
	}, true)
}

// DeleteCollection removes a collection and all of its points.
func (s *Store) DeleteCollection(ctx context.Context, name string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		_, err := readParams(tx, name)
		return err
	}, false)
	if err != nil {
		return err
	}

	if err := s.backend.DropPrefix(makePointPrefix(name), makeCollectionKey(name)); err != nil {
		return fmt.Errorf("failed to drop collection %s: %w", name, err)
	}
	s.logger.Debug("deleted collection", "collection", name)
	return nil
}

// CollectionInfo returns the vector size and point count of a collection.
func (s *Store) CollectionInfo(ctx context.Context, name string) (*core.CollectionInfo, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	var info *core.CollectionInfo
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		params, err := readParams(tx, name)
		if err != nil {
			return err
		}
		info = &core.CollectionInfo{
			Name:        name,
			VectorSize:  params.VectorSize,
			PointsCount: countPrefix(tx, makePointPrefix(name)),
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return info, nil
}

// UpsertPoints writes points in a single transaction. Batches too large for
// one BadgerDB transaction are split across several commits.
func (s *Store) UpsertPoints(ctx context.Context, name string, points ...*core.Point) error {
	if err := s.checkOpen(); err != nil {
		return err
	}
	if len(points) == 0 {
		return nil
	}

	var params core.CollectionParams
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		params, err = readParams(tx, name)
		return err
	}, false)
	if err != nil {
		return err
	}

	for _, p := range points {
		if err := core.ValidatePoint(p, params.VectorSize); err != nil {
			if errors.Is(err, core.ErrVectorSizeMismatch) {
				return fmt.Errorf("%w: point %d: %w", storage.ErrDimensionMismatch, p.ID, err)
			}
			return err
		}
	}

	remaining := points
	for len(remaining) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		written := 0
		err := s.backend.WithTx(func(tx *badger.Txn) error {
			for _, p := range remaining {
				err := tx.Set(makePointKey(name, p.ID), storage.MarshalPoint(p))
				if errors.Is(err, badger.ErrTxnTooBig) && written > 0 {
					break
				}
				if err != nil {
					return err
				}
				written++
			}
			return tx.Commit()
		}, true)
		if err != nil {
			return fmt.Errorf("failed to upsert points into %s: %w", name, err)
		}
		remaining = remaining[written:]
	}

	s.logger.Debug("upserted points", "collection", name, "count", len(points))
	return nil
}

// GetPoint retrieves a single point by ID.
func (s *Store) GetPoint(ctx context.Context, name string, id core.PointID) (*core.Point, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	var point *core.Point
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		if _, err := readParams(tx, name); err != nil {
			return err
		}
		item, err := tx.Get(makePointKey(name, id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return fmt.Errorf("%w: %d", storage.ErrNotFound, id)
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			point, err = storage.UnmarshalPoint(val)
			return err
		})
	}, false)
	if err != nil {
		return nil, err
	}
	return point, nil
}

// Search scans every point of the collection and returns the closest by cosine similarity.
func (s *Store) Search(ctx context.Context, name string, vector []float32, limit int) ([]*core.ScoredPoint, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", storage.ErrInvalidQuery)
	}

	var results []*core.ScoredPoint
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		params, err := readParams(tx, name)
		if err != nil {
			return err
		}
		if uint64(len(vector)) != params.VectorSize {
			return fmt.Errorf("%w: got %d, want %d", storage.ErrDimensionMismatch, len(vector), params.VectorSize)
		}

		opts := badger.DefaultIteratorOptions
		opts.Prefix = makePointPrefix(name)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			var point *core.Point
			err := iter.Item().Value(func(val []byte) error {
				var err error
				point, err = storage.UnmarshalPoint(val)
				return err
			})
			if err != nil {
				return err
			}
			results = append(results, &core.ScoredPoint{
				Point: point,
				Score: storage.CosineSimilarity(vector, point.Vector),
			})
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	return storage.TopScored(results, limit), nil
}
