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


package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/poiesic/docembed/core"
	"github.com/poiesic/docembed/storage"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS collections (
	name        TEXT PRIMARY KEY,
	vector_size INTEGER NOT NULL
);
CREATE TABLE IF NOT EXISTS points (
	collection TEXT NOT NULL REFERENCES collections(name) ON DELETE CASCADE,
	id         INTEGER NOT NULL,
	data       BLOB NOT NULL,
	PRIMARY KEY (collection, id)
);
`

// Store implements storage.CollectionStore on a single SQLite file.
// Points are stored as encoded blobs and searched by a full scan.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ storage.CollectionStore = (*Store)(nil)

// NewStore opens or creates the database file at path.
func NewStore(path string) (storage.CollectionStore, error) {
	if path == "" {
		return nil, errors.New("sqlite path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}
	return open(path + "?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
}

// NewMemoryStore opens a private in-memory database.
func NewMemoryStore() (storage.CollectionStore, error) {
	return open(":memory:?_pragma=foreign_keys(1)")
}

func open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps :memory: databases shared and serializes writers.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &Store{
		db:     db,
		logger: slog.Default().With("component", "sqlite-store"),
	}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) vectorSize(ctx context.Context, q interface {
	QueryRowContext(context.Context, string, ...any) *sql.Row
}, name string) (uint64, error) {
	var size int64
	err := q.QueryRowContext(ctx, `SELECT vector_size FROM collections WHERE name = ?`, name).Scan(&size)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: %s", storage.ErrCollectionNotFound, name)
	}
	if err != nil {
		return 0, mapClosed(err)
	}
	return uint64(size), nil
}

// CreateCollection creates an empty collection.
func (s *Store) CreateCollection(ctx context.Context, name string, params core.CollectionParams) error {
	if err := core.ValidateCollectionName(name); err != nil {
		return err
	}
	if err := core.ValidateCollectionParams(params); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO collections (name, vector_size) VALUES (?, ?) ON CONFLICT(name) DO NOTHING`,
		name, int64(params.VectorSize))
	if err != nil {
		return mapClosed(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", storage.ErrCollectionExists, name)
	}
	return nil
}

// DeleteCollection removes a collection and all of its points.
func (s *Store) DeleteCollection(ctx context.Context, name string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := s.vectorSize(ctx, tx, name); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM points WHERE collection = ?`, name); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM collections WHERE name = ?`, name)
		return err
	})
}

// CollectionInfo returns the vector size and point count of a collection.
func (s *Store) CollectionInfo(ctx context.Context, name string) (*core.CollectionInfo, error) {
	size, err := s.vectorSize(ctx, s.db, name)
	if err != nil {
		return nil, err
	}
	var count int64
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM points WHERE collection = ?`, name).Scan(&count); err != nil {
		return nil, mapClosed(err)
	}
	return &core.CollectionInfo{
		Name:        name,
		VectorSize:  size,
		PointsCount: uint64(count),
	}, nil
}

// UpsertPoints writes all points in one transaction.
func (s *Store) UpsertPoints(ctx context.Context, name string, points ...*core.Point) error {
	if len(points) == 0 {
		return nil
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		size, err := s.vectorSize(ctx, tx, name)
		if err != nil {
			return err
		}
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO points (collection, id, data) VALUES (?, ?, ?)
			ON CONFLICT(collection, id) DO UPDATE SET data = excluded.data`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, p := range points {
			if err := core.ValidatePoint(p, size); err != nil {
				if errors.Is(err, core.ErrVectorSizeMismatch) {
					return fmt.Errorf("%w: point %d: %w", storage.ErrDimensionMismatch, p.ID, err)
				}
				return err
			}
			if _, err := stmt.ExecContext(ctx, name, int64(p.ID), storage.MarshalPoint(p)); err != nil {
				return fmt.Errorf("failed to upsert point %d: %w", p.ID, err)
			}
		}
		return nil
	})
}

// GetPoint retrieves a single point by ID.
func (s *Store) GetPoint(ctx context.Context, name string, id core.PointID) (*core.Point, error) {
	if _, err := s.vectorSize(ctx, s.db, name); err != nil {
		return nil, err
	}
	var data []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT data FROM points WHERE collection = ? AND id = ?`, name, int64(id)).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", storage.ErrNotFound, id)
	}
	if err != nil {
		return nil, mapClosed(err)
	}
	return storage.UnmarshalPoint(data)
}

// Search scans the collection and returns the closest points by cosine similarity.
func (s *Store) Search(ctx context.Context, name string, vector []float32, limit int) ([]*core.ScoredPoint, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", storage.ErrInvalidQuery)
	}
	size, err := s.vectorSize(ctx, s.db, name)
	if err != nil {
		return nil, err
	}
	if uint64(len(vector)) != size {
		return nil, fmt.Errorf("%w: got %d, want %d", storage.ErrDimensionMismatch, len(vector), size)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT data FROM points WHERE collection = ?`, name)
	if err != nil {
		return nil, mapClosed(err)
	}
	defer rows.Close()

	var results []*core.ScoredPoint
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		point, err := storage.UnmarshalPoint(data)
		if err != nil {
			return nil, err
		}
		results = append(results, &core.ScoredPoint{
			Point: point,
			Score: storage.CosineSimilarity(vector, point.Vector),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return storage.TopScored(results, limit), nil
}

// withTx runs fn in a transaction, committing only if fn succeeds.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return mapClosed(err)
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			s.logger.Warn("rollback failed", "error", rbErr)
		}
		return err
	}
	return tx.Commit()
}

func mapClosed(err error) error {
	if err != nil && err.Error() == "sql: database is closed" {
		return fmt.Errorf("%w: %w", storage.ErrStorageClosed, err)
	}
	return err
}
