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


// Package storage provides the storage abstraction layer for docembed.
//
// This package defines the CollectionStore interface that decouples the
// ingestion pipeline from the vector database in use. Four backends are
// provided and can be used interchangeably:
//
//   - storage/badger: embedded BadgerDB store (default)
//   - storage/qdrant: remote Qdrant server over its REST API
//   - storage/chromem: embedded chromem-go store
//   - storage/sqlite: embedded SQLite store
//
// # Constructor Return Type Pattern
//
// Public constructors return the storage.CollectionStore INTERFACE:
//
//	store, err := badger.NewStore("/path/to/db") // returns storage.CollectionStore
//
// Internal constructors may return concrete types since they're only used
// within the implementation package.
//
// # Collections and Points
//
// A collection has a fixed vector size chosen at creation. Every point
// stored in it must carry a vector of exactly that length; local backends
// reject mismatches with ErrDimensionMismatch. Point IDs are chosen by the
// caller and upserting an existing ID replaces the stored point.
//
// # Usage
//
//	store, err := badger.NewMemoryStore()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer store.Close()
//
//	err = store.CreateCollection(ctx, "docs", core.CollectionParams{VectorSize: 768})
//	err = store.UpsertPoints(ctx, "docs", points...)
//	info, err := store.CollectionInfo(ctx, "docs")
//
// # Thread Safety
//
// All store implementations must be thread-safe and support
// concurrent access from multiple goroutines.
package storage
