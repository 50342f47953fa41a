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


package ingestion

import "errors"

var (
	// ErrStoreRequired is returned when a collection store is not provided.
	ErrStoreRequired = errors.New("collection store required")

	// ErrEmbedderRequired is returned when an embedder is not provided.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrCreateCollection is returned when a reset run cannot create the collection.
	ErrCreateCollection = errors.New("cannot create collection")

	// ErrQueryCollection is returned when a continuation run cannot read the collection.
	ErrQueryCollection = errors.New("cannot query collection")

	// ErrUpsert is returned when points cannot be written or the final count cannot be read.
	ErrUpsert = errors.New("cannot upsert into collection")
)
