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


package core

import (
	"fmt"
	"strings"
)

// ValidatePoint validates a Point against the vector size of its collection.
//
// Validation rules:
//   - Vector must not be empty
//   - Vector length must equal vectorSize when vectorSize is non-zero
//
// NOT validated:
//   - ID (0 is the first ID of a reset collection)
//   - Payload (an empty section text is stored as-is)
func ValidatePoint(point *Point, vectorSize uint64) error {
	if point == nil {
		return fmt.Errorf("%w: point is nil", ErrInvalidPoint)
	}

	if len(point.Vector) == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidPoint, ErrEmptyVector)
	}

	if vectorSize > 0 && uint64(len(point.Vector)) != vectorSize {
		return fmt.Errorf("%w: %w: got %d, want %d", ErrInvalidPoint, ErrVectorSizeMismatch, len(point.Vector), vectorSize)
	}

	return nil
}

// ValidateCollectionName checks that a collection name is usable by every store.
// Names must be non-empty and must not contain '/' or ':' since both are used as
// separators in storage keys and REST paths.
func ValidateCollectionName(name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%w: %w", ErrInvalidCollection, ErrEmptyCollectionName)
	}
	if strings.ContainsAny(name, "/:") {
		return fmt.Errorf("%w: name %q contains a reserved character", ErrInvalidCollection, name)
	}
	return nil
}

// ValidateCollectionParams validates the parameters used to create a collection.
func ValidateCollectionParams(params CollectionParams) error {
	if params.VectorSize == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidCollection, ErrInvalidVectorSize)
	}
	return nil
}
