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

import "errors"

// Domain validation errors
var (
	// ErrInvalidPoint indicates a Point failed validation.
	ErrInvalidPoint = errors.New("invalid point")

	// ErrInvalidCollection indicates a collection name or parameter failed validation.
	ErrInvalidCollection = errors.New("invalid collection")

	// ErrEmptyVector indicates a point has no vector components.
	ErrEmptyVector = errors.New("vector cannot be empty")

	// ErrEmptyCollectionName indicates the collection name is empty.
	ErrEmptyCollectionName = errors.New("collection name cannot be empty")

	// ErrInvalidVectorSize indicates a vector size of zero.
	ErrInvalidVectorSize = errors.New("vector size must be greater than zero")

	// ErrVectorSizeMismatch indicates a vector whose length differs from the collection's vector size.
	ErrVectorSizeMismatch = errors.New("vector length does not match vector size")
)
