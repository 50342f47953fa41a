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


package ai

import "errors"

var (
	// ErrInvalidMaxAttempts is returned when maxAttempts is <= 0.
	ErrInvalidMaxAttempts = errors.New("maxAttempts must be greater than 0")

	// ErrEmbedderRequired is returned when a nil embedder is wrapped.
	ErrEmbedderRequired = errors.New("embedder required")

	// ErrEmbeddingFailed is returned when every embedding attempt failed.
	ErrEmbeddingFailed = errors.New("embedding failed")

	// ErrEmptyEmbedding is returned when the embedding service returns no vectors.
	ErrEmptyEmbedding = errors.New("embedding service returned no vectors")

	// ErrUnknownProvider is returned for an unsupported embedding provider name.
	ErrUnknownProvider = errors.New("unknown embedding provider")
)
