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


// Package ai provides abstractions for the embedding service used by docembed.
//
// The package defines the Embedder interface, which turns a section of text
// into one or more vectors. The ingestion pipeline and the searcher depend on
// this abstraction rather than on a concrete client, so tests can substitute
// a mock and production code can pick a provider at startup.
//
// # Implementation Packages
//
//   - ai/openai: OpenAI-compatible embeddings endpoint via langchaingo
//   - ai/ollama: native Ollama API via langchaingo
//   - ai/mock: deterministic test double
//
// # Constructor Return Type Pattern
//
// Public constructors (openai.NewEmbedder, ollama.NewEmbedder,
// ai.NewRetryingEmbedder) return the ai.Embedder INTERFACE to prevent
// coupling to a particular client.
//
// mock.NewMockEmbedder returns the CONCRETE type so tests can inject behavior
// and inspect call counts.
//
// # Retries
//
// Embedding calls go over the network and fail transiently. NewRetryingEmbedder
// wraps any Embedder with exponential backoff:
//
//	base, err := openai.NewEmbedder(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	embedder, err := ai.NewRetryingEmbedder(base, cfg.MaxAttempts, cfg.RetryDelay)
//
//	vectors, err := embedder.Embed(ctx, "Hello world")
//	if errors.Is(err, ai.ErrEmbeddingFailed) {
//	    // every attempt failed
//	}
package ai
