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

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"
)

// RetryWithBackoff retries an operation with exponential backoff.
// maxAttempts: maximum number of attempts (must be > 0)
// baseDelay: base delay between retries (doubles on each retry)
// Returns the error from the last attempt if all attempts fail, or the
// context error if ctx is done first.
func RetryWithBackoff(ctx context.Context, operation func(ctx context.Context) error, maxAttempts int, baseDelay time.Duration) error {
	if maxAttempts <= 0 {
		return ErrInvalidMaxAttempts
	}
	if baseDelay <= 0 {
		// go-retry rejects a zero base
		baseDelay = time.Nanosecond
	}

	backoff := retry.WithMaxRetries(uint64(maxAttempts-1), retry.NewExponential(baseDelay))

	attempt := 0
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		err := operation(ctx)
		if err == nil {
			if attempt > 1 {
				slog.Debug("operation succeeded after retry", "attempt", attempt)
			}
			return nil
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		slog.Debug("operation failed, will retry", "attempt", attempt, "maxAttempts", maxAttempts, "error", err)
		return retry.RetryableError(err)
	})
}

// RetryingEmbedder wraps an Embedder and retries failed calls with exponential backoff.
type RetryingEmbedder struct {
	inner       Embedder
	maxAttempts int
	baseDelay   time.Duration
	logger      *slog.Logger
}

var _ Embedder = (*RetryingEmbedder)(nil)

// NewRetryingEmbedder wraps inner so each Embed call is tried up to maxAttempts times.
// An empty result counts as a failed attempt.
//
// Returns ai.Embedder interface to enforce abstraction.
func NewRetryingEmbedder(inner Embedder, maxAttempts int, baseDelay time.Duration) (Embedder, error) {
	if inner == nil {
		return nil, ErrEmbedderRequired
	}
	if maxAttempts <= 0 {
		return nil, ErrInvalidMaxAttempts
	}
	return &RetryingEmbedder{
		inner:       inner,
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
		logger:      slog.Default().With("component", "retrying-embedder"),
	}, nil
}

// Embed calls the wrapped embedder until it succeeds or attempts run out.
// Exhaustion returns an error wrapping ErrEmbeddingFailed and the last cause.
func (r *RetryingEmbedder) Embed(ctx context.Context, text string) ([][]float32, error) {
	var vectors [][]float32
	err := RetryWithBackoff(ctx, func(ctx context.Context) error {
		v, err := r.inner.Embed(ctx, text)
		if err != nil {
			return err
		}
		if len(v) == 0 {
			return ErrEmptyEmbedding
		}
		vectors = v
		return nil
	}, r.maxAttempts, r.baseDelay)
	if err != nil {
		r.logger.Warn("embedding failed", "attempts", r.maxAttempts, "length", len(text), "err", err)
		return nil, fmt.Errorf("%w: %w", ErrEmbeddingFailed, err)
	}
	return vectors, nil
}
