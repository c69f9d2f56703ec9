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


package embedding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/vectorseed/ai"
	"github.com/poiesic/vectorseed/core"
	"github.com/poiesic/vectorseed/retry"
	"golang.org/x/time/rate"
)

// ProbeText is embedded by Probe to check the service before ingestion.
const ProbeText = "vectorseed connectivity probe"

// Result is the outcome of embedding one text. Exactly one of Vector.Values
// and Err is set.
type Result struct {
	Vector core.EmbeddingVector
	Err    error
}

// Client converts texts into vectors of a fixed dimension. It rejects empty
// texts locally, retries transient service failures and isolates inputs the
// service refuses.
type Client struct {
	embedder  ai.Embedder
	dimension int
	limiter   *rate.Limiter
	policy    retry.Policy
	logger    *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithLimiter paces calls to the embedding service.
func WithLimiter(limiter *rate.Limiter) Option {
	return func(c *Client) {
		c.limiter = limiter
	}
}

// WithRetry sets the retry budget for a single service call.
func WithRetry(maxAttempts int, baseDelay, maxDelay time.Duration) Option {
	return func(c *Client) {
		c.policy.MaxAttempts = maxAttempts
		c.policy.BaseDelay = baseDelay
		c.policy.MaxDelay = maxDelay
	}
}

// WithConfig takes the pacing and retry budget from the service
// configuration. Options applied later override it.
func WithConfig(cfg *ai.Config) Option {
	return func(c *Client) {
		c.limiter = retry.NewLimiter(cfg.RequestsPerSecond)
		c.policy.MaxAttempts = cfg.MaxAttempts
		c.policy.BaseDelay = cfg.RetryDelay
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a client producing vectors of the given dimension.
func NewClient(embedder ai.Embedder, dimension int, opts ...Option) (*Client, error) {
	if embedder == nil {
		return nil, errors.New("embedder cannot be nil")
	}
	if dimension <= 0 || dimension > core.MaxDimension {
		return nil, &core.ConfigurationError{Field: "index.dimension", Reason: fmt.Sprintf("must be between 1 and %d", core.MaxDimension)}
	}

	c := &Client{
		embedder:  embedder,
		dimension: dimension,
		policy: retry.Policy{
			MaxAttempts: 5,
			BaseDelay:   500 * time.Millisecond,
			MaxDelay:    30 * time.Second,
			Retryable:   ai.IsRetryable,
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.policy.MaxAttempts <= 0 {
		return nil, retry.ErrInvalidMaxAttempts
	}
	c.logger = c.logger.With("component", "embedding-client", "model", embedder.Model())
	return c, nil
}

// Dimension returns the vector length the client enforces.
func (c *Client) Dimension() int {
	return c.dimension
}

// Model returns the model identifier of the underlying embedder.
func (c *Client) Model() string {
	return c.embedder.Model()
}

// EmbedBatch returns one Result per text, in input order.
//
// Empty texts fail with *core.InvalidRecordError without a remote call. The
// remaining texts are sent as one request. When the service refuses the
// request because of its content, each text is retried on its own so that
// only the offending ones fail with *core.EmbeddingError. The returned error
// is non-nil only for *core.IntegrityError, when the service returns the wrong
// number of vectors or vectors of the wrong length.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([]Result, error) {
	results := make([]Result, len(texts))

	remote := make([]int, 0, len(texts))
	for i, text := range texts {
		if core.IsBlank(text) {
			results[i].Err = &core.InvalidRecordError{Position: i, Err: core.ErrEmptyText}
			continue
		}
		remote = append(remote, i)
	}
	if len(remote) == 0 {
		return results, nil
	}

	inputs := make([]string, len(remote))
	for j, i := range remote {
		inputs[j] = texts[i]
	}

	vectors, attempts, err := c.call(ctx, inputs)
	switch {
	case err == nil:
		if len(vectors) != len(inputs) {
			return nil, &core.IntegrityError{Detail: fmt.Sprintf("embedding service returned %d vectors for %d texts", len(vectors), len(inputs))}
		}
		for j, i := range remote {
			if err := c.checkDimension(vectors[j]); err != nil {
				return nil, err
			}
			results[i].Vector = core.EmbeddingVector{Values: vectors[j], Model: c.embedder.Model()}
		}
		return results, nil

	case errors.Is(err, ai.ErrMalformedResponse):
		return nil, &core.IntegrityError{Detail: err.Error()}

	case ai.IsInvalidInput(err) && len(inputs) > 1:
		c.logger.Warn("embedding service refused batch, isolating inputs", "count", len(inputs), "err", err)
		return results, c.isolate(ctx, texts, remote, results)
	}

	c.logger.Error("embedding failed", "count", len(inputs), "attempts", attempts, "err", err)
	for _, i := range remote {
		results[i].Err = &core.EmbeddingError{Retryable: ai.IsRetryable(err), Attempts: attempts, Err: err}
	}
	return results, nil
}

// isolate embeds each remote text on its own.
func (c *Client) isolate(ctx context.Context, texts []string, remote []int, results []Result) error {
	for _, i := range remote {
		vectors, attempts, err := c.call(ctx, []string{texts[i]})
		if err == nil && len(vectors) != 1 {
			err = fmt.Errorf("%w: %d vectors for one text", ai.ErrMalformedResponse, len(vectors))
		}
		if errors.Is(err, ai.ErrMalformedResponse) {
			return &core.IntegrityError{Detail: err.Error()}
		}
		if err != nil {
			results[i].Err = &core.EmbeddingError{Retryable: ai.IsRetryable(err), Attempts: attempts, Err: err}
			continue
		}
		if err := c.checkDimension(vectors[0]); err != nil {
			return err
		}
		results[i].Vector = core.EmbeddingVector{Values: vectors[0], Model: c.embedder.Model()}
	}
	return nil
}

// Probe embeds ProbeText to confirm the service is reachable and produces
// vectors of the configured dimension. It returns an error wrapping
// core.ErrEmbeddingUnavailable when the service cannot be used at all and
// *core.IntegrityError when the model's dimension differs.
func (c *Client) Probe(ctx context.Context) error {
	vectors, attempts, err := c.call(ctx, []string{ProbeText})
	if err == nil && len(vectors) != 1 {
		err = fmt.Errorf("%w: %d vectors for one text", ai.ErrMalformedResponse, len(vectors))
	}
	if err != nil {
		if errors.Is(err, ai.ErrMalformedResponse) {
			return &core.IntegrityError{Detail: err.Error()}
		}
		c.logger.Error("embedding probe failed", "attempts", attempts, "err", err)
		return fmt.Errorf("%w: %w", core.ErrEmbeddingUnavailable, err)
	}
	if len(vectors[0]) != c.dimension {
		return &core.IntegrityError{
			Expected: c.dimension,
			Actual:   len(vectors[0]),
			Detail:   "model " + c.embedder.Model() + " does not match the index dimension",
		}
	}
	c.logger.Debug("embedding probe succeeded", "dimension", c.dimension)
	return nil
}

func (c *Client) checkDimension(values []float32) error {
	if len(values) != c.dimension {
		return &core.IntegrityError{Expected: c.dimension, Actual: len(values), Detail: "embedding model " + c.embedder.Model()}
	}
	return nil
}

// call sends texts as one request, paced and retried.
func (c *Client) call(ctx context.Context, texts []string) ([][]float32, int, error) {
	var vectors [][]float32
	attempts, err := c.policy.Do(ctx, func(ctx context.Context) error {
		if err := retry.Wait(ctx, c.limiter); err != nil {
			return retry.Permanent(err)
		}
		v, err := c.embedder.EmbedTexts(ctx, texts)
		if err != nil {
			return err
		}
		vectors = v
		return nil
	})
	return vectors, attempts, err
}
