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
	"strings"
	"time"

	"github.com/poiesic/vectorseed/core"
)

// DefaultEmbeddingHost is the OpenAI API base URL.
const DefaultEmbeddingHost = "https://api.openai.com/v1"

// knownDimensions lists the native output size of common embedding models.
var knownDimensions = map[string]int{
	"text-embedding-3-small": 1536,
	"text-embedding-3-large": 3072,
	"text-embedding-ada-002": 1536,
	"embeddinggemma":         768,
	"nomic-embed-text":       768,
	"mxbai-embed-large":      1024,
	"all-minilm":             384,
}

// ModelDimension returns the native vector size of a known model.
func ModelDimension(model string) (int, bool) {
	dim, ok := knownDimensions[strings.ToLower(model)]
	return dim, ok
}

// Config holds configuration for the embedding service.
type Config struct {
	// EmbeddingHost is the base URL for the embedding service API.
	// Example: "http://localhost:11434/v1" for local OpenAI-compatible server
	EmbeddingHost string

	// EmbeddingModel is the model identifier to use for text embeddings.
	// Example: "text-embedding-3-small", "embeddinggemma"
	EmbeddingModel string

	// Token is the API key sent as a bearer token. Local OpenAI-compatible
	// servers usually accept any value.
	Token string

	// Dimensions asks the model for shortened vectors. Zero keeps the model's
	// native size and omits the parameter from requests.
	Dimensions int

	// RequestsPerSecond paces embedding calls. Zero means unlimited.
	RequestsPerSecond float64

	// MaxAttempts bounds retries of rate limited or failed calls.
	// Default: 5
	MaxAttempts int

	// RetryDelay is the initial backoff delay; it doubles per attempt.
	// Default: 500ms
	RetryDelay time.Duration

	// Timeout bounds a single HTTP request to the embedding service.
	// Default: 60s
	Timeout time.Duration
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithEmbeddingHost sets the embedding service host URL.
func WithEmbeddingHost(host string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingHost = host
	}
}

// WithEmbeddingModel sets the embedding model identifier.
func WithEmbeddingModel(model string) ConfigOption {
	return func(c *Config) {
		c.EmbeddingModel = model
	}
}

// WithToken sets the API key.
func WithToken(token string) ConfigOption {
	return func(c *Config) {
		c.Token = token
	}
}

// WithDimensions requests vectors of the given size from the model.
func WithDimensions(dim int) ConfigOption {
	return func(c *Config) {
		c.Dimensions = dim
	}
}

// WithRequestsPerSecond paces embedding calls.
func WithRequestsPerSecond(rps float64) ConfigOption {
	return func(c *Config) {
		c.RequestsPerSecond = rps
	}
}

// WithRetry sets the retry budget for embedding calls.
func WithRetry(maxAttempts int, delay time.Duration) ConfigOption {
	return func(c *Config) {
		c.MaxAttempts = maxAttempts
		c.RetryDelay = delay
	}
}

// DefaultConfig returns a Config for the hosted OpenAI embeddings API.
func DefaultConfig() *Config {
	return &Config{
		EmbeddingHost:  DefaultEmbeddingHost,
		EmbeddingModel: "text-embedding-3-small",
		MaxAttempts:    5,
		RetryDelay:     500 * time.Millisecond,
		Timeout:        60 * time.Second,
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
//
// Example:
//
//	cfg := NewConfig(
//	    WithEmbeddingHost("http://localhost:11434"),
//	    WithEmbeddingModel("nomic-embed-text"),
//	)
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize ensures the configuration is in a canonical form.
// It automatically adds the /v1 suffix to the host if missing, which is required
// by most OpenAI-compatible APIs (Ollama, LocalAI, vLLM, etc).
func (c *Config) Normalize() {
	if c.EmbeddingHost != "" && !strings.HasSuffix(c.EmbeddingHost, "/v1") {
		// Remove trailing slash if present before adding /v1
		c.EmbeddingHost = strings.TrimSuffix(c.EmbeddingHost, "/")
		c.EmbeddingHost = c.EmbeddingHost + "/v1"
	}
}

// IsHosted reports whether the host is the OpenAI API, which requires a token.
func (c *Config) IsHosted() bool {
	return strings.Contains(c.EmbeddingHost, "api.openai.com")
}

// OutputDimension returns the vector size the configured model is expected
// to produce, or zero when it is unknown.
func (c *Config) OutputDimension() int {
	if c.Dimensions > 0 {
		return c.Dimensions
	}
	dim, _ := ModelDimension(c.EmbeddingModel)
	return dim
}

// Validate checks that the configuration is valid and complete.
// It automatically normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	if c.EmbeddingHost == "" {
		return &core.ConfigurationError{Field: "embedding.host", Reason: "is required"}
	}
	if c.EmbeddingModel == "" {
		return &core.ConfigurationError{Field: "embedding.model", Reason: "is required"}
	}
	if c.IsHosted() && core.IsBlank(c.Token) {
		return &core.ConfigurationError{Field: "embedding.token", Reason: "OPENAI_API_KEY is required for " + c.EmbeddingHost}
	}
	if c.Dimensions < 0 || c.Dimensions > core.MaxDimension {
		return &core.ConfigurationError{Field: "embedding.dimensions", Reason: "out of range"}
	}
	if c.RequestsPerSecond < 0 {
		return &core.ConfigurationError{Field: "embedding.requests_per_second", Reason: "cannot be negative"}
	}
	if c.MaxAttempts < 1 {
		return &core.ConfigurationError{Field: "embedding.max_attempts", Reason: "must be at least 1"}
	}
	return nil
}
