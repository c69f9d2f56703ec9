package openai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/poiesic/vectorseed/ai"
	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// Embedder implements ai.Embedder using OpenAI-compatible embedding APIs.
type Embedder struct {
	embedder embeddings.Embedder
	model    string
	logger   *slog.Logger
}

// Option configures an Embedder.
type Option func(*options)

type options struct {
	httpClient *http.Client
	logger     *slog.Logger
}

// WithHTTPClient replaces the HTTP client used to reach the service.
func WithHTTPClient(client *http.Client) Option {
	return func(o *options) {
		o.httpClient = client
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// newEmbedder is an internal constructor that returns the concrete type.
func newEmbedder(config *ai.Config, opts ...Option) (*Embedder, error) {
	if config == nil {
		return nil, errors.New("config cannot be nil")
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	o := &options{logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}
	if o.httpClient == nil {
		o.httpClient = &http.Client{Timeout: config.Timeout}
	}

	// Local OpenAI-compatible services don't require authentication but the
	// client refuses an empty token
	token := config.Token
	if token == "" {
		token = "none"
	}

	clientOpts := []openai.Option{
		openai.WithBaseURL(config.EmbeddingHost),
		openai.WithToken(token),
		openai.WithEmbeddingModel(config.EmbeddingModel),
		openai.WithHTTPClient(o.httpClient),
	}
	if config.Dimensions > 0 {
		clientOpts = append(clientOpts, openai.WithEmbeddingDimensions(config.Dimensions))
	}

	client, err := openai.New(clientOpts...)
	if err != nil {
		return nil, err
	}

	// Wrap in langchaingo embedder
	embedder, err := embeddings.NewEmbedder(client, embeddings.WithStripNewLines(true))
	if err != nil {
		return nil, err
	}

	return &Embedder{
		embedder: embedder,
		model:    config.EmbeddingModel,
		logger:   o.logger.With("component", "openai-embedder", "model", config.EmbeddingModel),
	}, nil
}

// NewEmbedder creates a new embedder using the provided configuration.
//
// Returns ai.Embedder interface to enforce abstraction.
func NewEmbedder(config *ai.Config, opts ...Option) (ai.Embedder, error) {
	return newEmbedder(config, opts...)
}

// Model returns the embedding model identifier.
func (e *Embedder) Model() string {
	return e.model
}

// EmbedText generates a vector embedding for a single text string.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedTexts generates vector embeddings for multiple text strings in a batch.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	e.logger.Debug("generating embeddings for texts", "count", len(texts))

	// Newline stripping rewrites the slice in place
	input := make([]string, len(texts))
	copy(input, texts)

	vectors, err := e.embedder.EmbedDocuments(ctx, input)
	if err != nil {
		err = classify(err)
		if ctxErr := ctx.Err(); ctxErr != nil {
			err = errors.Join(ctxErr, err)
		}
		e.logger.Error("failed to generate embeddings", "count", len(texts), "err", err)
		return nil, err
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: requested %d vectors, received %d", ai.ErrMalformedResponse, len(texts), len(vectors))
	}

	return vectors, nil
}

// classify wraps a provider error with the matching ai error class.
func classify(err error) error {
	if errors.Is(err, openai.ErrEmptyResponse) || errors.Is(err, openai.ErrUnexpectedResponseLength) {
		return fmt.Errorf("%w: %w", ai.ErrMalformedResponse, err)
	}

	// The client replaces transport errors with these messages
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "network error") || strings.Contains(msg, "request timeout") {
		return fmt.Errorf("%w: %w", ai.ErrUnavailable, err)
	}

	var llmErr *llms.Error
	if !errors.As(openai.MapError(err), &llmErr) {
		return err
	}
	switch llmErr.Code {
	case llms.ErrCodeRateLimit:
		return fmt.Errorf("%w: %w", ai.ErrRateLimited, err)
	case llms.ErrCodeProviderUnavailable, llms.ErrCodeTimeout:
		return fmt.Errorf("%w: %w", ai.ErrUnavailable, err)
	case llms.ErrCodeInvalidRequest, llms.ErrCodeTokenLimit, llms.ErrCodeContentFilter:
		return fmt.Errorf("%w: %w", ai.ErrInvalidInput, err)
	case llms.ErrCodeAuthentication, llms.ErrCodeQuotaExceeded, llms.ErrCodeResourceNotFound:
		return fmt.Errorf("%w: %w", ai.ErrRejected, err)
	}

	// Remaining 5xx responses are treated as outages
	if strings.Contains(msg, "status code: 5") {
		return fmt.Errorf("%w: %w", ai.ErrUnavailable, err)
	}
	return err
}
