package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/poiesic/vectorseed/ai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type embeddingRequest struct {
	Input      []string `json:"input"`
	Model      string   `json:"model"`
	Dimensions int      `json:"dimensions"`
}

// newServer answers /v1/embeddings with one vector per input whose first
// value is the input position.
func newServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	if handler == nil {
		handler = func(w http.ResponseWriter, r *http.Request) {
			var req embeddingRequest
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			writeVectors(w, req.Model, len(req.Input))
		}
	}
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func writeVectors(w http.ResponseWriter, model string, n int) {
	type item struct {
		Object    string    `json:"object"`
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	}
	data := make([]item, n)
	for i := range data {
		data[i] = item{Object: "embedding", Embedding: []float32{float32(i), 0.5, 0.25}, Index: i}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"object": "list", "data": data, "model": model})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"message": msg, "type": "error"}})
}

func newTestEmbedder(t *testing.T, srv *httptest.Server, opts ...ai.ConfigOption) ai.Embedder {
	t.Helper()
	base := []ai.ConfigOption{
		ai.WithEmbeddingHost(srv.URL),
		ai.WithEmbeddingModel("test-embed"),
	}
	e, err := NewEmbedder(ai.NewConfig(append(base, opts...)...), WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return e
}

func TestNewEmbedder_ValidatesConfig(t *testing.T) {
	_, err := NewEmbedder(nil)
	require.Error(t, err)

	_, err = NewEmbedder(ai.NewConfig(ai.WithEmbeddingModel("")))
	require.Error(t, err)
}

func TestEmbedTexts_PreservesOrder(t *testing.T) {
	var seen embeddingRequest
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&seen))
		writeVectors(w, seen.Model, len(seen.Input))
	})
	e := newTestEmbedder(t, srv, ai.WithDimensions(3))

	texts := []string{"great class", "boring\nlectures", "tough grader"}
	vectors, err := e.EmbedTexts(context.Background(), texts)
	require.NoError(t, err)
	require.Len(t, vectors, 3)
	for i, v := range vectors {
		assert.Equal(t, float32(i), v[0])
	}

	assert.Equal(t, "test-embed", seen.Model)
	assert.Equal(t, 3, seen.Dimensions)
	assert.Equal(t, "boring lectures", seen.Input[1])
	assert.Equal(t, "boring\nlectures", texts[1], "caller input must not be modified")
	assert.Equal(t, "test-embed", e.Model())
}

func TestEmbedText(t *testing.T) {
	e := newTestEmbedder(t, newServer(t, nil))
	v, err := e.EmbedText(context.Background(), "probe")
	require.NoError(t, err)
	assert.Equal(t, []float32{0, 0.5, 0.25}, v)
}

func TestEmbedTexts_ClassifiesErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		msg    string
		want   error
	}{
		{"rate limit", http.StatusTooManyRequests, "Rate limit reached", ai.ErrRateLimited},
		{"service unavailable", http.StatusServiceUnavailable, "overloaded", ai.ErrUnavailable},
		{"server error", http.StatusInternalServerError, "boom", ai.ErrUnavailable},
		{"bad input", http.StatusBadRequest, "input is malformed", ai.ErrInvalidInput},
		{"context length", http.StatusBadRequest, "This model's maximum context length is 8192 tokens", ai.ErrInvalidInput},
		{"bad key", http.StatusUnauthorized, "Incorrect API key provided", ai.ErrRejected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
				writeError(w, tt.status, tt.msg)
			})
			e := newTestEmbedder(t, srv)

			_, err := e.EmbedTexts(context.Background(), []string{"a"})
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestEmbedTexts_ShortResponse(t *testing.T) {
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeVectors(w, "test-embed", 1)
	})
	e := newTestEmbedder(t, srv)

	_, err := e.EmbedTexts(context.Background(), []string{"a", "b"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ai.ErrMalformedResponse)
	assert.False(t, ai.IsRetryable(err))
}

func TestEmbedTexts_Unreachable(t *testing.T) {
	var calls atomic.Int32
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	})
	e := newTestEmbedder(t, srv)
	srv.Close()

	_, err := e.EmbedTexts(context.Background(), []string{"a"})
	require.Error(t, err)
	assert.True(t, ai.IsRetryable(err), "unreachable hosts are transient: %v", err)
	assert.Zero(t, calls.Load())
}
