package mock

import (
	"context"
	"hash/fnv"
	"math"
	"slices"
	"sync"
)

// MockEmbedder is a test double for ai.Embedder.
// It allows custom behavior injection via function fields and is safe for
// concurrent use.
type MockEmbedder struct {
	// EmbedTextsFunc is called by EmbedTexts and EmbedText if set.
	// If nil, uses default deterministic behavior.
	EmbedTextsFunc func(ctx context.Context, texts []string) ([][]float32, error)

	// Dim is the length of generated vectors.
	Dim int

	// ModelName is returned by Model.
	ModelName string

	mu        sync.Mutex
	callCount int
	calls     [][]string
	failTexts map[string]error
	failNext  []error
}

// NewMockEmbedder creates a mock embedder producing deterministic vectors of
// length dim.
// Note: Returns concrete type to allow test assertions.
func NewMockEmbedder(dim int) *MockEmbedder {
	return &MockEmbedder{
		Dim:       dim,
		ModelName: "mock-embedding",
		failTexts: make(map[string]error),
	}
}

// FailText makes every call whose input contains text fail with err.
func (m *MockEmbedder) FailText(text string, err error) *MockEmbedder {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failTexts[text] = err
	return m
}

// FailNext makes the next len(errs) calls fail with the given errors in order.
func (m *MockEmbedder) FailNext(errs ...error) *MockEmbedder {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext = append(m.failNext, errs...)
	return m
}

// Model returns the configured model name.
func (m *MockEmbedder) Model() string {
	return m.ModelName
}

// EmbedText generates a deterministic embedding based on text hash.
func (m *MockEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vectors, err := m.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedTexts generates deterministic embeddings for multiple texts.
func (m *MockEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	m.mu.Lock()
	m.callCount++
	m.calls = append(m.calls, slices.Clone(texts))
	var injected error
	if len(m.failNext) > 0 {
		injected = m.failNext[0]
		m.failNext = m.failNext[1:]
	} else {
		for _, text := range texts {
			if err, ok := m.failTexts[text]; ok {
				injected = err
				break
			}
		}
	}
	fn := m.EmbedTextsFunc
	m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if injected != nil {
		return nil, injected
	}
	if fn != nil {
		return fn(ctx, texts)
	}

	embeddings := make([][]float32, len(texts))
	for i, text := range texts {
		embeddings[i] = Vector(text, m.Dim)
	}
	return embeddings, nil
}

// CallCount returns the number of times any method was called.
func (m *MockEmbedder) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.callCount
}

// Calls returns the inputs of every call in order.
func (m *MockEmbedder) Calls() [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.calls)
}

// Reset clears the call history and injected behavior.
func (m *MockEmbedder) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callCount = 0
	m.calls = nil
	m.failTexts = make(map[string]error)
	m.failNext = nil
	m.EmbedTextsFunc = nil
}

// Vector creates a deterministic unit vector from text.
// It uses FNV hash to ensure the same text always produces the same vector.
func Vector(text string, dim int) []float32 {
	h := fnv.New32a()
	h.Write([]byte(text))
	seed := h.Sum32()

	vector := make([]float32, dim)
	for i := 0; i < dim; i++ {
		seed = seed*1664525 + 1013904223 // LCG constants
		vector[i] = float32(seed%1000)/1000.0 + 0.001
	}

	var sumSquares float64
	for _, v := range vector {
		sumSquares += float64(v) * float64(v)
	}
	norm := float32(1 / math.Sqrt(sumSquares))
	for i := range vector {
		vector[i] *= norm
	}
	return vector
}
