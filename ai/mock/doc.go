// Package mock provides a test double for ai.Embedder.
//
// MockEmbedder runs without any external service and returns deterministic
// unit vectors derived from an FNV hash of each text. Faults can be injected
// per text (FailText) or per call (FailNext):
//
//	m := mock.NewMockEmbedder(4).
//	    FailNext(ai.ErrRateLimited).          // first call is throttled
//	    FailText("poison", ai.ErrInvalidInput) // any batch containing "poison" is refused
//
//	vectors, err := m.EmbedTexts(ctx, []string{"a", "b"})
//	count := m.CallCount()
package mock
