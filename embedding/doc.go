// Package embedding turns record texts into vectors of the index dimension.
//
// Client wraps an ai.Embedder with local validation, rate limiting, retry
// with exponential backoff and per-input failure isolation. EmbedBatch is
// order preserving: result i always belongs to text i.
package embedding
