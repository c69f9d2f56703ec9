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


// Package ai defines the embedding service boundary used by vectorseed.
//
// The Embedder interface turns text into fixed length float vectors. Errors
// returned by implementations are classified with the sentinels in errors.go
// (ErrRateLimited, ErrUnavailable, ErrInvalidInput, ErrRejected,
// ErrMalformedResponse) so the embedding client can decide between retrying,
// isolating bad inputs and failing fast.
//
// # Implementation Packages
//
//   - ai/openai: OpenAI and OpenAI-compatible hosts (Ollama, LocalAI, vLLM)
//     through langchaingo
//   - ai/mock: deterministic test double with fault injection
//
// Public constructors return the ai.Embedder interface. The mock constructor
// returns its concrete type so tests can inject behavior and inspect calls:
//
//	mockEmbed := mock.NewMockEmbedder(8)
//	mockEmbed.FailText("poison", ai.ErrInvalidInput)
//	count := mockEmbed.CallCount()
//
// # Usage Example
//
//	cfg := ai.NewConfig(ai.WithToken(os.Getenv("OPENAI_API_KEY")))
//	embedder, err := openai.NewEmbedder(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	vectors, err := embedder.EmbedTexts(ctx, []string{"great class"})
package ai
