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


// Package vectorstore defines the vector store boundary used by vectorseed.
//
// A Store combines the index control plane (list, describe, create, delete)
// with the data plane (upsert, fetch, statistics). Implementations map their
// native failures onto the sentinel errors in this package so that callers
// can tell transient failures (ErrUnavailable) from permanent ones
// (ErrConflict, ErrInvalidRequest, ErrUnauthorized).
//
// # Implementations
//
//   - vectorstore/badger: embedded BadgerDB store for local runs and tests
//   - vectorstore/pinecone: Pinecone serverless indexes
//
// Both constructors return the Store interface:
//
//	store, err := badger.NewStore(badger.WithPath("./data"))
//	store, err := pinecone.NewStore(ctx, apiKey)
//
// # Serialization
//
// Index descriptors and vectors persisted by the embedded store are encoded
// with mus-go. Metadata values are tagged strings, bools or float64 numbers.
package vectorstore
