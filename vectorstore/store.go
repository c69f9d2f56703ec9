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


package vectorstore

import (
	"context"

	"github.com/poiesic/vectorseed/core"
)

// IndexInfo describes an index as reported by the store.
type IndexInfo struct {
	Name      string
	Dimension int
	Metric    core.Metric
	Placement core.Placement
	// Host is the data plane endpoint, when the store has one.
	Host string
	// Ready is false while the store is still initializing the index.
	Ready bool
}

// Matches reports whether the index has the shape the descriptor asks for.
func (i *IndexInfo) Matches(d core.IndexDescriptor) bool {
	return i.Dimension == d.Dimension && i.Metric == d.Metric
}

// IndexManager is the control plane of a vector store.
type IndexManager interface {
	// ListIndexes returns the names of every index.
	ListIndexes(ctx context.Context) ([]string, error)

	// DescribeIndex returns the index or ErrIndexNotFound.
	DescribeIndex(ctx context.Context, name string) (*IndexInfo, error)

	// CreateIndex creates an index with the descriptor's name, dimension,
	// metric and placement. It returns ErrConflict if the name is taken.
	CreateIndex(ctx context.Context, desc core.IndexDescriptor) error

	// DeleteIndex deletes the index and every vector in it. It returns
	// ErrIndexNotFound if there is no such index.
	DeleteIndex(ctx context.Context, name string) error
}

// DataPlane reads and writes vectors of one store.
type DataPlane interface {
	// Upsert inserts or overwrites records by ID in the namespace and
	// returns the number of records written. Writing the same ID twice
	// leaves only the latest values.
	Upsert(ctx context.Context, index, namespace string, records []core.UpsertRecord) (int, error)

	// Fetch returns the stored records for the given IDs. Missing IDs are
	// absent from the result.
	Fetch(ctx context.Context, index, namespace string, ids []string) (map[string]core.UpsertRecord, error)

	// DescribeIndexStats returns the total and per namespace vector counts.
	DescribeIndexStats(ctx context.Context, index string) (*core.IndexStats, error)
}

// Store is a vector store: the index control plane plus the data plane.
// Implementations must be safe for concurrent use.
type Store interface {
	IndexManager
	DataPlane

	// Close releases resources held by the store.
	Close() error
}
