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


package core

import (
	"strings"
	"time"
)

// Metric is the similarity function an index uses to compare vectors.
type Metric string

const (
	MetricCosine     Metric = "cosine"
	MetricEuclidean  Metric = "euclidean"
	MetricDotProduct Metric = "dotproduct"
)

// ParseMetric converts a user supplied metric name into a Metric.
// Matching is case-insensitive; "dot_product" and "dot-product" are accepted
// as aliases for dotproduct.
func ParseMetric(s string) (Metric, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "cosine":
		return MetricCosine, nil
	case "euclidean":
		return MetricEuclidean, nil
	case "dotproduct", "dot_product", "dot-product":
		return MetricDotProduct, nil
	}
	return "", &ConfigurationError{Field: "metric", Reason: "unsupported metric " + quote(s)}
}

// Placement describes where the backing store should host an index.
type Placement struct {
	Cloud  string
	Region string
}

// IndexDescriptor identifies a vector index and describes its shape.
// All vectors upserted into an index must share its Dimension.
type IndexDescriptor struct {
	Name      string
	Dimension int
	Metric    Metric
	Namespace string
	Placement Placement
}

// Metadata is a flat mapping of scalar values stored alongside a vector.
// Values are strings, bools or float64 numbers after normalization.
type Metadata map[string]any

// Record is one input unit read from a record source.
type Record struct {
	ID       string
	Text     string
	Metadata Metadata

	// Position is the zero-based position of the record across the whole input.
	Position int
	// Origin names where the record was read from, e.g. "reviews.json#3".
	Origin string
}

// EmbeddingVector is the output of the embedding service for one text.
type EmbeddingVector struct {
	Values []float32
	Model  string
}

// UpsertRecord is the unit sent to the vector store.
type UpsertRecord struct {
	ID       string
	Values   []float32
	Metadata Metadata
}

// CheckDimension verifies the vector has exactly dim values.
func (u UpsertRecord) CheckDimension(dim int) error {
	if len(u.Values) != dim {
		return &IntegrityError{ID: u.ID, Expected: dim, Actual: len(u.Values)}
	}
	return nil
}

// IndexStats is the index level statistics reported by a vector store.
type IndexStats struct {
	Dimension        int
	TotalVectorCount int
	Namespaces       map[string]int
}

// VerificationResult compares the vector count a store reports with the
// count ingestion expected to produce.
type VerificationResult struct {
	Index     string
	Namespace string
	Expected  int
	Observed  int
	Stats     *IndexStats
	Matched   bool
	Warning   string
	Attempts  int
	CheckedAt time.Time
}
