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


package pinecone

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/pinecone-io/go-pinecone/pinecone"
	"github.com/poiesic/vectorseed/core"
	"github.com/poiesic/vectorseed/vectorstore"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

// Pinecone rejects upsert requests above 2 MiB or 1000 vectors. Requests are
// split to stay under both, with headroom for framing.
const (
	maxUpsertBytes   = (2 << 20) * 9 / 10
	maxUpsertVectors = 1000
	vectorOverhead   = 32
)

// Store implements vectorstore.Store against Pinecone serverless indexes.
// Data plane connections are opened lazily per index and namespace and
// reused until the index is deleted or the store is closed.
type Store struct {
	client *pinecone.Client
	logger *slog.Logger

	mu    sync.Mutex
	hosts map[string]string
	conns map[connKey]*pinecone.IndexConnection
}

type connKey struct {
	index     string
	namespace string
}

var _ vectorstore.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// NewStore creates a Pinecone backed store.
//
// Returns vectorstore.Store interface to enforce abstraction.
func NewStore(apiKey string, opts ...Option) (vectorstore.Store, error) {
	return newStore(apiKey, opts...)
}

func newStore(apiKey string, opts ...Option) (*Store, error) {
	if core.IsBlank(apiKey) {
		return nil, &core.ConfigurationError{Field: "store.api_key", Reason: "PINECONE_API_KEY is required"}
	}
	client, err := pinecone.NewClient(pinecone.NewClientParams{ApiKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("failed to create pinecone client: %w", err)
	}

	s := &Store{
		client: client,
		logger: slog.Default(),
		hosts:  make(map[string]string),
		conns:  make(map[connKey]*pinecone.IndexConnection),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "pinecone-store")
	return s, nil
}

// Close closes every open data plane connection.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for key, conn := range s.conns {
		if err := conn.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(s.conns, key)
	}
	return errors.Join(errs...)
}

// ListIndexes returns the names of every index in the project.
func (s *Store) ListIndexes(ctx context.Context) ([]string, error) {
	indexes, err := s.client.ListIndexes(ctx)
	if err != nil {
		return nil, mapError(err)
	}
	names := make([]string, 0, len(indexes))
	for _, idx := range indexes {
		names = append(names, idx.Name)
	}
	return names, nil
}

// DescribeIndex returns the index or vectorstore.ErrIndexNotFound.
func (s *Store) DescribeIndex(ctx context.Context, name string) (*vectorstore.IndexInfo, error) {
	idx, err := s.client.DescribeIndex(ctx, name)
	if err != nil {
		return nil, mapError(err)
	}
	info := toIndexInfo(idx)
	if info.Ready && info.Host != "" {
		s.mu.Lock()
		s.hosts[name] = info.Host
		s.mu.Unlock()
	}
	return info, nil
}

// CreateIndex creates a serverless index. It does not wait for readiness.
func (s *Store) CreateIndex(ctx context.Context, desc core.IndexDescriptor) error {
	metric, err := toMetric(desc.Metric)
	if err != nil {
		return err
	}
	cloud := desc.Placement.Cloud
	if cloud == "" {
		cloud = string(pinecone.Aws)
	}
	region := desc.Placement.Region
	if region == "" {
		region = "us-east-1"
	}

	_, err = s.client.CreateServerlessIndex(ctx, &pinecone.CreateServerlessIndexRequest{
		Name:      desc.Name,
		Dimension: int32(desc.Dimension),
		Metric:    metric,
		Cloud:     pinecone.Cloud(cloud),
		Region:    region,
	})
	if err != nil {
		return mapError(err)
	}
	s.logger.Info("created serverless index", "index", desc.Name, "dimension", desc.Dimension, "metric", metric, "cloud", cloud, "region", region)
	return nil
}

// DeleteIndex deletes the index and forgets its connections.
func (s *Store) DeleteIndex(ctx context.Context, name string) error {
	if err := s.client.DeleteIndex(ctx, name); err != nil {
		return mapError(err)
	}
	s.forget(name)
	s.logger.Info("deleted index", "index", name)
	return nil
}

func (s *Store) forget(index string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.hosts, index)
	for key, conn := range s.conns {
		if key.index == index {
			_ = conn.Close()
			delete(s.conns, key)
		}
	}
}

// connection returns a cached data plane connection for the namespace.
func (s *Store) connection(ctx context.Context, index, namespace string) (*pinecone.IndexConnection, error) {
	key := connKey{index: index, namespace: namespace}

	s.mu.Lock()
	conn, ok := s.conns[key]
	host := s.hosts[index]
	s.mu.Unlock()
	if ok {
		return conn, nil
	}

	if host == "" {
		info, err := s.DescribeIndex(ctx, index)
		if err != nil {
			return nil, err
		}
		if !info.Ready || info.Host == "" {
			return nil, fmt.Errorf("%w: index %s is not ready", vectorstore.ErrUnavailable, index)
		}
		host = info.Host
	}

	conn, err := s.client.Index(pinecone.NewIndexConnParams{Host: host, Namespace: namespace})
	if err != nil {
		return nil, mapError(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.conns[key]; ok {
		_ = conn.Close()
		return existing, nil
	}
	s.conns[key] = conn
	return conn, nil
}

// Upsert writes records to the namespace in one request.
func (s *Store) Upsert(ctx context.Context, index, namespace string, records []core.UpsertRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}
	vectors := make([]*pinecone.Vector, len(records))
	for i, rec := range records {
		v, err := toVector(rec)
		if err != nil {
			return 0, err
		}
		vectors[i] = v
	}

	conn, err := s.connection(ctx, index, namespace)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, chunk := range upsertChunks(vectors) {
		count, err := conn.UpsertVectors(ctx, chunk)
		total += int(count)
		if err != nil {
			return total, mapError(err)
		}
	}
	return total, nil
}

// upsertChunks splits vectors into requests within the size and count
// limits. A single vector above the size limit is sent on its own.
func upsertChunks(vectors []*pinecone.Vector) [][]*pinecone.Vector {
	var chunks [][]*pinecone.Vector
	start, size := 0, 0
	for i, v := range vectors {
		n := vectorSize(v)
		if i > start && (size+n > maxUpsertBytes || i-start == maxUpsertVectors) {
			chunks = append(chunks, vectors[start:i])
			start, size = i, 0
		}
		size += n
	}
	if start < len(vectors) {
		chunks = append(chunks, vectors[start:])
	}
	return chunks
}

// vectorSize estimates the encoded size of v in an upsert request.
func vectorSize(v *pinecone.Vector) int {
	n := vectorOverhead + len(v.Id) + 4*len(v.Values)
	if v.Metadata != nil {
		n += proto.Size(v.Metadata)
	}
	return n
}

// Fetch returns the stored records for ids.
func (s *Store) Fetch(ctx context.Context, index, namespace string, ids []string) (map[string]core.UpsertRecord, error) {
	conn, err := s.connection(ctx, index, namespace)
	if err != nil {
		return nil, err
	}
	resp, err := conn.FetchVectors(ctx, ids)
	if err != nil {
		return nil, mapError(err)
	}

	found := make(map[string]core.UpsertRecord, len(resp.Vectors))
	for id, v := range resp.Vectors {
		found[id] = fromVector(id, v)
	}
	return found, nil
}

// DescribeIndexStats returns total and per namespace vector counts.
func (s *Store) DescribeIndexStats(ctx context.Context, index string) (*core.IndexStats, error) {
	conn, err := s.connection(ctx, index, "")
	if err != nil {
		return nil, err
	}
	resp, err := conn.DescribeIndexStats(ctx)
	if err != nil {
		return nil, mapError(err)
	}

	stats := &core.IndexStats{
		Dimension:        int(resp.Dimension),
		TotalVectorCount: int(resp.TotalVectorCount),
		Namespaces:       make(map[string]int, len(resp.Namespaces)),
	}
	for ns, summary := range resp.Namespaces {
		if summary != nil {
			stats.Namespaces[ns] = int(summary.VectorCount)
		}
	}
	return stats, nil
}

func toIndexInfo(idx *pinecone.Index) *vectorstore.IndexInfo {
	info := &vectorstore.IndexInfo{
		Name:      idx.Name,
		Dimension: int(idx.Dimension),
		Metric:    fromMetric(idx.Metric),
		Host:      idx.Host,
	}
	if idx.Status != nil {
		info.Ready = idx.Status.Ready
	}
	if idx.Spec != nil && idx.Spec.Serverless != nil {
		info.Placement = core.Placement{
			Cloud:  string(idx.Spec.Serverless.Cloud),
			Region: idx.Spec.Serverless.Region,
		}
	}
	return info
}

func toMetric(m core.Metric) (pinecone.IndexMetric, error) {
	switch m {
	case core.MetricCosine:
		return pinecone.Cosine, nil
	case core.MetricEuclidean:
		return pinecone.Euclidean, nil
	case core.MetricDotProduct:
		return pinecone.Dotproduct, nil
	}
	return "", fmt.Errorf("%w: unsupported metric %q", vectorstore.ErrInvalidRequest, m)
}

func fromMetric(m pinecone.IndexMetric) core.Metric {
	switch m {
	case pinecone.Euclidean:
		return core.MetricEuclidean
	case pinecone.Dotproduct:
		return core.MetricDotProduct
	}
	return core.MetricCosine
}

func toVector(rec core.UpsertRecord) (*pinecone.Vector, error) {
	v := &pinecone.Vector{Id: rec.ID, Values: rec.Values}
	if len(rec.Metadata) > 0 {
		md, err := structpb.NewStruct(map[string]any(rec.Metadata))
		if err != nil {
			return nil, fmt.Errorf("%w: metadata of %q: %w", vectorstore.ErrInvalidRequest, rec.ID, err)
		}
		v.Metadata = md
	}
	return v, nil
}

func fromVector(id string, v *pinecone.Vector) core.UpsertRecord {
	rec := core.UpsertRecord{ID: id}
	if v == nil {
		return rec
	}
	rec.Values = v.Values
	if v.Metadata != nil {
		rec.Metadata = core.Metadata(v.Metadata.AsMap())
	}
	return rec
}
