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


package badger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/vectorseed/core"
	"github.com/poiesic/vectorseed/vectorstore"
)

// Store implements vectorstore.Store on top of an embedded BadgerDB.
// Indexes are ready as soon as they are created.
type Store struct {
	backend     *Backend
	ownsBackend bool
	// mu serializes index creation and deletion against data plane writes.
	mu     sync.RWMutex
	logger *slog.Logger
}

var _ vectorstore.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*storeOptions)

type storeOptions struct {
	path     string
	inMemory bool
	backend  *Backend
	logger   *slog.Logger
}

// WithPath stores data in the given directory.
func WithPath(path string) Option {
	return func(o *storeOptions) {
		o.path = path
	}
}

// WithInMemory keeps all data in memory.
func WithInMemory() Option {
	return func(o *storeOptions) {
		o.inMemory = true
	}
}

// WithBackend uses an already opened backend. The caller keeps ownership and
// must close it.
func WithBackend(backend *Backend) Option {
	return func(o *storeOptions) {
		o.backend = backend
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *storeOptions) {
		o.logger = logger
	}
}

// NewStore opens an embedded vector store.
//
// Returns vectorstore.Store interface to enforce abstraction.
func NewStore(opts ...Option) (vectorstore.Store, error) {
	return newStore(opts...)
}

func newStore(opts ...Option) (*Store, error) {
	o := &storeOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}

	s := &Store{
		backend: o.backend,
		logger:  o.logger.With("component", "badger-store"),
	}
	if s.backend == nil {
		if !o.inMemory && o.path == "" {
			return nil, errors.New("badger store needs a path or in-memory mode")
		}
		backend, err := OpenBackend(o.path, o.inMemory, o.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to open badger store: %w", err)
		}
		s.backend = backend
		s.ownsBackend = true
	}
	return s, nil
}

// Close closes the backend if the store opened it.
func (s *Store) Close() error {
	if s.ownsBackend && !s.backend.IsClosed() {
		return s.backend.Close()
	}
	return nil
}

func (s *Store) check(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.backend.IsClosed() {
		return vectorstore.ErrStoreClosed
	}
	return nil
}

// ListIndexes returns index names in lexical order.
func (s *Store) ListIndexes(ctx context.Context) ([]string, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	var names []string
	err := s.backend.ScanKeys([]byte(indexPrefix), func(key []byte) {
		names = append(names, strings.TrimPrefix(string(key), indexPrefix))
	})
	if err != nil {
		return nil, err
	}
	slices.Sort(names)
	return names, nil
}

// DescribeIndex returns the index descriptor or vectorstore.ErrIndexNotFound.
func (s *Store) DescribeIndex(ctx context.Context, name string) (*vectorstore.IndexInfo, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	var info *vectorstore.IndexInfo
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		info, err = getIndex(tx, name)
		return err
	}, false)
	return info, err
}

func getIndex(tx *badger.Txn, name string) (*vectorstore.IndexInfo, error) {
	item, err := tx.Get(makeIndexKey(name))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, fmt.Errorf("%w: %s", vectorstore.ErrIndexNotFound, name)
	}
	if err != nil {
		return nil, err
	}

	var info *vectorstore.IndexInfo
	err = item.Value(func(val []byte) error {
		info, err = vectorstore.UnmarshalIndexInfo(val)
		return err
	})
	return info, err
}

// CreateIndex creates an empty index.
func (s *Store) CreateIndex(ctx context.Context, desc core.IndexDescriptor) error {
	if err := s.check(ctx); err != nil {
		return err
	}
	if desc.Name == "" || strings.IndexByte(desc.Name, sep) >= 0 {
		return fmt.Errorf("%w: invalid index name %q", vectorstore.ErrInvalidRequest, desc.Name)
	}
	if desc.Dimension <= 0 {
		return fmt.Errorf("%w: invalid dimension %d", vectorstore.ErrInvalidRequest, desc.Dimension)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	info := &vectorstore.IndexInfo{
		Name:      desc.Name,
		Dimension: desc.Dimension,
		Metric:    desc.Metric,
		Placement: desc.Placement,
		Ready:     true,
	}
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		_, err := tx.Get(makeIndexKey(desc.Name))
		if err == nil {
			return fmt.Errorf("%w: index %s already exists", vectorstore.ErrConflict, desc.Name)
		}
		if !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}
		return tx.Set(makeIndexKey(desc.Name), vectorstore.MarshalIndexInfo(info))
	}, true)
	if err != nil {
		return err
	}

	s.logger.Debug("created index", "index", desc.Name, "dimension", desc.Dimension, "metric", desc.Metric)
	return nil
}

// DeleteIndex removes the index descriptor and all of its vectors.
func (s *Store) DeleteIndex(ctx context.Context, name string) error {
	if err := s.check(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.backend.WithTx(func(tx *badger.Txn) error {
		if _, err := getIndex(tx, name); err != nil {
			return err
		}
		return tx.Delete(makeIndexKey(name))
	}, true)
	if err != nil {
		return err
	}

	if err := s.backend.DropPrefix(makeIndexVectorPrefix(name)); err != nil {
		return fmt.Errorf("failed to drop vectors of index %s: %w", name, err)
	}
	s.logger.Debug("deleted index", "index", name)
	return nil
}

// Upsert writes records keyed by ID. Every vector must match the index
// dimension; otherwise nothing is written.
func (s *Store) Upsert(ctx context.Context, index, namespace string, records []core.UpsertRecord) (int, error) {
	if err := s.check(ctx); err != nil {
		return 0, err
	}
	if len(records) == 0 {
		return 0, nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	info, err := s.DescribeIndex(ctx, index)
	if err != nil {
		return 0, err
	}

	keys := make([][]byte, len(records))
	values := make([][]byte, len(records))
	for i, rec := range records {
		if rec.ID == "" {
			return 0, fmt.Errorf("%w: record %d has no id", vectorstore.ErrInvalidRequest, i)
		}
		if len(rec.Values) != info.Dimension {
			return 0, fmt.Errorf("%w: %q has %d values, index %s expects %d",
				vectorstore.ErrDimensionMismatch, rec.ID, len(rec.Values), index, info.Dimension)
		}
		data, err := vectorstore.MarshalVector(rec)
		if err != nil {
			return 0, fmt.Errorf("%w: %q: %w", vectorstore.ErrInvalidRequest, rec.ID, err)
		}
		keys[i] = makeVectorKey(index, namespace, rec.ID)
		values[i] = data
	}

	if err := s.backend.WriteBatch(keys, values); err != nil {
		return 0, fmt.Errorf("failed to write vectors: %w", err)
	}
	return len(records), nil
}

// Fetch returns the stored records for ids. Unknown ids are skipped.
func (s *Store) Fetch(ctx context.Context, index, namespace string, ids []string) (map[string]core.UpsertRecord, error) {
	if err := s.check(ctx); err != nil {
		return nil, err
	}

	found := make(map[string]core.UpsertRecord, len(ids))
	err := s.backend.WithTx(func(tx *badger.Txn) error {
		if _, err := getIndex(tx, index); err != nil {
			return err
		}
		for _, id := range ids {
			item, err := tx.Get(makeVectorKey(index, namespace, id))
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			err = item.Value(func(val []byte) error {
				rec, err := vectorstore.UnmarshalVector(id, val)
				if err != nil {
					return err
				}
				found[id] = rec
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return found, nil
}

// DescribeIndexStats counts the vectors of an index per namespace.
func (s *Store) DescribeIndexStats(ctx context.Context, index string) (*core.IndexStats, error) {
	info, err := s.DescribeIndex(ctx, index)
	if err != nil {
		return nil, err
	}

	stats := &core.IndexStats{
		Dimension:  info.Dimension,
		Namespaces: make(map[string]int),
	}
	prefix := makeIndexVectorPrefix(index)
	err = s.backend.ScanKeys(prefix, func(key []byte) {
		stats.Namespaces[namespaceOf(key, prefix)]++
		stats.TotalVectorCount++
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}
