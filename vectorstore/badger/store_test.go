package badger

import (
	"context"
	"testing"

	"github.com/poiesic/vectorseed/core"
	"github.com/poiesic/vectorseed/vectorstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testDescriptor() core.IndexDescriptor {
	return core.IndexDescriptor{
		Name:      "rag",
		Dimension: 3,
		Metric:    core.MetricCosine,
		Namespace: "ns1",
		Placement: core.Placement{Cloud: "aws", Region: "us-east-1"},
	}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewMemoryStore()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestNewStore_RequiresLocation(t *testing.T) {
	_, err := NewStore()
	assert.Error(t, err)
}

func TestIndexLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	desc := testDescriptor()

	names, err := store.ListIndexes(ctx)
	require.NoError(t, err)
	assert.Empty(t, names)

	_, err = store.DescribeIndex(ctx, desc.Name)
	assert.ErrorIs(t, err, vectorstore.ErrIndexNotFound)

	require.NoError(t, store.CreateIndex(ctx, desc))
	err = store.CreateIndex(ctx, desc)
	assert.ErrorIs(t, err, vectorstore.ErrConflict)

	other := desc
	other.Name = "rag-2"
	require.NoError(t, store.CreateIndex(ctx, other))

	names, err = store.ListIndexes(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"rag", "rag-2"}, names)

	info, err := store.DescribeIndex(ctx, desc.Name)
	require.NoError(t, err)
	assert.Equal(t, 3, info.Dimension)
	assert.Equal(t, core.MetricCosine, info.Metric)
	assert.Equal(t, "us-east-1", info.Placement.Region)
	assert.True(t, info.Ready)

	require.NoError(t, store.DeleteIndex(ctx, desc.Name))
	assert.ErrorIs(t, store.DeleteIndex(ctx, desc.Name), vectorstore.ErrIndexNotFound)

	names, err = store.ListIndexes(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"rag-2"}, names)
}

func TestCreateIndex_InvalidRequest(t *testing.T) {
	store := newTestStore(t)
	desc := testDescriptor()
	desc.Dimension = 0
	assert.ErrorIs(t, store.CreateIndex(context.Background(), desc), vectorstore.ErrInvalidRequest)
}

func TestUpsert_LatestVectorWins(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	desc := testDescriptor()
	require.NoError(t, store.CreateIndex(ctx, desc))

	n, err := store.Upsert(ctx, desc.Name, desc.Namespace, []core.UpsertRecord{
		{ID: "A", Values: []float32{1, 0, 0}, Metadata: core.Metadata{"stars": 1.0}},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = store.Upsert(ctx, desc.Name, desc.Namespace, []core.UpsertRecord{
		{ID: "A", Values: []float32{0, 1, 0}, Metadata: core.Metadata{"stars": 5.0}},
	})
	require.NoError(t, err)

	got, err := store.Fetch(ctx, desc.Name, desc.Namespace, []string{"A", "missing"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []float32{0, 1, 0}, got["A"].Values)
	assert.Equal(t, 5.0, got["A"].Metadata["stars"])

	stats, err := store.DescribeIndexStats(ctx, desc.Name)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalVectorCount)
}

func TestUpsert_RejectsWrongDimension(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	desc := testDescriptor()
	require.NoError(t, store.CreateIndex(ctx, desc))

	_, err := store.Upsert(ctx, desc.Name, desc.Namespace, []core.UpsertRecord{
		{ID: "A", Values: []float32{1, 0, 0}},
		{ID: "B", Values: []float32{1, 0}},
	})
	require.ErrorIs(t, err, vectorstore.ErrDimensionMismatch)

	stats, err := store.DescribeIndexStats(ctx, desc.Name)
	require.NoError(t, err)
	assert.Zero(t, stats.TotalVectorCount, "a rejected batch writes nothing")
}

func TestUpsert_MissingIndex(t *testing.T) {
	store := newTestStore(t)
	_, err := store.Upsert(context.Background(), "nope", "ns1", []core.UpsertRecord{{ID: "A", Values: []float32{1}}})
	assert.ErrorIs(t, err, vectorstore.ErrIndexNotFound)
}

func TestDescribeIndexStats_Namespaces(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	desc := testDescriptor()
	require.NoError(t, store.CreateIndex(ctx, desc))

	_, err := store.Upsert(ctx, desc.Name, "ns1", []core.UpsertRecord{
		{ID: "A", Values: []float32{1, 0, 0}},
		{ID: "B", Values: []float32{0, 1, 0}},
	})
	require.NoError(t, err)
	_, err = store.Upsert(ctx, desc.Name, "ns2", []core.UpsertRecord{
		{ID: "A", Values: []float32{0, 0, 1}},
	})
	require.NoError(t, err)

	stats, err := store.DescribeIndexStats(ctx, desc.Name)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalVectorCount)
	assert.Equal(t, 3, stats.Dimension)
	assert.Equal(t, map[string]int{"ns1": 2, "ns2": 1}, stats.Namespaces)
}

func TestDeleteIndex_DropsVectors(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	desc := testDescriptor()
	require.NoError(t, store.CreateIndex(ctx, desc))
	_, err := store.Upsert(ctx, desc.Name, desc.Namespace, []core.UpsertRecord{{ID: "A", Values: []float32{1, 0, 0}}})
	require.NoError(t, err)

	require.NoError(t, store.DeleteIndex(ctx, desc.Name))
	require.NoError(t, store.CreateIndex(ctx, desc))

	stats, err := store.DescribeIndexStats(ctx, desc.Name)
	require.NoError(t, err)
	assert.Zero(t, stats.TotalVectorCount)
}

func TestStore_Persistence(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	desc := testDescriptor()

	store, err := NewStore(WithPath(dir))
	require.NoError(t, err)
	require.NoError(t, store.CreateIndex(ctx, desc))
	_, err = store.Upsert(ctx, desc.Name, desc.Namespace, []core.UpsertRecord{{ID: "A", Values: []float32{1, 0, 0}}})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	store, err = NewStore(WithPath(dir))
	require.NoError(t, err)
	defer store.Close()

	stats, err := store.DescribeIndexStats(ctx, desc.Name)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalVectorCount)
}

func TestStore_Closed(t *testing.T) {
	store, err := NewMemoryStore()
	require.NoError(t, err)
	require.NoError(t, store.Close())

	_, err = store.ListIndexes(context.Background())
	assert.ErrorIs(t, err, vectorstore.ErrStoreClosed)
}

func TestStore_SharedBackend(t *testing.T) {
	backend, err := OpenBackend("", true, nil)
	require.NoError(t, err)
	defer backend.Close()

	store, err := NewStore(WithBackend(backend))
	require.NoError(t, err)
	require.NoError(t, store.Close())
	assert.False(t, backend.IsClosed(), "store must not close a borrowed backend")
}
