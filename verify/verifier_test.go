package verify

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/vectorseed/core"
	"github.com/poiesic/vectorseed/vectorstore"
	"github.com/poiesic/vectorseed/vectorstore/badger"
)

var desc = core.IndexDescriptor{Name: "rag", Dimension: 2, Metric: core.MetricCosine, Namespace: "ns1"}

// scriptedStats returns a sequence of statistics, repeating the last one.
type scriptedStats struct {
	mu    sync.Mutex
	stats []*core.IndexStats
	errs  []error
	calls int
}

func (s *scriptedStats) DescribeIndexStats(context.Context, string) (*core.IndexStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.calls
	s.calls++
	if i < len(s.errs) && s.errs[i] != nil {
		return nil, s.errs[i]
	}
	return s.stats[min(i, len(s.stats)-1)], nil
}

func counts(ns1 int) *core.IndexStats {
	return &core.IndexStats{Dimension: 2, TotalVectorCount: ns1 + 5, Namespaces: map[string]int{"ns1": ns1, "other": 5}}
}

func TestVerify(t *testing.T) {
	tests := []struct {
		name        string
		stats       *core.IndexStats
		expected    int
		opts        []Option
		wantMatched bool
		wantObs     int
	}{
		{name: "exact match", stats: counts(2), expected: 2, wantMatched: true, wantObs: 2},
		{name: "fewer than expected", stats: counts(1), expected: 2, wantObs: 1},
		{name: "more than expected", stats: counts(3), expected: 2, wantObs: 3},
		{name: "merge accepts more", stats: counts(3), expected: 2, opts: []Option{WithAtLeast()}, wantMatched: true, wantObs: 3},
		{name: "merge still rejects fewer", stats: counts(1), expected: 2, opts: []Option{WithAtLeast()}, wantObs: 1},
		{name: "total without namespaces", stats: &core.IndexStats{TotalVectorCount: 4}, expected: 4, wantMatched: true, wantObs: 4},
		{name: "namespace absent", stats: &core.IndexStats{TotalVectorCount: 4, Namespaces: map[string]int{"x": 4}}, expected: 0, wantMatched: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := NewVerifier(&scriptedStats{stats: []*core.IndexStats{tt.stats}}, tt.opts...)
			require.NoError(t, err)

			result, err := v.Verify(context.Background(), desc, tt.expected)
			require.NoError(t, err, "a mismatch is never an error")

			assert.Equal(t, tt.wantMatched, result.Matched)
			assert.Equal(t, tt.wantObs, result.Observed)
			assert.Equal(t, tt.expected, result.Expected)
			assert.Equal(t, 1, result.Attempts)
			assert.False(t, result.CheckedAt.IsZero())
			if tt.wantMatched {
				assert.Empty(t, result.Warning)
			} else {
				assert.Contains(t, result.Warning, "expected")
			}
		})
	}
}

func TestVerify_PollsUntilMatch(t *testing.T) {
	store := &scriptedStats{
		stats: []*core.IndexStats{counts(0), counts(0), counts(1), counts(2)},
		errs:  []error{nil, vectorstore.ErrUnavailable},
	}
	v, err := NewVerifier(store, WithPollTimeout(time.Second, time.Millisecond))
	require.NoError(t, err)

	result, err := v.Verify(context.Background(), desc, 2)
	require.NoError(t, err)
	assert.True(t, result.Matched)
	assert.Equal(t, 4, result.Attempts)
}

func TestVerify_PollTimeout(t *testing.T) {
	v, err := NewVerifier(&scriptedStats{stats: []*core.IndexStats{counts(1)}}, WithPollTimeout(10*time.Millisecond, time.Millisecond))
	require.NoError(t, err)

	result, err := v.Verify(context.Background(), desc, 2)
	require.NoError(t, err)
	assert.False(t, result.Matched)
	assert.Greater(t, result.Attempts, 1)
	assert.NotEmpty(t, result.Warning)
}

func TestVerify_StatsError(t *testing.T) {
	v, err := NewVerifier(&scriptedStats{errs: []error{vectorstore.ErrIndexNotFound}, stats: []*core.IndexStats{counts(0)}})
	require.NoError(t, err)

	_, err = v.Verify(context.Background(), desc, 2)
	assert.ErrorIs(t, err, vectorstore.ErrIndexNotFound)
}

func TestVerify_Cancelled(t *testing.T) {
	v, err := NewVerifier(&scriptedStats{stats: []*core.IndexStats{counts(0)}}, WithPollTimeout(time.Minute, time.Minute))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = v.Verify(ctx, desc, 2)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestVerify_BadgerStore(t *testing.T) {
	ctx := context.Background()
	store, err := badger.NewMemoryStore()
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.CreateIndex(ctx, desc))
	_, err = store.Upsert(ctx, "rag", "ns1", []core.UpsertRecord{
		{ID: "A", Values: []float32{1, 0}},
		{ID: "B", Values: []float32{0, 1}},
	})
	require.NoError(t, err)

	v, err := NewVerifier(store)
	require.NoError(t, err)
	result, err := v.Verify(ctx, desc, 2)
	require.NoError(t, err)
	assert.True(t, result.Matched)
	assert.Equal(t, 2, result.Stats.TotalVectorCount)
}

func TestNewVerifier(t *testing.T) {
	_, err := NewVerifier(nil)
	require.Error(t, err)

	_, err = NewVerifier(&scriptedStats{}, WithPollTimeout(time.Second, 0))
	require.Error(t, err)
}
