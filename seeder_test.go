package vectorseed

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/vectorseed/ai"
	"github.com/poiesic/vectorseed/ai/mock"
	"github.com/poiesic/vectorseed/config"
	"github.com/poiesic/vectorseed/core"
	"github.com/poiesic/vectorseed/vectorstore"
	"github.com/poiesic/vectorseed/vectorstore/badger"
)

const testDimension = 8

func writeInput(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func testConfig(t *testing.T, mode string, input string) *config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Mode = mode
	cfg.Index.Dimension = testDimension
	cfg.Store.Backend = config.BackendBadger
	cfg.Embedding.Provider = config.ProviderMock
	cfg.Embedding.MaxAttempts = 1
	cfg.Embedding.RetryDelay = time.Millisecond
	cfg.Provisioning.PollInterval = 10 * time.Millisecond
	cfg.Provisioning.ReadyTimeout = time.Second
	cfg.Ingestion.BatchSize = 2
	cfg.Input.Paths = []string{input}
	return cfg
}

func setupStore(t *testing.T) *badger.Store {
	t.Helper()
	store, err := badger.NewMemoryStore()
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func setupSeeder(t *testing.T, cfg *config.Config, store vectorstore.Store, opts ...SeederOption) *Seeder {
	t.Helper()
	opts = append([]SeederOption{WithStore(store)}, opts...)
	s, err := NewSeeder(cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func namespaceCount(t *testing.T, store vectorstore.Store, index, namespace string) int {
	t.Helper()
	stats, err := store.DescribeIndexStats(context.Background(), index)
	require.NoError(t, err)
	return stats.Namespaces[namespace]
}

const reviews = `{"id": "A", "text": "great class", "subject": "math"}
{"id": "B", "text": "boring lectures", "subject": "history"}
{"id": "C", "text": ""}
`

func TestNewSeeder(t *testing.T) {
	t.Run("nil config", func(t *testing.T) {
		_, err := NewSeeder(nil)
		var cfgErr *core.ConfigurationError
		require.ErrorAs(t, err, &cfgErr)
	})

	t.Run("invalid config", func(t *testing.T) {
		cfg := testConfig(t, "", "reviews.jsonl")
		_, err := NewSeeder(cfg)
		var cfgErr *core.ConfigurationError
		require.ErrorAs(t, err, &cfgErr)
		assert.Equal(t, "mode", cfgErr.Field)
	})

	t.Run("opens an in-memory store", func(t *testing.T) {
		cfg := testConfig(t, "reset", "reviews.jsonl")
		s, err := NewSeeder(cfg)
		require.NoError(t, err)
		assert.True(t, s.ownsStore)
		require.NoError(t, s.Close())
	})

	t.Run("opens a store on disk", func(t *testing.T) {
		cfg := testConfig(t, "reset", "reviews.jsonl")
		cfg.Store.Path = filepath.Join(t.TempDir(), "vectors")
		s, err := NewSeeder(cfg)
		require.NoError(t, err)
		require.NoError(t, s.Close())
		assert.DirExists(t, cfg.Store.Path)
	})
}

func TestSeeder_Run(t *testing.T) {
	store := setupStore(t)
	cfg := testConfig(t, "reset", writeInput(t, "reviews.jsonl", reviews))
	s := setupSeeder(t, cfg, store)

	result, err := s.Run(context.Background())
	require.NoError(t, err)
	require.NotNil(t, result.Report)

	report := result.Report
	assert.Equal(t, 3, report.Total)
	assert.Equal(t, 2, report.Succeeded)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "C", report.Failures[0].ID)
	assert.Equal(t, core.FailureInvalidRecord, report.Failures[0].Kind())

	require.NotNil(t, result.Verification)
	assert.True(t, result.Verification.Matched)
	assert.Equal(t, 2, result.Verification.Observed)
	assert.Equal(t, 2, namespaceCount(t, store, "rag", "ns1"))

	fetched, err := store.Fetch(context.Background(), "rag", "ns1", []string{"A"})
	require.NoError(t, err)
	assert.Equal(t, "math", fetched["A"].Metadata["subject"])
	assert.Equal(t, mock.Vector("great class", testDimension), fetched["A"].Values)
}

func TestSeeder_RunResetIsRepeatable(t *testing.T) {
	store := setupStore(t)
	cfg := testConfig(t, "reset", writeInput(t, "reviews.jsonl", reviews))
	s := setupSeeder(t, cfg, store)

	for range 2 {
		result, err := s.Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 2, result.Report.Succeeded)
		assert.True(t, result.Verification.Matched)
	}
	assert.Equal(t, 2, namespaceCount(t, store, "rag", "ns1"))
}

func TestSeeder_RunMergeKeepsVectors(t *testing.T) {
	store := setupStore(t)
	first := testConfig(t, "reset", writeInput(t, "reviews.jsonl", reviews))
	_, err := setupSeeder(t, first, store).Run(context.Background())
	require.NoError(t, err)

	more := `{"id": "D", "text": "tough grader"}
{"id": "E", "text": "clear explanations"}
`
	second := testConfig(t, "merge", writeInput(t, "more.jsonl", more))
	result, err := setupSeeder(t, second, store).Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, result.Report.Succeeded)
	assert.Equal(t, 4, namespaceCount(t, store, "rag", "ns1"))
	assert.True(t, result.Verification.Matched, "merge accepts more vectors than were written")
	assert.Equal(t, 4, result.Verification.Observed)
}

func TestSeeder_RunProbeFailureProvisionsNothing(t *testing.T) {
	store := setupStore(t)
	cfg := testConfig(t, "reset", writeInput(t, "reviews.jsonl", reviews))
	embedder := mock.NewMockEmbedder(testDimension).FailNext(ai.ErrUnavailable)
	s := setupSeeder(t, cfg, store, WithEmbedder(embedder))

	result, err := s.Run(context.Background())
	require.ErrorIs(t, err, core.ErrEmbeddingUnavailable)
	assert.Nil(t, result.Report)

	names, err := store.ListIndexes(context.Background())
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestSeeder_RunProbeDimensionMismatch(t *testing.T) {
	store := setupStore(t)
	cfg := testConfig(t, "reset", writeInput(t, "reviews.jsonl", reviews))
	s := setupSeeder(t, cfg, store, WithEmbedder(mock.NewMockEmbedder(testDimension+1)))

	_, err := s.Run(context.Background())
	var intErr *core.IntegrityError
	require.ErrorAs(t, err, &intErr)
	assert.Equal(t, testDimension, intErr.Expected)
	assert.Equal(t, testDimension+1, intErr.Actual)
}

func TestSeeder_RunUnreadableInputLeavesIndex(t *testing.T) {
	store := setupStore(t)
	cfg := testConfig(t, "reset", writeInput(t, "reviews.jsonl", reviews))
	_, err := setupSeeder(t, cfg, store).Run(context.Background())
	require.NoError(t, err)

	broken := testConfig(t, "reset", writeInput(t, "broken.json", `{"records": [`))
	_, err = setupSeeder(t, broken, store).Run(context.Background())
	require.ErrorIs(t, err, ErrInputUnreadable)

	assert.Equal(t, 2, namespaceCount(t, store, "rag", "ns1"), "reset must not run before the input is read")
}

func TestSeeder_RunMergeShapeMismatch(t *testing.T) {
	store := setupStore(t)
	cfg := testConfig(t, "reset", writeInput(t, "reviews.jsonl", reviews))
	_, err := setupSeeder(t, cfg, store).Run(context.Background())
	require.NoError(t, err)

	merge := testConfig(t, "merge", writeInput(t, "reviews.jsonl", reviews))
	merge.Index.Dimension = 4
	_, err = setupSeeder(t, merge, store).Run(context.Background())

	var provErr *core.IndexProvisioningError
	require.ErrorAs(t, err, &provErr)
	assert.ErrorIs(t, err, vectorstore.ErrConflict)
	assert.Equal(t, 2, namespaceCount(t, store, "rag", "ns1"))
}

func TestSeeder_RunRequiresInput(t *testing.T) {
	cfg := testConfig(t, "reset", "")
	cfg.Input.Paths = nil
	s := setupSeeder(t, cfg, setupStore(t))

	_, err := s.Run(context.Background())
	var cfgErr *core.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "input.paths", cfgErr.Field)
}

func TestSeeder_ProvisionAndStats(t *testing.T) {
	store := setupStore(t)
	cfg := testConfig(t, "reset", "unused.jsonl")
	s := setupSeeder(t, cfg, store)

	desc, err := s.Provision(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "rag", desc.Name)

	result, err := s.Stats(context.Background(), 0)
	require.NoError(t, err)
	assert.True(t, result.Matched)

	result, err = s.Stats(context.Background(), 3)
	require.NoError(t, err)
	assert.False(t, result.Matched)
	assert.NotEmpty(t, result.Warning)
}

func TestSeeder_StatsMissingIndex(t *testing.T) {
	cfg := testConfig(t, "merge", "unused.jsonl")
	s := setupSeeder(t, cfg, setupStore(t))

	_, err := s.Stats(context.Background(), 1)
	require.ErrorIs(t, err, core.ErrIndexNotProvisioned)
}
