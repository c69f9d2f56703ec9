package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/vectorseed/core"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "vectorseed.yaml")
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func validConfig() *Config {
	cfg := Default()
	cfg.Mode = "reset"
	cfg.Store.APIKey = "pc-key"
	cfg.Embedding.APIKey = "sk-key"
	return cfg
}

func TestDefault(t *testing.T) {
	cfg := Default()
	desc := cfg.Descriptor()
	assert.Equal(t, "rag", desc.Name)
	assert.Equal(t, 1536, desc.Dimension)
	assert.Equal(t, core.MetricCosine, desc.Metric)
	assert.Equal(t, "ns1", desc.Namespace)
	assert.Equal(t, core.Placement{Cloud: "aws", Region: "us-east-1"}, desc.Placement)
	assert.Equal(t, "text-embedding-3-small", cfg.Embedding.Model)
	assert.Equal(t, 100, cfg.Ingestion.BatchSize)
	assert.Equal(t, 2*time.Minute, cfg.Provisioning.ReadyTimeout)
}

func TestLoad(t *testing.T) {
	t.Setenv(EnvOpenAIKey, "sk-env")
	t.Setenv(EnvPineconeKey, "pc-env")

	p := writeConfig(t, `
index:
  name: reviews
  dimension: 768
  metric: dot_product
mode: merge
store:
  backend: badger
  path: /tmp/vectors
embedding:
  host: http://localhost:11434
  model: nomic-embed-text
  api_key: from-file
  retry_delay: 250ms
input:
  paths: [reviews.json]
  id_field: professor
  text_field: review
  metadata_fields: [review, subject, stars]
  records_key: reviews
ingestion:
  batch_size: 50
  batch_timeout: 30s
`)

	cfg, err := Load(p)
	require.NoError(t, err)

	assert.Equal(t, "reviews", cfg.Index.Name)
	assert.Equal(t, 768, cfg.Index.Dimension)
	assert.Equal(t, core.MetricDotProduct, cfg.Descriptor().Metric)
	assert.Equal(t, "ns1", cfg.Index.Namespace, "unset fields keep defaults")
	assert.Equal(t, "merge", cfg.Mode)
	assert.Equal(t, BackendBadger, cfg.Store.Backend)
	assert.Equal(t, 250*time.Millisecond, cfg.Embedding.RetryDelay)
	assert.Equal(t, 30*time.Second, cfg.Ingestion.BatchTimeout)
	assert.Equal(t, 50, cfg.Ingestion.BatchSize)
	assert.Equal(t, 4, cfg.Ingestion.Workers)

	assert.Equal(t, "from-file", cfg.Embedding.APIKey, "file values win over the environment")
	assert.Equal(t, "pc-env", cfg.Store.APIKey)

	mapping := cfg.Mapping()
	assert.Equal(t, "professor", mapping.IDField)
	assert.Equal(t, []string{"review", "subject", "stars"}, mapping.MetadataFields)
	assert.Equal(t, "reviews", mapping.RecordsKey)

	require.NoError(t, cfg.Validate())
	require.NoError(t, cfg.ValidateInput())
}

func TestLoad_Errors(t *testing.T) {
	var cfgErr *core.ConfigurationError

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, "config", cfgErr.Field)

	_, err = Load(writeConfig(t, "index: [not, a, map]"))
	require.ErrorAs(t, err, &cfgErr)
}

func TestLoad_NoFile(t *testing.T) {
	t.Setenv(EnvOpenAIKey, "sk-env")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "sk-env", cfg.Embedding.APIKey)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(c *Config)
		wantField string
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "mock provider needs no key", mutate: func(c *Config) { c.Embedding.Provider = ProviderMock; c.Embedding.APIKey = "" }},
		{name: "badger needs no key", mutate: func(c *Config) { c.Store.Backend = BackendBadger; c.Store.APIKey = "" }},
		{name: "missing mode", mutate: func(c *Config) { c.Mode = "" }, wantField: "mode"},
		{name: "bad index name", mutate: func(c *Config) { c.Index.Name = "Bad_Name" }, wantField: "index.name"},
		{name: "bad metric", mutate: func(c *Config) { c.Index.Metric = "hamming" }, wantField: "metric"},
		{name: "empty namespace", mutate: func(c *Config) { c.Index.Namespace = "" }, wantField: "index.namespace"},
		{name: "pinecone without key", mutate: func(c *Config) { c.Store.APIKey = " " }, wantField: "store.api_key"},
		{name: "unknown backend", mutate: func(c *Config) { c.Store.Backend = "redis" }, wantField: "store.backend"},
		{name: "openai without key", mutate: func(c *Config) { c.Embedding.APIKey = "" }, wantField: "embedding.token"},
		{name: "unknown provider", mutate: func(c *Config) { c.Embedding.Provider = "bedrock" }, wantField: "embedding.provider"},
		{name: "dimension disagreement", mutate: func(c *Config) { c.Embedding.Dimensions = 512 }, wantField: "embedding.dimensions"},
		{name: "index smaller than model output", mutate: func(c *Config) { c.Index.Dimension = 768 }, wantField: "index.dimension"},
		{name: "shortened model output", mutate: func(c *Config) { c.Index.Dimension = 512; c.Embedding.Dimensions = 512 }},
		{name: "unknown model is checked by the probe", mutate: func(c *Config) { c.Index.Dimension = 768; c.Embedding.Model = "custom-embedder" }},
		{name: "mock ignores model dimension", mutate: func(c *Config) { c.Index.Dimension = 768; c.Embedding.Provider = ProviderMock }},
		{name: "batch too large", mutate: func(c *Config) { c.Ingestion.BatchSize = 5000 }, wantField: "ingestion.batch_size"},
		{name: "no workers", mutate: func(c *Config) { c.Ingestion.Workers = 0 }, wantField: "ingestion.workers"},
		{name: "no upsert attempts", mutate: func(c *Config) { c.Ingestion.UpsertMaxAttempts = 0 }, wantField: "ingestion.upsert_max_attempts"},
		{name: "bad poll interval", mutate: func(c *Config) { c.Provisioning.PollInterval = 0 }, wantField: "provisioning"},
		{name: "same id and text field", mutate: func(c *Config) { c.Input.TextField = "id" }, wantField: "input.text_field"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantField == "" {
				require.NoError(t, err)
				return
			}
			var cfgErr *core.ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.wantField, cfgErr.Field)
		})
	}
}

func TestValidateInput(t *testing.T) {
	cfg := validConfig()
	var cfgErr *core.ConfigurationError
	require.ErrorAs(t, cfg.ValidateInput(), &cfgErr)

	cfg.Input.Paths = []string{"a.json", " "}
	require.ErrorAs(t, cfg.ValidateInput(), &cfgErr)

	cfg.Input.Paths = []string{"a.json", "s3://bucket/prefix/"}
	require.NoError(t, cfg.ValidateInput())
}

func TestAIConfig(t *testing.T) {
	cfg := validConfig()
	cfg.Embedding.Host = "http://localhost:11434"
	cfg.Embedding.Timeout = 5 * time.Second

	aiCfg := cfg.AIConfig()
	require.NoError(t, aiCfg.Validate())
	assert.Equal(t, "http://localhost:11434/v1", aiCfg.EmbeddingHost)
	assert.Equal(t, "sk-key", aiCfg.Token)
	assert.Equal(t, 5*time.Second, aiCfg.Timeout)
	assert.Equal(t, 5, aiCfg.MaxAttempts)
}
