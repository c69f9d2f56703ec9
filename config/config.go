package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/poiesic/vectorseed/ai"
	"github.com/poiesic/vectorseed/core"
	"github.com/poiesic/vectorseed/ingestion"
	"github.com/poiesic/vectorseed/provision"
	"github.com/poiesic/vectorseed/source"
)

// Environment variables holding credentials.
const (
	EnvOpenAIKey   = "OPENAI_API_KEY"
	EnvPineconeKey = "PINECONE_API_KEY"
)

// Store backends.
const (
	BackendPinecone = "pinecone"
	BackendBadger   = "badger"
)

// Embedding providers.
const (
	ProviderOpenAI = "openai"
	ProviderMock   = "mock"
)

// Config holds the configuration of a seeding run.
type Config struct {
	Index        IndexConfig        `yaml:"index"`
	Mode         string             `yaml:"mode"`
	Store        StoreConfig        `yaml:"store"`
	Embedding    EmbeddingConfig    `yaml:"embedding"`
	Input        InputConfig        `yaml:"input"`
	Ingestion    IngestionConfig    `yaml:"ingestion,omitempty"`
	Provisioning ProvisioningConfig `yaml:"provisioning,omitempty"`
	Verify       VerifyConfig       `yaml:"verify,omitempty"`
}

// IndexConfig describes the target index.
type IndexConfig struct {
	Name      string `yaml:"name"`
	Dimension int    `yaml:"dimension"`
	Metric    string `yaml:"metric"`
	Namespace string `yaml:"namespace"`
	Cloud     string `yaml:"cloud"`
	Region    string `yaml:"region"`
}

// StoreConfig selects the vector store.
type StoreConfig struct {
	Backend string `yaml:"backend"` // "pinecone" | "badger"
	APIKey  string `yaml:"api_key,omitempty"`
	// Path is the badger data directory. Empty keeps the store in memory.
	Path string `yaml:"path,omitempty"`
}

// EmbeddingConfig holds embedding service configuration.
type EmbeddingConfig struct {
	Provider          string        `yaml:"provider"` // "openai" | "mock"
	Host              string        `yaml:"host"`
	Model             string        `yaml:"model"`
	APIKey            string        `yaml:"api_key,omitempty"`
	Dimensions        int           `yaml:"dimensions,omitempty"`
	RequestsPerSecond float64       `yaml:"requests_per_second,omitempty"`
	MaxAttempts       int           `yaml:"max_attempts"`
	RetryDelay        time.Duration `yaml:"retry_delay"`
	Timeout           time.Duration `yaml:"timeout"`
}

// InputConfig locates the records and maps their fields.
type InputConfig struct {
	Paths          []string `yaml:"paths"`
	IDField        string   `yaml:"id_field"`
	TextField      string   `yaml:"text_field"`
	MetadataFields []string `yaml:"metadata_fields,omitempty"`
	RecordsKey     string   `yaml:"records_key,omitempty"`
	Concurrency    int      `yaml:"concurrency,omitempty"`
}

// IngestionConfig tunes the ingestion pipeline.
type IngestionConfig struct {
	BatchSize               int           `yaml:"batch_size"`
	Workers                 int           `yaml:"workers"`
	BatchTimeout            time.Duration `yaml:"batch_timeout"`
	UpsertMaxAttempts       int           `yaml:"upsert_max_attempts"`
	UpsertRequestsPerSecond float64       `yaml:"upsert_requests_per_second,omitempty"`
}

// ProvisioningConfig tunes index provisioning.
type ProvisioningConfig struct {
	ReadyTimeout time.Duration `yaml:"ready_timeout"`
	PollInterval time.Duration `yaml:"poll_interval"`
	MaxAttempts  int           `yaml:"max_attempts"`
}

// VerifyConfig tunes post-ingestion verification.
type VerifyConfig struct {
	// PollTimeout keeps re-reading index statistics until the count matches.
	// Zero reads them once.
	PollTimeout time.Duration `yaml:"poll_timeout,omitempty"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Index: IndexConfig{
			Name:      "rag",
			Dimension: 1536,
			Metric:    string(core.MetricCosine),
			Namespace: "ns1",
			Cloud:     "aws",
			Region:    "us-east-1",
		},
		Store: StoreConfig{Backend: BackendPinecone},
		Embedding: EmbeddingConfig{
			Provider:    ProviderOpenAI,
			Host:        ai.DefaultEmbeddingHost,
			Model:       "text-embedding-3-small",
			MaxAttempts: 5,
			RetryDelay:  500 * time.Millisecond,
			Timeout:     60 * time.Second,
		},
		Input: InputConfig{
			IDField:     "id",
			TextField:   "text",
			Concurrency: 4,
		},
		Ingestion: IngestionConfig{
			BatchSize:         ingestion.DefaultBatchSize,
			Workers:           ingestion.DefaultPoolSize,
			BatchTimeout:      ingestion.DefaultBatchTimeout,
			UpsertMaxAttempts: 5,
		},
		Provisioning: ProvisioningConfig{
			ReadyTimeout: 2 * time.Minute,
			PollInterval: time.Second,
			MaxAttempts:  5,
		},
	}
}

// Load reads a YAML file over the defaults and fills credentials from the
// environment. An empty path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(expandPath(path))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, &core.ConfigurationError{Field: "config", Reason: "file not found: " + path}
			}
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, &core.ConfigurationError{Field: "config", Reason: "failed to parse " + path + ": " + err.Error()}
		}
	}
	cfg.ApplyEnv(os.Getenv)
	return cfg, nil
}

// ApplyEnv fills credentials that the file left empty.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if c.Embedding.APIKey == "" {
		c.Embedding.APIKey = getenv(EnvOpenAIKey)
	}
	if c.Store.APIKey == "" {
		c.Store.APIKey = getenv(EnvPineconeKey)
	}
}

// Descriptor returns the index descriptor. The metric is normalized when it
// parses; Validate reports it otherwise.
func (c *Config) Descriptor() core.IndexDescriptor {
	metric := core.Metric(c.Index.Metric)
	if m, err := core.ParseMetric(c.Index.Metric); err == nil {
		metric = m
	}
	return core.IndexDescriptor{
		Name:      c.Index.Name,
		Dimension: c.Index.Dimension,
		Metric:    metric,
		Namespace: c.Index.Namespace,
		Placement: core.Placement{Cloud: c.Index.Cloud, Region: c.Index.Region},
	}
}

// AIConfig returns the embedding service configuration.
func (c *Config) AIConfig() *ai.Config {
	cfg := ai.NewConfig(
		ai.WithEmbeddingHost(c.Embedding.Host),
		ai.WithEmbeddingModel(c.Embedding.Model),
		ai.WithToken(c.Embedding.APIKey),
		ai.WithDimensions(c.Embedding.Dimensions),
		ai.WithRequestsPerSecond(c.Embedding.RequestsPerSecond),
		ai.WithRetry(c.Embedding.MaxAttempts, c.Embedding.RetryDelay),
	)
	if c.Embedding.Timeout > 0 {
		cfg.Timeout = c.Embedding.Timeout
	}
	return cfg
}

// Mapping returns the input field mapping.
func (c *Config) Mapping() source.Mapping {
	return source.Mapping{
		IDField:        c.Input.IDField,
		TextField:      c.Input.TextField,
		MetadataFields: c.Input.MetadataFields,
		RecordsKey:     c.Input.RecordsKey,
	}
}

// Validate checks the configuration before any remote call.
func (c *Config) Validate() error {
	if err := core.ValidateDescriptor(c.Descriptor()); err != nil {
		return err
	}
	if c.Index.Namespace == "" {
		return &core.ConfigurationError{Field: "index.namespace", Reason: "is required"}
	}
	if _, err := provision.ParseMode(c.Mode); err != nil {
		return err
	}

	switch c.Store.Backend {
	case BackendPinecone:
		if core.IsBlank(c.Store.APIKey) {
			return &core.ConfigurationError{Field: "store.api_key", Reason: EnvPineconeKey + " is required for the pinecone backend"}
		}
	case BackendBadger:
	default:
		return &core.ConfigurationError{Field: "store.backend", Reason: "must be pinecone or badger, got " + c.Store.Backend}
	}

	switch c.Embedding.Provider {
	case ProviderOpenAI:
		if err := c.AIConfig().Validate(); err != nil {
			return err
		}
	case ProviderMock:
	default:
		return &core.ConfigurationError{Field: "embedding.provider", Reason: "must be openai or mock, got " + c.Embedding.Provider}
	}
	if c.Embedding.Dimensions > 0 && c.Embedding.Dimensions != c.Index.Dimension {
		return &core.ConfigurationError{
			Field:  "embedding.dimensions",
			Reason: fmt.Sprintf("%d differs from index.dimension %d", c.Embedding.Dimensions, c.Index.Dimension),
		}
	}
	if c.Embedding.Provider == ProviderOpenAI && c.Embedding.Dimensions == 0 {
		if native := c.AIConfig().OutputDimension(); native > 0 && native != c.Index.Dimension {
			return &core.ConfigurationError{
				Field:  "index.dimension",
				Reason: fmt.Sprintf("%d does not match model %s, which produces %d", c.Index.Dimension, c.Embedding.Model, native),
			}
		}
	}

	if c.Ingestion.BatchSize < 1 || c.Ingestion.BatchSize > ingestion.MaxBatchSize {
		return &core.ConfigurationError{Field: "ingestion.batch_size", Reason: fmt.Sprintf("must be between 1 and %d", ingestion.MaxBatchSize)}
	}
	if c.Ingestion.Workers < 1 {
		return &core.ConfigurationError{Field: "ingestion.workers", Reason: "must be at least 1"}
	}
	if c.Ingestion.BatchTimeout <= 0 {
		return &core.ConfigurationError{Field: "ingestion.batch_timeout", Reason: "must be positive"}
	}
	if c.Ingestion.UpsertMaxAttempts < 1 {
		return &core.ConfigurationError{Field: "ingestion.upsert_max_attempts", Reason: "must be at least 1"}
	}
	if c.Provisioning.ReadyTimeout <= 0 || c.Provisioning.PollInterval <= 0 {
		return &core.ConfigurationError{Field: "provisioning", Reason: "ready_timeout and poll_interval must be positive"}
	}
	if c.Provisioning.MaxAttempts < 1 {
		return &core.ConfigurationError{Field: "provisioning.max_attempts", Reason: "must be at least 1"}
	}
	return c.Mapping().Validate()
}

// ValidateInput checks that input locations are configured.
func (c *Config) ValidateInput() error {
	if len(c.Input.Paths) == 0 {
		return &core.ConfigurationError{Field: "input.paths", Reason: "at least one input location is required"}
	}
	for _, p := range c.Input.Paths {
		if strings.TrimSpace(p) == "" {
			return &core.ConfigurationError{Field: "input.paths", Reason: "locations cannot be empty"}
		}
	}
	return nil
}

// expandPath expands a leading ~ to the user's home directory.
func expandPath(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
