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


package vectorseed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/vectorseed/ai"
	"github.com/poiesic/vectorseed/ai/mock"
	"github.com/poiesic/vectorseed/ai/openai"
	"github.com/poiesic/vectorseed/config"
	"github.com/poiesic/vectorseed/core"
	"github.com/poiesic/vectorseed/embedding"
	"github.com/poiesic/vectorseed/ingestion"
	"github.com/poiesic/vectorseed/progress"
	"github.com/poiesic/vectorseed/provision"
	"github.com/poiesic/vectorseed/source"
	"github.com/poiesic/vectorseed/vectorstore"
	"github.com/poiesic/vectorseed/vectorstore/badger"
	"github.com/poiesic/vectorseed/vectorstore/pinecone"
	"github.com/poiesic/vectorseed/verify"
)

// maxRetryDelay caps the backoff between retries of remote calls.
const maxRetryDelay = 30 * time.Second

// Seeder provisions an index and fills it from input records:
// probe, provision, ingest, verify.
type Seeder struct {
	cfg        *config.Config
	store      vectorstore.Store
	ownsStore  bool
	client     *embedding.Client
	loader     *source.Loader
	progress   progress.Reporter
	logger     *slog.Logger
	baseLogger *slog.Logger
}

// SeederOption configures a Seeder.
type SeederOption func(*seederOptions)

type seederOptions struct {
	store    vectorstore.Store
	embedder ai.Embedder
	s3       source.S3API
	progress progress.Reporter
	logger   *slog.Logger
}

// WithStore uses store instead of opening the configured backend. The
// caller keeps ownership of store.
func WithStore(store vectorstore.Store) SeederOption {
	return func(o *seederOptions) {
		o.store = store
	}
}

// WithEmbedder uses embedder instead of the configured provider.
func WithEmbedder(embedder ai.Embedder) SeederOption {
	return func(o *seederOptions) {
		o.embedder = embedder
	}
}

// WithS3Client sets the client used for s3:// input locations.
func WithS3Client(client source.S3API) SeederOption {
	return func(o *seederOptions) {
		o.s3 = client
	}
}

// WithProgress reports ingestion progress.
func WithProgress(reporter progress.Reporter) SeederOption {
	return func(o *seederOptions) {
		o.progress = reporter
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) SeederOption {
	return func(o *seederOptions) {
		o.logger = logger
	}
}

// Result is the outcome of a full run.
type Result struct {
	Index        core.IndexDescriptor
	Input        *source.Input
	Report       *core.IngestionReport
	Verification *core.VerificationResult
}

// NewSeeder validates cfg and opens the store and embedding service it names.
func NewSeeder(cfg *config.Config, opts ...SeederOption) (*Seeder, error) {
	if cfg == nil {
		return nil, &core.ConfigurationError{Field: "config", Reason: "is required"}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	options := &seederOptions{logger: slog.Default(), progress: progress.Nop{}}
	for _, opt := range opts {
		opt(options)
	}
	logger := options.logger

	embedder := options.embedder
	if embedder == nil {
		var err error
		if embedder, err = newEmbedder(cfg, logger); err != nil {
			return nil, err
		}
	}

	client, err := embedding.NewClient(embedder, cfg.Index.Dimension,
		embedding.WithConfig(cfg.AIConfig()),
		embedding.WithLogger(logger),
	)
	if err != nil {
		return nil, err
	}

	loaderOpts := []source.Option{
		source.WithMapping(cfg.Mapping()),
		source.WithConcurrency(cfg.Input.Concurrency),
		source.WithLogger(logger),
	}
	if options.s3 != nil {
		loaderOpts = append(loaderOpts, source.WithS3Client(options.s3))
	}
	loader, err := source.NewLoader(loaderOpts...)
	if err != nil {
		return nil, err
	}

	s := &Seeder{
		cfg:        cfg,
		store:      options.store,
		client:     client,
		loader:     loader,
		progress:   options.progress,
		logger:     logger.With("component", "seeder"),
		baseLogger: logger,
	}
	if s.store == nil {
		if s.store, err = openStore(cfg, logger); err != nil {
			return nil, err
		}
		s.ownsStore = true
	}
	return s, nil
}

func newEmbedder(cfg *config.Config, logger *slog.Logger) (ai.Embedder, error) {
	if cfg.Embedding.Provider == config.ProviderMock {
		return mock.NewMockEmbedder(cfg.Index.Dimension), nil
	}
	return openai.NewEmbedder(cfg.AIConfig(), openai.WithLogger(logger))
}

func openStore(cfg *config.Config, logger *slog.Logger) (vectorstore.Store, error) {
	if cfg.Store.Backend == config.BackendBadger {
		opts := []badger.Option{badger.WithLogger(logger)}
		if cfg.Store.Path == "" {
			opts = append(opts, badger.WithInMemory())
		} else {
			opts = append(opts, badger.WithPath(cfg.Store.Path))
		}
		return badger.NewStore(opts...)
	}
	return pinecone.NewStore(cfg.Store.APIKey, pinecone.WithLogger(logger))
}

// Close releases the store when the seeder opened it.
func (s *Seeder) Close() error {
	if !s.ownsStore {
		return nil
	}
	if err := s.store.Close(); err != nil {
		s.logger.Error("error closing vector store", "err", err)
		return err
	}
	return nil
}

// Run loads the input, probes the embedding service, provisions the index,
// ingests every record and verifies the resulting vector count.
//
// Nothing is provisioned when the input cannot be read or the embedding
// service is unusable. The result carries the ingestion report whenever
// ingestion started, including when it stopped early with an error.
func (s *Seeder) Run(ctx context.Context) (*Result, error) {
	if err := s.cfg.ValidateInput(); err != nil {
		return nil, err
	}
	desc := s.cfg.Descriptor()
	mode, err := provision.ParseMode(s.cfg.Mode)
	if err != nil {
		return nil, err
	}
	result := &Result{Index: desc}

	input, err := s.loader.Load(ctx, s.cfg.Input.Paths...)
	if err != nil {
		return result, fmt.Errorf("%w: %w", ErrInputUnreadable, err)
	}
	result.Input = input

	if err := s.client.Probe(ctx); err != nil {
		return result, err
	}

	if _, err := s.Provision(ctx); err != nil {
		return result, err
	}

	pipeline, err := ingestion.NewPipeline(s.client, s.store,
		ingestion.WithPoolSize(s.cfg.Ingestion.Workers),
		ingestion.WithBatchSize(s.cfg.Ingestion.BatchSize),
		ingestion.WithBatchTimeout(s.cfg.Ingestion.BatchTimeout),
		ingestion.WithUpsertRetry(s.cfg.Ingestion.UpsertMaxAttempts, time.Second, maxRetryDelay),
		ingestion.WithUpsertRateLimit(s.cfg.Ingestion.UpsertRequestsPerSecond),
		ingestion.WithProgress(s.progress),
		ingestion.WithLogger(s.baseLogger),
	)
	if err != nil {
		return result, err
	}
	defer pipeline.Release()

	report, err := pipeline.Ingest(ctx, desc, input)
	result.Report = report
	if err != nil {
		return result, err
	}

	verification, err := s.verify(ctx, desc, mode, report.Succeeded)
	if err != nil {
		s.logger.Warn("could not verify index", "index", desc.Name, "err", err)
	}
	result.Verification = verification
	return result, nil
}

// Provision brings the configured index into the configured mode's state.
func (s *Seeder) Provision(ctx context.Context) (*core.IndexDescriptor, error) {
	provisioner, err := provision.NewProvisioner(s.store,
		provision.WithRetry(s.cfg.Provisioning.MaxAttempts, time.Second, maxRetryDelay),
		provision.WithReadyTimeout(s.cfg.Provisioning.ReadyTimeout),
		provision.WithPollInterval(s.cfg.Provisioning.PollInterval),
		provision.WithLogger(s.baseLogger),
	)
	if err != nil {
		return nil, err
	}
	return provisioner.Provision(ctx, s.cfg.Descriptor(), provision.Mode(s.cfg.Mode))
}

// Stats compares the configured namespace's vector count with expected.
func (s *Seeder) Stats(ctx context.Context, expected int) (*core.VerificationResult, error) {
	mode, err := provision.ParseMode(s.cfg.Mode)
	if err != nil {
		return nil, err
	}
	return s.verify(ctx, s.cfg.Descriptor(), mode, expected)
}

func (s *Seeder) verify(ctx context.Context, desc core.IndexDescriptor, mode provision.Mode, expected int) (*core.VerificationResult, error) {
	opts := []verify.Option{verify.WithLogger(s.baseLogger)}
	if mode == provision.ModeMerge {
		opts = append(opts, verify.WithAtLeast())
	}
	if s.cfg.Verify.PollTimeout > 0 {
		opts = append(opts, verify.WithPollTimeout(s.cfg.Verify.PollTimeout, s.cfg.Provisioning.PollInterval))
	}
	verifier, err := verify.NewVerifier(s.store, opts...)
	if err != nil {
		return nil, err
	}
	result, err := verifier.Verify(ctx, desc, expected)
	if errors.Is(err, vectorstore.ErrIndexNotFound) {
		return nil, fmt.Errorf("%w: %s", core.ErrIndexNotProvisioned, desc.Name)
	}
	return result, err
}
