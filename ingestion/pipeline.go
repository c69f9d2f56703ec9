package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"golang.org/x/time/rate"

	"github.com/poiesic/vectorseed/core"
	"github.com/poiesic/vectorseed/progress"
	"github.com/poiesic/vectorseed/retry"
	"github.com/poiesic/vectorseed/source"
	"github.com/poiesic/vectorseed/vectorstore"
)

const (
	// DefaultBatchSize is the number of records embedded and upserted together.
	DefaultBatchSize = 100
	// MaxBatchSize is the largest accepted batch size.
	MaxBatchSize = 1000
	// DefaultPoolSize is the number of batches processed concurrently.
	DefaultPoolSize = 4
	// DefaultBatchTimeout bounds the work on one batch after cancellation.
	DefaultBatchTimeout = 2 * time.Minute
)

// Pipeline embeds records and upserts them into a provisioned index.
// Batches are processed concurrently by a bounded worker pool.
type Pipeline struct {
	embedder     Embedder
	store        Store
	pool         *ants.Pool
	batchSize    int
	batchTimeout time.Duration
	upsertPolicy retry.Policy
	limiter      *rate.Limiter
	progress     progress.Reporter
	logger       *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size. Default is DefaultPoolSize.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}
		pool, err := ants.NewPool(size, ants.WithLogger(antsLogger{p}))
		if err != nil {
			return err
		}
		if p.pool != nil {
			p.pool.Release()
		}
		p.pool = pool
		return nil
	}
}

// WithBatchSize sets the number of records per batch.
func WithBatchSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 || size > MaxBatchSize {
			return &core.ConfigurationError{
				Field:  "batch_size",
				Reason: fmt.Sprintf("%d is outside 1..%d", size, MaxBatchSize),
			}
		}
		p.batchSize = size
		return nil
	}
}

// WithBatchTimeout bounds how long a dispatched batch may keep running once
// the run is cancelled.
func WithBatchTimeout(d time.Duration) Option {
	return func(p *Pipeline) error {
		if d <= 0 {
			return &core.ConfigurationError{Field: "batch_timeout", Reason: "must be positive"}
		}
		p.batchTimeout = d
		return nil
	}
}

// WithUpsertRetry sets the retry budget for upserts.
func WithUpsertRetry(maxAttempts int, baseDelay, maxDelay time.Duration) Option {
	return func(p *Pipeline) error {
		if maxAttempts < 1 {
			return retry.ErrInvalidMaxAttempts
		}
		p.upsertPolicy.MaxAttempts = maxAttempts
		p.upsertPolicy.BaseDelay = baseDelay
		p.upsertPolicy.MaxDelay = maxDelay
		return nil
	}
}

// WithUpsertRateLimit paces upsert requests. Zero disables pacing.
func WithUpsertRateLimit(requestsPerSecond float64) Option {
	return func(p *Pipeline) error {
		p.limiter = retry.NewLimiter(requestsPerSecond)
		return nil
	}
}

// WithProgress sets the progress reporter. Default discards progress.
func WithProgress(reporter progress.Reporter) Option {
	return func(p *Pipeline) error {
		if reporter == nil {
			reporter = progress.Nop{}
		}
		p.progress = reporter
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(embedder Embedder, store Store, opts ...Option) (*Pipeline, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if store == nil {
		return nil, ErrStoreRequired
	}

	p := &Pipeline{
		embedder:     embedder,
		store:        store,
		batchSize:    DefaultBatchSize,
		batchTimeout: DefaultBatchTimeout,
		upsertPolicy: retry.Policy{
			MaxAttempts: 5,
			BaseDelay:   time.Second,
			MaxDelay:    30 * time.Second,
			Retryable:   vectorstore.IsTransient,
		},
		progress: progress.Nop{},
		logger:   slog.Default(),
	}

	// Apply options (may override defaults)
	for _, opt := range opts {
		if err := opt(p); err != nil {
			p.Release()
			return nil, err
		}
	}

	if p.pool == nil {
		if err := WithPoolSize(DefaultPoolSize)(p); err != nil {
			return nil, err
		}
	}
	p.logger = p.logger.With("component", "ingestion")
	return p, nil
}

// Ingest embeds and upserts every record of input into the index described
// by desc. The index must already be provisioned.
//
// Record level failures never stop the run; they are collected in the
// returned report. Ingest returns an error together with the partial report
// when the run stops early: a *core.IntegrityError when vectors do not match
// the index dimension, or the context error when ctx is cancelled. Records
// that were never dispatched are reported with core.ErrCancelled.
func (p *Pipeline) Ingest(ctx context.Context, desc core.IndexDescriptor, input *source.Input) (*core.IngestionReport, error) {
	if input == nil {
		return nil, ErrInputRequired
	}
	start := time.Now()
	logger := p.logger.With("index", desc.Name, "namespace", desc.Namespace)

	report := core.NewIngestionReport(desc)
	report.Total = input.Total()
	report.Fail(input.Rejects...)

	if err := p.checkIndex(ctx, desc); err != nil {
		return report, err
	}

	records := p.prepare(input.Records, report)
	batches := chunk(records, p.batchSize)
	report.Batches = len(batches)

	agg := &aggregator{report: report, progress: p.progress}
	p.progress.Start(report.Total)
	p.progress.Add(0, report.Failed())

	stages := []processor{
		newEmbeddingProcessor(p.embedder, logger),
		&upsertProcessor{
			store:     p.store,
			index:     desc.Name,
			namespace: desc.Namespace,
			dimension: desc.Dimension,
			policy:    p.upsertPolicy,
			limiter:   p.limiter,
			logger:    logger.With("processor", "upsert"),
		},
	}

	logger.Info("starting ingestion", "records", len(records), "batches", len(batches), "batch_size", p.batchSize)

	var wg sync.WaitGroup
	for _, b := range batches {
		if err := agg.halted(); err != nil {
			agg.skip(b, haltedBy(err))
			continue
		}
		if err := ctx.Err(); err != nil {
			agg.skip(b, core.ErrCancelled)
			continue
		}

		wg.Add(1)
		err := p.pool.Submit(func() {
			defer wg.Done()
			p.run(ctx, b, stages, agg, logger)
		})
		if err != nil {
			wg.Done()
			logger.Error("failed to dispatch batch", "batch", b.index, "err", err)
			agg.skip(b, fmt.Errorf("%w: %w", core.ErrCancelled, err))
		}
	}
	wg.Wait()

	p.progress.Finish()
	report.SortFailures()
	report.Elapsed = time.Since(start)

	for _, f := range report.Failures {
		logger.Warn("record not ingested", "id", f.ID, "position", f.Position, "kind", f.Kind(), "err", f.Err)
	}

	logger.Info("ingestion finished",
		"state", report.State(),
		"succeeded", report.Succeeded,
		"failed", report.Failed(),
		"superseded", len(report.Superseded),
		"elapsed", report.Elapsed)

	if err := agg.halted(); err != nil {
		return report, err
	}
	return report, ctx.Err()
}

// run takes one batch through every stage. A dispatched batch finishes on a
// context detached from cancellation, bounded by the batch timeout.
func (p *Pipeline) run(ctx context.Context, b *batch, stages []processor, agg *aggregator, logger *slog.Logger) {
	if err := agg.halted(); err != nil {
		agg.skip(b, haltedBy(err))
		return
	}
	if ctx.Err() != nil {
		agg.skip(b, core.ErrCancelled)
		return
	}

	bctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.batchTimeout)
	defer cancel()

	for _, stage := range stages {
		if err := stage.process(bctx, b); err != nil {
			logger.Error("halting ingestion", "batch", b.index, "err", err)
			agg.halt(err)
			b.abandon(err)
			agg.complete(b)
			return
		}
	}

	b.settle()
	logger.Debug("batch finished", "batch", b.index, "state", b.state, "succeeded", b.succeeded, "failed", len(b.failures))
	agg.complete(b)
}

// haltedBy marks a record that was not processed because the run stopped on
// a fatal error elsewhere.
func haltedBy(err error) error {
	return fmt.Errorf("%w: run halted by %v", core.ErrCancelled, err)
}

// Release releases the worker pool.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	if p.pool != nil {
		p.pool.Release()
	}
}

// antsLogger routes worker pool messages to slog.
type antsLogger struct {
	p *Pipeline
}

func (l antsLogger) Printf(format string, args ...any) {
	l.p.logger.Warn(fmt.Sprintf(format, args...), "pool", "ants")
}
