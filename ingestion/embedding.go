package ingestion

import (
	"context"
	"errors"
	"log/slog"

	"github.com/poiesic/vectorseed/core"
	"github.com/poiesic/vectorseed/embedding"
)

// embeddingProcessor turns a batch's texts into vectors.
type embeddingProcessor struct {
	embedder Embedder
	logger   *slog.Logger
}

var _ processor = (*embeddingProcessor)(nil)

func newEmbeddingProcessor(embedder Embedder, logger *slog.Logger) *embeddingProcessor {
	return &embeddingProcessor{
		embedder: embedder,
		logger:   logger.With("processor", "embeddings"),
	}
}

func (ep *embeddingProcessor) process(ctx context.Context, b *batch) error {
	b.state = core.BatchEmbedding

	texts := make([]string, len(b.records))
	for i, rec := range b.records {
		texts[i] = rec.Text
	}

	ep.logger.Debug("embedding batch", "batch", b.index, "records", len(texts))
	results, err := ep.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return err
	}

	b.vectors = make([]core.UpsertRecord, 0, len(results))
	b.positions = make([]int, 0, len(results))
	for i, res := range results {
		rec := b.records[i]
		if res.Err != nil {
			b.fail(rec, attribute(rec, res.Err))
			continue
		}
		b.vectors = append(b.vectors, core.UpsertRecord{
			ID:       rec.ID,
			Values:   res.Vector.Values,
			Metadata: rec.Metadata,
		})
		b.positions = append(b.positions, rec.Position)
	}

	b.state = core.BatchEmbedded
	return nil
}

// attribute points an invalid record error at the record rather than at its
// position in the batch.
func attribute(rec core.Record, err error) error {
	var invalid *core.InvalidRecordError
	if errors.As(err, &invalid) {
		return &core.InvalidRecordError{ID: rec.ID, Position: rec.Position, Origin: rec.Origin, Err: invalid.Err}
	}
	return err
}

// Embedder produces vectors for batches of text.
type Embedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([]embedding.Result, error)
	Dimension() int
}

var _ Embedder = (*embedding.Client)(nil)
