package ingestion

import (
	"context"
	"errors"
	"log/slog"
	"strconv"

	"golang.org/x/time/rate"

	"github.com/poiesic/vectorseed/core"
	"github.com/poiesic/vectorseed/retry"
	"github.com/poiesic/vectorseed/vectorstore"
)

// upsertProcessor writes a batch's vectors to one namespace of an index.
type upsertProcessor struct {
	store     Store
	index     string
	namespace string
	dimension int
	policy    retry.Policy
	limiter   *rate.Limiter
	logger    *slog.Logger
}

var _ processor = (*upsertProcessor)(nil)

func (up *upsertProcessor) process(ctx context.Context, b *batch) error {
	if len(b.vectors) == 0 {
		return nil
	}
	b.state = core.BatchUpserting

	for _, v := range b.vectors {
		if err := v.CheckDimension(up.dimension); err != nil {
			return err
		}
	}

	attempts, err := up.policy.Do(ctx, func(ctx context.Context) error {
		if err := retry.Wait(ctx, up.limiter); err != nil {
			return retry.Permanent(err)
		}
		_, err := up.store.Upsert(ctx, up.index, up.namespace, b.vectors)
		return err
	})

	switch {
	case err == nil:
		b.succeeded = len(b.vectors)
		if attempts > 1 {
			up.logger.Info("upsert succeeded after retry", "batch", b.index, "attempts", attempts)
		}
		return nil
	case errors.Is(err, vectorstore.ErrDimensionMismatch):
		return &core.IntegrityError{Detail: "vector store rejected batch " + strconv.Itoa(b.index) + ": " + err.Error()}
	}

	up.logger.Error("upsert failed", "batch", b.index, "records", len(b.vectors), "attempts", attempts, "err", err)
	upsertErr := &core.UpsertError{Batch: b.index, Attempts: attempts, Err: err}
	for i, v := range b.vectors {
		b.failures = append(b.failures, core.RecordFailure{ID: v.ID, Position: b.positions[i], Err: upsertErr})
	}
	return nil
}

// Store is the part of a vector store ingestion writes to.
type Store interface {
	DescribeIndex(ctx context.Context, name string) (*vectorstore.IndexInfo, error)
	Upsert(ctx context.Context, index, namespace string, records []core.UpsertRecord) (int, error)
}
