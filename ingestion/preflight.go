package ingestion

import (
	"context"
	"errors"
	"fmt"

	"github.com/poiesic/vectorseed/core"
	"github.com/poiesic/vectorseed/vectorstore"
)

// checkIndex confirms the index exists and has the descriptor's dimension.
func (p *Pipeline) checkIndex(ctx context.Context, desc core.IndexDescriptor) error {
	if dim := p.embedder.Dimension(); dim != desc.Dimension {
		return &core.IntegrityError{Expected: desc.Dimension, Actual: dim, Detail: "embedding client dimension"}
	}
	info, err := p.store.DescribeIndex(ctx, desc.Name)
	if errors.Is(err, vectorstore.ErrIndexNotFound) {
		return fmt.Errorf("%w: %s", core.ErrIndexNotProvisioned, desc.Name)
	}
	if err != nil {
		return fmt.Errorf("describe index %s: %w", desc.Name, err)
	}
	if info.Dimension != desc.Dimension {
		return &core.IntegrityError{Expected: desc.Dimension, Actual: info.Dimension, Detail: "index " + desc.Name}
	}
	return nil
}

// prepare validates records and resolves duplicate identities. The last
// occurrence of an identity wins; earlier ones are listed as superseded.
func (p *Pipeline) prepare(records []core.Record, report *core.IngestionReport) []core.Record {
	valid := make([]core.Record, 0, len(records))
	for _, rec := range records {
		if err := core.ValidateRecord(&rec); err != nil {
			report.Fail(core.RecordFailure{ID: rec.ID, Position: rec.Position, Err: err})
			continue
		}
		valid = append(valid, rec)
	}

	last := make(map[string]int, len(valid))
	for i, rec := range valid {
		last[rec.ID] = i
	}
	if len(last) == len(valid) {
		return valid
	}

	kept := make([]core.Record, 0, len(last))
	for i, rec := range valid {
		winner := valid[last[rec.ID]]
		if last[rec.ID] == i {
			kept = append(kept, rec)
			continue
		}
		dup := core.DuplicateIdentity{
			ID:                 rec.ID,
			SupersededPosition: rec.Position,
			WinnerPosition:     winner.Position,
			Identical:          core.Fingerprint(rec) == core.Fingerprint(winner),
		}
		report.Superseded = append(report.Superseded, dup)
		p.logger.Warn("duplicate identity, later record wins",
			"id", rec.ID, "superseded", rec.Position, "winner", winner.Position, "identical", dup.Identical)
	}
	return kept
}
