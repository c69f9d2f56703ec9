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


package ingestion

import (
	"context"

	"github.com/poiesic/vectorseed/core"
)

// processor is one stage a batch passes through.
type processor interface {
	// process advances the batch. Record level failures are recorded on the
	// batch; the returned error is reserved for failures that must stop the
	// whole run.
	process(ctx context.Context, b *batch) error
}

// batch is a fixed slice of records owned by one worker from embedding to
// upsert.
type batch struct {
	index   int
	records []core.Record

	// vectors holds the records that embedded successfully; positions holds
	// their input positions.
	vectors   []core.UpsertRecord
	positions []int
	failures  []core.RecordFailure
	succeeded int
	state     core.BatchState
}

func (b *batch) fail(rec core.Record, err error) {
	b.failures = append(b.failures, core.RecordFailure{ID: rec.ID, Position: rec.Position, Err: err})
}

// settle picks the terminal state from the outcome.
func (b *batch) settle() {
	switch {
	case len(b.failures) == 0:
		b.state = core.BatchUpserted
	case b.succeeded > 0:
		b.state = core.BatchPartiallyFailed
	default:
		b.state = core.BatchFailed
	}
}

// abandon fails every record without an outcome yet with err. Nothing of an
// abandoned batch counts as written.
func (b *batch) abandon(err error) {
	failed := make(map[int]bool, len(b.failures))
	for _, f := range b.failures {
		failed[f.Position] = true
	}
	for _, rec := range b.records {
		if !failed[rec.Position] {
			b.fail(rec, err)
		}
	}
	b.succeeded = 0
	b.state = core.BatchFailed
}

// chunk splits records into batches of at most size records.
func chunk(records []core.Record, size int) []*batch {
	batches := make([]*batch, 0, (len(records)+size-1)/size)
	for start := 0; start < len(records); start += size {
		end := min(start+size, len(records))
		batches = append(batches, &batch{
			index:   len(batches),
			records: records[start:end],
			state:   core.BatchPending,
		})
	}
	return batches
}
