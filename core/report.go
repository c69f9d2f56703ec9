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


package core

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
)

// BatchState tracks a batch of records through the ingestion state machine.
//
//	Pending -> Embedding -> Embedded -> Upserting -> Upserted | PartiallyFailed | Failed
type BatchState int

const (
	BatchPending BatchState = iota
	BatchEmbedding
	BatchEmbedded
	BatchUpserting
	BatchUpserted
	BatchPartiallyFailed
	BatchFailed
)

func (s BatchState) String() string {
	switch s {
	case BatchPending:
		return "pending"
	case BatchEmbedding:
		return "embedding"
	case BatchEmbedded:
		return "embedded"
	case BatchUpserting:
		return "upserting"
	case BatchUpserted:
		return "upserted"
	case BatchPartiallyFailed:
		return "partially_failed"
	case BatchFailed:
		return "failed"
	}
	return fmt.Sprintf("BatchState(%d)", int(s))
}

// Terminal reports whether no further transitions are possible.
func (s BatchState) Terminal() bool {
	return s == BatchUpserted || s == BatchPartiallyFailed || s == BatchFailed
}

// RunState is the terminal state of an ingestion run.
type RunState string

const (
	RunSucceeded       RunState = "succeeded"
	RunPartiallyFailed RunState = "partially_failed"
)

// FailureKind classifies a record failure.
type FailureKind string

const (
	FailureInvalidRecord FailureKind = "InvalidRecordError"
	FailureEmbedding     FailureKind = "EmbeddingError"
	FailureUpsert        FailureKind = "UpsertError"
	FailureIntegrity     FailureKind = "IntegrityError"
	FailureCancelled     FailureKind = "Cancelled"
	FailureUnknown       FailureKind = "Unknown"
)

// RecordFailure names a record that was not ingested and why.
type RecordFailure struct {
	ID       string
	Position int
	Err      error
}

// Kind classifies the failure by its error type.
func (f RecordFailure) Kind() FailureKind {
	var invalid *InvalidRecordError
	var embed *EmbeddingError
	var upsert *UpsertError
	var integrity *IntegrityError
	switch {
	case errors.As(f.Err, &invalid):
		return FailureInvalidRecord
	case errors.As(f.Err, &embed):
		return FailureEmbedding
	case errors.As(f.Err, &upsert):
		return FailureUpsert
	case errors.As(f.Err, &integrity):
		return FailureIntegrity
	case errors.Is(f.Err, ErrCancelled):
		return FailureCancelled
	}
	return FailureUnknown
}

func (f RecordFailure) String() string {
	return fmt.Sprintf("%s: %s: %v", quote(f.ID), f.Kind(), f.Err)
}

// DuplicateIdentity records an input record that was superseded by a later
// record with the same identity (last write wins).
type DuplicateIdentity struct {
	ID                 string
	SupersededPosition int
	WinnerPosition     int
	// Identical is true when both records have the same fingerprint.
	Identical bool
}

// IngestionReport is the outcome of an ingestion run.
type IngestionReport struct {
	Index     string
	Namespace string

	// Total is the number of input records, including load-time rejects.
	Total     int
	Succeeded int
	Failures  []RecordFailure

	Superseded  []DuplicateIdentity
	Batches     int
	BatchStates map[BatchState]int
	Elapsed     time.Duration
}

// NewIngestionReport creates an empty report for the given index.
func NewIngestionReport(index IndexDescriptor) *IngestionReport {
	return &IngestionReport{
		Index:       index.Name,
		Namespace:   index.Namespace,
		BatchStates: make(map[BatchState]int),
	}
}

// OK reports whether every valid input record was ingested.
func (r *IngestionReport) OK() bool {
	return len(r.Failures) == 0
}

// State returns the terminal state of the run.
func (r *IngestionReport) State() RunState {
	if r.OK() {
		return RunSucceeded
	}
	return RunPartiallyFailed
}

// Failed returns the number of failed records.
func (r *IngestionReport) Failed() int {
	return len(r.Failures)
}

// Fail appends failures to the report.
func (r *IngestionReport) Fail(failures ...RecordFailure) {
	r.Failures = append(r.Failures, failures...)
}

// FailuresByKind counts failures per kind.
func (r *IngestionReport) FailuresByKind() map[FailureKind]int {
	counts := make(map[FailureKind]int)
	for _, f := range r.Failures {
		counts[f.Kind()]++
	}
	return counts
}

// SortFailures orders failures by input position so reports are stable.
func (r *IngestionReport) SortFailures() {
	slices.SortStableFunc(r.Failures, func(a, b RecordFailure) int {
		return a.Position - b.Position
	})
}

// Summary renders counts and up to sample failure reasons.
func (r *IngestionReport) Summary(sample int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "index %s namespace %s: %s\n", quote(r.Index), quote(r.Namespace), r.State())
	fmt.Fprintf(&sb, "  total: %d, succeeded: %d, failed: %d, superseded: %d, batches: %d, elapsed: %v\n",
		r.Total, r.Succeeded, r.Failed(), len(r.Superseded), r.Batches, r.Elapsed.Round(time.Millisecond))

	if len(r.Failures) == 0 {
		return sb.String()
	}

	kinds := r.FailuresByKind()
	names := make([]string, 0, len(kinds))
	for k := range kinds {
		names = append(names, string(k))
	}
	slices.Sort(names)
	for _, name := range names {
		fmt.Fprintf(&sb, "  %s: %d\n", name, kinds[FailureKind(name)])
	}

	if sample <= 0 || sample > len(r.Failures) {
		sample = len(r.Failures)
	}
	for _, f := range r.Failures[:sample] {
		fmt.Fprintf(&sb, "  - %s\n", f)
	}
	if rest := len(r.Failures) - sample; rest > 0 {
		fmt.Fprintf(&sb, "  ... and %d more\n", rest)
	}
	return sb.String()
}
