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
	"strconv"
)

// Record level validation errors
var (
	// ErrEmptyID indicates a record has no identity.
	ErrEmptyID = errors.New("identity cannot be empty")

	// ErrEmptyText indicates a record's text is empty or whitespace only.
	ErrEmptyText = errors.New("text cannot be empty")

	// ErrInvalidMetadata indicates a metadata value is not a flat scalar.
	ErrInvalidMetadata = errors.New("invalid metadata")

	// ErrMissingField indicates a required input field is absent.
	ErrMissingField = errors.New("missing required field")
)

// Run level errors
var (
	// ErrCancelled marks records that were never dispatched because the run
	// was cancelled or halted.
	ErrCancelled = errors.New("ingestion cancelled before the record was processed")

	// ErrEmbeddingUnavailable indicates the embedding service could not be
	// reached at all.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrIndexNotProvisioned indicates ingestion was attempted against an
	// index that does not exist.
	ErrIndexNotProvisioned = errors.New("index is not provisioned")
)

// ConfigurationError is a fatal pre-flight error: missing credentials or an
// invalid index shape. It is raised before any remote call.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return "configuration error: " + e.Reason
	}
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Reason)
}

// IndexProvisioningError reports a failure to bring an index into a known
// state. Permanent errors must not be retried.
type IndexProvisioningError struct {
	Index     string
	Op        string
	Permanent bool
	Err       error
}

func (e *IndexProvisioningError) Error() string {
	kind := "transient"
	if e.Permanent {
		kind = "permanent"
	}
	return fmt.Sprintf("provisioning index %s failed during %s (%s): %v", quote(e.Index), e.Op, kind, e.Err)
}

func (e *IndexProvisioningError) Unwrap() error {
	return e.Err
}

// InvalidRecordError reports malformed input. The record is excluded and the
// run continues.
type InvalidRecordError struct {
	ID       string
	Position int
	Origin   string
	Err      error
}

func (e *InvalidRecordError) Error() string {
	ref := e.Origin
	if ref == "" {
		ref = "#" + itoa(e.Position)
	}
	if e.ID != "" {
		ref += " (" + quote(e.ID) + ")"
	}
	return fmt.Sprintf("invalid record %s: %v", ref, e.Err)
}

func (e *InvalidRecordError) Unwrap() error {
	return e.Err
}

// EmbeddingError reports that a text could not be embedded after retries.
type EmbeddingError struct {
	Retryable bool
	Attempts  int
	Err       error
}

func (e *EmbeddingError) Error() string {
	if e.Attempts > 1 {
		return fmt.Sprintf("embedding failed after %d attempts: %v", e.Attempts, e.Err)
	}
	return fmt.Sprintf("embedding failed: %v", e.Err)
}

func (e *EmbeddingError) Unwrap() error {
	return e.Err
}

// UpsertError reports that a batch could not be written to the store after
// retries. Every record of the batch carries it.
type UpsertError struct {
	Batch    int
	Attempts int
	Err      error
}

func (e *UpsertError) Error() string {
	return fmt.Sprintf("upsert of batch %d failed after %d attempts: %v", e.Batch, e.Attempts, e.Err)
}

func (e *UpsertError) Unwrap() error {
	return e.Err
}

// IntegrityError reports a vector whose length does not match the configured
// dimension. It signals configuration drift and halts the run.
type IntegrityError struct {
	ID       string
	Expected int
	Actual   int
	Detail   string
}

func (e *IntegrityError) Error() string {
	if e.Expected == 0 && e.Actual == 0 {
		return "integrity error: " + e.Detail
	}
	msg := fmt.Sprintf("integrity error: expected dimension %d, got %d", e.Expected, e.Actual)
	if e.ID != "" {
		msg += " for " + quote(e.ID)
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// IsFatal reports whether err must abort the whole run.
func IsFatal(err error) bool {
	var cfgErr *ConfigurationError
	var provErr *IndexProvisioningError
	var intErr *IntegrityError
	return errors.As(err, &cfgErr) ||
		errors.As(err, &provErr) ||
		errors.As(err, &intErr) ||
		errors.Is(err, ErrEmbeddingUnavailable) ||
		errors.Is(err, ErrIndexNotProvisioned)
}

func quote(s string) string {
	return strconv.Quote(s)
}

func itoa(i int) string {
	return strconv.Itoa(i)
}
