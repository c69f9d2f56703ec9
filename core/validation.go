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
	"fmt"
	"math"
	"regexp"
	"strings"
)

const (
	// MaxDimension is the largest vector dimension accepted for an index.
	MaxDimension = 20000

	// MaxIndexNameLength is the longest accepted index name.
	MaxIndexNameLength = 45
)

var indexNamePattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?$`)

// ValidateDescriptor validates an IndexDescriptor before any remote call.
//
// Validation rules:
//   - Name must be 1-45 lowercase alphanumerics or '-', not starting or ending with '-'
//   - Dimension must be between 1 and MaxDimension
//   - Metric must be a known metric
//   - Placement cloud and region must both be set or both be empty
func ValidateDescriptor(d IndexDescriptor) error {
	if d.Name == "" {
		return &ConfigurationError{Field: "index.name", Reason: "is required"}
	}
	if len(d.Name) > MaxIndexNameLength || !indexNamePattern.MatchString(d.Name) {
		return &ConfigurationError{
			Field:  "index.name",
			Reason: fmt.Sprintf("%s must be at most %d lowercase alphanumeric characters or '-'", quote(d.Name), MaxIndexNameLength),
		}
	}
	if d.Dimension < 1 || d.Dimension > MaxDimension {
		return &ConfigurationError{
			Field:  "index.dimension",
			Reason: fmt.Sprintf("%d is outside 1..%d", d.Dimension, MaxDimension),
		}
	}
	if _, err := ParseMetric(string(d.Metric)); err != nil {
		return err
	}
	if (d.Placement.Cloud == "") != (d.Placement.Region == "") {
		return &ConfigurationError{Field: "index.placement", Reason: "cloud and region must be set together"}
	}
	return nil
}

// ValidateRecord checks a record's identity and metadata.
//
// Text is NOT validated here; empty text is rejected by the embedding client
// so that it is reported without spending a remote call.
// Metadata numbers are normalized to float64 in place.
func ValidateRecord(r *Record) error {
	if strings.TrimSpace(r.ID) == "" {
		return &InvalidRecordError{Position: r.Position, Origin: r.Origin, Err: ErrEmptyID}
	}
	if err := NormalizeMetadata(r.Metadata); err != nil {
		return &InvalidRecordError{ID: r.ID, Position: r.Position, Origin: r.Origin, Err: err}
	}
	return nil
}

// NormalizeMetadata verifies every value is a flat scalar and converts
// numeric values to float64.
func NormalizeMetadata(m Metadata) error {
	for k, v := range m {
		if k == "" {
			return fmt.Errorf("%w: empty key", ErrInvalidMetadata)
		}
		switch val := v.(type) {
		case string, bool:
		case float64:
			if math.IsNaN(val) || math.IsInf(val, 0) {
				return fmt.Errorf("%w: %s is not a finite number", ErrInvalidMetadata, quote(k))
			}
		case float32:
			m[k] = float64(val)
		case int:
			m[k] = float64(val)
		case int32:
			m[k] = float64(val)
		case int64:
			m[k] = float64(val)
		case uint32:
			m[k] = float64(val)
		case nil:
			return fmt.Errorf("%w: %s is null", ErrInvalidMetadata, quote(k))
		default:
			return fmt.Errorf("%w: %s has unsupported type %T", ErrInvalidMetadata, quote(k), v)
		}
	}
	return nil
}

// IsBlank reports whether text is empty or whitespace only.
func IsBlank(text string) bool {
	return strings.TrimSpace(text) == ""
}
