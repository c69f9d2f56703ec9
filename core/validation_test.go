package core

import (
	"errors"
	"math"
	"strings"
	"testing"
)

func TestValidateDescriptor(t *testing.T) {
	valid := IndexDescriptor{
		Name:      "rag",
		Dimension: 1536,
		Metric:    MetricCosine,
		Namespace: "ns1",
		Placement: Placement{Cloud: "aws", Region: "us-east-1"},
	}

	tests := []struct {
		name      string
		mutate    func(d *IndexDescriptor)
		wantField string
	}{
		{name: "valid descriptor", mutate: func(d *IndexDescriptor) {}},
		{name: "no placement", mutate: func(d *IndexDescriptor) { d.Placement = Placement{} }},
		{name: "empty name", mutate: func(d *IndexDescriptor) { d.Name = "" }, wantField: "index.name"},
		{name: "uppercase name", mutate: func(d *IndexDescriptor) { d.Name = "RAG" }, wantField: "index.name"},
		{name: "trailing dash", mutate: func(d *IndexDescriptor) { d.Name = "rag-" }, wantField: "index.name"},
		{name: "name too long", mutate: func(d *IndexDescriptor) { d.Name = strings.Repeat("a", 46) }, wantField: "index.name"},
		{name: "zero dimension", mutate: func(d *IndexDescriptor) { d.Dimension = 0 }, wantField: "index.dimension"},
		{name: "huge dimension", mutate: func(d *IndexDescriptor) { d.Dimension = MaxDimension + 1 }, wantField: "index.dimension"},
		{name: "unknown metric", mutate: func(d *IndexDescriptor) { d.Metric = "hamming" }, wantField: "metric"},
		{name: "region without cloud", mutate: func(d *IndexDescriptor) { d.Placement.Cloud = "" }, wantField: "index.placement"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := valid
			tt.mutate(&d)
			err := ValidateDescriptor(d)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("ValidateDescriptor() unexpected error: %v", err)
				}
				return
			}
			var cfgErr *ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("ValidateDescriptor() error = %v, want *ConfigurationError", err)
			}
			if cfgErr.Field != tt.wantField {
				t.Errorf("ValidateDescriptor() field = %q, want %q", cfgErr.Field, tt.wantField)
			}
		})
	}
}

func TestValidateRecord(t *testing.T) {
	tests := []struct {
		name    string
		record  Record
		wantErr error
	}{
		{
			name:   "valid record",
			record: Record{ID: "A", Text: "great class", Metadata: Metadata{"subject": "math", "stars": 5.0, "verified": true}},
		},
		{
			name:   "empty text is left to the embedding client",
			record: Record{ID: "C", Text: ""},
		},
		{
			name:    "empty identity",
			record:  Record{ID: "", Text: "text", Position: 4},
			wantErr: ErrEmptyID,
		},
		{
			name:    "whitespace identity",
			record:  Record{ID: "  ", Text: "text"},
			wantErr: ErrEmptyID,
		},
		{
			name:    "nested metadata",
			record:  Record{ID: "A", Text: "t", Metadata: Metadata{"nested": map[string]any{"a": 1}}},
			wantErr: ErrInvalidMetadata,
		},
		{
			name:    "null metadata",
			record:  Record{ID: "A", Text: "t", Metadata: Metadata{"stars": nil}},
			wantErr: ErrInvalidMetadata,
		},
		{
			name:    "NaN metadata",
			record:  Record{ID: "A", Text: "t", Metadata: Metadata{"stars": math.NaN()}},
			wantErr: ErrInvalidMetadata,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateRecord(&tt.record)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("ValidateRecord() unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateRecord() error = %v, want %v", err, tt.wantErr)
			}
			var invalid *InvalidRecordError
			if !errors.As(err, &invalid) {
				t.Errorf("ValidateRecord() error = %T, want *InvalidRecordError", err)
			}
		})
	}
}

func TestNormalizeMetadata_ConvertsNumbers(t *testing.T) {
	m := Metadata{"i": 5, "i64": int64(7), "f32": float32(1.5), "s": "x"}
	if err := NormalizeMetadata(m); err != nil {
		t.Fatalf("NormalizeMetadata() unexpected error: %v", err)
	}
	if m["i"] != 5.0 || m["i64"] != 7.0 || m["f32"] != 1.5 || m["s"] != "x" {
		t.Errorf("NormalizeMetadata() = %v", m)
	}
}

func TestIsFatal(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{&ConfigurationError{Reason: "x"}, true},
		{&IndexProvisioningError{Index: "rag", Err: errors.New("x")}, true},
		{&IntegrityError{Expected: 1, Actual: 2}, true},
		{ErrEmbeddingUnavailable, true},
		{&InvalidRecordError{Err: ErrEmptyText}, false},
		{&UpsertError{Err: errors.New("x")}, false},
		{&EmbeddingError{Err: errors.New("x")}, false},
	}
	for _, tt := range tests {
		if got := IsFatal(tt.err); got != tt.want {
			t.Errorf("IsFatal(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
