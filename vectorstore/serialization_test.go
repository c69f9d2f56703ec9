package vectorstore

import (
	"testing"

	"github.com/poiesic/vectorseed/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalUnmarshalVector(t *testing.T) {
	tests := []struct {
		name   string
		record core.UpsertRecord
	}{
		{
			name:   "values only",
			record: core.UpsertRecord{ID: "A", Values: []float32{0.1, -0.2, 0.3}},
		},
		{
			name: "review metadata",
			record: core.UpsertRecord{
				ID:     "Dr. Smith",
				Values: []float32{1, 0, 0, 0.5},
				Metadata: core.Metadata{
					"review":   "great class",
					"subject":  "math",
					"stars":    5.0,
					"verified": true,
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := MarshalVector(tt.record)
			require.NoError(t, err)

			decoded, err := UnmarshalVector(tt.record.ID, data)
			require.NoError(t, err)
			assert.Equal(t, tt.record, decoded)
		})
	}
}

func TestMarshalVector_StableEncoding(t *testing.T) {
	a := core.UpsertRecord{Values: []float32{1}, Metadata: core.Metadata{"a": "x", "b": 2.0, "c": false}}
	b := core.UpsertRecord{Values: []float32{1}, Metadata: core.Metadata{"c": false, "b": 2.0, "a": "x"}}

	da, err := MarshalVector(a)
	require.NoError(t, err)
	db, err := MarshalVector(b)
	require.NoError(t, err)
	assert.Equal(t, da, db)
}

func TestMarshalVector_RejectsUnsupportedMetadata(t *testing.T) {
	_, err := MarshalVector(core.UpsertRecord{Values: []float32{1}, Metadata: core.Metadata{"n": 5}})
	assert.ErrorIs(t, err, ErrSerializationFailed)
}

func TestUnmarshalVector_Invalid(t *testing.T) {
	_, err := UnmarshalVector("A", []byte{})
	assert.ErrorIs(t, err, ErrSerializationFailed)
}

func TestMarshalUnmarshalIndexInfo(t *testing.T) {
	info := &IndexInfo{
		Name:      "rag",
		Dimension: 1536,
		Metric:    core.MetricCosine,
		Placement: core.Placement{Cloud: "aws", Region: "us-east-1"},
		Ready:     true,
	}

	decoded, err := UnmarshalIndexInfo(MarshalIndexInfo(info))
	require.NoError(t, err)
	assert.Equal(t, info, decoded)
	assert.True(t, decoded.Matches(core.IndexDescriptor{Dimension: 1536, Metric: core.MetricCosine}))
	assert.False(t, decoded.Matches(core.IndexDescriptor{Dimension: 768, Metric: core.MetricCosine}))
}
