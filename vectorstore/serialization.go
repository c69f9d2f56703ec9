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


package vectorstore

import (
	"fmt"
	"slices"

	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/raw"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/vectorseed/core"
)

// Metadata value tags.
const (
	tagString = iota
	tagBool
	tagNumber
)

// MarshalIndexInfo serializes an IndexInfo to bytes.
func MarshalIndexInfo(info *IndexInfo) []byte {
	size := ord.String.Size(info.Name) +
		varint.Int.Size(info.Dimension) +
		ord.String.Size(string(info.Metric)) +
		ord.String.Size(info.Placement.Cloud) +
		ord.String.Size(info.Placement.Region)
	buf := make([]byte, size)
	n := ord.String.Marshal(info.Name, buf)
	n += varint.Int.Marshal(info.Dimension, buf[n:])
	n += ord.String.Marshal(string(info.Metric), buf[n:])
	n += ord.String.Marshal(info.Placement.Cloud, buf[n:])
	ord.String.Marshal(info.Placement.Region, buf[n:])
	return buf
}

// UnmarshalIndexInfo deserializes an IndexInfo from bytes. The result is
// always Ready.
func UnmarshalIndexInfo(data []byte) (*IndexInfo, error) {
	info := &IndexInfo{Ready: true}
	var (
		metric string
		n, m   int
		err    error
	)
	if info.Name, m, err = ord.String.Unmarshal(data); err != nil {
		return nil, serializationError("index name", err)
	}
	n += m
	if info.Dimension, m, err = varint.Int.Unmarshal(data[n:]); err != nil {
		return nil, serializationError("index dimension", err)
	}
	n += m
	if metric, m, err = ord.String.Unmarshal(data[n:]); err != nil {
		return nil, serializationError("index metric", err)
	}
	n += m
	info.Metric = core.Metric(metric)
	if info.Placement.Cloud, m, err = ord.String.Unmarshal(data[n:]); err != nil {
		return nil, serializationError("index cloud", err)
	}
	n += m
	if info.Placement.Region, _, err = ord.String.Unmarshal(data[n:]); err != nil {
		return nil, serializationError("index region", err)
	}
	return info, nil
}

// MarshalVector serializes the values and metadata of an UpsertRecord. The
// ID is part of the storage key and is not encoded. Metadata keys are
// written in sorted order so equal records encode to equal bytes.
func MarshalVector(rec core.UpsertRecord) ([]byte, error) {
	keys := make([]string, 0, len(rec.Metadata))
	for k := range rec.Metadata {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	size := varint.Int.Size(len(rec.Values)) + len(rec.Values)*raw.Float32.Size(0) + varint.Int.Size(len(keys))
	for _, k := range keys {
		vs, err := valueSize(rec.Metadata[k])
		if err != nil {
			return nil, fmt.Errorf("%w: metadata %q: %w", ErrSerializationFailed, k, err)
		}
		size += ord.String.Size(k) + vs
	}

	buf := make([]byte, size)
	n := varint.Int.Marshal(len(rec.Values), buf)
	for _, v := range rec.Values {
		n += raw.Float32.Marshal(v, buf[n:])
	}
	n += varint.Int.Marshal(len(keys), buf[n:])
	for _, k := range keys {
		n += ord.String.Marshal(k, buf[n:])
		n += marshalValue(rec.Metadata[k], buf[n:])
	}
	return buf, nil
}

// UnmarshalVector deserializes bytes written by MarshalVector into a record
// with the given ID.
func UnmarshalVector(id string, data []byte) (core.UpsertRecord, error) {
	rec := core.UpsertRecord{ID: id}

	count, n, err := varint.Int.Unmarshal(data)
	if err != nil {
		return rec, serializationError("vector length", err)
	}
	if count < 0 || count > core.MaxDimension {
		return rec, serializationError("vector length", fmt.Errorf("invalid length %d", count))
	}
	rec.Values = make([]float32, count)
	for i := range rec.Values {
		v, m, err := raw.Float32.Unmarshal(data[n:])
		if err != nil {
			return rec, serializationError("vector value", err)
		}
		rec.Values[i] = v
		n += m
	}

	pairs, m, err := varint.Int.Unmarshal(data[n:])
	if err != nil {
		return rec, serializationError("metadata length", err)
	}
	n += m
	if pairs == 0 {
		return rec, nil
	}
	rec.Metadata = make(core.Metadata, pairs)
	for range pairs {
		key, m, err := ord.String.Unmarshal(data[n:])
		if err != nil {
			return rec, serializationError("metadata key", err)
		}
		n += m
		value, m, err := unmarshalValue(data[n:])
		if err != nil {
			return rec, serializationError("metadata "+key, err)
		}
		n += m
		rec.Metadata[key] = value
	}
	return rec, nil
}

func valueSize(v any) (int, error) {
	tag := varint.Int.Size(tagString)
	switch x := v.(type) {
	case string:
		return tag + ord.String.Size(x), nil
	case bool:
		return tag + ord.Bool.Size(x), nil
	case float64:
		return tag + raw.Float64.Size(x), nil
	}
	return 0, fmt.Errorf("unsupported value type %T", v)
}

func marshalValue(v any, bs []byte) int {
	switch x := v.(type) {
	case string:
		n := varint.Int.Marshal(tagString, bs)
		return n + ord.String.Marshal(x, bs[n:])
	case bool:
		n := varint.Int.Marshal(tagBool, bs)
		return n + ord.Bool.Marshal(x, bs[n:])
	case float64:
		n := varint.Int.Marshal(tagNumber, bs)
		return n + raw.Float64.Marshal(x, bs[n:])
	}
	return 0
}

func unmarshalValue(bs []byte) (any, int, error) {
	tag, n, err := varint.Int.Unmarshal(bs)
	if err != nil {
		return nil, n, err
	}
	switch tag {
	case tagString:
		v, m, err := ord.String.Unmarshal(bs[n:])
		return v, n + m, err
	case tagBool:
		v, m, err := ord.Bool.Unmarshal(bs[n:])
		return v, n + m, err
	case tagNumber:
		v, m, err := raw.Float64.Unmarshal(bs[n:])
		return v, n + m, err
	}
	return nil, n, fmt.Errorf("unknown value tag %d", tag)
}

func serializationError(what string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrSerializationFailed, what, err)
}
