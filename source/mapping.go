package source

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/poiesic/vectorseed/core"
)

// Mapping names the JSON fields a record is built from.
type Mapping struct {
	// IDField holds the record identity. Defaults to "id".
	IDField string
	// TextField holds the text to embed. Defaults to "text".
	TextField string
	// MetadataFields lists the fields copied into metadata. Empty means
	// every field except IDField.
	MetadataFields []string
	// RecordsKey names the array holding the records when a JSON document
	// is an object rather than an array.
	RecordsKey string
}

// DefaultMapping returns the id/text mapping.
func DefaultMapping() Mapping {
	return Mapping{IDField: "id", TextField: "text"}
}

func (m Mapping) withDefaults() Mapping {
	if m.IDField == "" {
		m.IDField = "id"
	}
	if m.TextField == "" {
		m.TextField = "text"
	}
	return m
}

// Validate checks the mapping for configuration mistakes.
func (m Mapping) Validate() error {
	m = m.withDefaults()
	if m.IDField == m.TextField {
		return &core.ConfigurationError{Field: "input.text_field", Reason: "must differ from input.id_field"}
	}
	if slices.Contains(m.MetadataFields, "") {
		return &core.ConfigurationError{Field: "input.metadata_fields", Reason: "field names cannot be empty"}
	}
	return nil
}

// toRecord maps one decoded JSON value onto a record.
func (m Mapping) toRecord(item any, position int, origin string) (core.Record, error) {
	reject := func(id string, err error) (core.Record, error) {
		return core.Record{}, &core.InvalidRecordError{ID: id, Position: position, Origin: origin, Err: err}
	}

	obj, ok := item.(map[string]any)
	if !ok {
		return reject("", fmt.Errorf("%w: got %s", ErrNotObject, jsonKind(item)))
	}

	id, err := stringField(obj, m.IDField)
	if err != nil {
		return reject("", err)
	}
	text, err := stringField(obj, m.TextField)
	if err != nil {
		return reject(id, err)
	}

	fields := m.MetadataFields
	if len(fields) == 0 {
		fields = make([]string, 0, len(obj))
		for k := range obj {
			if k != m.IDField {
				fields = append(fields, k)
			}
		}
	}

	metadata := make(core.Metadata, len(fields))
	for _, field := range fields {
		raw, ok := obj[field]
		if !ok {
			continue
		}
		value, err := scalar(raw)
		if err != nil {
			return reject(id, fmt.Errorf("%w: %s: %w", core.ErrInvalidMetadata, field, err))
		}
		metadata[field] = value
	}

	return core.Record{
		ID:       id,
		Text:     text,
		Metadata: metadata,
		Position: position,
		Origin:   origin,
	}, nil
}

func stringField(obj map[string]any, field string) (string, error) {
	raw, ok := obj[field]
	if !ok {
		return "", fmt.Errorf("%w: %q", core.ErrMissingField, field)
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%w: %q is %s, want string", ErrFieldType, field, jsonKind(raw))
	}
	return s, nil
}

// scalar converts a decoded JSON value into a metadata value.
func scalar(v any) (any, error) {
	switch val := v.(type) {
	case string, bool:
		return val, nil
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return nil, fmt.Errorf("number %s out of range", val)
		}
		return f, nil
	case float64:
		return val, nil
	}
	return nil, fmt.Errorf("unsupported %s value", jsonKind(v))
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "a string"
	case bool:
		return "a boolean"
	case json.Number, float64:
		return "a number"
	case []any:
		return "an array"
	case map[string]any:
		return "an object"
	}
	return fmt.Sprintf("%T", v)
}
