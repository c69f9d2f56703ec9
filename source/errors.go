package source

import "errors"

var (
	// ErrNoInput indicates that no location matched any readable file.
	ErrNoInput = errors.New("no input files found")

	// ErrMalformedInput indicates input that is not valid JSON or JSON Lines.
	ErrMalformedInput = errors.New("malformed input")

	// ErrUnsupportedFormat indicates a file whose extension is not a known
	// record format.
	ErrUnsupportedFormat = errors.New("unsupported input format")

	// ErrNotObject indicates a record that is not a JSON object.
	ErrNotObject = errors.New("record is not a JSON object")

	// ErrFieldType indicates a mapped field with the wrong JSON type.
	ErrFieldType = errors.New("field has the wrong type")
)
