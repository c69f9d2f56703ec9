package source

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// maxLineSize bounds a single JSON Lines record.
const maxLineSize = 16 << 20

type format int

const (
	formatJSON format = iota
	formatJSONL
)

type compression int

const (
	compressionNone compression = iota
	compressionGzip
	compressionZstd
)

// detect derives the record format and compression from a file name,
// e.g. "reviews.jsonl.zst".
func detect(name string) (format, compression, error) {
	base := strings.ToLower(path.Base(name))

	comp := compressionNone
	switch {
	case strings.HasSuffix(base, ".gz"):
		comp = compressionGzip
		base = strings.TrimSuffix(base, ".gz")
	case strings.HasSuffix(base, ".zst"):
		comp = compressionZstd
		base = strings.TrimSuffix(base, ".zst")
	}

	switch path.Ext(base) {
	case ".json":
		return formatJSON, comp, nil
	case ".jsonl", ".ndjson":
		return formatJSONL, comp, nil
	}
	return 0, 0, fmt.Errorf("%w: %s", ErrUnsupportedFormat, name)
}

// supported reports whether name has a known record format.
func supported(name string) bool {
	_, _, err := detect(name)
	return err == nil
}

func decompress(r io.Reader, comp compression) (io.ReadCloser, error) {
	switch comp {
	case compressionGzip:
		return gzip.NewReader(r)
	case compressionZstd:
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, err
		}
		return dec.IOReadCloser(), nil
	}
	return io.NopCloser(r), nil
}

// item is one decoded record value and where it came from.
type item struct {
	value  any
	origin string
}

// decodeFile reads every record value from r.
func decodeFile(r io.Reader, name, recordsKey string) ([]item, error) {
	f, comp, err := detect(name)
	if err != nil {
		return nil, err
	}
	rc, err := decompress(r, comp)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMalformedInput, name, err)
	}
	defer rc.Close()

	if f == formatJSONL {
		return decodeLines(rc, name)
	}
	return decodeDocument(rc, name, recordsKey)
}

func decodeDocument(r io.Reader, name, recordsKey string) ([]item, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMalformedInput, name, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %s: trailing data after JSON document", ErrMalformedInput, name)
	}

	values, err := recordArray(doc, recordsKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMalformedInput, name, err)
	}

	items := make([]item, len(values))
	for i, v := range values {
		items[i] = item{value: v, origin: fmt.Sprintf("%s#%d", name, i)}
	}
	return items, nil
}

// recordArray finds the record array in a decoded document: the document
// itself, the field named by recordsKey, or the only array field of an
// object.
func recordArray(doc any, recordsKey string) ([]any, error) {
	switch v := doc.(type) {
	case []any:
		if recordsKey != "" {
			return nil, fmt.Errorf("records key %q given but document is an array", recordsKey)
		}
		return v, nil

	case map[string]any:
		if recordsKey != "" {
			arr, ok := v[recordsKey].([]any)
			if !ok {
				return nil, fmt.Errorf("field %q is not an array", recordsKey)
			}
			return arr, nil
		}
		var found []any
		count := 0
		for _, field := range v {
			if arr, ok := field.([]any); ok {
				found = arr
				count++
			}
		}
		if count != 1 {
			return nil, errors.New("document is an object without a single record array; set the records key")
		}
		return found, nil
	}
	return nil, fmt.Errorf("document is %s, want an array or object", jsonKind(doc))
}

func decodeLines(r io.Reader, name string) ([]item, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	var items []item
	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}

		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.UseNumber()
		var v any
		if err := dec.Decode(&v); err != nil {
			return nil, fmt.Errorf("%w: %s:%d: %w", ErrMalformedInput, name, line, err)
		}
		if dec.More() {
			return nil, fmt.Errorf("%w: %s:%d: more than one value on a line", ErrMalformedInput, name, line)
		}
		items = append(items, item{value: v, origin: fmt.Sprintf("%s:%d", name, line)})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrMalformedInput, name, err)
	}
	return items, nil
}
