package badger

import "bytes"

// Key prefixes for different data types
const (
	indexPrefix  = "idx:"
	vectorPrefix = "vec:"
)

// sep separates key segments. Index names cannot contain it.
const sep = 0x00

// makeIndexKey generates a key for an index descriptor.
func makeIndexKey(name string) []byte {
	return []byte(indexPrefix + name)
}

// makeIndexVectorPrefix generates the prefix shared by every vector of an index.
// Format: vec:index\x00
func makeIndexVectorPrefix(index string) []byte {
	buf := make([]byte, 0, len(vectorPrefix)+len(index)+1)
	buf = append(buf, vectorPrefix...)
	buf = append(buf, index...)
	return append(buf, sep)
}

// makeVectorKey generates a composite key for a vector.
// Format: vec:index\x00namespace\x00id
func makeVectorKey(index, namespace, id string) []byte {
	buf := makeIndexVectorPrefix(index)
	buf = append(buf, namespace...)
	buf = append(buf, sep)
	return append(buf, id...)
}

// namespaceOf extracts the namespace from a vector key with the given
// index prefix.
func namespaceOf(key, indexPrefix []byte) string {
	rest := key[len(indexPrefix):]
	if i := bytes.IndexByte(rest, sep); i >= 0 {
		return string(rest[:i])
	}
	return string(rest)
}
