package core

import (
	"encoding/binary"
	"fmt"
	"slices"

	"github.com/go-crypt/x/blake2b"
)

// Fingerprint computes a deterministic 64-bit BLAKE2b digest of a record's
// identity, text and metadata. Records with identical content produce
// identical fingerprints regardless of metadata key order.
func Fingerprint(r Record) uint64 {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	writeField(h, r.ID)
	writeField(h, r.Text)

	keys := make([]string, 0, len(r.Metadata))
	for k := range r.Metadata {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		writeField(h, k)
		writeField(h, fmt.Sprintf("%T:%v", r.Metadata[k], r.Metadata[k]))
	}
	return binary.LittleEndian.Uint64(h.Sum(nil))
}

// writeField writes a length prefixed field so that ("ab","c") and ("a","bc")
// hash differently.
func writeField(h interface{ Write([]byte) (int, error) }, s string) {
	var lenBuf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(lenBuf[:], uint64(len(s)))
	h.Write(lenBuf[:n])
	h.Write([]byte(s))
}
