package provision

import (
	"strings"

	"github.com/poiesic/vectorseed/core"
)

// Mode decides what happens to an index that already exists.
type Mode string

const (
	// ModeReset deletes an existing index and recreates it empty.
	ModeReset Mode = "reset"
	// ModeMerge keeps an existing index of the same shape and its vectors.
	ModeMerge Mode = "merge"
)

// ParseMode converts a user supplied mode. There is no default: callers must
// choose whether existing data may be destroyed.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeReset:
		return ModeReset, nil
	case ModeMerge:
		return ModeMerge, nil
	case "":
		return "", &core.ConfigurationError{Field: "mode", Reason: "is required (reset or merge)"}
	}
	return "", &core.ConfigurationError{Field: "mode", Reason: "must be reset or merge, got " + s}
}
