package vectorseed

import "errors"

// ErrInputUnreadable indicates that the input records could not be read.
var ErrInputUnreadable = errors.New("input could not be read")
