package vectorstore

import (
	"context"
	"errors"
)

var (
	// ErrIndexNotFound indicates the named index does not exist.
	ErrIndexNotFound = errors.New("index not found")

	// ErrConflict indicates the store refused the operation because of the
	// state of an existing resource: the name is taken, or deletion is
	// protected.
	ErrConflict = errors.New("index conflict")

	// ErrUnavailable indicates a transient failure: network errors,
	// throttling or server side errors. Callers may retry.
	ErrUnavailable = errors.New("vector store unavailable")

	// ErrInvalidRequest indicates the store rejected the request itself.
	ErrInvalidRequest = errors.New("invalid vector store request")

	// ErrDimensionMismatch indicates a vector whose length differs from the
	// index dimension.
	ErrDimensionMismatch = errors.New("vector dimension does not match index")

	// ErrUnauthorized indicates missing or invalid credentials.
	ErrUnauthorized = errors.New("vector store credentials rejected")

	// ErrStoreClosed indicates that the store is closed.
	ErrStoreClosed = errors.New("vector store is closed")

	// ErrSerializationFailed indicates a serialization/deserialization failure.
	ErrSerializationFailed = errors.New("serialization failed")
)

// IsTransient reports whether err is worth retrying.
func IsTransient(err error) bool {
	return errors.Is(err, ErrUnavailable) || errors.Is(err, context.DeadlineExceeded)
}
