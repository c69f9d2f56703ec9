package ingestion

import "errors"

var (
	// ErrEmbedderRequired is returned when an embedding client is not provided.
	ErrEmbedderRequired = errors.New("embedding client required")

	// ErrStoreRequired is returned when a vector store is not provided.
	ErrStoreRequired = errors.New("vector store required")

	// ErrInputRequired is returned when Ingest is called without input.
	ErrInputRequired = errors.New("input required")
)
