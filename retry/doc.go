// Package retry provides exponential backoff for calls to the embedding
// service and the vector store.
//
// Errors wrapped with Permanent stop the loop immediately; a Policy may also
// carry a Retryable classifier so that only transient failures are retried.
package retry
