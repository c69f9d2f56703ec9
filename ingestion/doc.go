// Package ingestion embeds records and upserts them into a vector index.
//
// The Pipeline splits records into fixed size batches and hands each batch
// to a worker pool. A worker owns its batch from embedding to upsert:
//   - Records whose text cannot be embedded are excluded and reported
//   - Every vector is checked against the index dimension before upsert
//   - Upserts are retried with backoff; a batch that still fails is reported
//
// Outcomes are collected into a core.IngestionReport as batches complete.
// Record level failures never stop ingestion. A dimension mismatch stops
// the dispatch of new batches, and so does cancellation of the context.
package ingestion
