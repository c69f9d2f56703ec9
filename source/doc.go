// Package source reads input records for ingestion.
//
// Records come from JSON documents or JSON Lines files, optionally gzip or
// zstd compressed, found on the local filesystem (paths, directories or
// doublestar globs) or in S3 (s3://bucket/key or s3://bucket/prefix/).
// A Mapping names which JSON fields hold the identity, the text and the
// metadata of each record.
//
// Records that cannot be mapped are returned as rejects alongside the good
// records so that they are counted in the ingestion report. Input that is
// not valid JSON at all fails the whole load.
package source
