// Package verify checks an index against the outcome of an ingestion run.
package verify
