// Package progress reports ingestion progress to a terminal or a log.
package progress
