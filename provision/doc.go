// Package provision creates, resets and checks vector indexes.
//
// Provisioning is the one destructive step of a run and completes before
// any ingestion begins. The caller must pick a Mode explicitly: ModeReset
// rebuilds the index from scratch, ModeMerge keeps a compatible existing
// index and its vectors.
package provision
