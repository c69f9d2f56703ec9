// Package vectorseed seeds a vector index from a corpus of text records.
//
// A run loads and validates the input, probes the embedding service,
// provisions the index in reset or merge mode, embeds and upserts records in
// concurrent batches and finally verifies the index's vector count:
//
//	cfg, err := config.Load("vectorseed.yaml")
//	if err != nil {
//		return err
//	}
//	seeder, err := vectorseed.NewSeeder(cfg)
//	if err != nil {
//		return err
//	}
//	defer seeder.Close()
//	result, err := seeder.Run(ctx)
//
// Failures of individual records are collected in the run's
// core.IngestionReport rather than returned as errors.
package vectorseed
