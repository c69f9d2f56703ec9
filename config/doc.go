// Package config loads the YAML configuration of a seeding run.
//
// Values come from built-in defaults, then the YAML file, then credentials
// from OPENAI_API_KEY and PINECONE_API_KEY for fields the file left empty.
// Command line flags are applied by the caller before Validate.
package config
