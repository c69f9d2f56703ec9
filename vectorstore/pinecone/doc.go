// Package pinecone implements vectorstore.Store with the Pinecone Go SDK.
//
// Indexes are created as serverless indexes using the descriptor's
// placement (aws us-east-1 when unset). Vectors are written through the
// gRPC data plane with metadata encoded as protobuf Structs. Pinecone
// failures are mapped onto the vectorstore sentinel errors so the
// provisioner and the ingestion pipeline can decide what to retry.
package pinecone
