package rag

import "context"

// Embedder converts text into a fixed-dimension vector representation.
// Implementations must be deterministic for identical input and must produce
// vectors of a single dimensionality for their lifetime.
//
// Following Go convention the interface is defined here, by its consumer;
// internal/gemini provides the production implementation.
type Embedder interface {
	// Name identifies the embedding function. An index records the name of
	// the embedder that built it, and a Retriever refuses to pair a
	// different one with it.
	Name() string

	// Embed returns the vector for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns one vector per input text, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}
