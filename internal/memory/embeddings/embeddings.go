// Package embeddings abstracts the embedding side of the model clients:
// the Ingestion Coordinator batches chunk text through a Provider, and the
// agent graph's retrieval node embeds the query with the same one, so the
// whole corpus shares a single dimensionality.
package embeddings

import (
	"context"
)

// Provider generates dense vectors for text. Implementations batch to
// their provider's limits and return outputs in input order.
type Provider interface {
	// Embed generates an embedding for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts in one or more
	// provider calls, preserving input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Name returns the provider name.
	Name() string

	// Dimension returns the embedding dimension every vector this provider
	// produces will have. Chunks in the store must all share it.
	Dimension() int

	// MaxBatchSize returns the maximum number of texts per provider call.
	MaxBatchSize() int
}
