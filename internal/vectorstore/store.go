// Package vectorstore defines the Vector Store Gateway: chunk/embedding
// CRUD plus vector, keyword, and hybrid search primitives over retrievable
// Documents. The gateway owns no locks of its own — the backing store is
// shared external state, and concurrent access is serialized at the
// database layer.
package vectorstore

import (
	"context"

	"github.com/finqa/ragqa/pkg/models"
)

// DocumentStore defines the interface for document, chunk, and search
// storage. Implementations must never return a chunk whose parent document
// is not models.StatusCompleted.
type DocumentStore interface {
	// UpsertDocument stores doc and its chunks transactionally. Any chunks
	// previously stored under doc.ID are replaced wholesale.
	UpsertDocument(ctx context.Context, doc *models.Document, chunks []*models.DocumentChunk) error

	// GetDocument retrieves a document by ID. Returns nil, nil if not found.
	GetDocument(ctx context.Context, id string) (*models.Document, error)

	// ListDocuments lists documents matching filter, paginated.
	ListDocuments(ctx context.Context, filter *models.DocumentFilter) ([]*models.Document, models.Pagination, error)

	// DeleteDocument removes a document and cascades to its chunks.
	DeleteDocument(ctx context.Context, id string) error

	// GetChunk retrieves a single chunk by ID.
	GetChunk(ctx context.Context, id string) (*models.DocumentChunk, error)

	// GetChunksByDocument retrieves all chunks for a document, in index order.
	GetChunksByDocument(ctx context.Context, documentID string) ([]*models.DocumentChunk, error)

	// VectorSearch ranks chunks by cosine similarity to emb, descending,
	// returning up to k results with score >= threshold.
	VectorSearch(ctx context.Context, emb []float32, k int, threshold float32, req *models.DocumentSearchRequest) (*models.DocumentSearchResponse, error)

	// HybridSearch combines VectorSearch's cosine similarity (weighted 0.7)
	// with a keyword score over the same chunks (weighted 0.3). The combined
	// score is filtered by threshold, sorted descending, and deduplicated by
	// chunk id; ties are broken by descending created_at.
	HybridSearch(ctx context.Context, emb []float32, query string, k int, threshold float32, req *models.DocumentSearchRequest) (*models.DocumentSearchResponse, error)

	// UpdateChunkEmbeddings updates embeddings for chunks, used when
	// re-embedding with a new model.
	UpdateChunkEmbeddings(ctx context.Context, embeddings map[string][]float32) error

	// Stats returns statistics about the store.
	Stats(ctx context.Context) (*StoreStats, error)

	// Close releases resources.
	Close() error
}

// StoreStats contains statistics about the document store.
type StoreStats struct {
	TotalDocuments     int64 `json:"total_documents"`
	TotalChunks        int64 `json:"total_chunks"`
	TotalTokens        int64 `json:"total_tokens,omitempty"`
	EmbeddingDimension int   `json:"embedding_dimension"`
}

// HybridWeights are the fixed contribution weights for HybridSearch's
// combined score: 70% vector similarity, 30% keyword rank.
const (
	VectorWeight  = 0.7
	KeywordWeight = 0.3
)
