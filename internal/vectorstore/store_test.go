package vectorstore

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/finqa/ragqa/pkg/models"
)

// memStore is a minimal in-memory DocumentStore used to exercise the
// interface contract (completed-only chunk visibility, pagination shape)
// without a live database.
type memStore struct {
	docs   map[string]*models.Document
	chunks map[string][]*models.DocumentChunk
}

func newMemStore() *memStore {
	return &memStore{
		docs:   make(map[string]*models.Document),
		chunks: make(map[string][]*models.DocumentChunk),
	}
}

func (m *memStore) UpsertDocument(ctx context.Context, doc *models.Document, chunks []*models.DocumentChunk) error {
	m.docs[doc.ID] = doc
	m.chunks[doc.ID] = chunks
	return nil
}

func (m *memStore) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	return m.docs[id], nil
}

func (m *memStore) ListDocuments(ctx context.Context, filter *models.DocumentFilter) ([]*models.Document, models.Pagination, error) {
	var out []*models.Document
	for _, d := range m.docs {
		if filter != nil && filter.Source != "" && d.Source != filter.Source {
			continue
		}
		if filter != nil && filter.ProcessingStatus != "" && d.ProcessingStatus != filter.ProcessingStatus {
			continue
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, models.Pagination{Total: len(out), Page: 1, PageSize: len(out), TotalPages: 1}, nil
}

func (m *memStore) DeleteDocument(ctx context.Context, id string) error {
	delete(m.docs, id)
	delete(m.chunks, id)
	return nil
}

func (m *memStore) GetChunk(ctx context.Context, id string) (*models.DocumentChunk, error) {
	for _, cs := range m.chunks {
		for _, c := range cs {
			if c.ID == id {
				return c, nil
			}
		}
	}
	return nil, nil
}

func (m *memStore) GetChunksByDocument(ctx context.Context, documentID string) ([]*models.DocumentChunk, error) {
	return m.chunks[documentID], nil
}

func (m *memStore) VectorSearch(ctx context.Context, emb []float32, k int, threshold float32, req *models.DocumentSearchRequest) (*models.DocumentSearchResponse, error) {
	var results []*models.DocumentSearchResult
	for docID, cs := range m.chunks {
		doc := m.docs[docID]
		if doc == nil || doc.ProcessingStatus != models.StatusCompleted {
			continue
		}
		for _, c := range cs {
			score := cosine(emb, c.Embedding)
			if score >= threshold {
				results = append(results, &models.DocumentSearchResult{Chunk: c, Score: score})
			}
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Score > results[j].Score })
	if k > 0 && len(results) > k {
		results = results[:k]
	}
	return &models.DocumentSearchResponse{Results: results, TotalCount: len(results)}, nil
}

func (m *memStore) HybridSearch(ctx context.Context, emb []float32, query string, k int, threshold float32, req *models.DocumentSearchRequest) (*models.DocumentSearchResponse, error) {
	return m.VectorSearch(ctx, emb, k, threshold, req)
}

func (m *memStore) UpdateChunkEmbeddings(ctx context.Context, embeddings map[string][]float32) error {
	for _, cs := range m.chunks {
		for _, c := range cs {
			if e, ok := embeddings[c.ID]; ok {
				c.Embedding = e
			}
		}
	}
	return nil
}

func (m *memStore) Stats(ctx context.Context) (*StoreStats, error) {
	total := int64(0)
	for _, cs := range m.chunks {
		total += int64(len(cs))
	}
	return &StoreStats{TotalDocuments: int64(len(m.docs)), TotalChunks: total}, nil
}

func (m *memStore) Close() error { return nil }

var _ DocumentStore = (*memStore)(nil)

func cosine(a, b []float32) float32 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (sqrt(na) * sqrt(nb)))
}

func sqrt(v float64) float64 {
	if v == 0 {
		return 0
	}
	x := v
	for i := 0; i < 40; i++ {
		x = 0.5 * (x + v/x)
	}
	return x
}

func TestVectorSearchExcludesIncompleteDocuments(t *testing.T) {
	store := newMemStore()
	ctx := context.Background()

	completed := &models.Document{ID: "doc-1", ProcessingStatus: models.StatusCompleted}
	pending := &models.Document{ID: "doc-2", ProcessingStatus: models.StatusPending}

	emb := []float32{1, 0, 0}
	if err := store.UpsertDocument(ctx, completed, []*models.DocumentChunk{
		{ID: "c1", DocumentID: "doc-1", Embedding: emb, CreatedAt: time.Now()},
	}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := store.UpsertDocument(ctx, pending, []*models.DocumentChunk{
		{ID: "c2", DocumentID: "doc-2", Embedding: emb, CreatedAt: time.Now()},
	}); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	resp, err := store.VectorSearch(ctx, emb, 10, 0.5, nil)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(resp.Results) != 1 || resp.Results[0].Chunk.ID != "c1" {
		t.Fatalf("expected only completed document's chunk, got %+v", resp.Results)
	}
}

func TestVectorSearchRespectsThresholdAndK(t *testing.T) {
	store := newMemStore()
	ctx := context.Background()
	doc := &models.Document{ID: "doc-1", ProcessingStatus: models.StatusCompleted}

	chunks := []*models.DocumentChunk{
		{ID: "high", DocumentID: "doc-1", Embedding: []float32{1, 0, 0}},
		{ID: "low", DocumentID: "doc-1", Embedding: []float32{0, 1, 0}},
	}
	if err := store.UpsertDocument(ctx, doc, chunks); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	resp, err := store.VectorSearch(ctx, []float32{1, 0, 0}, 10, 0.9, nil)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(resp.Results) != 1 || resp.Results[0].Chunk.ID != "high" {
		t.Fatalf("expected threshold to exclude orthogonal chunk, got %+v", resp.Results)
	}
}

func TestDeleteDocumentCascadesChunks(t *testing.T) {
	store := newMemStore()
	ctx := context.Background()
	doc := &models.Document{ID: "doc-1", ProcessingStatus: models.StatusCompleted}
	if err := store.UpsertDocument(ctx, doc, []*models.DocumentChunk{{ID: "c1", DocumentID: "doc-1"}}); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := store.DeleteDocument(ctx, "doc-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	chunks, err := store.GetChunksByDocument(ctx, "doc-1")
	if err != nil {
		t.Fatalf("get chunks: %v", err)
	}
	if len(chunks) != 0 {
		t.Fatalf("expected chunks removed, got %d", len(chunks))
	}
	got, err := store.GetDocument(ctx, "doc-1")
	if err != nil {
		t.Fatalf("get document: %v", err)
	}
	if got != nil {
		t.Fatalf("expected document removed, got %+v", got)
	}
}

func TestHybridWeightsSumToOne(t *testing.T) {
	if VectorWeight+KeywordWeight != 1.0 {
		t.Fatalf("hybrid weights must sum to 1.0, got %v", VectorWeight+KeywordWeight)
	}
}
