// Package pgvector implements the Vector Store Gateway using PostgreSQL
// with the pgvector extension.
package pgvector

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/finqa/ragqa/internal/vectorstore"
	"github.com/finqa/ragqa/pkg/models"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store implements vectorstore.DocumentStore using pgvector.
type Store struct {
	db        *sql.DB
	dimension int
	ownsDB    bool
}

// Config contains configuration for the pgvector store.
type Config struct {
	// DSN is the PostgreSQL connection string. If empty, DB must be provided.
	DSN string

	// DB is an existing database connection to reuse. If provided, DSN is
	// ignored and the store will not close the connection.
	DB *sql.DB

	// Dimension is the embedding dimension (e.g., 1536 for text-embedding-3-small).
	Dimension int

	// RunMigrations controls whether to run migrations on startup.
	RunMigrations bool
}

// New creates a new pgvector document store.
func New(cfg Config) (*Store, error) {
	if cfg.Dimension == 0 {
		cfg.Dimension = 1536
	}

	var db *sql.DB
	var ownsDB bool
	var err error

	if cfg.DB != nil {
		db = cfg.DB
		ownsDB = false
	} else if cfg.DSN != "" {
		db, err = sql.Open("postgres", cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		ownsDB = true

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, fmt.Errorf("ping database: %w", err)
		}
	} else {
		return nil, fmt.Errorf("either DSN or DB must be provided")
	}

	s := &Store{db: db, dimension: cfg.Dimension, ownsDB: ownsDB}

	if cfg.RunMigrations {
		if err := s.runMigrations(context.Background()); err != nil {
			if ownsDB {
				db.Close()
			}
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}

	return s, nil
}

var _ vectorstore.DocumentStore = (*Store)(nil)

func (s *Store) runMigrations(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS rag_schema_migrations (
			id TEXT PRIMARY KEY,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`)
	if err != nil {
		return fmt.Errorf("create rag_schema_migrations: %w", err)
	}

	migrations, err := loadMigrations()
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}

	applied, err := s.appliedMigrations(ctx)
	if err != nil {
		return fmt.Errorf("get applied migrations: %w", err)
	}

	for _, m := range migrations {
		if applied[m.ID] {
			continue
		}
		if strings.TrimSpace(m.UpSQL) == "" {
			return fmt.Errorf("missing up migration for %s", m.ID)
		}

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %s: %w", m.ID, err)
		}
		if _, err := tx.ExecContext(ctx, m.UpSQL); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply migration %s: %w", m.ID, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO rag_schema_migrations (id) VALUES ($1)`, m.ID); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %s: %w", m.ID, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", m.ID, err)
		}
	}

	return nil
}

func (s *Store) appliedMigrations(ctx context.Context) (map[string]bool, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM rag_schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("query rag_schema_migrations: %w", err)
	}
	defer rows.Close()

	applied := map[string]bool{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan rag_schema_migrations: %w", err)
		}
		applied[id] = true
	}
	return applied, rows.Err()
}

// UpsertDocument stores doc and its chunks transactionally; chunks
// overwrite any prior chunks with the same document_id.
func (s *Store) UpsertDocument(ctx context.Context, doc *models.Document, chunks []*models.DocumentChunk) error {
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}
	doc.UpdatedAt = time.Now().UTC()
	doc.ChunkCount = len(chunks)

	for i, chunk := range chunks {
		if err := s.validateEmbedding(chunk.Embedding, true); err != nil {
			return fmt.Errorf("validate embedding for chunk %d: %w", i, err)
		}
	}

	metadata, err := json.Marshal(doc.Metadata)
	if err != nil {
		return fmt.Errorf("marshal document metadata: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx, `
		INSERT INTO rag_documents (id, title, source, source_id, content, metadata, processing_status, failure_reason, chunk_count, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		ON CONFLICT (source, source_id) DO UPDATE SET
			title = EXCLUDED.title,
			content = EXCLUDED.content,
			metadata = EXCLUDED.metadata,
			processing_status = EXCLUDED.processing_status,
			failure_reason = EXCLUDED.failure_reason,
			chunk_count = EXCLUDED.chunk_count,
			updated_at = EXCLUDED.updated_at
		RETURNING id
	`, doc.ID, doc.Title, doc.Source, doc.SourceID, doc.Content,
		string(metadata), doc.ProcessingStatus, doc.FailureReason, doc.ChunkCount, doc.CreatedAt, doc.UpdatedAt,
	).Scan(&doc.ID)
	if err != nil {
		return fmt.Errorf("upsert document: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM rag_document_chunks WHERE document_id = $1`, doc.ID); err != nil {
		return fmt.Errorf("delete existing chunks: %w", err)
	}

	if len(chunks) > 0 {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO rag_document_chunks (id, document_id, chunk_index, content, start_offset, end_offset, metadata, token_count, embedding, created_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		`)
		if err != nil {
			return fmt.Errorf("prepare chunk insert: %w", err)
		}
		defer stmt.Close()

		for _, chunk := range chunks {
			if chunk.ID == "" {
				chunk.ID = uuid.New().String()
			}
			chunk.DocumentID = doc.ID
			if chunk.CreatedAt.IsZero() {
				chunk.CreatedAt = time.Now().UTC()
			}

			chunkMeta, err := json.Marshal(chunk.Metadata)
			if err != nil {
				return fmt.Errorf("marshal chunk metadata: %w", err)
			}

			embeddingStr := encodeEmbedding(chunk.Embedding)

			if _, err := stmt.ExecContext(ctx,
				chunk.ID, doc.ID, chunk.Index, chunk.Content,
				chunk.StartOffset, chunk.EndOffset, string(chunkMeta),
				chunk.TokenCount, embeddingStr, chunk.CreatedAt,
			); err != nil {
				return fmt.Errorf("insert chunk: %w", err)
			}
		}
	}

	return tx.Commit()
}

const documentColumns = `id, title, source, source_id, content, metadata, processing_status, failure_reason, chunk_count, created_at, updated_at`

func scanDocument(row interface{ Scan(...any) error }) (*models.Document, error) {
	var doc models.Document
	var metadataJSON string
	if err := row.Scan(
		&doc.ID, &doc.Title, &doc.Source, &doc.SourceID, &doc.Content,
		&metadataJSON, &doc.ProcessingStatus, &doc.FailureReason, &doc.ChunkCount,
		&doc.CreatedAt, &doc.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(metadataJSON), &doc.Metadata); err != nil {
		return nil, fmt.Errorf("unmarshal document metadata: %w", err)
	}
	return &doc, nil
}

// GetDocument retrieves a document by ID.
func (s *Store) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+documentColumns+` FROM rag_documents WHERE id = $1`, id)
	doc, err := scanDocument(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query document: %w", err)
	}
	return doc, nil
}

// ListDocuments lists documents matching filter, paginated.
func (s *Store) ListDocuments(ctx context.Context, filter *models.DocumentFilter) ([]*models.Document, models.Pagination, error) {
	if filter == nil {
		filter = &models.DocumentFilter{}
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}

	where := "WHERE 1=1"
	args := []any{}
	argNum := 1
	if filter.Source != "" {
		where += fmt.Sprintf(" AND source = $%d", argNum)
		args = append(args, filter.Source)
		argNum++
	}
	if filter.ProcessingStatus != "" {
		where += fmt.Sprintf(" AND processing_status = $%d", argNum)
		args = append(args, filter.ProcessingStatus)
		argNum++
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM rag_documents `+where, args...).Scan(&total); err != nil {
		return nil, models.Pagination{}, fmt.Errorf("count documents: %w", err)
	}

	query := `SELECT ` + documentColumns + ` FROM rag_documents ` + where +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argNum, argNum+1)
	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, models.Pagination{}, fmt.Errorf("query documents: %w", err)
	}
	defer rows.Close()

	var docs []*models.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, models.Pagination{}, fmt.Errorf("scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, models.Pagination{}, err
	}

	totalPages := (total + pageSize - 1) / pageSize
	return docs, models.Pagination{Total: total, Page: page, PageSize: pageSize, TotalPages: totalPages}, nil
}

// DeleteDocument removes a document; rag_document_chunks cascades via FK.
func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM rag_documents WHERE id = $1`, id)
	return err
}

const chunkColumns = `id, document_id, chunk_index, content, start_offset, end_offset, metadata, token_count, embedding, created_at`

func scanChunk(row interface{ Scan(...any) error }) (*models.DocumentChunk, error) {
	var chunk models.DocumentChunk
	var metadataJSON string
	var embeddingStr sql.NullString
	if err := row.Scan(
		&chunk.ID, &chunk.DocumentID, &chunk.Index, &chunk.Content,
		&chunk.StartOffset, &chunk.EndOffset, &metadataJSON,
		&chunk.TokenCount, &embeddingStr, &chunk.CreatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(metadataJSON), &chunk.Metadata); err != nil {
		return nil, fmt.Errorf("unmarshal chunk metadata: %w", err)
	}
	if embeddingStr.Valid {
		chunk.Embedding = decodeEmbedding(embeddingStr.String)
	}
	return &chunk, nil
}

// GetChunk retrieves a single chunk by ID.
func (s *Store) GetChunk(ctx context.Context, id string) (*models.DocumentChunk, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+chunkColumns+` FROM rag_document_chunks WHERE id = $1`, id)
	chunk, err := scanChunk(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query chunk: %w", err)
	}
	return chunk, nil
}

// GetChunksByDocument retrieves all chunks for a document, in index order.
func (s *Store) GetChunksByDocument(ctx context.Context, documentID string) ([]*models.DocumentChunk, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+chunkColumns+` FROM rag_document_chunks WHERE document_id = $1 ORDER BY chunk_index ASC`, documentID)
	if err != nil {
		return nil, fmt.Errorf("query chunks: %w", err)
	}
	defer rows.Close()

	var chunks []*models.DocumentChunk
	for rows.Next() {
		chunk, err := scanChunk(rows)
		if err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		chunks = append(chunks, chunk)
	}
	return chunks, rows.Err()
}

func searchFilterClause(req *models.DocumentSearchRequest, args []any, argNum int) (string, []any, int) {
	clause := ""
	if req == nil {
		return clause, args, argNum
	}
	if len(req.Tags) > 0 {
		clause += fmt.Sprintf(" AND c.metadata->'tags' ?| $%d", argNum)
		args = append(args, "{"+strings.Join(req.Tags, ",")+"}")
		argNum++
	}
	if len(req.DocumentIDs) > 0 {
		placeholders := make([]string, len(req.DocumentIDs))
		for i, id := range req.DocumentIDs {
			placeholders[i] = fmt.Sprintf("$%d", argNum)
			args = append(args, id)
			argNum++
		}
		clause += fmt.Sprintf(" AND c.document_id IN (%s)", strings.Join(placeholders, ","))
	}
	return clause, args, argNum
}

// VectorSearch ranks chunks by cosine similarity to emb, descending.
// Chunks whose parent document is not completed are never returned.
func (s *Store) VectorSearch(ctx context.Context, emb []float32, k int, threshold float32, req *models.DocumentSearchRequest) (*models.DocumentSearchResponse, error) {
	start := time.Now()
	if k <= 0 {
		k = 10
	}
	if threshold <= 0 {
		threshold = 0.7
	}
	if err := s.validateEmbedding(emb, false); err != nil {
		return nil, err
	}

	queryVec := encodeEmbedding(emb)
	args := []any{queryVec.String}
	argNum := 2

	filterClause, args, argNum := searchFilterClause(req, args, argNum)

	query := `
		SELECT ` + chunkPrefixedColumns() + `,
			1 - (c.embedding <=> $1::vector) AS similarity
		FROM rag_document_chunks c
		JOIN rag_documents d ON d.id = c.document_id
		WHERE c.embedding IS NOT NULL AND d.processing_status = 'completed'` +
		filterClause +
		fmt.Sprintf(` AND (1 - (c.embedding <=> $1::vector)) >= $%d`, argNum)
	args = append(args, threshold)
	argNum++

	query += " ORDER BY similarity DESC, c.created_at DESC"
	query += fmt.Sprintf(" LIMIT $%d", argNum)
	args = append(args, k)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}
	defer rows.Close()

	results, err := scanSearchResults(rows, req)
	if err != nil {
		return nil, err
	}

	return &models.DocumentSearchResponse{Results: results, TotalCount: len(results), QueryTime: time.Since(start)}, nil
}

// HybridSearch combines cosine similarity (weighted vectorstore.VectorWeight)
// with a ts_rank keyword score (weighted vectorstore.KeywordWeight) over the
// same chunks. The combined score is filtered by threshold, sorted
// descending, and deduplicated by chunk id; ties break by descending
// created_at. Chunks whose parent document is not completed are never
// returned.
func (s *Store) HybridSearch(ctx context.Context, emb []float32, query string, k int, threshold float32, req *models.DocumentSearchRequest) (*models.DocumentSearchResponse, error) {
	start := time.Now()
	if k <= 0 {
		k = 10
	}
	if threshold <= 0 {
		threshold = 0.7
	}
	if err := s.validateEmbedding(emb, false); err != nil {
		return nil, err
	}

	queryVec := encodeEmbedding(emb)
	args := []any{queryVec.String, query}
	argNum := 3

	filterClause, args, argNum := searchFilterClause(req, args, argNum)

	sqlQuery := fmt.Sprintf(`
		SELECT %s,
			((%f * (1 - (c.embedding <=> $1::vector))) +
			 (%f * LEAST(ts_rank(c.content_tsv, plainto_tsquery('english', $2)), 1.0))) AS combined_score
		FROM rag_document_chunks c
		JOIN rag_documents d ON d.id = c.document_id
		WHERE c.embedding IS NOT NULL AND d.processing_status = 'completed'%s
		AND ((%f * (1 - (c.embedding <=> $1::vector))) +
		     (%f * LEAST(ts_rank(c.content_tsv, plainto_tsquery('english', $2)), 1.0))) >= $%d
		ORDER BY combined_score DESC, c.created_at DESC
		LIMIT $%d
	`, chunkPrefixedColumns(), vectorstore.VectorWeight, vectorstore.KeywordWeight, filterClause,
		vectorstore.VectorWeight, vectorstore.KeywordWeight, argNum, argNum+1)
	args = append(args, threshold, k)

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("hybrid search: %w", err)
	}
	defer rows.Close()

	results, err := scanSearchResults(rows, req)
	if err != nil {
		return nil, err
	}

	// Deduplicate by chunk id, preserving the first (highest-ranked) occurrence.
	seen := make(map[string]bool, len(results))
	deduped := results[:0]
	for _, r := range results {
		if seen[r.Chunk.ID] {
			continue
		}
		seen[r.Chunk.ID] = true
		deduped = append(deduped, r)
	}

	return &models.DocumentSearchResponse{Results: deduped, TotalCount: len(deduped), QueryTime: time.Since(start)}, nil
}

func chunkPrefixedColumns() string {
	return "c.id, c.document_id, c.chunk_index, c.content, c.start_offset, c.end_offset, c.metadata, c.token_count, c.embedding, c.created_at"
}

func scanSearchResults(rows *sql.Rows, req *models.DocumentSearchRequest) ([]*models.DocumentSearchResult, error) {
	var results []*models.DocumentSearchResult
	for rows.Next() {
		var chunk models.DocumentChunk
		var metadataJSON string
		var embeddingStr sql.NullString
		var score float64

		if err := rows.Scan(
			&chunk.ID, &chunk.DocumentID, &chunk.Index, &chunk.Content,
			&chunk.StartOffset, &chunk.EndOffset, &metadataJSON,
			&chunk.TokenCount, &embeddingStr, &chunk.CreatedAt, &score,
		); err != nil {
			return nil, fmt.Errorf("scan search result: %w", err)
		}

		if err := json.Unmarshal([]byte(metadataJSON), &chunk.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal chunk metadata: %w", err)
		}
		if req != nil && req.IncludeMetadata && embeddingStr.Valid {
			chunk.Embedding = decodeEmbedding(embeddingStr.String)
		}

		results = append(results, &models.DocumentSearchResult{Chunk: &chunk, Score: float32(math.Min(score, 1.0))})
	}
	return results, rows.Err()
}

// UpdateChunkEmbeddings updates embeddings for chunks, used when
// re-embedding with a new model.
func (s *Store) UpdateChunkEmbeddings(ctx context.Context, embeddings map[string][]float32) error {
	if len(embeddings) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `UPDATE rag_document_chunks SET embedding = $1 WHERE id = $2`)
	if err != nil {
		return fmt.Errorf("prepare update: %w", err)
	}
	defer stmt.Close()

	for id, embedding := range embeddings {
		if err := s.validateEmbedding(embedding, true); err != nil {
			return fmt.Errorf("validate embedding for chunk %s: %w", id, err)
		}
		embeddingStr := encodeEmbedding(embedding)
		if _, err := stmt.ExecContext(ctx, embeddingStr, id); err != nil {
			return fmt.Errorf("update chunk %s: %w", id, err)
		}
	}

	return tx.Commit()
}

// Stats returns statistics about the store.
func (s *Store) Stats(ctx context.Context) (*vectorstore.StoreStats, error) {
	stats := &vectorstore.StoreStats{EmbeddingDimension: s.dimension}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM rag_documents`).Scan(&stats.TotalDocuments); err != nil {
		return nil, fmt.Errorf("count documents: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*), COALESCE(SUM(token_count), 0) FROM rag_document_chunks`).Scan(&stats.TotalChunks, &stats.TotalTokens); err != nil {
		return nil, fmt.Errorf("count chunks: %w", err)
	}
	return stats, nil
}

// Close releases resources.
func (s *Store) Close() error {
	if s.ownsDB && s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) validateEmbedding(embedding []float32, allowEmpty bool) error {
	if len(embedding) == 0 {
		if allowEmpty {
			return nil
		}
		return fmt.Errorf("embedding is empty")
	}
	if s.dimension > 0 && len(embedding) != s.dimension {
		return fmt.Errorf("embedding dimension mismatch: got %d, want %d", len(embedding), s.dimension)
	}
	for _, v := range embedding {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return fmt.Errorf("embedding contains invalid values")
		}
	}
	return nil
}

func encodeEmbedding(embedding []float32) sql.NullString {
	if len(embedding) == 0 {
		return sql.NullString{}
	}
	var sb strings.Builder
	sb.WriteByte('[')
	for i, f := range embedding {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(fmt.Sprintf("%g", f))
	}
	sb.WriteByte(']')
	return sql.NullString{String: sb.String(), Valid: true}
}

func decodeEmbedding(s string) []float32 {
	if s == "" {
		return nil
	}
	s = strings.TrimPrefix(s, "[")
	s = strings.TrimSuffix(s, "]")
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	embedding := make([]float32, len(parts))
	for i, p := range parts {
		var f float64
		fmt.Sscanf(strings.TrimSpace(p), "%f", &f)
		embedding[i] = float32(f)
	}
	return embedding
}

// Migration represents an embedded migration.
type Migration struct {
	ID      string
	UpSQL   string
	DownSQL string
}

func loadMigrations() ([]Migration, error) {
	paths, err := fs.Glob(migrationsFS, "migrations/*.sql")
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}

	entries := map[string]*Migration{}
	for _, path := range paths {
		base := strings.TrimPrefix(path, "migrations/")
		suffix := ""
		switch {
		case strings.HasSuffix(base, ".up.sql"):
			suffix = ".up.sql"
		case strings.HasSuffix(base, ".down.sql"):
			suffix = ".down.sql"
		default:
			continue
		}
		id := strings.TrimSuffix(base, suffix)
		entry := entries[id]
		if entry == nil {
			entry = &Migration{ID: id}
			entries[id] = entry
		}
		data, err := migrationsFS.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", path, err)
		}
		if suffix == ".up.sql" {
			entry.UpSQL = string(data)
		} else {
			entry.DownSQL = string(data)
		}
	}

	ids := make([]string, 0, len(entries))
	for id := range entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	migrations := make([]Migration, 0, len(ids))
	for _, id := range ids {
		migrations = append(migrations, *entries[id])
	}
	return migrations, nil
}
