// Package models defines the core data types shared across the ingestion
// and agent pipelines.
package models

import "time"

// Source identifies where a Document originated.
type Source string

const (
	SourceSlack       Source = "slack"
	SourceWhatsApp    Source = "whatsapp"
	SourceTelegram    Source = "telegram"
	SourceAdminUpload Source = "admin_upload"
)

// ProcessingStatus tracks a Document through the ingestion pipeline.
type ProcessingStatus string

const (
	StatusPending    ProcessingStatus = "pending"
	StatusProcessing ProcessingStatus = "processing"
	StatusCompleted  ProcessingStatus = "completed"
	StatusFailed     ProcessingStatus = "failed"
)

// Document represents a single retrievable item ingested from a source.
// (Source, SourceID) is unique; re-ingestion of the same SourceID upserts
// the document and its chunks in place rather than duplicating them.
type Document struct {
	ID string `json:"id"`

	Title string `json:"title"`

	Source Source `json:"source"`

	// SourceID is a platform-scoped unique key, e.g. "{channel}_{timestamp}".
	SourceID string `json:"source_id"`

	// Content is the post-anonymization text.
	Content string `json:"content"`

	Metadata DocumentMetadata `json:"metadata"`

	ProcessingStatus ProcessingStatus `json:"processing_status"`

	// FailureReason carries detail when ProcessingStatus == StatusFailed.
	FailureReason string `json:"failure_reason,omitempty"`

	ChunkCount int `json:"chunk_count,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DocumentMetadata carries platform-specific fields, the PII audit trail,
// and user-defined tags alongside a Document.
type DocumentMetadata struct {
	// Platform holds source-specific fields (e.g. slack channel/thread ids).
	Platform map[string]any `json:"platform,omitempty"`

	// PIIEntities records the anonymizer's audit trail for this document.
	PIIEntities []PIIEntity `json:"pii_entities,omitempty"`

	// Title/Author/Description/Language are extracted by a parser (e.g. from
	// Markdown frontmatter) for admin-uploaded documents; Document.Title is
	// the canonical title, these are the parser's raw findings.
	Title       string `json:"title,omitempty"`
	Author      string `json:"author,omitempty"`
	Description string `json:"description,omitempty"`
	Language    string `json:"language,omitempty"`

	Tags []string `json:"tags,omitempty"`

	Custom map[string]any `json:"custom,omitempty"`
}

// DocumentChunk is a searchable fragment of a Document. Chunks are
// immutable once written; updates replace the whole set for a document.
type DocumentChunk struct {
	ID string `json:"id"`

	DocumentID string `json:"document_id"`

	// Index is the 0-based position within the document.
	Index int `json:"index"`

	Content string `json:"content"`

	// Embedding is a dense vector of fixed dimensionality D (default 1536).
	// Every chunk with a non-nil Embedding has exactly D dimensions.
	Embedding []float32 `json:"-"`

	StartOffset int `json:"start_offset"`
	EndOffset   int `json:"end_offset"`

	Metadata ChunkMetadata `json:"metadata"`

	TokenCount int `json:"token_count,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// ChunkMetadata carries chunk-specific metadata inherited from its document.
type ChunkMetadata struct {
	DocumentName   string `json:"document_name,omitempty"`
	DocumentSource Source `json:"document_source,omitempty"`
	Section        string `json:"section,omitempty"`

	Tags []string `json:"tags,omitempty"`

	Extra map[string]any `json:"extra,omitempty"`
}

// PIIEntity is the audit record produced by the anonymizer for one detected
// span. OriginalText is only populated when the applied strategy is "keep".
type PIIEntity struct {
	Type         string  `json:"type"`
	Score        float64 `json:"score"`
	Start        int     `json:"start"`
	End          int     `json:"end"`
	OriginalText string  `json:"original_text,omitempty"`
}

// DocumentSearchRequest defines parameters for a vector/hybrid search call.
type DocumentSearchRequest struct {
	Query string `json:"query"`

	Limit     int     `json:"limit,omitempty"`
	Threshold float32 `json:"threshold,omitempty"`

	Tags        []string `json:"tags,omitempty"`
	DocumentIDs []string `json:"document_ids,omitempty"`

	IncludeMetadata bool `json:"include_metadata,omitempty"`
}

// DocumentSearchResult represents a single search result.
type DocumentSearchResult struct {
	Chunk *DocumentChunk `json:"chunk"`

	// Score is the similarity (or combined hybrid) score in [0,1].
	Score float32 `json:"score"`
}

// DocumentSearchResponse contains the results of a document search.
type DocumentSearchResponse struct {
	Results []*DocumentSearchResult `json:"results"`

	TotalCount int           `json:"total_count"`
	QueryTime  time.Duration `json:"query_time"`
}

// DocumentFilter narrows a ListDocuments call.
type DocumentFilter struct {
	Source           Source
	ProcessingStatus ProcessingStatus
	Page             int
	PageSize         int
}

// Pagination is a generic pagination envelope returned alongside list calls.
type Pagination struct {
	Total      int `json:"total"`
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalPages int `json:"total_pages"`
}
