// Package ingest implements the Ingestion Coordinator (C6): the per-item
// Extract -> Anonymize -> Chunk -> Embed -> Upsert pipeline that every
// source collector feeds through a bounded, per-source work queue.
//
// Concurrency follows a bounded-semaphore worker-dispatch shape; since
// arrival-order processing within one source
// requires a single source's items to commit in arrival order, each source
// gets exactly one dedicated drain goroutine reading its bounded channel —
// the configured worker count is realized as one worker per registered
// source rather than N concurrent consumers of one source's queue, which
// would let a slow item's commit race an item enqueued after it.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/finqa/ragqa/internal/cache"
	"github.com/finqa/ragqa/internal/memory/embeddings"
	"github.com/finqa/ragqa/internal/observability"
	"github.com/finqa/ragqa/internal/pii"
	"github.com/finqa/ragqa/internal/rag/chunker"
	"github.com/finqa/ragqa/internal/vectorstore"
	"github.com/finqa/ragqa/pkg/models"
)

// DefaultQueueDepth is the default bound on a per-source backlog.
const DefaultQueueDepth = 256

// Config configures the Coordinator.
type Config struct {
	// QueueDepth bounds each source's pending-item backlog. Enqueue blocks
	// once a source's queue is full, applying backpressure to the
	// collector (and, transitively, the webhook handler) rather than
	// growing memory unboundedly.
	QueueDepth int

	// AnonymizeBestEffort, when true, carries the original text through on
	// an anonymization failure instead of failing the document. Anonymize
	// in this implementation cannot itself fail, but the flag is honored
	// for forward compatibility with a future detector that can.
	AnonymizeBestEffort bool

	// DedupeWindow bounds how long a (source, source_id) pair is
	// remembered to suppress a redundant re-enqueue — an at-least-once
	// collector retry (a webhook delivered twice, a socket reconnect
	// replaying its backlog) arriving inside this window is dropped
	// before it costs an embedding call. Zero disables the guard.
	DedupeWindow time.Duration
}

// DefaultDedupeWindow is how long a duplicate source item is suppressed by
// default.
const DefaultDedupeWindow = 5 * time.Minute

// Coordinator drains per-source bounded queues, running each item through
// Extract -> Anonymize -> Chunk -> Embed -> Upsert, and commits the result
// with the vector store's upsert-by-(source,source_id) semantics so a
// second arrival of the same source_id replaces the prior document and its
// chunks atomically instead of duplicating them.
type Coordinator struct {
	store      vectorstore.DocumentStore
	anonymizer *pii.Anonymizer
	chunker    chunker.Chunker
	embedder   embeddings.Provider
	cfg        Config
	logger     *slog.Logger

	dedupe *cache.IdempotencyCache

	mu     sync.Mutex
	queues map[models.Source]chan *models.Document
	wg     sync.WaitGroup

	// inflight tracks items accepted but not yet committed, so Shutdown
	// can wait for the queues to drain.
	inflight sync.WaitGroup
}

// New builds a Coordinator. Call Start to begin draining per-source queues
// as collectors register them via Enqueue.
func New(store vectorstore.DocumentStore, anonymizer *pii.Anonymizer, c chunker.Chunker, embedder embeddings.Provider, cfg Config, logger *slog.Logger) *Coordinator {
	if cfg.QueueDepth <= 0 {
		cfg.QueueDepth = DefaultQueueDepth
	}
	if cfg.DedupeWindow <= 0 {
		cfg.DedupeWindow = DefaultDedupeWindow
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		store:      store,
		anonymizer: anonymizer,
		chunker:    c,
		embedder:   embedder,
		cfg:        cfg,
		logger:     logger.With("component", "ingest"),
		dedupe:     cache.New(cache.Options{TTL: cfg.DedupeWindow, MaxSize: 50_000}),
		queues:     make(map[models.Source]chan *models.Document),
	}
}

// Enqueue implements collectors.Enqueuer. It records the document as
// pending and pushes it onto its source's bounded queue, spawning that
// source's drain worker on first use. It blocks if the source's queue is
// full — the explicit, documented backpressure point for ingestion.
func (c *Coordinator) Enqueue(ctx context.Context, doc *models.Document) error {
	if doc.Source == "" || doc.SourceID == "" {
		return fmt.Errorf("ingest: document must carry source and source_id")
	}
	if c.dedupe.Seen(cache.DocumentKey(string(doc.Source), doc.SourceID)) {
		c.logger.Debug("ingest: dropping duplicate re-enqueue", "source", doc.Source, "source_id", doc.SourceID)
		return nil
	}
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	doc.ProcessingStatus = models.StatusPending
	now := time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now

	// Make the pending state visible immediately so GET /documents/{id}
	// reflects the item before its (possibly slow) embedding call lands.
	if c.store != nil {
		if err := c.store.UpsertDocument(ctx, doc, nil); err != nil {
			c.logger.Warn("ingest: failed to record pending document", "error", err, "source", doc.Source, "source_id", doc.SourceID)
		}
	}

	queue := c.queueFor(doc.Source)
	c.inflight.Add(1)
	select {
	case queue <- doc:
		observability.EmitIngestEnqueue(&observability.IngestEnqueueEvent{
			Source:    string(doc.Source),
			QueueSize: len(queue),
		})
		return nil
	case <-ctx.Done():
		c.inflight.Done()
		return ctx.Err()
	}
}

// queueFor returns the bounded channel for source, creating it and its
// drain worker on first use.
func (c *Coordinator) queueFor(source models.Source) chan *models.Document {
	c.mu.Lock()
	defer c.mu.Unlock()
	q, ok := c.queues[source]
	if ok {
		return q
	}
	q = make(chan *models.Document, c.cfg.QueueDepth)
	c.queues[source] = q
	c.wg.Add(1)
	go c.drain(source, q)
	return q
}

// drain is the single dedicated worker for source; it processes items
// strictly in the order they were enqueued.
func (c *Coordinator) drain(source models.Source, queue chan *models.Document) {
	defer c.wg.Done()
	for doc := range queue {
		waitStart := doc.UpdatedAt
		observability.EmitIngestDequeue(&observability.IngestDequeueEvent{
			Source:    string(source),
			QueueSize: len(queue),
			WaitMs:    time.Since(waitStart).Milliseconds(),
		})
		start := time.Now()
		c.process(context.Background(), doc)
		observability.EmitDocumentProcessed(&observability.DocumentProcessedEvent{
			Source:     string(doc.Source),
			SourceID:   doc.SourceID,
			DocumentID: doc.ID,
			ChunkCount: doc.ChunkCount,
			DurationMs: time.Since(start).Milliseconds(),
			Outcome:    string(doc.ProcessingStatus),
			Reason:     doc.FailureReason,
		})
		c.inflight.Done()
	}
}

// Shutdown closes no new work but waits for all items currently queued or
// in flight to finish processing, then returns. It does not accept a
// context deadline: ingestion workers are not cancellable per-item by
// design, only drainable.
func (c *Coordinator) Shutdown() {
	c.inflight.Wait()
	c.mu.Lock()
	for _, q := range c.queues {
		close(q)
	}
	c.mu.Unlock()
	c.wg.Wait()
}

// process runs the full Extract -> Anonymize -> Chunk -> Embed -> Upsert
// pipeline for one document, applying the partial-failure policy at
// each stage.
func (c *Coordinator) process(ctx context.Context, doc *models.Document) {
	doc.ProcessingStatus = models.StatusProcessing
	doc.UpdatedAt = time.Now().UTC()
	if c.store != nil {
		_ = c.store.UpsertDocument(ctx, doc, nil)
	}

	content, ok := c.extract(doc)
	if !ok {
		c.fail(ctx, doc, "extract: empty content")
		return
	}

	anonymized, entities := c.anonymize(content)
	doc.Content = anonymized
	doc.Metadata.PIIEntities = entities

	chunks, err := c.chunk(doc)
	if err != nil {
		c.fail(ctx, doc, fmt.Sprintf("chunk: %v", err))
		return
	}

	if err := c.embed(ctx, chunks); err != nil {
		// All-or-nothing per document: an embedding failure on any chunk
		// fails the whole document and commits no chunks.
		c.fail(ctx, doc, fmt.Sprintf("embed: %v", err))
		return
	}

	doc.ProcessingStatus = models.StatusCompleted
	doc.FailureReason = ""
	doc.ChunkCount = len(chunks)
	doc.UpdatedAt = time.Now().UTC()
	if c.store == nil {
		return
	}
	if err := c.store.UpsertDocument(ctx, doc, chunks); err != nil {
		c.fail(ctx, doc, fmt.Sprintf("upsert: %v", err))
		return
	}
}

// extract validates the item already carries extracted content (the
// document parser is an external collaborator — collectors hand the
// Coordinator already-extracted text, never raw bytes).
func (c *Coordinator) extract(doc *models.Document) (string, bool) {
	if doc.Content == "" {
		return "", false
	}
	return doc.Content, true
}

func (c *Coordinator) anonymize(content string) (string, []models.PIIEntity) {
	if c.anonymizer == nil {
		return content, nil
	}
	return c.anonymizer.Run(content)
}

func (c *Coordinator) chunk(doc *models.Document) ([]*models.DocumentChunk, error) {
	if c.chunker == nil {
		return nil, fmt.Errorf("no chunker configured")
	}
	result := &chunker.ParseResult{Content: doc.Content, Metadata: &doc.Metadata}
	return c.chunker.Chunk(doc, result)
}

// embed batches every chunk's content through the embedder and assigns the
// resulting vectors back in order. A failure on any chunk fails the call.
func (c *Coordinator) embed(ctx context.Context, chunks []*models.DocumentChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	if c.embedder == nil {
		return fmt.Errorf("no embedding provider configured")
	}

	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Content
	}

	maxBatch := c.embedder.MaxBatchSize()
	if maxBatch <= 0 {
		maxBatch = len(texts)
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += maxBatch {
		end := start + maxBatch
		if end > len(texts) {
			end = len(texts)
		}
		vecs, err := c.embedder.EmbedBatch(ctx, texts[start:end])
		if err != nil {
			return err
		}
		if len(vecs) != end-start {
			return fmt.Errorf("embedding provider returned %d vectors for %d inputs", len(vecs), end-start)
		}
		out = append(out, vecs...)
	}

	for i, ch := range chunks {
		ch.Embedding = out[i]
		ch.TokenCount = tokenEstimate(ch.Content)
	}
	return nil
}

// tokenEstimate is a last-resort estimate used only if the chunker didn't
// already set TokenCount (it always does; kept defensive).
func tokenEstimate(s string) int {
	return (len(s) + 3) / 4
}

func (c *Coordinator) fail(ctx context.Context, doc *models.Document, reason string) {
	doc.ProcessingStatus = models.StatusFailed
	doc.FailureReason = reason
	doc.UpdatedAt = time.Now().UTC()
	if c.store == nil {
		return
	}
	if err := c.store.UpsertDocument(ctx, doc, nil); err != nil {
		c.logger.Error("ingest: failed to persist failure state", "error", err, "document_id", doc.ID, "reason", reason)
	}
}
