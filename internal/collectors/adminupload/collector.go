// Package adminupload implements the synchronous admin-upload source:
// already-parsed file content and metadata posted directly by an operator,
// used for both the real-time and historical ingestion paths alike.
package adminupload

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/finqa/ragqa/internal/channels"
	"github.com/finqa/ragqa/internal/collectors"
	"github.com/finqa/ragqa/pkg/models"
)

// Upload is the already-parsed payload an admin submits.
type Upload struct {
	UploadID    string
	Title       string
	Content     string
	Tags        []string
	Description string
	Author      string
	Language    string
}

// Collector is the admin-upload source. Unlike the other collectors it has
// no webhook or listener: Submit is called directly from the HTTP handler.
type Collector struct {
	*channels.BaseHealthAdapter
	sink collectors.Enqueuer
}

// New creates an admin-upload collector.
func New(logger *slog.Logger, sink collectors.Enqueuer) *Collector {
	return &Collector{
		BaseHealthAdapter: channels.NewBaseHealthAdapter(models.SourceAdminUpload, logger),
		sink:              sink,
	}
}

// Source implements channels.Adapter.
func (c *Collector) Source() models.Source { return models.SourceAdminUpload }

// Submit enqueues an upload for ingestion. Re-submitting the same UploadID
// upserts the prior document rather than duplicating it.
func (c *Collector) Submit(ctx context.Context, u Upload) (*models.Document, error) {
	if u.UploadID == "" {
		return nil, fmt.Errorf("adminupload: upload id is required")
	}
	if u.Content == "" {
		return nil, fmt.Errorf("adminupload: content is required")
	}
	doc := &models.Document{
		Title:    u.Title,
		Source:   models.SourceAdminUpload,
		SourceID: u.UploadID,
		Content:  u.Content,
		Metadata: models.DocumentMetadata{
			Author:      u.Author,
			Description: u.Description,
			Language:    u.Language,
			Tags:        u.Tags,
		},
		ProcessingStatus: models.StatusPending,
	}
	if err := c.sink.Enqueue(ctx, doc); err != nil {
		c.RecordMessageFailed()
		return nil, fmt.Errorf("adminupload: enqueue: %w", err)
	}
	c.RecordMessageReceived()
	return doc, nil
}
