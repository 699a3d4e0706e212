package adminupload

import (
	"context"
	"errors"
	"testing"

	"github.com/finqa/ragqa/pkg/models"
)

type fakeSink struct {
	docs []*models.Document
	err  error
}

func (f *fakeSink) Enqueue(ctx context.Context, doc *models.Document) error {
	if f.err != nil {
		return f.err
	}
	f.docs = append(f.docs, doc)
	return nil
}

func TestSubmitEnqueuesDocument(t *testing.T) {
	sink := &fakeSink{}
	c := New(nil, sink)

	doc, err := c.Submit(context.Background(), Upload{
		UploadID: "upload-7",
		Title:    "Refund policy v3",
		Content:  "Refunds are processed within 5-10 business days.",
		Tags:     []string{"refunds", "policy"},
		Author:   "ops",
	})
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if doc.Source != models.SourceAdminUpload {
		t.Errorf("source = %s, want admin_upload", doc.Source)
	}
	if doc.SourceID != "upload-7" {
		t.Errorf("source_id = %q, want upload-7", doc.SourceID)
	}
	if doc.ProcessingStatus != models.StatusPending {
		t.Errorf("status = %s, want pending", doc.ProcessingStatus)
	}
	if len(sink.docs) != 1 {
		t.Fatalf("enqueued = %d, want 1", len(sink.docs))
	}
}

func TestSubmitRequiresUploadID(t *testing.T) {
	c := New(nil, &fakeSink{})

	if _, err := c.Submit(context.Background(), Upload{Content: "text"}); err == nil {
		t.Fatal("expected error for missing upload id")
	}
}

func TestSubmitRequiresContent(t *testing.T) {
	c := New(nil, &fakeSink{})

	if _, err := c.Submit(context.Background(), Upload{UploadID: "u1"}); err == nil {
		t.Fatal("expected error for missing content")
	}
}

func TestSubmitPropagatesSinkError(t *testing.T) {
	sinkErr := errors.New("coordinator shutting down")
	c := New(nil, &fakeSink{err: sinkErr})

	_, err := c.Submit(context.Background(), Upload{UploadID: "u1", Content: "text"})
	if !errors.Is(err, sinkErr) {
		t.Fatalf("err = %v, want wrapped sink error", err)
	}
}
