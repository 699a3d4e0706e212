package whatsapp

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/finqa/ragqa/pkg/models"
)

const testAppSecret = "wa-app-secret"

type fakeSink struct {
	docs []*models.Document
}

func (f *fakeSink) Enqueue(ctx context.Context, doc *models.Document) error {
	f.docs = append(f.docs, doc)
	return nil
}

func cloudAPISign(timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(testAppSecret))
	mac.Write([]byte("v0:" + timestamp + ":"))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func newTestCollector(sink *fakeSink, now time.Time) *Collector {
	c := New(Config{AppSecret: testAppSecret}, sink)
	c.nowFn = func() time.Time { return now }
	return c
}

func post(t *testing.T, c *Collector, body []byte, signature string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/whatsapp", strings.NewReader(string(body)))
	req.Header.Set("X-Hub-Signature-256", signature)
	w := httptest.NewRecorder()
	c.ServeHTTP(w, req)
	return w
}

func messagePayload(id, from, text string) []byte {
	return []byte(fmt.Sprintf(`{"entry":[{"changes":[{"value":{"messages":[{"id":%q,"from":%q,"timestamp":"1700000000","text":{"body":%q}}]}}]}]}`, id, from, text))
}

func TestWebhookRejectsMissingSignature(t *testing.T) {
	sink := &fakeSink{}
	c := newTestCollector(sink, time.Unix(1700000000, 0))

	w := post(t, c, messagePayload("wamid.1", "15550001111", "hello"), "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
	if len(sink.docs) != 0 {
		t.Errorf("enqueued %d docs on unauthorized request", len(sink.docs))
	}
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	sink := &fakeSink{}
	c := newTestCollector(sink, time.Unix(1700000000, 0))

	w := post(t, c, messagePayload("wamid.1", "15550001111", "hello"), "sha256="+hex.EncodeToString(make([]byte, 32)))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestWebhookEnqueuesMessage(t *testing.T) {
	sink := &fakeSink{}
	now := time.Unix(1700000000, 0)
	c := newTestCollector(sink, now)

	body := messagePayload("wamid.abc123", "15550001111", "dispute opened on invoice 8841")
	ts := fmt.Sprintf("%d", now.Unix())
	w := post(t, c, body, cloudAPISign(ts, body))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if len(sink.docs) != 1 {
		t.Fatalf("enqueued = %d, want 1", len(sink.docs))
	}

	doc := sink.docs[0]
	if doc.Source != models.SourceWhatsApp {
		t.Errorf("source = %s, want whatsapp", doc.Source)
	}
	if doc.SourceID != "wamid.abc123" {
		t.Errorf("source_id = %q, want wamid.abc123", doc.SourceID)
	}
	if doc.Content != "dispute opened on invoice 8841" {
		t.Errorf("content = %q", doc.Content)
	}
}

func TestWebhookSkipsEmptyMessageBodies(t *testing.T) {
	sink := &fakeSink{}
	now := time.Unix(1700000000, 0)
	c := newTestCollector(sink, now)

	body := messagePayload("wamid.1", "15550001111", "")
	ts := fmt.Sprintf("%d", now.Unix())
	w := post(t, c, body, cloudAPISign(ts, body))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if len(sink.docs) != 0 {
		t.Errorf("enqueued = %d, want 0", len(sink.docs))
	}
}

func TestNormalizeSig(t *testing.T) {
	if got := normalizeSig("sha256=abcd"); got != "v0=abcd" {
		t.Errorf("normalizeSig = %q, want v0=abcd", got)
	}
	if got := normalizeSig("v0=abcd"); got != "v0=abcd" {
		t.Errorf("normalizeSig should pass v0 form through, got %q", got)
	}
}
