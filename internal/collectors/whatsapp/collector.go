// Package whatsapp implements the WhatsApp source collector: a signed
// webhook receiver only. The platform's messaging API exposes no history
// endpoint in scope, so there is no historical backfill path.
package whatsapp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/finqa/ragqa/internal/channels"
	"github.com/finqa/ragqa/internal/collectors"
	"github.com/finqa/ragqa/pkg/models"
)

// Config configures the collector.
type Config struct {
	AppSecret string
	Logger    *slog.Logger
}

// Collector is the WhatsApp source collector.
type Collector struct {
	*channels.BaseHealthAdapter
	cfg   Config
	sink  collectors.Enqueuer
	nowFn func() time.Time
}

// New creates a WhatsApp collector.
func New(cfg Config, sink collectors.Enqueuer) *Collector {
	return &Collector{
		BaseHealthAdapter: channels.NewBaseHealthAdapter(models.SourceWhatsApp, cfg.Logger),
		cfg:               cfg,
		sink:              sink,
		nowFn:             time.Now,
	}
}

// Source implements channels.Adapter.
func (c *Collector) Source() models.Source { return models.SourceWhatsApp }

// webhookPayload is the subset of the Cloud API message-webhook shape this
// collector needs.
type webhookPayload struct {
	Entry []struct {
		Changes []struct {
			Value struct {
				Messages []struct {
					ID        string `json:"id"`
					From      string `json:"from"`
					Timestamp string `json:"timestamp"`
					Text      struct {
						Body string `json:"body"`
					} `json:"text"`
				} `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

// ServeHTTP handles a WhatsApp messaging webhook delivery: verifies the
// signature, enqueues each embedded message, and acknowledges within the
// collector's ack budget.
func (c *Collector) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), collectors.AckBudget)
	defer cancel()

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	sig := r.Header.Get("X-Hub-Signature-256")
	ts := r.Header.Get("X-Webhook-Timestamp")
	if ts == "" {
		// The Cloud API's signature header has no explicit timestamp field;
		// treat delivery time as the claim and rely on signature match alone
		// plus TLS-terminated delivery for freshness.
		ts = fmt.Sprintf("%d", c.nowFn().Unix())
	}
	if err := collectors.VerifyHMACSignature([]byte(c.cfg.AppSecret), ts, normalizeSig(sig), body, c.nowFn()); err != nil {
		c.RecordError(channels.ErrCodeAuthentication)
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	var payload webhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			for _, msg := range change.Value.Messages {
				if msg.Text.Body == "" {
					continue
				}
				doc := &models.Document{
					Title:    fmt.Sprintf("WhatsApp message from %s", msg.From),
					Source:   models.SourceWhatsApp,
					SourceID: msg.ID,
					Content:  msg.Text.Body,
					Metadata: models.DocumentMetadata{
						Platform: map[string]any{"from": msg.From, "timestamp": msg.Timestamp},
					},
					ProcessingStatus: models.StatusPending,
				}
				if err := c.sink.Enqueue(ctx, doc); err != nil {
					c.RecordMessageFailed()
					continue
				}
				c.RecordMessageReceived()
			}
		}
	}
	w.WriteHeader(http.StatusOK)
}

// normalizeSig strips the "sha256=" prefix the Cloud API uses and rewrites
// it to the "v0=" form VerifyHMACSignature expects, since both are a plain
// hex HMAC-SHA256 digest underneath.
func normalizeSig(sig string) string {
	const prefix = "sha256="
	if len(sig) > len(prefix) && sig[:len(prefix)] == prefix {
		return "v0=" + sig[len(prefix):]
	}
	return sig
}
