// Package slack implements the Slack source collector: a signed-webhook
// real-time path and a paged historical backfill path, both handing raw
// documents to the Ingestion Coordinator.
package slack

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	goslack "github.com/slack-go/slack"

	"github.com/finqa/ragqa/internal/channels"
	"github.com/finqa/ragqa/internal/collectors"
	"github.com/finqa/ragqa/pkg/models"
)

// API defines the subset of the Slack Web API the collector uses. Narrowed
// to an interface so tests can inject a fake without hitting the network.
type API interface {
	GetConversationHistoryContext(ctx context.Context, params *goslack.GetConversationHistoryParameters) (*goslack.GetConversationHistoryResponse, error)
}

// Config configures the collector.
type Config struct {
	SigningSecret string
	Channels      []string
	Logger        *slog.Logger
}

// Collector is the Slack source collector.
type Collector struct {
	*channels.BaseHealthAdapter
	cfg   Config
	api   API
	sink  collectors.Enqueuer
	nowFn func() time.Time
}

// New creates a Slack collector. api may be a *goslack.Client or a fake.
func New(cfg Config, api API, sink collectors.Enqueuer) *Collector {
	return &Collector{
		BaseHealthAdapter: channels.NewBaseHealthAdapter(models.SourceSlack, cfg.Logger),
		cfg:               cfg,
		api:               api,
		sink:              sink,
		nowFn:             time.Now,
	}
}

// Source implements channels.Adapter.
func (c *Collector) Source() models.Source { return models.SourceSlack }

// slackEventEnvelope is the subset of the Events API payload shape this
// collector needs: message and file-shared events carrying text content.
type slackEventEnvelope struct {
	Type      string `json:"type"`
	Challenge string `json:"challenge,omitempty"`
	Event     struct {
		Type      string `json:"type"`
		Channel   string `json:"channel"`
		User      string `json:"user"`
		Text      string `json:"text"`
		Timestamp string `json:"ts"`
	} `json:"event"`
}

// ServeHTTP handles a Slack Events API webhook delivery. It verifies the
// request signature, enqueues the event for processing, and acknowledges
// within the collector's ack budget. Heavy work never happens on this path.
func (c *Collector) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), collectors.AckBudget)
	defer cancel()

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}

	ts := r.Header.Get("X-Slack-Request-Timestamp")
	sig := r.Header.Get("X-Slack-Signature")
	if err := collectors.VerifyHMACSignature([]byte(c.cfg.SigningSecret), ts, sig, body, c.nowFn()); err != nil {
		c.RecordError(channels.ErrCodeAuthentication)
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	var env slackEventEnvelope
	if err := json.Unmarshal(body, &env); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	if env.Type == "url_verification" {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte(env.Challenge))
		return
	}
	if env.Event.Type != "message" || env.Event.Text == "" {
		w.WriteHeader(http.StatusOK)
		return
	}

	doc := &models.Document{
		Title:    fmt.Sprintf("Slack message in %s", env.Event.Channel),
		Source:   models.SourceSlack,
		SourceID: fmt.Sprintf("%s_%s", env.Event.Channel, env.Event.Timestamp),
		Content:  env.Event.Text,
		Metadata: models.DocumentMetadata{
			Platform: map[string]any{
				"channel": env.Event.Channel,
				"user":    env.Event.User,
				"ts":      env.Event.Timestamp,
			},
		},
		ProcessingStatus: models.StatusPending,
	}

	if err := c.sink.Enqueue(ctx, doc); err != nil {
		c.RecordMessageFailed()
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}
	c.RecordMessageReceived()
	w.WriteHeader(http.StatusOK)
}

// FetchHistorical pulls paged channel history, optionally filtered by a
// date window and capped per channel, and enqueues each message.
func (c *Collector) FetchHistorical(ctx context.Context, window collectors.HistoricalWindow) error {
	for _, channel := range c.cfg.Channels {
		if err := c.fetchChannelHistory(ctx, channel, window); err != nil {
			return fmt.Errorf("slack: backfill channel %s: %w", channel, err)
		}
	}
	return nil
}

func (c *Collector) fetchChannelHistory(ctx context.Context, channel string, window collectors.HistoricalWindow) error {
	params := &goslack.GetConversationHistoryParameters{
		ChannelID: channel,
		Limit:     200,
	}
	if !window.Start.IsZero() {
		params.Oldest = fmt.Sprintf("%d.000000", window.Start.Unix())
	}
	if !window.End.IsZero() {
		params.Latest = fmt.Sprintf("%d.000000", window.End.Unix())
	}

	fetched := 0
	cap := window.Limit
	for {
		resp, err := c.api.GetConversationHistoryContext(ctx, params)
		if err != nil {
			return err
		}
		for _, msg := range resp.Messages {
			if msg.Text == "" {
				continue
			}
			doc := &models.Document{
				Title:    fmt.Sprintf("Slack message in %s", channel),
				Source:   models.SourceSlack,
				SourceID: fmt.Sprintf("%s_%s", channel, msg.Timestamp),
				Content:  msg.Text,
				Metadata: models.DocumentMetadata{
					Platform: map[string]any{"channel": channel, "user": msg.User, "ts": msg.Timestamp},
				},
				ProcessingStatus: models.StatusPending,
			}
			if err := c.sink.Enqueue(ctx, doc); err != nil {
				c.RecordMessageFailed()
				continue
			}
			c.RecordMessageReceived()
			fetched++
			if cap > 0 && fetched >= cap {
				return nil
			}
		}
		if !resp.HasMore {
			return nil
		}
		params.Cursor = resp.ResponseMetaData.NextCursor
	}
}
