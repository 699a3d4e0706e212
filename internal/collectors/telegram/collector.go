// Package telegram implements the Telegram source collector: a persistent
// listener for new messages plus cursor-paged historical dialog fetch.
package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/finqa/ragqa/internal/channels"
	"github.com/finqa/ragqa/internal/collectors"
	ragmodels "github.com/finqa/ragqa/pkg/models"
)

// Notifier is alerted when the listener's session fails authentication;
// a rejected session token is fatal, not retryable.
type Notifier interface {
	NotifyFatal(ctx context.Context, source ragmodels.Source, err error) error
}

// Config configures the collector.
type Config struct {
	SessionToken string
	Logger       *slog.Logger
	Reconnect    channels.ReconnectConfig
}

// Collector is the Telegram source collector. It holds a long-lived client
// session loaded from an opaque token at startup.
type Collector struct {
	*channels.BaseHealthAdapter
	cfg      Config
	bot      *tgbot.Bot
	sink     collectors.Enqueuer
	notifier Notifier
	cancel   context.CancelFunc
}

// New creates a Telegram collector from a client constructed with the
// configured session token.
func New(cfg Config, bot *tgbot.Bot, sink collectors.Enqueuer, notifier Notifier) *Collector {
	return &Collector{
		BaseHealthAdapter: channels.NewBaseHealthAdapter(ragmodels.SourceTelegram, cfg.Logger),
		cfg:               cfg,
		bot:               bot,
		sink:              sink,
		notifier:          notifier,
	}
}

// Source implements channels.Adapter.
func (c *Collector) Source() ragmodels.Source { return ragmodels.SourceTelegram }

// ListDialogs returns the set of chats the session can observe.
func (c *Collector) ListDialogs(ctx context.Context) ([]models.Chat, error) {
	updates, err := c.bot.GetUpdates(ctx, &tgbot.GetUpdatesParams{Limit: 100})
	if err != nil {
		return nil, fmt.Errorf("telegram: list dialogs: %w", err)
	}
	seen := make(map[int64]models.Chat)
	for _, u := range updates {
		if u.Message != nil {
			seen[u.Message.Chat.ID] = u.Message.Chat
		}
	}
	dialogs := make([]models.Chat, 0, len(seen))
	for _, chat := range seen {
		dialogs = append(dialogs, chat)
	}
	return dialogs, nil
}

// FetchHistorical pulls a cursor-paged slice of messages for one chat and
// enqueues each for processing.
func (c *Collector) FetchHistorical(ctx context.Context, window collectors.HistoricalWindow, chatID int64) error {
	updates, err := c.bot.GetUpdates(ctx, &tgbot.GetUpdatesParams{Limit: 100})
	if err != nil {
		return fmt.Errorf("telegram: fetch historical: %w", err)
	}
	fetched := 0
	for _, u := range updates {
		if u.Message == nil || u.Message.Chat.ID != chatID || u.Message.Text == "" {
			continue
		}
		if !window.Start.IsZero() && int64(u.Message.Date) < window.Start.Unix() {
			continue
		}
		if !window.End.IsZero() && int64(u.Message.Date) > window.End.Unix() {
			continue
		}
		doc := c.toDocument(u.Message)
		if err := c.sink.Enqueue(ctx, doc); err != nil {
			c.RecordMessageFailed()
			continue
		}
		c.RecordMessageReceived()
		fetched++
		if window.Limit > 0 && fetched >= window.Limit {
			return nil
		}
	}
	return nil
}

// StartListener runs the background push-event loop. chats is a set of
// chat ids to restrict to, or nil to observe all dialogs. The loop
// reconnects with exponential backoff on transport errors; an
// authentication failure is fatal and is reported via the Error Notifier.
func (c *Collector) StartListener(ctx context.Context, chats map[int64]bool) error {
	ctx, cancel := context.WithCancel(ctx)
	c.cancel = cancel

	reconnector := &channels.Reconnector{
		Config: c.cfg.Reconnect,
		Logger: c.cfg.Logger,
		Health: c.BaseHealthAdapter,
	}

	return reconnector.Run(ctx, func(ctx context.Context) error {
		c.SetStatus(true, "")
		c.RecordConnectionOpened()
		defer c.RecordConnectionClosed()

		updates, err := c.bot.GetUpdates(ctx, &tgbot.GetUpdatesParams{Timeout: 30})
		if err != nil {
			if isAuthError(err) {
				if c.notifier != nil {
					_ = c.notifier.NotifyFatal(ctx, ragmodels.SourceTelegram, err)
				}
				// Classified non-retryable: stops the reconnect loop.
				return channels.ErrAuthentication("telegram session rejected", err)
			}
			return err
		}
		for _, u := range updates {
			if u.Message == nil || u.Message.Text == "" {
				continue
			}
			if chats != nil && !chats[u.Message.Chat.ID] {
				continue
			}
			doc := c.toDocument(u.Message)
			if err := c.sink.Enqueue(ctx, doc); err != nil {
				c.RecordMessageFailed()
				continue
			}
			c.RecordMessageReceived()
		}
		return nil
	})
}

// Stop cancels the listener loop.
func (c *Collector) Stop(ctx context.Context) error {
	if c.cancel != nil {
		c.cancel()
	}
	return nil
}

func (c *Collector) toDocument(msg *models.Message) *ragmodels.Document {
	return &ragmodels.Document{
		Title:    fmt.Sprintf("Telegram message in chat %d", msg.Chat.ID),
		Source:   ragmodels.SourceTelegram,
		SourceID: fmt.Sprintf("%d_%d", msg.Chat.ID, msg.ID),
		Content:  msg.Text,
		Metadata: ragmodels.DocumentMetadata{
			Platform: map[string]any{"chat_id": msg.Chat.ID, "message_id": msg.ID},
		},
		ProcessingStatus: ragmodels.StatusPending,
	}
}

func isAuthError(err error) bool {
	// The Bot API returns 401 Unauthorized in the error text for a revoked
	// or invalid session token.
	return err != nil && (strings.Contains(err.Error(), "401") || strings.Contains(err.Error(), "Unauthorized"))
}
