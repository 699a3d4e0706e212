package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	tgbot "github.com/go-telegram/bot"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	goslack "github.com/slack-go/slack"

	"github.com/finqa/ragqa/internal/agent"
	"github.com/finqa/ragqa/internal/agent/providers"
	"github.com/finqa/ragqa/internal/agentgraph"
	"github.com/finqa/ragqa/internal/audit"
	"github.com/finqa/ragqa/internal/channels"
	"github.com/finqa/ragqa/internal/chat"
	"github.com/finqa/ragqa/internal/collectors"
	"github.com/finqa/ragqa/internal/collectors/adminupload"
	"github.com/finqa/ragqa/internal/collectors/slack"
	"github.com/finqa/ragqa/internal/collectors/telegram"
	"github.com/finqa/ragqa/internal/collectors/whatsapp"
	"github.com/finqa/ragqa/internal/config"
	"github.com/finqa/ragqa/internal/configstore"
	"github.com/finqa/ragqa/internal/controlplane"
	"github.com/finqa/ragqa/internal/ingest"
	"github.com/finqa/ragqa/internal/mcp"
	"github.com/finqa/ragqa/internal/memory/embeddings"
	embopenai "github.com/finqa/ragqa/internal/memory/embeddings/openai"
	"github.com/finqa/ragqa/internal/notifier"
	"github.com/finqa/ragqa/internal/observability"
	"github.com/finqa/ragqa/internal/pii"
	"github.com/finqa/ragqa/internal/rag/chunker"
	"github.com/finqa/ragqa/internal/ratelimit"
	"github.com/finqa/ragqa/internal/sessions"
	"github.com/finqa/ragqa/internal/tools/calculator"
	"github.com/finqa/ragqa/internal/tools/websearch"
	"github.com/finqa/ragqa/internal/vectorstore"
	"github.com/finqa/ragqa/internal/vectorstore/pgvector"
	ragmodels "github.com/finqa/ragqa/pkg/models"

	_ "github.com/lib/pq"
)

// app bundles every process-wide collaborator built from config, so each
// subcommand wires only the pieces it needs instead of duplicating setup.
type app struct {
	cfg *config.Config

	db       *sql.DB
	store    vectorstore.DocumentStore
	cstore   *configstore.Store
	llm      agent.LLMProvider
	embedder embeddings.Provider

	tools    *agent.ToolRegistry
	mcpMgr   *mcp.Manager
	graph    *agentgraph.Graph
	sessions *sessions.OwnedStore
	chat     *chat.Service

	auditLogger *audit.Logger
	notifier    *notifier.Notifier
	channels    *channels.Registry
	coordinator *ingest.Coordinator

	controlPlane *controlplane.Service

	retention *cron.Cron

	logger *slog.Logger
}

// buildApp loads config and constructs every collaborator that doesn't
// require an established network connection (DB, MCP servers, channel
// sessions); callers needing those call the corresponding start* helpers
// separately so a CLI command (e.g. `config show`) doesn't pay the cost of
// connecting to Slack just to read the active AgentConfig.
func buildApp(ctx context.Context, logger *slog.Logger) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.Database.MaxConnections)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	store, err := pgvector.New(pgvector.Config{DB: db, Dimension: cfg.LLM.EmbeddingDimension, RunMigrations: true})
	if err != nil {
		return nil, fmt.Errorf("open vector store: %w", err)
	}

	cstore := configstore.New(db, cfg.Environment)

	llmProvider, err := buildLLMProvider(cfg)
	if err != nil {
		return nil, fmt.Errorf("build llm provider: %w", err)
	}

	embedder, err := buildEmbedder(cfg)
	if err != nil {
		return nil, fmt.Errorf("build embedder: %w", err)
	}

	auditLogger, err := audit.NewLogger(audit.DefaultConfig())
	if err != nil {
		return nil, fmt.Errorf("build audit logger: %w", err)
	}

	var notify *notifier.Notifier
	if cfg.Channels.SlackBotToken != "" {
		obsLogger := observability.NewLogger(observability.LogConfig{Level: cfg.Observability.LogLevel, Format: cfg.Observability.LogFormat})
		notify = notifier.New(cfg.Channels.SlackBotToken, "#ops-alerts", cfg.Environment, obsLogger)
	}

	toolRegistry := agent.NewToolRegistry()
	toolRegistry.Register(calculator.New())
	toolRegistry.Register(websearch.NewWebSearchTool(&websearch.Config{
		DefaultBackend:     websearch.BackendDuckDuckGo,
		ExtractContent:     true,
		DefaultResultCount: 5,
	}))
	toolRegistry.Register(websearch.NewWebFetchTool(&websearch.FetchConfig{MaxChars: 8000}))

	mcpMgr := mcp.NewManager(&mcp.Config{Enabled: false}, logger)

	graph := agentgraph.New(llmProvider, embedder, store, cstore, cstore, toolRegistry, cfg.Environment, logger)

	var underlyingSessions sessions.Store
	if cfg.Sessions.StorePath != "" {
		sqliteStore, err := sessions.NewSQLiteStore(cfg.Sessions.StorePath)
		if err != nil {
			return nil, fmt.Errorf("open sessions store: %w", err)
		}
		if cfg.Database.URL != "" {
			// Replicas sharing the relational store lease session writes
			// through it, so two nodes handed the same session by a load
			// balancer can't interleave turns.
			dbLocker, err := sessions.NewDBLocker(db, sessions.DBLockerConfig{OwnerID: uuid.NewString()})
			if err != nil {
				return nil, fmt.Errorf("build session locker: %w", err)
			}
			sqliteStore.UseLocker(dbLocker)
		}
		underlyingSessions = sqliteStore
	} else {
		underlyingSessions = sessions.NewMemoryStore()
	}
	sessionStore := sessions.NewOwnedStore(underlyingSessions)
	chatSvc := chat.NewService(sessionStore, graph, cfg.Sessions.HistoryMessageCap, cfg.Sessions.HistoryTokenCap)

	anonymizer := pii.New(cfg.PII.Enabled, cfg.PII.DefaultStrategy, cfg.PII.RedactionPlaceholder, cfg.PII.MinConfidenceScore)
	textChunker := chunker.NewRecursiveCharacterTextSplitter(chunker.DefaultConfig())
	coordinator := ingest.New(store, anonymizer, textChunker, embedder, ingest.Config{QueueDepth: cfg.Ingest.QueueDepth}, logger)

	channelRegistry := channels.NewRegistry()

	var retention *cron.Cron
	if sqliteStore, ok := underlyingSessions.(*sessions.SQLiteStore); ok && cfg.Sessions.RetentionDays > 0 {
		retention = cron.New()
		days := cfg.Sessions.RetentionDays
		_, err := retention.AddFunc("0 3 * * *", func() {
			cutoff := time.Now().UTC().AddDate(0, 0, -days)
			n, err := sqliteStore.PruneOlderThan(context.Background(), cutoff)
			if err != nil {
				logger.Error("session retention sweep failed", "error", err)
				return
			}
			logger.Info("session retention sweep complete", "pruned", n, "cutoff", cutoff)
		})
		if err != nil {
			return nil, fmt.Errorf("schedule session retention sweep: %w", err)
		}
		retention.Start()
	}

	cp := &controlplane.Service{
		Config:   cstore,
		Tools:    toolRegistry,
		MCP:      mcpMgr,
		Docs:     store,
		Channels: channelRegistry,
		Audit:    auditLogger,
		Env:      cfg.Environment,
		LLMs:     []agent.LLMProvider{llmProvider},
	}

	return &app{
		cfg:          cfg,
		db:           db,
		store:        store,
		cstore:       cstore,
		llm:          llmProvider,
		embedder:     embedder,
		tools:        toolRegistry,
		mcpMgr:       mcpMgr,
		graph:        graph,
		sessions:     sessionStore,
		chat:         chatSvc,
		auditLogger:  auditLogger,
		notifier:     notify,
		channels:     channelRegistry,
		coordinator:  coordinator,
		controlPlane: cp,
		retention:    retention,
		logger:       logger,
	}, nil
}

func (a *app) Close() {
	if a.retention != nil {
		<-a.retention.Stop().Done()
	}
	if a.coordinator != nil {
		a.coordinator.Shutdown()
	}
	if a.mcpMgr != nil {
		_ = a.mcpMgr.Stop()
	}
	if a.auditLogger != nil {
		_ = a.auditLogger.Close()
	}
	if a.store != nil {
		_ = a.store.Close()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
}

func buildLLMProvider(cfg *config.Config) (agent.LLMProvider, error) {
	switch {
	case cfg.LLM.AnthropicAPIKey != "":
		return providers.NewAnthropicProvider(providers.AnthropicConfig{APIKey: cfg.LLM.AnthropicAPIKey})
	case cfg.LLM.AzureAPIKey != "":
		return providers.NewAzureOpenAIProvider(providers.AzureOpenAIConfig{Endpoint: cfg.LLM.AzureEndpoint, APIKey: cfg.LLM.AzureAPIKey})
	case cfg.LLM.GoogleAPIKey != "":
		return providers.NewGoogleProvider(providers.GoogleConfig{APIKey: cfg.LLM.GoogleAPIKey})
	case cfg.LLM.OpenAIAPIKey != "":
		return providers.NewOpenAIProvider(cfg.LLM.OpenAIAPIKey), nil
	default:
		return nil, fmt.Errorf("no LLM provider credentials configured")
	}
}

func buildEmbedder(cfg *config.Config) (embeddings.Provider, error) {
	if cfg.LLM.OpenAIAPIKey == "" {
		return nil, fmt.Errorf("embedding provider requires an OpenAI API key")
	}
	return embopenai.New(embopenai.Config{
		APIKey: cfg.LLM.OpenAIAPIKey,
		Model:  cfg.LLM.EmbeddingModel,
	})
}

// telegramNotifierAdapter bridges the Error Notifier's Notify(ctx, err,
// reqCtx, stack) shape to the narrower NotifyFatal telegram's collector
// expects when its session fails authentication.
type telegramNotifierAdapter struct {
	notifier *notifier.Notifier
}

func (a *telegramNotifierAdapter) NotifyFatal(ctx context.Context, source ragmodels.Source, err error) error {
	if a.notifier == nil {
		return nil
	}
	a.notifier.Notify(ctx, err, notifier.RequestContext{Method: "telegram", Path: string(source)}, nil)
	return nil
}

// startCollectors connects every source for which credentials are present
// and registers them with reg, returning the aggregate inbound channel the
// caller should drain into the Ingestion Coordinator.
func startCollectors(ctx context.Context, cfg *config.Config, reg *channels.Registry, coordinator *ingest.Coordinator, notify *notifier.Notifier, logger *slog.Logger) error {
	sink := collectors.NewRateLimitedEnqueuer(coordinator, ratelimit.DefaultConfig())

	if cfg.Channels.SlackSigningSecret != "" && cfg.Channels.SlackBotToken != "" {
		api := goslack.New(cfg.Channels.SlackBotToken)
		c := slack.New(slack.Config{SigningSecret: cfg.Channels.SlackSigningSecret, Logger: logger}, api, sink)
		reg.Register(c)
	}

	if cfg.Channels.WhatsAppAppSecret != "" {
		c := whatsapp.New(whatsapp.Config{AppSecret: cfg.Channels.WhatsAppAppSecret, Logger: logger}, sink)
		reg.Register(c)
	}

	if cfg.Channels.TelegramSessionToken != "" {
		bot, err := tgbot.New(cfg.Channels.TelegramSessionToken)
		if err != nil {
			return fmt.Errorf("telegram: build bot client: %w", err)
		}
		c := telegram.New(telegram.Config{SessionToken: cfg.Channels.TelegramSessionToken, Logger: logger}, bot, sink, &telegramNotifierAdapter{notifier: notify})
		reg.Register(c)
	}

	reg.Register(adminupload.New(logger, sink))

	return reg.StartAll(ctx)
}
