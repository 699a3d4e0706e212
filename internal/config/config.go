// Package config loads process-wide configuration for the agent: server
// ports, datastore URLs, provider credentials, and the ambient knobs that
// are not themselves part of the versioned Configuration & Prompt Store
// (see internal/configstore for that).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root process configuration, loaded from a YAML file and
// overlaid with environment variables.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Database      DatabaseConfig      `yaml:"database"`
	Auth          AuthConfig          `yaml:"auth"`
	LLM           LLMConfig           `yaml:"llm"`
	PII           PIIConfig           `yaml:"pii"`
	Sessions      SessionsConfig      `yaml:"sessions"`
	Channels      ChannelsConfig      `yaml:"channels"`
	Ingest        IngestConfig        `yaml:"ingest"`
	Observability ObservabilityConfig `yaml:"observability"`

	Environment string `yaml:"environment"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	MetricsPort int    `yaml:"metrics_port"`
}

// DatabaseConfig points at the relational+vector store.
type DatabaseConfig struct {
	URL             string        `yaml:"url"`
	MaxConnections  int           `yaml:"max_connections"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// AuthConfig configures bearer-token verification against the external
// identity provider.
type AuthConfig struct {
	JWTSecret   string        `yaml:"jwt_secret"`
	TokenExpiry time.Duration `yaml:"token_expiry"`
}

// LLMConfig configures the embedding/chat provider clients.
type LLMConfig struct {
	OpenAIAPIKey    string `yaml:"openai_api_key"`
	AnthropicAPIKey string `yaml:"anthropic_api_key"`
	AzureAPIKey     string `yaml:"azure_api_key"`
	AzureEndpoint   string `yaml:"azure_endpoint"`
	GoogleAPIKey    string `yaml:"google_api_key"`

	EmbeddingProvider  string `yaml:"embedding_provider"`
	EmbeddingModel     string `yaml:"embedding_model"`
	EmbeddingDimension int    `yaml:"embedding_dimension"`
}

// PIIConfig configures the default anonymization behaviour; per-call
// requests may still override strategy and minimum score.
type PIIConfig struct {
	Enabled              bool    `yaml:"pii_anonymization_enabled"`
	DefaultStrategy      string  `yaml:"pii_default_strategy"`
	RedactionPlaceholder string  `yaml:"pii_redaction_placeholder"`
	MinConfidenceScore   float64 `yaml:"pii_min_confidence_score"`
}

// SessionsConfig controls conversation-history windowing defaults.
type SessionsConfig struct {
	HistoryMessageCap int `yaml:"history_message_cap"`
	HistoryTokenCap   int `yaml:"history_token_cap"`
	RetentionDays     int `yaml:"retention_days"`

	// StorePath, if set, backs the Session Store with a SQLite file at this
	// path instead of the in-memory store. Empty means in-memory (the
	// default for local runs and tests).
	StorePath string `yaml:"store_path"`
}

// ChannelsConfig carries per-platform credentials and signing secrets.
type ChannelsConfig struct {
	SlackSigningSecret string `yaml:"slack_signing_secret"`
	SlackBotToken      string `yaml:"slack_bot_token"`

	WhatsAppAppSecret   string `yaml:"whatsapp_app_secret"`
	WhatsAppAccessToken string `yaml:"whatsapp_access_token"`

	TelegramSessionToken string `yaml:"telegram_session_token"`
}

// IngestConfig bounds the Ingestion Coordinator's worker pools.
type IngestConfig struct {
	WorkersPerSource int `yaml:"workers_per_source"`
	QueueDepth       int `yaml:"queue_depth"`
}

// ObservabilityConfig controls logging verbosity and redaction.
type ObservabilityConfig struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// Default returns the compiled-in configuration defaults used before any
// file or environment overlay is applied.
func Default() *Config {
	return &Config{
		Environment: "production",
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8080,
			MetricsPort: 9090,
		},
		Database: DatabaseConfig{
			MaxConnections:  10,
			ConnMaxLifetime: 30 * time.Minute,
		},
		Auth: AuthConfig{
			TokenExpiry: 24 * time.Hour,
		},
		LLM: LLMConfig{
			EmbeddingProvider:  "openai",
			EmbeddingModel:     "text-embedding-3-small",
			EmbeddingDimension: 1536,
		},
		PII: PIIConfig{
			Enabled:              true,
			DefaultStrategy:      "mask",
			RedactionPlaceholder: "[REDACTED]",
			MinConfidenceScore:   0.6,
		},
		Sessions: SessionsConfig{
			HistoryMessageCap: 20,
			HistoryTokenCap:   4000,
			RetentionDays:     90,
		},
		Ingest: IngestConfig{
			WorkersPerSource: 4,
			QueueDepth:       256,
		},
		Observability: ObservabilityConfig{
			LogLevel:  "info",
			LogFormat: "text",
		},
	}
}

// Load reads a YAML config file, if present, and overlays environment
// variables, then validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("config: read %s: %w", path, err)
			}
		} else if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	applyEnvOverlay(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges and required fields that would otherwise fail
// obscurely deep in a provider client or SQL driver.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("config: server.port must be positive")
	}
	if c.Database.URL == "" {
		return fmt.Errorf("config: database.url is required")
	}
	if c.LLM.EmbeddingDimension <= 0 {
		return fmt.Errorf("config: llm.embedding_dimension must be positive")
	}
	switch strings.ToLower(c.PII.DefaultStrategy) {
	case "redact", "replace", "mask", "hash", "keep":
	default:
		return fmt.Errorf("config: pii.pii_default_strategy %q is not a recognised strategy", c.PII.DefaultStrategy)
	}
	return nil
}

func applyEnvOverlay(cfg *Config) {
	str(&cfg.Environment, "RAGQA_ENVIRONMENT")
	str(&cfg.Server.Host, "RAGQA_SERVER_HOST")
	intVar(&cfg.Server.Port, "RAGQA_SERVER_PORT")
	intVar(&cfg.Server.MetricsPort, "RAGQA_METRICS_PORT")
	str(&cfg.Database.URL, "RAGQA_DATABASE_URL")
	str(&cfg.Auth.JWTSecret, "RAGQA_JWT_SECRET")
	str(&cfg.LLM.OpenAIAPIKey, "OPENAI_API_KEY")
	str(&cfg.LLM.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	str(&cfg.LLM.AzureAPIKey, "AZURE_OPENAI_API_KEY")
	str(&cfg.LLM.AzureEndpoint, "AZURE_OPENAI_ENDPOINT")
	str(&cfg.LLM.GoogleAPIKey, "GOOGLE_API_KEY")
	str(&cfg.Channels.SlackSigningSecret, "SLACK_SIGNING_SECRET")
	str(&cfg.Channels.SlackBotToken, "SLACK_BOT_TOKEN")
	str(&cfg.Channels.WhatsAppAppSecret, "WHATSAPP_APP_SECRET")
	str(&cfg.Channels.WhatsAppAccessToken, "WHATSAPP_ACCESS_TOKEN")
	str(&cfg.Channels.TelegramSessionToken, "TELEGRAM_SESSION_TOKEN")
	boolVar(&cfg.PII.Enabled, "RAGQA_PII_ENABLED")
	str(&cfg.PII.DefaultStrategy, "RAGQA_PII_DEFAULT_STRATEGY")
	str(&cfg.Sessions.StorePath, "RAGQA_SESSIONS_STORE_PATH")
}

func str(dst *string, env string) {
	if v, ok := os.LookupEnv(env); ok && v != "" {
		*dst = v
	}
}

func intVar(dst *int, env string) {
	if v, ok := os.LookupEnv(env); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func boolVar(dst *bool, env string) {
	if v, ok := os.LookupEnv(env); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}
