// Package configstore implements the Configuration & Prompt Store: the
// active-singleton, versioned AgentConfig and Prompt records that both the
// ingestion and agent pipelines read on every request.
//
// Store outages must never break chat: every read falls back to a
// compiled-in default when the backing table is unreachable, and reads are
// cached for a short TTL so the hot path never blocks on the database.
package configstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/finqa/ragqa/pkg/models"
)

// defaultCacheTTL is the Store's read-cache lifetime; staleness is bounded at 5s.
const defaultCacheTTL = 5 * time.Second

// Store is the Configuration & Prompt Store. It is safe for concurrent use.
type Store struct {
	db  *sql.DB
	env string

	cache *ttlCache

	// writeMu serializes prompt activation and config updates so that the
	// "exactly one active row" invariant never has a window with zero or
	// two actives.
	writeMu sync.Mutex
}

// New builds a Store backed by db. env is the deployment environment used
// to key AgentConfig rows (e.g. "production", "staging").
func New(db *sql.DB, env string) *Store {
	return &Store{db: db, env: env, cache: newTTLCache(defaultCacheTTL)}
}

// GetActiveConfig returns the active AgentConfig for env, or the compiled-in
// default if the store is unreachable or no row exists yet.
func (s *Store) GetActiveConfig(ctx context.Context, env string) (*models.AgentConfig, error) {
	cacheKey := "config:" + env
	if v, ok := s.cache.get(cacheKey); ok {
		return v.(*models.AgentConfig), nil
	}

	cfg, err := s.loadActiveConfig(ctx, env)
	if err != nil {
		if s.db == nil {
			return models.DefaultAgentConfig(env), nil
		}
		return nil, err
	}
	s.cache.set(cacheKey, cfg)
	return cfg, nil
}

func (s *Store) loadActiveConfig(ctx context.Context, env string) (*models.AgentConfig, error) {
	if s.db == nil {
		return models.DefaultAgentConfig(env), nil
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, name, environment, version,
		       escalation_threshold, model_provider, model_name, model_temperature, model_max_tokens,
		       similarity_threshold, max_results, hybrid_search,
		       confidence_method, formula_sim_weight, formula_src_weight, formula_len_weight,
		       hybrid_formula_weight, hybrid_llm_weight,
		       confidence_llm_provider, confidence_llm_model, confidence_llm_temperature,
		       confidence_llm_max_tokens, confidence_llm_deadline_ms,
		       requests_per_minute, created_at, updated_at
		FROM agent_configs
		WHERE environment = $1 AND active = true
		LIMIT 1`, env)

	var (
		cfg        models.AgentConfig
		deadlineMs int64
	)
	cfg.Environment = env
	err := row.Scan(
		&cfg.ID, &cfg.Name, &cfg.Environment, &cfg.Version,
		&cfg.ConfidenceThresholds.Escalation,
		&cfg.ModelSettings.Provider, &cfg.ModelSettings.Model, &cfg.ModelSettings.Temperature, &cfg.ModelSettings.MaxTokens,
		&cfg.SearchSettings.SimilarityThreshold, &cfg.SearchSettings.MaxResults, &cfg.SearchSettings.HybridSearch,
		&cfg.ConfidenceCalculation.Method, &cfg.ConfidenceCalculation.FormulaWeights.Similarity,
		&cfg.ConfidenceCalculation.FormulaWeights.Source, &cfg.ConfidenceCalculation.FormulaWeights.Length,
		&cfg.ConfidenceCalculation.HybridWeights.Formula, &cfg.ConfidenceCalculation.HybridWeights.LLM,
		&cfg.ConfidenceCalculation.LLMProvider, &cfg.ConfidenceCalculation.LLMModel, &cfg.ConfidenceCalculation.LLMTemperature,
		&cfg.ConfidenceCalculation.LLMMaxTokens, &deadlineMs,
		&cfg.RateLimits.RequestsPerMinute, &cfg.CreatedAt, &cfg.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("configstore: load active config: %w", err)
	}
	cfg.Active = true
	cfg.ConfidenceCalculation.LLMDeadline = time.Duration(deadlineMs) * time.Millisecond
	return &cfg, nil
}

// ConfigPatch carries the subset of AgentConfig fields an UpdateConfig call
// wants to change; nil/zero-value fields are left untouched. A non-nil
// pointer field always replaces the corresponding value wholesale (e.g.
// FormulaWeights is replaced as a unit, never field-by-field).
type ConfigPatch struct {
	ConfidenceThresholds  *models.ConfidenceThresholds
	ModelSettings         *models.ModelSettings
	SearchSettings        *models.SearchSettings
	ConfidenceCalculation *models.ConfidenceCalculation
	RateLimits            *models.RateLimits
}

// acceptedProviders is the closed set of LLM providers AgentConfig.ModelSettings
// may name.
var acceptedProviders = map[string]bool{
	"openai": true, "anthropic": true, "azure": true, "google": true,
}

// UpdateConfig merges patch into the active config for env and writes a new
// version, atomically deactivating the prior one. It returns InvalidConfigError
// if the patch fails validation.
func (s *Store) UpdateConfig(ctx context.Context, env string, patch ConfigPatch) (*models.AgentConfig, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	current, err := s.loadActiveConfig(ctx, env)
	if err != nil && err != ErrNotFound {
		return nil, err
	}
	if current == nil {
		d := models.DefaultAgentConfig(env)
		current = d
	}

	next := *current
	if patch.ConfidenceThresholds != nil {
		next.ConfidenceThresholds = *patch.ConfidenceThresholds
	}
	if patch.ModelSettings != nil {
		next.ModelSettings = *patch.ModelSettings
	}
	if patch.SearchSettings != nil {
		next.SearchSettings = *patch.SearchSettings
	}
	if patch.ConfidenceCalculation != nil {
		next.ConfidenceCalculation = *patch.ConfidenceCalculation
	}
	if patch.RateLimits != nil {
		next.RateLimits = *patch.RateLimits
	}

	if err := validateConfig(&next); err != nil {
		return nil, err
	}

	next.ID = uuid.New().String()
	next.Version = current.Version + 1
	next.Active = true
	now := time.Now().UTC()
	next.CreatedAt = now
	next.UpdatedAt = now

	if s.db != nil {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return nil, fmt.Errorf("configstore: begin tx: %w", err)
		}
		defer tx.Rollback()

		if _, err := tx.ExecContext(ctx,
			`UPDATE agent_configs SET active = false WHERE environment = $1 AND active = true`, env); err != nil {
			return nil, fmt.Errorf("configstore: deactivate prior config: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO agent_configs (
				id, name, environment, version, active,
				escalation_threshold, model_provider, model_name, model_temperature, model_max_tokens,
				similarity_threshold, max_results, hybrid_search,
				confidence_method, formula_sim_weight, formula_src_weight, formula_len_weight,
				hybrid_formula_weight, hybrid_llm_weight,
				confidence_llm_provider, confidence_llm_model, confidence_llm_temperature,
				confidence_llm_max_tokens, confidence_llm_deadline_ms,
				requests_per_minute, created_at, updated_at
			) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24,$25,$26,$27)`,
			next.ID, next.Name, next.Environment, next.Version, next.Active,
			next.ConfidenceThresholds.Escalation, next.ModelSettings.Provider, next.ModelSettings.Model,
			next.ModelSettings.Temperature, next.ModelSettings.MaxTokens,
			next.SearchSettings.SimilarityThreshold, next.SearchSettings.MaxResults, next.SearchSettings.HybridSearch,
			next.ConfidenceCalculation.Method, next.ConfidenceCalculation.FormulaWeights.Similarity,
			next.ConfidenceCalculation.FormulaWeights.Source, next.ConfidenceCalculation.FormulaWeights.Length,
			next.ConfidenceCalculation.HybridWeights.Formula, next.ConfidenceCalculation.HybridWeights.LLM,
			next.ConfidenceCalculation.LLMProvider, next.ConfidenceCalculation.LLMModel, next.ConfidenceCalculation.LLMTemperature,
			next.ConfidenceCalculation.LLMMaxTokens, next.ConfidenceCalculation.LLMDeadline.Milliseconds(),
			next.RateLimits.RequestsPerMinute, next.CreatedAt, next.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("configstore: insert config version: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return nil, fmt.Errorf("configstore: commit config update: %w", err)
		}
	}

	s.cache.invalidate("config:" + env)
	return &next, nil
}

func validateConfig(c *models.AgentConfig) error {
	if c.ConfidenceThresholds.Escalation < 0 || c.ConfidenceThresholds.Escalation > 1 {
		return &InvalidConfigError{Reason: "confidence_thresholds.escalation must be in [0,1]"}
	}
	if c.ModelSettings.Temperature < 0 || c.ModelSettings.Temperature > 2 {
		return &InvalidConfigError{Reason: "model_settings.temperature must be in [0,2]"}
	}
	if c.ModelSettings.MaxTokens < 10 || c.ModelSettings.MaxTokens > 500 {
		return &InvalidConfigError{Reason: "model_settings.max_tokens must be in [10,500]"}
	}
	if !acceptedProviders[strings.ToLower(c.ModelSettings.Provider)] {
		return &InvalidConfigError{Reason: fmt.Sprintf("model_settings.provider %q is not accepted", c.ModelSettings.Provider)}
	}
	if !sumsToOne(c.ConfidenceCalculation.FormulaWeights.Similarity, c.ConfidenceCalculation.FormulaWeights.Source, c.ConfidenceCalculation.FormulaWeights.Length) {
		return &InvalidConfigError{Reason: "confidence_calculation.formula_weights must sum to 1.0"}
	}
	if !sumsToOne(c.ConfidenceCalculation.HybridWeights.Formula, c.ConfidenceCalculation.HybridWeights.LLM) {
		return &InvalidConfigError{Reason: "confidence_calculation.hybrid_weights must sum to 1.0"}
	}
	switch c.ConfidenceCalculation.Method {
	case models.ConfidenceFormula, models.ConfidenceLLM, models.ConfidenceHybrid:
	default:
		return &InvalidConfigError{Reason: fmt.Sprintf("confidence_calculation.method %q is unknown", c.ConfidenceCalculation.Method)}
	}
	if ms := c.ConfidenceCalculation.LLMDeadline.Milliseconds(); ms != 0 && (ms < 100 || ms > 10000) {
		return &InvalidConfigError{Reason: "confidence_calculation llm deadline must be in [100,10000]ms"}
	}
	return nil
}

func sumsToOne(weights ...float64) bool {
	var sum float64
	for _, w := range weights {
		sum += w
	}
	return sum >= 0.99 && sum <= 1.01
}
