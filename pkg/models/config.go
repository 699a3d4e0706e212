package models

import "time"

// ConfidenceMethod selects how the compute_confidence node scores a response.
type ConfidenceMethod string

const (
	ConfidenceFormula ConfidenceMethod = "formula"
	ConfidenceLLM     ConfidenceMethod = "llm"
	ConfidenceHybrid  ConfidenceMethod = "hybrid"
)

// FormulaWeights weight the three formula confidence components; they must
// sum to 1.0 within a 0.01 tolerance.
type FormulaWeights struct {
	Similarity float64 `yaml:"similarity" json:"similarity"`
	Source     float64 `yaml:"source" json:"source"`
	Length     float64 `yaml:"length" json:"length"`
}

// HybridWeights weight the formula and LLM confidence scores; they must sum
// to 1.0 within a 0.01 tolerance.
type HybridWeights struct {
	Formula float64 `yaml:"formula" json:"formula"`
	LLM     float64 `yaml:"llm" json:"llm"`
}

// ConfidenceCalculation configures the compute_confidence node.
type ConfidenceCalculation struct {
	Method ConfidenceMethod `yaml:"method" json:"method"`

	FormulaWeights FormulaWeights `yaml:"formula_weights" json:"formula_weights"`
	HybridWeights  HybridWeights  `yaml:"hybrid_weights" json:"hybrid_weights"`

	// LLMProvider/LLMModel/LLMTemperature/LLMMaxTokens govern the "llm"
	// and "hybrid" confidence evaluation call.
	LLMProvider    string        `yaml:"llm_provider" json:"llm_provider"`
	LLMModel       string        `yaml:"llm_model" json:"llm_model"`
	LLMTemperature float64       `yaml:"llm_temperature" json:"llm_temperature"`
	LLMMaxTokens   int           `yaml:"llm_max_tokens" json:"llm_max_tokens"`
	LLMDeadline    time.Duration `yaml:"llm_deadline" json:"llm_deadline"`
}

// ConfidenceThresholds configures the decide node.
type ConfidenceThresholds struct {
	// Escalation is the minimum confidence_score below which the agent
	// escalates instead of answering. Range [0,1], default 0.95.
	Escalation float64 `yaml:"escalation" json:"escalation"`
}

// SearchSettings configures retrieve_context.
type SearchSettings struct {
	SimilarityThreshold float32 `yaml:"similarity_threshold" json:"similarity_threshold"`
	MaxResults          int     `yaml:"max_results" json:"max_results"`
	HybridSearch        bool    `yaml:"hybrid_search" json:"hybrid_search"`
}

// ModelSettings selects the LLM used for generation.
type ModelSettings struct {
	Provider    string  `yaml:"provider" json:"provider"`
	Model       string  `yaml:"model" json:"model"`
	Temperature float64 `yaml:"temperature" json:"temperature"`
	MaxTokens   int     `yaml:"max_tokens" json:"max_tokens"`
}

// RateLimits bounds per-user request rates at ingress.
type RateLimits struct {
	RequestsPerMinute int `yaml:"requests_per_minute" json:"requests_per_minute"`
}

// AgentConfig is the active singleton per (Name, Environment), versioned.
// Exactly one row per (Name, Environment) has Active=true.
type AgentConfig struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Environment string `json:"environment"`
	Version     int    `json:"version"`
	Active      bool   `json:"active"`

	ConfidenceThresholds  ConfidenceThresholds  `yaml:"confidence_thresholds" json:"confidence_thresholds"`
	ModelSettings         ModelSettings         `yaml:"model_settings" json:"model_settings"`
	SearchSettings        SearchSettings        `yaml:"search_settings" json:"search_settings"`
	ConfidenceCalculation ConfidenceCalculation `yaml:"confidence_calculation" json:"confidence_calculation"`
	RateLimits            RateLimits            `yaml:"rate_limits" json:"rate_limits"`
	FeatureFlags          map[string]bool       `yaml:"feature_flags" json:"feature_flags,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DefaultAgentConfig is the compiled-in fallback used whenever the
// Configuration & Prompt Store is unreachable.
func DefaultAgentConfig(env string) *AgentConfig {
	return &AgentConfig{
		Name:        "default",
		Environment: env,
		Version:     1,
		Active:      true,
		ConfidenceThresholds: ConfidenceThresholds{
			Escalation: 0.95,
		},
		ModelSettings: ModelSettings{
			Provider:    "openai",
			Model:       "gpt-4o-mini",
			Temperature: 0.2,
			MaxTokens:   500,
		},
		SearchSettings: SearchSettings{
			SimilarityThreshold: 0.7,
			MaxResults:          5,
			HybridSearch:        true,
		},
		ConfidenceCalculation: ConfidenceCalculation{
			Method: ConfidenceFormula,
			FormulaWeights: FormulaWeights{
				Similarity: 0.8,
				Source:     0.1,
				Length:     0.1,
			},
			HybridWeights: HybridWeights{
				Formula: 0.6,
				LLM:     0.4,
			},
			LLMDeadline: 2000 * time.Millisecond,
		},
		RateLimits: RateLimits{RequestsPerMinute: 60},
	}
}
