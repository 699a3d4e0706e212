// Package agentgraph implements the Agent Graph (C9): the per-request
// pipeline that turns a chat query into a scored, possibly-escalated
// response. A single AgentState threads through eight straight-line node
// functions; the only concurrency inside a request is the tool-call
// fan-out in invokeTools, merged back by tool-call id, following the
// execution idiom in internal/agent/tool_registry.go.
package agentgraph

import (
	"time"

	"github.com/finqa/ragqa/pkg/models"
)

// QueryType classifies the analyse_query node's read of the user's intent.
type QueryType string

const (
	QueryDirectQuestion      QueryType = "direct_question"
	QueryCalculation         QueryType = "calculation"
	QueryMultiPart           QueryType = "multi_part"
	QueryClarificationNeeded QueryType = "clarification_needed"
)

// Strategy selects which branch route sends the state down.
type Strategy string

const (
	StrategyStandardRAG      Strategy = "standard_rag"
	StrategyInvokeTools      Strategy = "invoke_tools"
	StrategyDirectEscalation Strategy = "direct_escalation"
)

// Urgency is the analyser's read of how time-sensitive the query is.
type Urgency string

const (
	UrgencyHigh   Urgency = "high"
	UrgencyMedium Urgency = "medium"
	UrgencyLow    Urgency = "low"
)

// Analysis is the analyse_query node's structured read of the query.
type Analysis struct {
	QueryType QueryType `json:"query_type"`
	Strategy  Strategy  `json:"strategy"`
	Urgency   Urgency   `json:"urgency"`
	Topics    []string  `json:"topics"`
	Reasoning string    `json:"reasoning"`
}

// defaultAnalysis is the fallback used when the analyser's reply fails to
// parse as the expected JSON object.
func defaultAnalysis() Analysis {
	return Analysis{
		QueryType: QueryDirectQuestion,
		Strategy:  StrategyStandardRAG,
		Urgency:   UrgencyMedium,
		Topics:    []string{},
	}
}

// ContextChunk is a retrieved chunk carried through the graph alongside its
// retrieval score, ready to be formatted into context_text or a sources list.
type ContextChunk struct {
	Chunk *models.DocumentChunk
	Score float32
}

// FormulaBreakdown is populated by the Formula confidence method.
type FormulaBreakdown struct {
	SimilarityScore        float64               `json:"similarity_score"`
	SourceBoost            float64               `json:"source_boost"`
	LengthBoost            float64               `json:"length_boost"`
	HighQualitySourceCount int                   `json:"high_quality_source_count"`
	ResponseLength         int                   `json:"response_length"`
	Weights                models.FormulaWeights `json:"weights"`
}

// LLMBreakdown is populated by the LLM confidence method.
type LLMBreakdown struct {
	LLMProvider    string `json:"llm_provider"`
	LLMModel       string `json:"llm_model"`
	LLMRawResponse string `json:"llm_raw_response"`
	PromptVersion  *int   `json:"prompt_version,omitempty"`
	FallbackReason string `json:"fallback_reason,omitempty"`
}

// HybridBreakdown is populated by the Hybrid confidence method.
type HybridBreakdown struct {
	FormulaScore   float64           `json:"formula_score"`
	LLMScore       float64           `json:"llm_score"`
	FormulaWeight  float64           `json:"formula_weight"`
	LLMWeight      float64           `json:"llm_weight"`
	FormulaDetails *FormulaBreakdown `json:"formula_details,omitempty"`
	LLMDetails     *LLMBreakdown     `json:"llm_details,omitempty"`
	LLMUnavailable bool              `json:"llm_unavailable,omitempty"`
}

// ConfidenceBreakdown carries exactly one populated field, matching the
// AgentState.confidence_method that produced it.
type ConfidenceBreakdown struct {
	Formula *FormulaBreakdown `json:"formula,omitempty"`
	LLM     *LLMBreakdown     `json:"llm,omitempty"`
	Hybrid  *HybridBreakdown  `json:"hybrid,omitempty"`
}

// Source is one entry of the formatted response's sources list.
type Source struct {
	Content         string         `json:"content"`
	Source          models.Source  `json:"source"`
	Timestamp       *string        `json:"timestamp,omitempty"`
	Metadata        map[string]any `json:"metadata,omitempty"`
	SimilarityScore float32        `json:"similarity_score"`
}

// Output is the terminal payload format_output assembles.
type Output struct {
	Message             string                  `json:"message"`
	Confidence          float64                 `json:"confidence"`
	ConfidenceMethod    models.ConfidenceMethod `json:"confidence_method"`
	ConfidenceBreakdown ConfidenceBreakdown     `json:"confidence_breakdown"`
	Sources             []Source                `json:"sources"`
	Escalated           bool                    `json:"escalated"`
	EscalationReason    string                  `json:"escalation_reason,omitempty"`
	SessionID           string                  `json:"session_id"`
	ResponseTimeMs      int64                   `json:"response_time_ms"`
	TokensUsed          int                     `json:"tokens_used"`
}

// AgentState threads through every node of the graph. Nodes read and write
// it in place and return it to the next node; there is no hidden state.
type AgentState struct {
	Query     string
	SessionID string
	UserID    string

	ConversationHistory []*models.Message

	Analysis Analysis

	ToolCalls   []models.ToolCall
	ToolResults []models.ToolResult

	ContextChunks []ContextChunk
	ContextText   string

	Response string

	ConfidenceScore     float64
	ConfidenceMethod    models.ConfidenceMethod
	ConfidenceBreakdown ConfidenceBreakdown

	Escalated        bool
	EscalationReason string

	SourcesUsed []ContextChunk

	// PromptVersionsUsed maps prompt name to the version actually loaded,
	// for response provenance; nil entries mean the fallback was used.
	PromptVersionsUsed map[string]*int

	// InputTokens/OutputTokens accumulate usage across every LLM call made
	// during this request, surfaced as Output.TokensUsed.
	InputTokens  int
	OutputTokens int

	// GenerationFailed records that the generate node's streaming call
	// failed mid-flight, forcing escalation regardless of confidence.
	GenerationFailed bool

	// StartedAt anchors Output.ResponseTimeMs.
	StartedAt time.Time

	// Stream, when non-nil, receives each text delta the generate node
	// emits before the terminal event. Per-request rather than a Graph
	// field, since Graph is shared across concurrent requests. Nil for
	// non-streaming callers (e.g. POST /chat).
	Stream func(chunk string)
}

// NewState builds the initial AgentState for one chat request.
func NewState(query, sessionID, userID string, history []*models.Message) *AgentState {
	return &AgentState{
		Query:               query,
		SessionID:           sessionID,
		UserID:              userID,
		ConversationHistory: history,
		Analysis:            defaultAnalysis(),
		PromptVersionsUsed:  make(map[string]*int),
		StartedAt:           time.Now(),
	}
}
