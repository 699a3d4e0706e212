package agentgraph

import (
	"context"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/finqa/ragqa/internal/agent"
	"github.com/finqa/ragqa/pkg/models"
)

var validQueryTypes = map[QueryType]bool{
	QueryDirectQuestion:      true,
	QueryCalculation:         true,
	QueryMultiPart:           true,
	QueryClarificationNeeded: true,
}

var validStrategies = map[Strategy]bool{
	StrategyStandardRAG:      true,
	StrategyInvokeTools:      true,
	StrategyDirectEscalation: true,
}

var validUrgencies = map[Urgency]bool{
	UrgencyHigh:   true,
	UrgencyMedium: true,
	UrgencyLow:    true,
}

// analyseQuery calls the LLM with the query-analysis prompts and parses a
// strict JSON Analysis object from the reply, falling back to
// defaultAnalysis on any parse failure.
func (g *Graph) analyseQuery(ctx context.Context, state *AgentState, cfg *models.AgentConfig) {
	systemPrompt, sysVersion := g.Prompts.FormatPrompt(ctx, PromptQueryAnalysisSystem, models.PromptTypeAnalyzer, nil, queryAnalysisSystemDefault)
	recordPromptVersion(state, PromptQueryAnalysisSystem, sysVersion)

	userPrompt, userVersion := g.Prompts.FormatPrompt(ctx, PromptQueryAnalysisUser, models.PromptTypeUser, promptVars("query", state.Query), queryAnalysisUserDefault)
	recordPromptVersion(state, PromptQueryAnalysisUser, userVersion)

	reply, err := g.completeText(ctx, &agent.CompletionRequest{
		Model:       cfg.ModelSettings.Model,
		System:      systemPrompt,
		Messages:    []agent.CompletionMessage{{Role: "user", Content: userPrompt}},
		MaxTokens:   300,
		Temperature: minFloat(cfg.ModelSettings.Temperature, 0.2),
	}, state)
	if err != nil {
		g.Logger.Warn("analyse_query: LLM call failed, using default analysis", "error", err)
		state.Analysis = defaultAnalysis()
		return
	}

	analysis, ok := parseAnalysis(reply)
	if !ok {
		g.Logger.Warn("analyse_query: failed to parse analysis JSON, using default analysis")
		state.Analysis = defaultAnalysis()
		return
	}
	state.Analysis = analysis
}

func minFloat(a, b float64) float64 {
	if a <= 0 {
		return b
	}
	if a < b {
		return a
	}
	return b
}

// rawAnalysis mirrors the JSON shape the analyser prompt is instructed to
// produce.
type rawAnalysis struct {
	QueryType string   `json:"query_type"`
	Strategy  string   `json:"strategy"`
	Urgency   string   `json:"urgency"`
	Topics    []string `json:"topics"`
	Reasoning string   `json:"reasoning"`
}

var jsonObjectPattern = regexp.MustCompile(`\{[\s\S]*\}`)

// parseAnalysis extracts and validates the analyser's JSON object. Models
// sometimes wrap JSON in prose or code fences, so the first balanced-looking
// {...} span is extracted before unmarshalling.
func parseAnalysis(reply string) (Analysis, bool) {
	reply = strings.TrimSpace(reply)
	span := jsonObjectPattern.FindString(reply)
	if span == "" {
		return Analysis{}, false
	}

	var raw rawAnalysis
	if err := json.Unmarshal([]byte(span), &raw); err != nil {
		return Analysis{}, false
	}

	qt := QueryType(raw.QueryType)
	strat := Strategy(raw.Strategy)
	urg := Urgency(raw.Urgency)
	if !validQueryTypes[qt] || !validStrategies[strat] || !validUrgencies[urg] {
		return Analysis{}, false
	}

	topics := raw.Topics
	if topics == nil {
		topics = []string{}
	}
	return Analysis{
		QueryType: qt,
		Strategy:  strat,
		Urgency:   urg,
		Topics:    topics,
		Reasoning: raw.Reasoning,
	}, true
}
