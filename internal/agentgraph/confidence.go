package agentgraph

import (
	"context"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/finqa/ragqa/internal/agent"
	"github.com/finqa/ragqa/pkg/models"
)

// computeConfidence dispatches to the configured confidence method and
// populates ConfidenceScore, ConfidenceMethod, and ConfidenceBreakdown.
func (g *Graph) computeConfidence(ctx context.Context, state *AgentState, cfg *models.AgentConfig) {
	method := cfg.ConfidenceCalculation.Method
	state.ConfidenceMethod = method

	switch method {
	case models.ConfidenceLLM:
		score, breakdown, err := g.computeLLMConfidence(ctx, state, cfg)
		if err != nil {
			formulaScore, formulaBreakdown := computeFormulaConfidence(state, cfg)
			breakdown.FallbackReason = err.Error()
			state.ConfidenceScore = formulaScore
			state.ConfidenceMethod = models.ConfidenceLLM
			state.ConfidenceBreakdown = ConfidenceBreakdown{LLM: &breakdown}
			state.ConfidenceBreakdown.Formula = &formulaBreakdown
			return
		}
		state.ConfidenceScore = score
		state.ConfidenceBreakdown = ConfidenceBreakdown{LLM: &breakdown}

	case models.ConfidenceHybrid:
		formulaScore, formulaBreakdown := computeFormulaConfidence(state, cfg)
		llmScore, llmBreakdown, err := g.computeLLMConfidence(ctx, state, cfg)

		fw := cfg.ConfidenceCalculation.HybridWeights.Formula
		lw := cfg.ConfidenceCalculation.HybridWeights.LLM

		hybrid := HybridBreakdown{
			FormulaScore:   formulaScore,
			FormulaWeight:  fw,
			LLMWeight:      lw,
			FormulaDetails: &formulaBreakdown,
		}
		if err != nil {
			hybrid.LLMUnavailable = true
			state.ConfidenceScore = formulaScore
		} else {
			hybrid.LLMScore = llmScore
			hybrid.LLMDetails = &llmBreakdown
			state.ConfidenceScore = clamp01(fw*formulaScore + lw*llmScore)
		}
		state.ConfidenceBreakdown = ConfidenceBreakdown{Hybrid: &hybrid}

	default: // models.ConfidenceFormula and anything unrecognized
		score, breakdown := computeFormulaConfidence(state, cfg)
		state.ConfidenceScore = score
		state.ConfidenceMethod = models.ConfidenceFormula
		state.ConfidenceBreakdown = ConfidenceBreakdown{Formula: &breakdown}
	}
}

// computeFormulaConfidence implements the algorithmic confidence formula of
// as: weighted top-3 similarity, a source-count boost, and a
// response-length boost.
func computeFormulaConfidence(state *AgentState, cfg *models.AgentConfig) (float64, FormulaBreakdown) {
	weights := cfg.ConfidenceCalculation.FormulaWeights

	if len(state.ContextChunks) == 0 {
		return 0, FormulaBreakdown{Weights: weights}
	}

	sorted := make([]ContextChunk, len(state.ContextChunks))
	copy(sorted, state.ContextChunks)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Score > sorted[j].Score })

	simScore := weightedSimilarity(sorted)

	highQuality := 0
	for _, c := range sorted {
		if c.Score > 0.75 {
			highQuality++
		}
	}
	sourceBoost := sourceBoostFor(highQuality)

	respLen := len(state.Response)
	lengthBoost := lengthBoostFor(respLen)

	final := clamp01(weights.Similarity*simScore + weights.Source*sourceBoost + weights.Length*lengthBoost)

	return final, FormulaBreakdown{
		SimilarityScore:        simScore,
		SourceBoost:            sourceBoost,
		LengthBoost:            lengthBoost,
		HighQualitySourceCount: highQuality,
		ResponseLength:         respLen,
		Weights:                weights,
	}
}

func weightedSimilarity(sorted []ContextChunk) float64 {
	switch {
	case len(sorted) >= 3:
		return 0.6*float64(sorted[0].Score) + 0.3*float64(sorted[1].Score) + 0.1*float64(sorted[2].Score)
	case len(sorted) == 2:
		return 0.7*float64(sorted[0].Score) + 0.3*float64(sorted[1].Score)
	case len(sorted) == 1:
		return float64(sorted[0].Score)
	default:
		return 0
	}
}

func sourceBoostFor(highQualityCount int) float64 {
	switch {
	case highQualityCount >= 3:
		return 1.0
	case highQualityCount == 2:
		return 0.6
	case highQualityCount == 1:
		return 0.3
	default:
		return 0.0
	}
}

func lengthBoostFor(n int) float64 {
	switch {
	case n >= 200:
		return 1.0
	case n >= 100:
		return 0.5
	default:
		return 0.0
	}
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

const defaultConfidenceDeadline = 2000 * time.Millisecond

var decimalPattern = regexp.MustCompile(`0?\.\d+|1(?:\.0+)?|0`)

// computeLLMConfidence asks the LLM to self-score the response against the
// query and context, under a hard deadline. Any failure — timeout, a
// provider error, or an unparseable reply — is returned as an error so the
// caller can fall back to the Formula method.
func (g *Graph) computeLLMConfidence(ctx context.Context, state *AgentState, cfg *models.AgentConfig) (float64, LLMBreakdown, error) {
	deadline := cfg.ConfidenceCalculation.LLMDeadline
	if deadline <= 0 {
		deadline = defaultConfidenceDeadline
	}

	truncatedContext := truncate(state.ContextText, 1000)
	truncatedResponse := truncate(state.Response, 500)

	prompt, version := g.Prompts.FormatPrompt(ctx, PromptConfidenceEval, models.PromptTypeAnalyzer,
		promptVars("query", state.Query, "context", truncatedContext, "response", truncatedResponse),
		confidenceEvalDefault)
	recordPromptVersion(state, PromptConfidenceEval, version)

	breakdown := LLMBreakdown{
		LLMProvider:   cfg.ConfidenceCalculation.LLMProvider,
		LLMModel:      cfg.ConfidenceCalculation.LLMModel,
		PromptVersion: version,
	}

	callCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	reply, err := g.completeText(callCtx, &agent.CompletionRequest{
		Model:       cfg.ConfidenceCalculation.LLMModel,
		System:      "",
		Messages:    []agent.CompletionMessage{{Role: "user", Content: prompt}},
		MaxTokens:   cfg.ConfidenceCalculation.LLMMaxTokens,
		Temperature: cfg.ConfidenceCalculation.LLMTemperature,
	}, state)
	if err != nil {
		return 0, breakdown, err
	}

	breakdown.LLMRawResponse = reply

	score, ok := parseConfidenceScore(reply)
	if !ok {
		return 0, breakdown, errParseConfidence
	}
	return score, breakdown, nil
}

var errParseConfidence = confidenceParseError{}

type confidenceParseError struct{}

func (confidenceParseError) Error() string {
	return "could not parse a confidence score from the LLM reply"
}

// parseConfidenceScore first attempts a strict float parse of the
// whitespace-trimmed reply, then falls back to extracting the first
// decimal-shaped substring.
func parseConfidenceScore(reply string) (float64, bool) {
	trimmed := strings.TrimSpace(reply)
	if v, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return clamp01(v), true
	}

	match := decimalPattern.FindString(reply)
	if match == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, false
	}
	return clamp01(v), true
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
