package agentgraph

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/finqa/ragqa/internal/agent"
	"github.com/finqa/ragqa/pkg/models"
)

func chunkWithScore(score float32) ContextChunk {
	return ContextChunk{
		Chunk: &models.DocumentChunk{Content: "chunk content", Metadata: models.ChunkMetadata{DocumentSource: models.SourceSlack}},
		Score: score,
	}
}

func TestFormulaConfidenceHighQualityRetrieval(t *testing.T) {
	cfg := models.DefaultAgentConfig("test")
	cfg.ConfidenceCalculation.FormulaWeights = models.FormulaWeights{Similarity: 0.80, Source: 0.10, Length: 0.10}
	cfg.ConfidenceThresholds.Escalation = 0.95

	state := &AgentState{
		ContextChunks: []ContextChunk{chunkWithScore(0.92), chunkWithScore(0.85), chunkWithScore(0.78)},
		Response:      stringOfLen(260),
	}

	score, breakdown := computeFormulaConfidence(state, cfg)

	if !almostEqual(breakdown.SimilarityScore, 0.885) {
		t.Fatalf("similarity_score = %v, want 0.885", breakdown.SimilarityScore)
	}
	if breakdown.SourceBoost != 1.0 {
		t.Fatalf("source_boost = %v, want 1.0", breakdown.SourceBoost)
	}
	if breakdown.LengthBoost != 1.0 {
		t.Fatalf("length_boost = %v, want 1.0", breakdown.LengthBoost)
	}
	if !almostEqual(score, 0.908) {
		t.Fatalf("final confidence = %v, want 0.908", score)
	}

	state.ConfidenceScore = score
	g := &Graph{Logger: slog.Default()}
	ctx := context.Background()
	g.decide(ctx, state, cfg)

	if !state.Escalated {
		t.Fatalf("expected escalation at confidence %v below threshold %v", score, cfg.ConfidenceThresholds.Escalation)
	}
}

func TestFormulaConfidenceEmptyRetrieval(t *testing.T) {
	cfg := models.DefaultAgentConfig("test")
	state := &AgentState{Response: "any response text"}

	score, _ := computeFormulaConfidence(state, cfg)
	if score != 0 {
		t.Fatalf("expected confidence 0 for empty retrieval, got %v", score)
	}

	state.ConfidenceScore = score
	g := &Graph{Logger: slog.Default()}
	g.decide(context.Background(), state, cfg)
	if !state.Escalated {
		t.Fatalf("expected escalation when confidence is 0")
	}
	if len(state.SourcesUsed) != 0 {
		t.Fatalf("expected no sources for empty retrieval")
	}
}

// timeoutPrompts always returns the fallback, simulating a Prompt Store
// that has nothing active (exercises the never-raise FormatPrompt contract).
type fakePrompts struct{}

func (fakePrompts) FormatPrompt(ctx context.Context, name string, promptType models.PromptType, vars map[string]string, fallback string) (string, *int) {
	return fallback, nil
}

// slowLLM never responds before the caller's context is cancelled,
// simulating an LLM call that exceeds its deadline.
type slowLLM struct{}

func (slowLLM) Complete(ctx context.Context, req *agent.CompletionRequest) (<-chan *agent.CompletionChunk, error) {
	ch := make(chan *agent.CompletionChunk)
	go func() {
		defer close(ch)
		<-ctx.Done()
	}()
	return ch, nil
}
func (slowLLM) Name() string          { return "slow" }
func (slowLLM) Models() []agent.Model { return nil }
func (slowLLM) SupportsTools() bool   { return false }

func TestHybridConfidenceFallsBackOnLLMTimeout(t *testing.T) {
	cfg := models.DefaultAgentConfig("test")
	cfg.ConfidenceCalculation.Method = models.ConfidenceHybrid
	cfg.ConfidenceCalculation.HybridWeights = models.HybridWeights{Formula: 0.6, LLM: 0.4}
	cfg.ConfidenceCalculation.LLMDeadline = 20 * time.Millisecond
	cfg.ConfidenceCalculation.FormulaWeights = models.FormulaWeights{Similarity: 1.0, Source: 0, Length: 0}

	state := &AgentState{
		ContextChunks: []ContextChunk{chunkWithScore(0.7)},
		Response:      "a response",
	}

	g := &Graph{LLM: slowLLM{}, Prompts: fakePrompts{}, Logger: slog.Default()}
	g.computeConfidence(context.Background(), state, cfg)

	if !almostEqual(state.ConfidenceScore, 0.7) {
		t.Fatalf("expected formula-only score 0.7 on LLM timeout, got %v", state.ConfidenceScore)
	}
	if state.ConfidenceMethod != models.ConfidenceHybrid {
		t.Fatalf("expected confidence_method to remain hybrid, got %v", state.ConfidenceMethod)
	}
	if state.ConfidenceBreakdown.Hybrid == nil || !state.ConfidenceBreakdown.Hybrid.LLMUnavailable {
		t.Fatalf("expected breakdown.llm_unavailable=true, got %+v", state.ConfidenceBreakdown.Hybrid)
	}
}

func almostEqual(a, b float64) bool {
	diff := a - b
	if diff < 0 {
		diff = -diff
	}
	return diff < 1e-9
}

func stringOfLen(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = 'x'
	}
	return string(b)
}
