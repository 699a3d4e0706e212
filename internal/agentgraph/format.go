package agentgraph

import "time"

const sourceContentTruncateLen = 500

// formatOutput assembles the terminal response payload from AgentState.
func (g *Graph) formatOutput(state *AgentState) *Output {
	sources := make([]Source, 0, len(state.SourcesUsed))
	for _, c := range state.SourcesUsed {
		if c.Chunk == nil {
			continue
		}
		var metadata map[string]any
		if c.Chunk.Metadata.Extra != nil {
			metadata = c.Chunk.Metadata.Extra
		}
		sources = append(sources, Source{
			Content:         truncate(c.Chunk.Content, sourceContentTruncateLen),
			Source:          c.Chunk.Metadata.DocumentSource,
			Metadata:        metadata,
			SimilarityScore: c.Score,
		})
	}

	return &Output{
		Message:             state.Response,
		Confidence:          state.ConfidenceScore,
		ConfidenceMethod:    state.ConfidenceMethod,
		ConfidenceBreakdown: state.ConfidenceBreakdown,
		Sources:             sources,
		Escalated:           state.Escalated,
		EscalationReason:    state.EscalationReason,
		SessionID:           state.SessionID,
		ResponseTimeMs:      time.Since(state.StartedAt).Milliseconds(),
		TokensUsed:          state.InputTokens + state.OutputTokens,
	}
}
