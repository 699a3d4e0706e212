package agentgraph

import (
	"context"
	"strings"

	"github.com/finqa/ragqa/internal/agent"
)

// completeText drains a non-streaming LLM call to a single string, folding
// token usage from the terminal chunk into state. It never forwards deltas
// to state.Stream — only the generate node's user-visible call does that.
func (g *Graph) completeText(ctx context.Context, req *agent.CompletionRequest, state *AgentState) (string, error) {
	chunks, err := g.LLM.Complete(ctx, req)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for chunk := range chunks {
		if chunk.Error != nil {
			return sb.String(), chunk.Error
		}
		if chunk.Text != "" {
			sb.WriteString(chunk.Text)
		}
		if chunk.Done {
			state.InputTokens += chunk.InputTokens
			state.OutputTokens += chunk.OutputTokens
		}
	}
	return sb.String(), nil
}

// completeStreaming drains an LLM call the same way as completeText, but
// forwards every text delta to state.Stream as it arrives, for the
// generate node's user-visible response.
func (g *Graph) completeStreaming(ctx context.Context, req *agent.CompletionRequest, state *AgentState) (string, error) {
	chunks, err := g.LLM.Complete(ctx, req)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for chunk := range chunks {
		if chunk.Error != nil {
			return sb.String(), chunk.Error
		}
		if chunk.Text != "" {
			sb.WriteString(chunk.Text)
			if state.Stream != nil {
				state.Stream(chunk.Text)
			}
		}
		if chunk.Done {
			state.InputTokens += chunk.InputTokens
			state.OutputTokens += chunk.OutputTokens
		}
	}
	return sb.String(), nil
}
