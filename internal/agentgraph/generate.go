package agentgraph

import (
	"context"

	"github.com/finqa/ragqa/internal/agent"
	"github.com/finqa/ragqa/pkg/models"
)

// generate builds the final LLM call from the system prompt, conversation
// history, and retrieval (or tool-result) context, and streams the answer.
func (g *Graph) generate(ctx context.Context, state *AgentState, cfg *models.AgentConfig) {
	systemPrompt, sysVersion := g.Prompts.FormatPrompt(ctx, PromptMainSystem, models.PromptTypeSystem, nil, mainSystemDefault)
	recordPromptVersion(state, PromptMainSystem, sysVersion)

	contextText := state.ContextText
	if contextText == "" && len(state.ToolResults) > 0 {
		contextText = formatToolResultsAsContext(state.ToolResults)
	}

	userPrompt, ctxVersion := g.Prompts.FormatPrompt(ctx, PromptRetrievalContext, models.PromptTypeRetrieval, promptVars("context", contextText, "query", state.Query), retrievalContextDefault)
	recordPromptVersion(state, PromptRetrievalContext, ctxVersion)

	messages := make([]agent.CompletionMessage, 0, len(state.ConversationHistory)+1)
	for _, m := range state.ConversationHistory {
		if m.Role != models.RoleUser && m.Role != models.RoleAssistant {
			continue
		}
		messages = append(messages, agent.CompletionMessage{Role: string(m.Role), Content: m.Content})
	}
	messages = append(messages, agent.CompletionMessage{Role: "user", Content: userPrompt})

	reply, err := g.completeStreaming(ctx, &agent.CompletionRequest{
		Model:       cfg.ModelSettings.Model,
		System:      systemPrompt,
		Messages:    messages,
		MaxTokens:   cfg.ModelSettings.MaxTokens,
		Temperature: cfg.ModelSettings.Temperature,
	}, state)
	if err != nil {
		g.Logger.Warn("generate: LLM call failed", "error", err)
		state.GenerationFailed = true
		state.Response = reply
		return
	}
	state.Response = reply
}

func formatToolResultsAsContext(results []models.ToolResult) string {
	var out string
	for i, r := range results {
		if i > 0 {
			out += "\n\n"
		}
		label := "Tool result"
		if r.IsError {
			label = "Tool error"
		}
		out += label + ": " + r.Content
	}
	return out
}
