package agentgraph

import (
	"context"
	"sync"
	"time"

	"github.com/finqa/ragqa/internal/agent"
	"github.com/finqa/ragqa/pkg/models"
)

// toolCallTimeout bounds a single tool invocation; a tool that exceeds it
// fails with a ToolError captured into tool_results without aborting the
// graph.
const toolCallTimeout = 15 * time.Second

// invokeTools asks the LLM which tools to call for the current query, then
// executes every requested tool call concurrently (each under its own
// timeout), merging results by tool-call id. A tool failure never aborts
// the graph — it becomes an error ToolResult that generate sees as context.
func (g *Graph) invokeTools(ctx context.Context, state *AgentState, cfg *models.AgentConfig) {
	systemPrompt, version := g.Prompts.FormatPrompt(ctx, PromptMainSystem, models.PromptTypeSystem, nil, mainSystemDefault)
	recordPromptVersion(state, PromptMainSystem, version)

	tools := g.Tools.AsLLMTools()
	calls, err := g.requestToolCalls(ctx, state, cfg, systemPrompt, tools)
	if err != nil {
		g.Logger.Warn("invoke_tools: LLM tool-selection call failed", "error", err)
		return
	}
	if len(calls) == 0 {
		return
	}

	state.ToolCalls = append(state.ToolCalls, calls...)
	state.ToolResults = append(state.ToolResults, g.executeToolCalls(ctx, calls)...)
}

// requestToolCalls drains one LLM call looking only for ToolCall chunks;
// any accompanying text is discarded (it precedes tool use, not the final
// answer, which generate produces afterward).
func (g *Graph) requestToolCalls(ctx context.Context, state *AgentState, cfg *models.AgentConfig, systemPrompt string, tools []agent.Tool) ([]models.ToolCall, error) {
	chunks, err := g.LLM.Complete(ctx, &agent.CompletionRequest{
		Model:       cfg.ModelSettings.Model,
		System:      systemPrompt,
		Messages:    []agent.CompletionMessage{{Role: "user", Content: state.Query}},
		Tools:       tools,
		MaxTokens:   cfg.ModelSettings.MaxTokens,
		Temperature: cfg.ModelSettings.Temperature,
	})
	if err != nil {
		return nil, err
	}

	var calls []models.ToolCall
	for chunk := range chunks {
		if chunk.Error != nil {
			return calls, chunk.Error
		}
		if chunk.ToolCall != nil {
			calls = append(calls, *chunk.ToolCall)
		}
		if chunk.Done {
			state.InputTokens += chunk.InputTokens
			state.OutputTokens += chunk.OutputTokens
		}
	}
	return calls, nil
}

// executeToolCalls runs every call concurrently and returns results in the
// same order calls were requested, regardless of completion order.
func (g *Graph) executeToolCalls(ctx context.Context, calls []models.ToolCall) []models.ToolResult {
	results := make([]models.ToolResult, len(calls))
	var wg sync.WaitGroup
	for i, call := range calls {
		wg.Add(1)
		go func(i int, call models.ToolCall) {
			defer wg.Done()
			results[i] = g.executeOneToolCall(ctx, call)
		}(i, call)
	}
	wg.Wait()
	return results
}

func (g *Graph) executeOneToolCall(ctx context.Context, call models.ToolCall) models.ToolResult {
	callCtx, cancel := context.WithTimeout(ctx, toolCallTimeout)
	defer cancel()

	result, err := g.Tools.Execute(callCtx, call.Name, call.Input)
	if err != nil {
		return models.ToolResult{ToolCallID: call.ID, Content: err.Error(), IsError: true}
	}
	if result == nil {
		return models.ToolResult{ToolCallID: call.ID, Content: "tool returned no result", IsError: true}
	}
	return models.ToolResult{
		ToolCallID: call.ID,
		Content:    result.Content,
		IsError:    result.IsError,
	}
}
