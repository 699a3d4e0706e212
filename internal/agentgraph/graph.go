package agentgraph

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/finqa/ragqa/internal/agent"
	"github.com/finqa/ragqa/internal/memory/embeddings"
	"github.com/finqa/ragqa/internal/vectorstore"
	"github.com/finqa/ragqa/pkg/models"
)

// PromptFormatter is the subset of configstore.Store the graph depends on.
// Declared locally so tests can supply a fake without a database.
type PromptFormatter interface {
	FormatPrompt(ctx context.Context, name string, promptType models.PromptType, vars map[string]string, fallback string) (string, *int)
}

// ConfigProvider is the subset of configstore.Store the graph depends on
// for the active AgentConfig.
type ConfigProvider interface {
	GetActiveConfig(ctx context.Context, env string) (*models.AgentConfig, error)
}

// ToolExecutor is the subset of agent.ToolRegistry the graph depends on.
type ToolExecutor interface {
	Execute(ctx context.Context, name string, params json.RawMessage) (*agent.ToolResult, error)
	AsLLMTools() []agent.Tool
}

// Graph holds every external collaborator an Agent Graph run needs. It is
// stateless between requests; each Run call threads its own AgentState.
type Graph struct {
	LLM      agent.LLMProvider
	Embedder embeddings.Provider
	Store    vectorstore.DocumentStore
	Prompts  PromptFormatter
	Config   ConfigProvider
	Tools    ToolExecutor
	Env      string
	Logger   *slog.Logger
}

// New builds a Graph. logger may be nil, in which case slog.Default() is used.
func New(llm agent.LLMProvider, embedder embeddings.Provider, store vectorstore.DocumentStore, prompts PromptFormatter, config ConfigProvider, tools ToolExecutor, env string, logger *slog.Logger) *Graph {
	if logger == nil {
		logger = slog.Default()
	}
	return &Graph{
		LLM:      llm,
		Embedder: embedder,
		Store:    store,
		Prompts:  prompts,
		Config:   config,
		Tools:    tools,
		Env:      env,
		Logger:   logger.With("component", "agentgraph"),
	}
}

// Run executes the full graph for one chat request and returns the
// assembled Output. It never panics on a downstream failure: every node is
// built to degrade (fallback formula confidence, escalation, empty tool
// results) rather than abort the request, except for a cancelled context,
// which propagates immediately.
func (g *Graph) Run(ctx context.Context, state *AgentState) (*Output, error) {
	cfg, err := g.Config.GetActiveConfig(ctx, g.Env)
	if err != nil || cfg == nil {
		cfg = models.DefaultAgentConfig(g.Env)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	g.analyseQuery(ctx, state, cfg)
	g.route(state)

	switch state.Analysis.Strategy {
	case StrategyDirectEscalation:
		state.Escalated = true
		state.EscalationReason = "too complex for agent"
		state.Response = g.escalationMessage(ctx, state)
	case StrategyInvokeTools:
		g.invokeTools(ctx, state, cfg)
		g.generate(ctx, state, cfg)
	default:
		g.retrieveContext(ctx, state, cfg)
		g.generate(ctx, state, cfg)
	}

	if state.Analysis.Strategy != StrategyDirectEscalation {
		g.computeConfidence(ctx, state, cfg)
		g.decide(ctx, state, cfg)
	}

	return g.formatOutput(state), nil
}
