package controlplane

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/finqa/ragqa/internal/agent"
	"github.com/finqa/ragqa/internal/audit"
)

type stubTool struct {
	name string
}

func (s *stubTool) Name() string            { return s.name }
func (s *stubTool) Description() string     { return "stub" }
func (s *stubTool) Schema() json.RawMessage { return json.RawMessage(`{"type":"object"}`) }
func (s *stubTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	return &agent.ToolResult{Content: "ok"}, nil
}

func newTestService(t *testing.T) (*Service, *agent.ToolRegistry) {
	t.Helper()
	registry := agent.NewToolRegistry()
	registry.Register(&stubTool{name: "fee_calculator"})
	registry.Register(&stubTool{name: "ledger_lookup"})

	auditLogger, err := audit.NewLogger(audit.Config{Enabled: false})
	if err != nil {
		t.Fatalf("audit.NewLogger: %v", err)
	}
	return &Service{Tools: registry, Audit: auditLogger}, registry
}

func TestSetToolEnabledHidesDisabledTools(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if err := svc.SetToolEnabled(ctx, "admin-1", "fee_calculator", false); err != nil {
		t.Fatalf("SetToolEnabled: %v", err)
	}

	tools, err := svc.ListTools(ctx)
	if err != nil {
		t.Fatalf("ListTools: %v", err)
	}
	if len(tools) != 1 {
		t.Fatalf("visible tools = %d, want 1", len(tools))
	}
	if tools[0].Name != "ledger_lookup" {
		t.Errorf("remaining tool = %q, want ledger_lookup", tools[0].Name)
	}

	if err := svc.SetToolEnabled(ctx, "admin-1", "fee_calculator", true); err != nil {
		t.Fatalf("re-enable: %v", err)
	}
	tools, err = svc.ListTools(ctx)
	if err != nil {
		t.Fatalf("ListTools: %v", err)
	}
	if len(tools) != 2 {
		t.Errorf("visible tools after re-enable = %d, want 2", len(tools))
	}
}

func TestSetToolEnabledUnknownTool(t *testing.T) {
	svc, _ := newTestService(t)

	if err := svc.SetToolEnabled(context.Background(), "admin-1", "no_such_tool", false); err == nil {
		t.Fatal("expected error for unknown tool")
	}
}

func TestNilCollaboratorsReturnErrors(t *testing.T) {
	svc := &Service{}
	ctx := context.Background()

	if _, err := svc.GetConfig(ctx); err == nil {
		t.Error("GetConfig on nil config store should error")
	}
	if _, err := svc.ListTools(ctx); err == nil {
		t.Error("ListTools on nil registry should error")
	}
	if _, err := svc.ListMCPServers(ctx); err == nil {
		t.Error("ListMCPServers on nil manager should error")
	}
	if _, _, err := svc.ListDocuments(ctx, nil); err == nil {
		t.Error("ListDocuments on nil store should error")
	}
	if _, err := svc.SourceStatuses(ctx); err == nil {
		t.Error("SourceStatuses on nil registry should error")
	}
	if err := svc.RefreshMCPTools(ctx, "admin-1"); err == nil {
		t.Error("RefreshMCPTools on nil manager should error")
	}
}

type stubProvider struct {
	name   string
	models []agent.Model
}

func (s *stubProvider) Complete(ctx context.Context, req *agent.CompletionRequest) (<-chan *agent.CompletionChunk, error) {
	ch := make(chan *agent.CompletionChunk)
	close(ch)
	return ch, nil
}
func (s *stubProvider) Name() string          { return s.name }
func (s *stubProvider) Models() []agent.Model { return s.models }
func (s *stubProvider) SupportsTools() bool   { return false }

func TestListModelsFiltersByProvider(t *testing.T) {
	svc := &Service{LLMs: []agent.LLMProvider{
		&stubProvider{name: "openai", models: []agent.Model{{ID: "gpt-4o", Name: "GPT-4o"}}},
		&stubProvider{name: "anthropic", models: []agent.Model{{ID: "claude-sonnet-4-20250514", Name: "Claude Sonnet 4"}}},
	}}

	catalog, err := svc.ListModels(context.Background(), "")
	if err != nil {
		t.Fatalf("ListModels: %v", err)
	}
	if len(catalog) != 2 {
		t.Errorf("providers = %d, want 2", len(catalog))
	}

	catalog, err = svc.ListModels(context.Background(), "anthropic")
	if err != nil {
		t.Fatalf("ListModels filtered: %v", err)
	}
	if len(catalog) != 1 || len(catalog["anthropic"]) != 1 {
		t.Errorf("filtered catalog = %+v, want anthropic only", catalog)
	}

	catalog, err = svc.ListModels(context.Background(), "no-such-provider")
	if err != nil {
		t.Fatalf("ListModels unknown: %v", err)
	}
	if len(catalog) != 0 {
		t.Errorf("unknown provider catalog = %+v, want empty", catalog)
	}
}

func TestAuditMayBeNil(t *testing.T) {
	registry := agent.NewToolRegistry()
	registry.Register(&stubTool{name: "fee_calculator"})
	svc := &Service{Tools: registry}

	// Mutations must not panic when no audit logger is wired.
	if err := svc.SetToolEnabled(context.Background(), "admin-1", "fee_calculator", false); err != nil {
		t.Fatalf("SetToolEnabled: %v", err)
	}
}
