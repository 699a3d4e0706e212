package mcp

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/finqa/ragqa/internal/agent"
)

// remoteTool adapts a single discovered MCPTool into the provider-agnostic
// agent.Tool interface, namespaced by the server it came from
// ("{server}.{tool}") to avoid name collisions across servers.
type remoteTool struct {
	manager  *Manager
	serverID string
	tool     *MCPTool
}

func (t *remoteTool) Name() string {
	return t.serverID + "." + t.tool.Name
}

func (t *remoteTool) Description() string { return t.tool.Description }

func (t *remoteTool) Schema() json.RawMessage { return t.tool.InputSchema }

func (t *remoteTool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	var args map[string]any
	if len(params) > 0 {
		if err := json.Unmarshal(params, &args); err != nil {
			return &agent.ToolResult{Content: "invalid tool arguments: " + err.Error(), IsError: true}, nil
		}
	}

	result, err := t.manager.CallTool(ctx, t.serverID, t.tool.Name, args)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	for i, c := range result.Content {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(c.Text)
	}
	return &agent.ToolResult{Content: b.String(), IsError: result.IsError}, nil
}

// SyncToolRegistry registers every tool discovered from connected MCP
// servers into registry, namespaced by server ID. It is safe to call
// repeatedly (e.g. after a refresh-tools request); re-registering a name
// replaces its prior entry and preserves the registry's own enabled/disabled
// state for names not affected by this sync.
func (m *Manager) SyncToolRegistry(registry *agent.ToolRegistry) {
	for serverID, tools := range m.AllTools() {
		for _, tool := range tools {
			registry.Register(&remoteTool{manager: m, serverID: serverID, tool: tool})
		}
	}
}
