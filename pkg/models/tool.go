package models

import "encoding/json"

// ToolDefinition describes a named callable the LLM can invoke, built-in or
// discovered from an MCP server. Disabled tools are never surfaced in the
// tool list presented to the LLM.
type ToolDefinition struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category,omitempty"`
	Enabled     bool   `json:"enabled"`

	// ArgSchema is a JSON Schema document describing accepted arguments.
	ArgSchema json.RawMessage `json:"arg_schema,omitempty"`

	// Credentials are held encrypted at rest and decrypted only at invoke
	// time; never serialized back out.
	Credentials map[string]string `json:"-"`

	// Namespace is set for tools discovered from a remote MCP server, e.g.
	// "websearch.bing_search".
	Namespace string `json:"namespace,omitempty"`
}

// MCPServerStatus is the health state of a remote tool server.
type MCPServerStatus string

const (
	MCPStatusUnknown   MCPServerStatus = "unknown"
	MCPStatusHealthy   MCPServerStatus = "healthy"
	MCPStatusUnhealthy MCPServerStatus = "unhealthy"
)

// MCPServer is an optional external tool provider addressed by URL. Enabling
// a server causes its discovered tools to be merged, namespaced, into the
// Tool Registry.
type MCPServer struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	URL     string `json:"url"`
	Enabled bool   `json:"enabled"`

	Status          MCPServerStatus `json:"status"`
	DiscoveredTools []string        `json:"discovered_tools,omitempty"`
}
