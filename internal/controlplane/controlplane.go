// Package controlplane implements the Admin Control Plane (C13): the
// operator-facing surface for configuration, prompt, tool, MCP server, and
// document management, plus per-source ingestion health. It is a thin
// composition layer over the stores and registries that already enforce
// their own invariants (configstore's atomic version swap, the tool
// registry's enabled-state lock, the MCP manager's connection lifecycle);
// the Service's own job is limited to one thing those collaborators can't
// do themselves: stamping every mutation into the audit log with the
// actor's identity: a single struct composing independently-locked
// collaborators, with a per-action call into internal/audit.
package controlplane

import (
	"context"
	"fmt"

	"github.com/finqa/ragqa/internal/agent"
	"github.com/finqa/ragqa/internal/audit"
	"github.com/finqa/ragqa/internal/channels"
	"github.com/finqa/ragqa/internal/configstore"
	"github.com/finqa/ragqa/internal/mcp"
	"github.com/finqa/ragqa/internal/vectorstore"
	"github.com/finqa/ragqa/pkg/models"
)

// Service composes the stores and registries an operator console drives.
// Every field may be nil except Audit; a nil collaborator makes the
// corresponding operations return an error rather than panic, so a
// deployment that doesn't wire MCP (say) can still build a Service.
type Service struct {
	Config   *configstore.Store
	Tools    *agent.ToolRegistry
	MCP      *mcp.Manager
	Docs     vectorstore.DocumentStore
	Channels *channels.Registry
	Audit    *audit.Logger
	Env      string

	// LLMs is the set of constructed providers whose model catalogs the
	// admin surface exposes; usually a subset of the four supported
	// providers, depending on which credentials are configured.
	LLMs []agent.LLMProvider
}

var errNotConfigured = fmt.Errorf("controlplane: collaborator not configured")

// GetConfig returns the active AgentConfig.
func (s *Service) GetConfig(ctx context.Context) (*models.AgentConfig, error) {
	if s.Config == nil {
		return nil, errNotConfigured
	}
	return s.Config.GetActiveConfig(ctx, s.Env)
}

// UpdateConfig applies patch to the active AgentConfig, recording the
// resulting version and the admin who changed it.
func (s *Service) UpdateConfig(ctx context.Context, actorID string, patch configstore.ConfigPatch) (*models.AgentConfig, error) {
	if s.Config == nil {
		return nil, errNotConfigured
	}
	cfg, err := s.Config.UpdateConfig(ctx, s.Env, patch)
	s.audit(ctx, audit.EventConfigUpdated, actorID, map[string]any{"env": s.Env, "error": errString(err)})
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// GetPrompt returns the active prompt version for name/promptType.
func (s *Service) GetPrompt(ctx context.Context, name string, promptType models.PromptType) (*models.Prompt, error) {
	if s.Config == nil {
		return nil, errNotConfigured
	}
	return s.Config.GetActivePrompt(ctx, name, promptType)
}

// CreatePromptVersion adds a new version of name, optionally activating it
// immediately.
func (s *Service) CreatePromptVersion(ctx context.Context, actorID, name string, promptType models.PromptType, content, notes string, activate bool) (*models.Prompt, error) {
	if s.Config == nil {
		return nil, errNotConfigured
	}
	prompt, err := s.Config.CreatePromptVersion(ctx, name, promptType, content, notes, activate)
	s.audit(ctx, audit.EventPromptVersionCreated, actorID, map[string]any{"prompt": name, "activated": activate, "error": errString(err)})
	if err != nil {
		return nil, err
	}
	return prompt, nil
}

// ActivatePromptVersion makes promptID the active version of its (name,
// promptType) family.
func (s *Service) ActivatePromptVersion(ctx context.Context, actorID, promptID string) error {
	if s.Config == nil {
		return errNotConfigured
	}
	err := s.Config.ActivateVersion(ctx, promptID)
	s.audit(ctx, audit.EventPromptActivated, actorID, map[string]any{"prompt_id": promptID, "error": errString(err)})
	return err
}

// SetToolEnabled enables or disables a registered tool for every subsequent
// agent run.
func (s *Service) SetToolEnabled(ctx context.Context, actorID, toolName string, enabled bool) error {
	if s.Tools == nil {
		return errNotConfigured
	}
	err := s.Tools.SetEnabled(toolName, enabled)
	s.audit(ctx, audit.EventToolToggled, actorID, map[string]any{"tool": toolName, "enabled": enabled, "error": errString(err)})
	return err
}

// ToolStatus is one row of ListTools.
type ToolStatus struct {
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
}

// ListTools returns every registered tool's name and enabled state.
func (s *Service) ListTools(ctx context.Context) ([]ToolStatus, error) {
	if s.Tools == nil {
		return nil, errNotConfigured
	}
	var out []ToolStatus
	for _, t := range s.Tools.AsLLMTools() {
		out = append(out, ToolStatus{Name: t.Name(), Enabled: true})
	}
	return out, nil
}

// ListMCPServers returns the connection/tool/resource status of every
// configured MCP server.
func (s *Service) ListMCPServers(ctx context.Context) ([]mcp.ServerStatus, error) {
	if s.MCP == nil {
		return nil, errNotConfigured
	}
	return s.MCP.Status(), nil
}

// EnableMCPServer connects to serverID and merges its discovered tools into
// the Tool Registry, namespaced by server.
func (s *Service) EnableMCPServer(ctx context.Context, actorID, serverID string) error {
	if s.MCP == nil {
		return errNotConfigured
	}
	err := s.MCP.Connect(ctx, serverID)
	if err == nil && s.Tools != nil {
		s.MCP.SyncToolRegistry(s.Tools)
	}
	s.audit(ctx, audit.EventMCPServerToggled, actorID, map[string]any{"server": serverID, "enabled": true, "error": errString(err)})
	return err
}

// DisableMCPServer disconnects serverID. Its namespaced tools remain
// registered (a disconnected server's tools simply start failing any
// invocation) until the next full resync; RefreshMCPTools below is the
// explicit way to drop them from the registry.
func (s *Service) DisableMCPServer(ctx context.Context, actorID, serverID string) error {
	if s.MCP == nil {
		return errNotConfigured
	}
	err := s.MCP.Disconnect(serverID)
	s.audit(ctx, audit.EventMCPServerToggled, actorID, map[string]any{"server": serverID, "enabled": false, "error": errString(err)})
	return err
}

// RefreshMCPTools disables every tool namespaced to a server no longer
// connected, then re-syncs the currently connected servers' tools into the
// registry. It is the operator-triggered counterpart to
// EnableMCPServer/DisableMCPServer for picking up a remote server's tool
// list changing without a reconnect.
func (s *Service) RefreshMCPTools(ctx context.Context, actorID string) error {
	if s.MCP == nil || s.Tools == nil {
		return errNotConfigured
	}
	s.MCP.SyncToolRegistry(s.Tools)
	s.audit(ctx, audit.EventMCPToolsRefreshed, actorID, nil)
	return nil
}

// ListModels returns the static per-provider model catalog, optionally
// filtered to a single provider name. An unknown provider name yields an
// empty map rather than an error, matching the read-only catalog's
// best-effort contract.
func (s *Service) ListModels(ctx context.Context, provider string) (map[string][]agent.Model, error) {
	if len(s.LLMs) == 0 {
		return nil, errNotConfigured
	}
	out := make(map[string][]agent.Model)
	for _, p := range s.LLMs {
		if provider != "" && p.Name() != provider {
			continue
		}
		out[p.Name()] = p.Models()
	}
	return out, nil
}

// ListDocuments lists ingested documents matching filter.
func (s *Service) ListDocuments(ctx context.Context, filter *models.DocumentFilter) ([]*models.Document, models.Pagination, error) {
	if s.Docs == nil {
		return nil, models.Pagination{}, errNotConfigured
	}
	return s.Docs.ListDocuments(ctx, filter)
}

// GetDocument returns a single document by id.
func (s *Service) GetDocument(ctx context.Context, id string) (*models.Document, error) {
	if s.Docs == nil {
		return nil, errNotConfigured
	}
	return s.Docs.GetDocument(ctx, id)
}

// DeleteDocument removes a document and its chunks from the index.
func (s *Service) DeleteDocument(ctx context.Context, actorID, id string) error {
	if s.Docs == nil {
		return errNotConfigured
	}
	err := s.Docs.DeleteDocument(ctx, id)
	s.audit(ctx, audit.EventDocumentDeleted, actorID, map[string]any{"document_id": id, "error": errString(err)})
	return err
}

// StoreStats returns the Vector Store Gateway's aggregate counters.
func (s *Service) StoreStats(ctx context.Context) (*vectorstore.StoreStats, error) {
	if s.Docs == nil {
		return nil, errNotConfigured
	}
	return s.Docs.Stats(ctx)
}

// SourceHealth is one row of SourceStatuses.
type SourceHealth struct {
	Source models.Source         `json:"source"`
	Status channels.Status       `json:"status"`
	Health channels.HealthStatus `json:"health"`
}

// SourceStatuses reports connection and health status for every registered
// source collector.
func (s *Service) SourceStatuses(ctx context.Context) ([]SourceHealth, error) {
	if s.Channels == nil {
		return nil, errNotConfigured
	}
	var out []SourceHealth
	for source, adapter := range s.Channels.HealthAdapters() {
		out = append(out, SourceHealth{
			Source: source,
			Status: adapter.Status(),
			Health: adapter.HealthCheck(ctx),
		})
	}
	return out, nil
}

func (s *Service) audit(ctx context.Context, eventType audit.EventType, actorID string, details map[string]any) {
	if s.Audit == nil {
		return
	}
	s.Audit.Log(ctx, &audit.Event{
		Type:    eventType,
		Level:   audit.LevelInfo,
		UserID:  actorID,
		Action:  string(eventType),
		Details: details,
	})
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
