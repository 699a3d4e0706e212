package models

import "time"

// PromptType categorizes a Prompt within its Name scope.
type PromptType string

const (
	PromptTypeSystem    PromptType = "system"
	PromptTypeUser      PromptType = "user"
	PromptTypeAnalyzer  PromptType = "analyzer"
	PromptTypeRetrieval PromptType = "retrieval"
)

// Prompt is an immutable named string keyed by (Name, PromptType, Version).
// At most one version per (Name, PromptType) has Active=true; activation
// atomically deactivates every sibling version.
type Prompt struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	PromptType PromptType `json:"prompt_type"`
	Version    int        `json:"version"`

	Content string   `json:"content"`
	Notes   string   `json:"notes,omitempty"`
	Active  bool     `json:"active"`
	Tags    []string `json:"tags,omitempty"`

	UsageCount int `json:"usage_count"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
