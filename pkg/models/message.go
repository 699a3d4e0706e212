package models

import (
	"encoding/json"
	"time"
)

// Role indicates the message author type.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Session is an ordered conversation between one authenticated user and the
// agent. Sessions are created lazily on first message.
type Session struct {
	ID     string `json:"id"`
	UserID string `json:"user_id"`

	// Title is the prefix of the first user message (<=50 chars).
	Title string `json:"title,omitempty"`

	// LastMessage is the prefix of the most recent message (<=100 chars).
	LastMessage string `json:"last_message,omitempty"`

	MessageCount int `json:"message_count"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Message is one turn in a Session's history.
type Message struct {
	ID        string `json:"id"`
	SessionID string `json:"session_id"`
	Role      Role   `json:"role"`
	Content   string `json:"content"`

	// Confidence and Escalated are only meaningful on assistant messages.
	Confidence *float64 `json:"confidence,omitempty"`
	Escalated  bool     `json:"escalated,omitempty"`

	Metadata map[string]any `json:"metadata,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// ToolCall represents an LLM's request to execute a tool.
type ToolCall struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Input json.RawMessage `json:"input"`
}

// ToolResult represents the outcome of executing a ToolCall.
type ToolResult struct {
	ToolCallID string `json:"tool_call_id"`
	Content    string `json:"content"`
	IsError    bool   `json:"is_error,omitempty"`

	// Attachments carries images a tool returned (e.g. a rendered chart) for
	// vision-capable models to see in a subsequent turn.
	Attachments []Attachment `json:"attachments,omitempty"`
}

// Attachment is an image or file passed to or returned from a vision-capable
// LLM. URL may be a remote URL or a "data:" URL carrying inline base64 data.
type Attachment struct {
	// Type is the attachment kind, e.g. "image".
	Type string `json:"type"`

	URL      string `json:"url,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
}

// User represents an authenticated caller, resolved from a bearer token or
// session cookie by the external identity provider.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}
