// Package calculator implements a deterministic arithmetic tool for the
// Agent Graph's invoke_tools node. No expression-evaluation library exists
// anywhere in the example corpus, so this is a small hand-rolled recursive
// descent parser over +, -, *, /, parentheses, and unary minus rather than a
// third-party dependency (see DESIGN.md).
package calculator

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/finqa/ragqa/internal/agent"
)

// Tool evaluates arithmetic expressions for the agent's invoke_tools node.
type Tool struct{}

// New builds a calculator Tool.
func New() *Tool {
	return &Tool{}
}

func (t *Tool) Name() string { return "calculator" }

func (t *Tool) Description() string {
	return "Evaluates an arithmetic expression involving +, -, *, /, and parentheses, returning a numeric result."
}

func (t *Tool) Schema() json.RawMessage {
	return json.RawMessage(`{
		"type": "object",
		"properties": {
			"expression": {"type": "string", "description": "Arithmetic expression, e.g. \"(12.5 + 3) * 2\""}
		},
		"required": ["expression"]
	}`)
}

type calculatorInput struct {
	Expression string `json:"expression"`
}

func (t *Tool) Execute(ctx context.Context, params json.RawMessage) (*agent.ToolResult, error) {
	var in calculatorInput
	if err := json.Unmarshal(params, &in); err != nil {
		return &agent.ToolResult{Content: fmt.Sprintf("invalid parameters: %v", err), IsError: true}, nil
	}
	if strings.TrimSpace(in.Expression) == "" {
		return &agent.ToolResult{Content: "expression must not be empty", IsError: true}, nil
	}

	result, err := Evaluate(in.Expression)
	if err != nil {
		return &agent.ToolResult{Content: err.Error(), IsError: true}, nil
	}
	return &agent.ToolResult{Content: formatResult(result)}, nil
}

func formatResult(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
