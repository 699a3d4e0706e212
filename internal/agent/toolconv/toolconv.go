// Package toolconv converts the provider-agnostic agent.Tool definitions
// into each LLM SDK's own function/tool schema shape.
package toolconv

import (
	"encoding/json"

	"github.com/sashabaranov/go-openai"
	"google.golang.org/genai"

	"github.com/finqa/ragqa/internal/agent"
)

// ToOpenAITools converts tool definitions to the OpenAI function-calling
// schema shared by OpenAI and Azure OpenAI.
func ToOpenAITools(tools []agent.Tool) []openai.Tool {
	out := make([]openai.Tool, 0, len(tools))
	for _, t := range tools {
		out = append(out, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name(),
				Description: t.Description(),
				Parameters:  json.RawMessage(t.Schema()),
			},
		})
	}
	return out
}

// ToGeminiTools converts tool definitions to Gemini's function-declaration
// schema. Gemini groups all function declarations under a single Tool.
func ToGeminiTools(tools []agent.Tool) []*genai.Tool {
	if len(tools) == 0 {
		return nil
	}
	decls := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, t := range tools {
		var schema *genai.Schema
		if raw := t.Schema(); len(raw) > 0 {
			schema = &genai.Schema{}
			if err := json.Unmarshal(raw, schema); err != nil {
				schema = nil
			}
		}
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        t.Name(),
			Description: t.Description(),
			Parameters:  schema,
		})
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}
}
