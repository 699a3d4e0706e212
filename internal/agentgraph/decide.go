package agentgraph

import (
	"context"
	"fmt"

	"github.com/finqa/ragqa/pkg/models"
)

// decide applies the escalation rule: escalated iff confidence_score is
// below threshold, the route already short-circuited to direct_escalation,
// or generation failed outright. A confidence-driven escalation replaces
// the response with the configurable escalation template; a
// generation-failure escalation leaves whatever partial text already
// streamed in place.
func (g *Graph) decide(ctx context.Context, state *AgentState, cfg *models.AgentConfig) {
	if state.GenerationFailed {
		state.Escalated = true
		state.EscalationReason = "generation failed"
		return
	}

	threshold := cfg.ConfidenceThresholds.Escalation
	if state.ConfidenceScore >= threshold {
		state.Escalated = false
		state.EscalationReason = ""
		return
	}

	state.Escalated = true
	state.EscalationReason = fmt.Sprintf("Confidence score (%.2f) below threshold (%.2f)", state.ConfidenceScore, threshold)
	state.Response = g.escalationMessage(ctx, state)
}

// escalationMessage loads the configurable escalation template (Open
// Question #1, resolved in favor of configurable — see DESIGN.md).
func (g *Graph) escalationMessage(ctx context.Context, state *AgentState) string {
	msg, version := g.Prompts.FormatPrompt(ctx, PromptEscalationTemplate, models.PromptTypeUser, nil, escalationTemplateDefault)
	recordPromptVersion(state, PromptEscalationTemplate, version)
	return msg
}
