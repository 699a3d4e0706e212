package agentgraph

// Named prompts the graph loads from the Prompt Store. Every call falls
// back to a compiled-in default (see defaults.go) when the store has no
// active version, per configstore.Store.FormatPrompt's never-raise contract.
const (
	PromptQueryAnalysisSystem = "query_analysis_prompt"
	PromptQueryAnalysisUser   = "query_analysis_user_prompt"
	PromptMainSystem          = "main_system_prompt"
	PromptRetrievalContext    = "retrieval_context_prompt"
	PromptConfidenceEval      = "confidence_evaluation_prompt"

	// PromptEscalationTemplate is the escalation message shown to the user
	// in place of the generated response. Open Question #1 ("is the
	// escalation message configurable") is resolved here in favor of
	// configurable: it is itself a Prompt Store entry rather than a
	// hard-coded string, so an operator can tune it per environment
	// without a deploy. See DESIGN.md.
	PromptEscalationTemplate = "escalation_message_template"
)

const (
	queryAnalysisSystemDefault = `You are a query analyser for a finance operations support agent. Given the user's message, respond with a strict JSON object with fields: query_type (one of "direct_question", "calculation", "multi_part", "clarification_needed"), strategy (one of "standard_rag", "invoke_tools", "direct_escalation"), urgency (one of "high", "medium", "low"), topics (array of short strings), reasoning (one sentence). Respond with JSON only, no other text.`

	queryAnalysisUserDefault = `Query: {query}`

	mainSystemDefault = `You are a support agent for finance and payment operations questions. Answer using only the provided context. If the context does not contain the answer, say so plainly rather than guessing.`

	retrievalContextDefault = `Context:
{context}

Question: {query}

Answer the question using only the context above.`

	confidenceEvalDefault = `Query: {query}

Context: {context}

Response: {response}

On a scale of 0 to 1, how well does the response answer the query using only the given context? Reply with only a single number between 0 and 1.`

	escalationTemplateDefault = `I'm not confident enough in my answer to this question to respond directly. A member of the team will follow up with you shortly.`
)

// promptVars builds the substitution map FormatPrompt expects.
func promptVars(pairs ...string) map[string]string {
	m := make(map[string]string, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		m[pairs[i]] = pairs[i+1]
	}
	return m
}

// recordPromptVersion stamps state.PromptVersionsUsed for provenance.
func recordPromptVersion(state *AgentState, name string, version *int) {
	if state.PromptVersionsUsed == nil {
		state.PromptVersionsUsed = make(map[string]*int)
	}
	state.PromptVersionsUsed[name] = version
}
