package agentgraph

// route is a pure function of state.Analysis.Strategy; the actual branching
// happens in Graph.Run, which reads Analysis.Strategy directly after this
// call returns. route exists as its own node (rather than being inlined)
// to match the graph's documented eight-node shape and to give it a single
// place to log the routing decision.
func (g *Graph) route(state *AgentState) {
	g.Logger.Debug("route", "strategy", state.Analysis.Strategy, "query_type", state.Analysis.QueryType)
}
