package policy

import "testing"

func TestResolverAllowsMCPAlias(t *testing.T) {
	resolver := NewResolver()
	resolver.RegisterMCPServer("ledger", []string{"lookup"})
	resolver.RegisterAlias("mcp_ledger_lookup", "mcp:ledger.lookup")

	policy := &Policy{Allow: []string{"mcp:ledger.lookup"}}
	if !resolver.IsAllowed(policy, "mcp_ledger_lookup") {
		t.Fatal("expected alias tool to be allowed")
	}
}

func TestResolverAllowsMCPAliasViaWildcard(t *testing.T) {
	resolver := NewResolver()
	resolver.RegisterMCPServer("ledger", []string{"lookup", "balance"})
	resolver.RegisterAlias("mcp_ledger_lookup", "mcp:ledger.lookup")

	policy := &Policy{Allow: []string{"mcp:ledger.*"}}
	if !resolver.IsAllowed(policy, "mcp_ledger_lookup") {
		t.Fatal("expected alias tool to be allowed via wildcard")
	}
}

func TestResolverDeniesUnlistedServer(t *testing.T) {
	resolver := NewResolver()
	resolver.RegisterMCPServer("ledger", []string{"lookup"})
	resolver.RegisterAlias("mcp_ledger_lookup", "mcp:ledger.lookup")

	policy := &Policy{Allow: []string{"mcp:market-data.*"}}
	if resolver.IsAllowed(policy, "mcp_ledger_lookup") {
		t.Fatal("a tool from an unlisted server must be denied")
	}
}
