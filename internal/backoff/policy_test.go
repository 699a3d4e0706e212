package backoff

import (
	"testing"
	"time"
)

func TestNextDelayDeterministic(t *testing.T) {
	tests := []struct {
		name       string
		policy     RetryPolicy
		attempt    int
		jitterRoll float64
		expected   time.Duration
	}{
		{
			name:       "first attempt with no jitter",
			policy:     RetryPolicy{InitialMs: 100, MaxMs: 10000, Factor: 2, Jitter: 0},
			attempt:    1,
			jitterRoll: 0.5,
			expected:   100 * time.Millisecond,
		},
		{
			name:       "second attempt doubles",
			policy:     RetryPolicy{InitialMs: 100, MaxMs: 10000, Factor: 2, Jitter: 0},
			attempt:    2,
			jitterRoll: 0.5,
			expected:   200 * time.Millisecond,
		},
		{
			name:       "third attempt quadruples",
			policy:     RetryPolicy{InitialMs: 100, MaxMs: 10000, Factor: 2, Jitter: 0},
			attempt:    3,
			jitterRoll: 0.5,
			expected:   400 * time.Millisecond,
		},
		{
			name:       "fifth attempt with factor 2",
			policy:     RetryPolicy{InitialMs: 100, MaxMs: 10000, Factor: 2, Jitter: 0},
			attempt:    5,
			jitterRoll: 0.5,
			expected:   1600 * time.Millisecond,
		},
		{
			name:       "clamped to max",
			policy:     RetryPolicy{InitialMs: 100, MaxMs: 500, Factor: 2, Jitter: 0},
			attempt:    10,
			jitterRoll: 0.5,
			expected:   500 * time.Millisecond,
		},
		{
			name:       "10% jitter at max roll",
			policy:     RetryPolicy{InitialMs: 100, MaxMs: 10000, Factor: 2, Jitter: 0.1},
			attempt:    1,
			jitterRoll: 1.0,
			expected:   110 * time.Millisecond,
		},
		{
			name:       "10% jitter at zero roll",
			policy:     RetryPolicy{InitialMs: 100, MaxMs: 10000, Factor: 2, Jitter: 0.1},
			attempt:    1,
			jitterRoll: 0.0,
			expected:   100 * time.Millisecond,
		},
		{
			name:       "50% jitter at mid roll",
			policy:     RetryPolicy{InitialMs: 100, MaxMs: 10000, Factor: 2, Jitter: 0.5},
			attempt:    2,
			jitterRoll: 0.5,
			expected:   250 * time.Millisecond,
		},
		{
			name:       "attempt 0 treated as 1",
			policy:     RetryPolicy{InitialMs: 100, MaxMs: 10000, Factor: 2, Jitter: 0},
			attempt:    0,
			jitterRoll: 0.5,
			expected:   100 * time.Millisecond,
		},
		{
			name:       "negative attempt treated as 1",
			policy:     RetryPolicy{InitialMs: 100, MaxMs: 10000, Factor: 2, Jitter: 0},
			attempt:    -5,
			jitterRoll: 0.5,
			expected:   100 * time.Millisecond,
		},
		{
			name:       "factor 1.5",
			policy:     RetryPolicy{InitialMs: 100, MaxMs: 10000, Factor: 1.5, Jitter: 0},
			attempt:    3,
			jitterRoll: 0.5,
			expected:   225 * time.Millisecond,
		},
		{
			name:       "jitter causes max clamping",
			policy:     RetryPolicy{InitialMs: 100, MaxMs: 105, Factor: 1, Jitter: 0.5},
			attempt:    1,
			jitterRoll: 1.0,
			expected:   105 * time.Millisecond,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NextDelayDeterministic(tt.policy, tt.attempt, tt.jitterRoll)
			if got != tt.expected {
				t.Errorf("NextDelayDeterministic() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestNextDelayJitterRange(t *testing.T) {
	policy := RetryPolicy{InitialMs: 100, MaxMs: 10000, Factor: 2, Jitter: 0.2}

	minExpected := 100 * time.Millisecond
	maxExpected := 120 * time.Millisecond

	for i := 0; i < 100; i++ {
		got := NextDelay(policy, 1)
		if got < minExpected || got > maxExpected {
			t.Errorf("NextDelay() = %v, want in range [%v, %v]", got, minExpected, maxExpected)
		}
	}
}

func TestProviderRetryPolicy(t *testing.T) {
	p := ProviderRetryPolicy()
	if p.InitialMs != 250 {
		t.Errorf("InitialMs = %v, want 250", p.InitialMs)
	}
	if p.MaxMs != 4000 {
		t.Errorf("MaxMs = %v, want 4000", p.MaxMs)
	}
	if p.Factor != 2 {
		t.Errorf("Factor = %v, want 2", p.Factor)
	}
	if p.Jitter != 0.1 {
		t.Errorf("Jitter = %v, want 0.1", p.Jitter)
	}
}

func TestCollectorReconnectPolicy(t *testing.T) {
	p := CollectorReconnectPolicy()
	if p.InitialMs != 2000 {
		t.Errorf("InitialMs = %v, want 2000", p.InitialMs)
	}
	if p.MaxMs != 30000 {
		t.Errorf("MaxMs = %v, want 30000", p.MaxMs)
	}
}

func TestMcpHandshakePolicy(t *testing.T) {
	p := McpHandshakePolicy()
	if p.InitialMs != 50 {
		t.Errorf("InitialMs = %v, want 50", p.InitialMs)
	}
	if p.MaxMs != 5000 {
		t.Errorf("MaxMs = %v, want 5000", p.MaxMs)
	}
}

func TestPolicyComparison(t *testing.T) {
	mcp := McpHandshakePolicy()
	provider := ProviderRetryPolicy()
	collector := CollectorReconnectPolicy()

	mcpDelay := NextDelayDeterministic(mcp, 1, 0)
	providerDelay := NextDelayDeterministic(provider, 1, 0)
	collectorDelay := NextDelayDeterministic(collector, 1, 0)

	if mcpDelay >= providerDelay {
		t.Errorf("mcp handshake delay %v should be < provider delay %v", mcpDelay, providerDelay)
	}
	if providerDelay >= collectorDelay {
		t.Errorf("provider delay %v should be < collector reconnect delay %v", providerDelay, collectorDelay)
	}
}
