// Package backoff computes retry delays for flaky I/O: LLM provider calls,
// collector reconnects, and MCP server handshakes. It does not sleep or
// retry by itself — see sleep.go and retry.go for that.
package backoff

import (
	"math"
	"math/rand"
	"time"
)

// RetryPolicy parameterizes an exponential-with-jitter delay curve.
// Delay(attempt) = min(MaxMs, InitialMs*Factor^(attempt-1)) plus up to
// Jitter fraction of that value, added (never subtracted) so a retry never
// lands earlier than the un-jittered curve would allow.
type RetryPolicy struct {
	InitialMs float64
	MaxMs     float64
	Factor    float64
	Jitter    float64
}

// NextDelay returns the delay before the given attempt (1-indexed) using
// the package's random source. Use NextDelayDeterministic in tests that
// need an exact duration.
func NextDelay(p RetryPolicy, attempt int) time.Duration {
	return NextDelayDeterministic(p, attempt, rand.Float64()) // #nosec G404 -- jitter, not a security value
}

// NextDelayDeterministic computes the delay using a caller-supplied random
// fraction in [0,1).
func NextDelayDeterministic(p RetryPolicy, attempt int, jitterRoll float64) time.Duration {
	step := math.Max(float64(attempt-1), 0)
	base := p.InitialMs * math.Pow(p.Factor, step)
	withJitter := base + base*p.Jitter*jitterRoll
	capped := math.Min(p.MaxMs, withJitter)
	return time.Duration(math.Round(capped)) * time.Millisecond
}

// ProviderRetryPolicy is the LLM provider retry curve: 250ms
// initial, 4s cap, doubling, 10% jitter. Default policy for every client
// in internal/agent/providers.
func ProviderRetryPolicy() RetryPolicy {
	return RetryPolicy{InitialMs: 250, MaxMs: 4000, Factor: 2, Jitter: 0.1}
}

// CollectorReconnectPolicy governs a source collector reconnecting a
// long-lived socket: a 2s floor and 30s ceiling so a flapping upstream
// doesn't spin.
func CollectorReconnectPolicy() RetryPolicy {
	return RetryPolicy{InitialMs: 2000, MaxMs: 30000, Factor: 2, Jitter: 0.2}
}

// McpHandshakePolicy governs reconnect attempts to a remote MCP tool
// server: quick initial retries since a restarting subprocess usually
// recovers within a second or two.
func McpHandshakePolicy() RetryPolicy {
	return RetryPolicy{InitialMs: 50, MaxMs: 5000, Factor: 1.5, Jitter: 0.05}
}
