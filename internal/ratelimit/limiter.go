package ratelimit

import (
	"sync"
	"time"
)

// maxTrackedKeys bounds the keyed limiter's bucket map before it starts
// pruning idle keys.
const maxTrackedKeys = 10000

// KeyedLimiter owns one TokenBucket per key (per Slack channel, per
// WhatsApp phone number, per Telegram chat) so a noisy source can't starve
// ingestion capacity from the others.
type KeyedLimiter struct {
	mu      sync.RWMutex
	buckets map[string]*TokenBucket
	cfg     Config
}

// NewKeyedLimiter creates a KeyedLimiter applying cfg to every bucket it
// lazily creates.
func NewKeyedLimiter(cfg Config) *KeyedLimiter {
	return &KeyedLimiter{buckets: make(map[string]*TokenBucket), cfg: cfg}
}

// Allow admits a single request for key.
func (l *KeyedLimiter) Allow(key string) bool {
	return l.AllowN(key, 1)
}

// AllowN admits a request costing n tokens for key.
func (l *KeyedLimiter) AllowN(key string, n int) bool {
	if !l.cfg.Enabled {
		return true
	}
	return l.bucketFor(key).AllowN(n)
}

func (l *KeyedLimiter) bucketFor(key string) *TokenBucket {
	l.mu.RLock()
	b, ok := l.buckets[key]
	l.mu.RUnlock()
	if ok {
		return b
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if b, ok = l.buckets[key]; ok {
		return b
	}
	if len(l.buckets) >= maxTrackedKeys {
		l.pruneIdle()
	}
	b = NewTokenBucket(l.cfg)
	l.buckets[key] = b
	return b
}

// pruneIdle drops buckets sitting near-full (i.e. inactive recently) to
// make room under maxTrackedKeys. Must be called with the write lock held.
func (l *KeyedLimiter) pruneIdle() {
	for key, b := range l.buckets {
		if b.Tokens() >= b.maxTokens*0.9 {
			delete(l.buckets, key)
		}
	}
}

// WaitTime reports how long key must wait before its next request is
// admitted.
func (l *KeyedLimiter) WaitTime(key string) time.Duration {
	if !l.cfg.Enabled {
		return 0
	}
	return l.bucketFor(key).WaitTime()
}

// Reset discards key's accumulated state, restarting it at a full bucket.
func (l *KeyedLimiter) Reset(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.buckets, key)
}

// LimitStatus is a point-in-time snapshot of a key's limiter state,
// exposed on the admin control plane's collector-health views.
type LimitStatus struct {
	Key             string        `json:"key"`
	AllowedNow      bool          `json:"allowed_now"`
	TokensRemaining float64       `json:"tokens_remaining"`
	WaitTime        time.Duration `json:"wait_time"`
}

// Status returns key's current limiter snapshot.
func (l *KeyedLimiter) Status(key string) LimitStatus {
	if !l.cfg.Enabled {
		return LimitStatus{Key: key, AllowedNow: true, TokensRemaining: l.cfg.RequestsPerSecond}
	}
	b := l.bucketFor(key)
	tokens := b.Tokens()
	return LimitStatus{
		Key:             key,
		AllowedNow:      tokens >= 1,
		TokensRemaining: tokens,
		WaitTime:        b.WaitTime(),
	}
}

// JoinKey builds a composite limiter key from ordered parts, e.g.
// JoinKey("slack", channelID) or JoinKey("telegram", chatID, "user", userID).
func JoinKey(parts ...string) string {
	key := ""
	for i, part := range parts {
		if i > 0 {
			key += ":"
		}
		key += part
	}
	return key
}

// ChainLimiter admits a request only if every limiter in the chain admits
// it — e.g. a global ingress cap composed with a per-source cap. Every
// limiter in the chain is consulted regardless of an earlier denial, so
// each layer's bucket accounting stays accurate independent of the others.
type ChainLimiter struct {
	limiters []*KeyedLimiter
}

// NewChainLimiter builds a ChainLimiter over the given limiters.
func NewChainLimiter(limiters ...*KeyedLimiter) *ChainLimiter {
	return &ChainLimiter{limiters: limiters}
}

// Allow admits key only if every limiter in the chain currently allows it.
func (c *ChainLimiter) Allow(key string) bool {
	allowed := true
	for _, l := range c.limiters {
		if !l.Allow(key) {
			allowed = false
		}
	}
	return allowed
}

// WaitTime returns the longest wait among the chained limiters.
func (c *ChainLimiter) WaitTime(key string) time.Duration {
	var max time.Duration
	for _, l := range c.limiters {
		if w := l.WaitTime(key); w > max {
			max = w
		}
	}
	return max
}
