package gateway

import (
	"sync"
	"time"
)

const (
	// maxTrackedKeys caps the number of tracked rate-limit keys to prevent
	// memory exhaustion from attackers rotating webhook paths.
	maxTrackedKeys = 4096

	// rateLimitWindow is the sliding window duration for rate counting.
	rateLimitWindow = 60 * time.Second
)

type rateLimitEntry struct {
	windowStart time.Time
	count       int
}

// WebhookRateLimiter bounds per-key webhook request rates with a hard cap
// on tracked keys. Safe for concurrent use.
type WebhookRateLimiter struct {
	mu      sync.Mutex
	maxHits int
	entries map[string]*rateLimitEntry
}

// NewWebhookRateLimiter creates a limiter allowing maxHits requests per key
// per minute. maxHits <= 0 disables limiting.
func NewWebhookRateLimiter(maxHits int) *WebhookRateLimiter {
	return &WebhookRateLimiter{
		maxHits: maxHits,
		entries: make(map[string]*rateLimitEntry),
	}
}

// Allow returns true if the key is within rate limits. Stale entries are
// pruned when approaching the key cap.
func (r *WebhookRateLimiter) Allow(key string) bool {
	if r.maxHits <= 0 {
		return true
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()

	if len(r.entries) >= maxTrackedKeys {
		for k, e := range r.entries {
			if now.Sub(e.windowStart) >= rateLimitWindow {
				delete(r.entries, k)
			}
		}
		for len(r.entries) >= maxTrackedKeys {
			for k := range r.entries {
				delete(r.entries, k)
				break
			}
		}
	}

	e, ok := r.entries[key]
	if !ok || now.Sub(e.windowStart) >= rateLimitWindow {
		r.entries[key] = &rateLimitEntry{windowStart: now, count: 1}
		return true
	}

	e.count++
	return e.count <= r.maxHits
}
