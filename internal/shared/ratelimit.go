package shared

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// KeyedRateLimiter hands out an independent token bucket per key (client address, session id).
//
// A zero or negative rps disables limiting.
type KeyedRateLimiter struct {
	mu       sync.Mutex
	limiters map[string]*keyedLimiter
	limit    rate.Limit
	burst    int
	now      func() time.Time
}

type keyedLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewKeyedRateLimiter creates a limiter allowing rps events per second per key with the given burst.
func NewKeyedRateLimiter(rps float64, burst int) *KeyedRateLimiter {
	if burst < 1 {
		burst = 1
	}
	return &KeyedRateLimiter{
		limiters: make(map[string]*keyedLimiter),
		limit:    rate.Limit(rps),
		burst:    burst,
		now:      time.Now,
	}
}

// PerMinute creates a limiter allowing n events per minute per key, all available as a burst.
func PerMinute(n int) *KeyedRateLimiter {
	return NewKeyedRateLimiter(float64(n)/60, n)
}

// Enabled reports whether the limiter restricts anything.
func (k *KeyedRateLimiter) Enabled() bool {
	return k != nil && k.limit > 0
}

// Allow reports whether an event for key may happen now. It never blocks.
func (k *KeyedRateLimiter) Allow(key string) bool {
	if !k.Enabled() {
		return true
	}
	return k.get(key).AllowN(k.now(), 1)
}

// Wait blocks until an event for key is allowed or ctx is done.
func (k *KeyedRateLimiter) Wait(ctx context.Context, key string) error {
	if !k.Enabled() {
		return nil
	}
	return k.get(key).Wait(ctx)
}

// Sweep drops limiters for keys not seen within idle and returns how many were removed.
func (k *KeyedRateLimiter) Sweep(idle time.Duration) int {
	if k == nil {
		return 0
	}

	cutoff := k.now().Add(-idle)

	k.mu.Lock()
	defer k.mu.Unlock()

	removed := 0
	for key, entry := range k.limiters {
		if entry.lastSeen.Before(cutoff) {
			delete(k.limiters, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked keys.
func (k *KeyedRateLimiter) Len() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.limiters)
}

func (k *KeyedRateLimiter) get(key string) *rate.Limiter {
	now := k.now()

	k.mu.Lock()
	defer k.mu.Unlock()

	entry, ok := k.limiters[key]
	if !ok {
		entry = &keyedLimiter{limiter: rate.NewLimiter(k.limit, k.burst)}
		k.limiters[key] = entry
	}
	entry.lastSeen = now
	return entry.limiter
}
