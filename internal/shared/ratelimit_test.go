package shared

import (
	"context"
	"testing"
	"time"
)

func TestKeyedRateLimiter(t *testing.T) {
	t.Run("Allow", func(t *testing.T) {
		limiter := NewKeyedRateLimiter(1, 2)
		now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		limiter.now = func() time.Time { return now }

		if !limiter.Allow("a") || !limiter.Allow("a") {
			t.Fatal("expected burst of 2 to be allowed")
		}
		if limiter.Allow("a") {
			t.Error("expected third request to be limited")
		}
		if !limiter.Allow("b") {
			t.Error("expected independent bucket for another key")
		}

		now = now.Add(time.Second)
		if !limiter.Allow("a") {
			t.Error("expected a token to refill after one second")
		}
	})

	t.Run("Disabled", func(t *testing.T) {
		limiter := NewKeyedRateLimiter(0, 0)
		for range 100 {
			if !limiter.Allow("a") {
				t.Fatal("expected disabled limiter to allow everything")
			}
		}
		if limiter.Len() != 0 {
			t.Errorf("expected no tracked keys, got %d", limiter.Len())
		}

		var nilLimiter *KeyedRateLimiter
		if !nilLimiter.Allow("a") {
			t.Error("expected nil limiter to allow")
		}
	})

	t.Run("PerMinute", func(t *testing.T) {
		limiter := PerMinute(3)
		for i := range 3 {
			if !limiter.Allow("s") {
				t.Fatalf("expected message %d to be allowed", i+1)
			}
		}
		if limiter.Allow("s") {
			t.Error("expected fourth message within the minute to be limited")
		}
	})

	t.Run("Wait", func(t *testing.T) {
		limiter := NewKeyedRateLimiter(1000, 1)
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		for range 3 {
			if err := limiter.Wait(ctx, "a"); err != nil {
				t.Fatalf("unexpected wait error: %v", err)
			}
		}
	})

	t.Run("Sweep", func(t *testing.T) {
		limiter := NewKeyedRateLimiter(1, 1)
		now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
		limiter.now = func() time.Time { return now }

		limiter.Allow("old")
		now = now.Add(10 * time.Minute)
		limiter.Allow("new")

		if removed := limiter.Sweep(5 * time.Minute); removed != 1 {
			t.Errorf("expected 1 key swept, got %d", removed)
		}
		if limiter.Len() != 1 {
			t.Errorf("expected 1 key left, got %d", limiter.Len())
		}
	})
}
