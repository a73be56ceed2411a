package provider

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestRateLimiter(t *testing.T) {
	ctx := context.Background()

	t.Run("AllowsRequestsWithinLimit", func(t *testing.T) {
		rl := NewRateLimiter(5, 1*time.Second)

		// Should allow 5 requests immediately
		start := time.Now()
		for i := 0; i < 5; i++ {
			if err := rl.Wait(ctx); err != nil {
				t.Errorf("Wait() request %d error = %v, want nil", i+1, err)
			}
		}
		elapsed := time.Since(start)

		if elapsed > 100*time.Millisecond {
			t.Errorf("5 requests under limit took %v, expected < 100ms", elapsed)
		}
	})

	t.Run("BlocksExcessRequests", func(t *testing.T) {
		rl := NewRateLimiter(2, 300*time.Millisecond)

		start := time.Now()
		for i := 0; i < 3; i++ {
			if err := rl.Wait(ctx); err != nil {
				t.Errorf("Wait() request %d error = %v, want nil", i+1, err)
			}
		}

		elapsed := time.Since(start)
		if elapsed < 300*time.Millisecond {
			t.Errorf("3rd request took %v, expected at least 300ms delay", elapsed)
		}
	})

	t.Run("CleansUpOldRequests", func(t *testing.T) {
		rl := NewRateLimiter(3, 200*time.Millisecond)

		for i := 0; i < 3; i++ {
			if err := rl.Wait(ctx); err != nil {
				t.Errorf("Wait() initial request %d error = %v", i+1, err)
			}
		}

		// Wait for window to pass completely
		time.Sleep(250 * time.Millisecond)

		start := time.Now()
		for i := 0; i < 3; i++ {
			if err := rl.Wait(ctx); err != nil {
				t.Errorf("Wait() after window request %d error = %v", i+1, err)
			}
		}

		if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
			t.Errorf("Requests after window took %v, expected < 100ms", elapsed)
		}
	})

	t.Run("ConcurrentRequests", func(t *testing.T) {
		rl := NewRateLimiter(10, 200*time.Millisecond)

		var wg sync.WaitGroup
		var mu sync.Mutex
		successCount := 0

		for i := 0; i < 15; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := rl.Wait(ctx); err == nil {
					mu.Lock()
					successCount++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		// All requests should succeed (they'll just be throttled)
		if successCount != 15 {
			t.Errorf("Only %d concurrent requests succeeded, expected 15", successCount)
		}
	})

	t.Run("CancelledWhileWaiting", func(t *testing.T) {
		rl := NewRateLimiter(1, 5*time.Second)
		if err := rl.Wait(ctx); err != nil {
			t.Fatalf("Wait() first request error = %v", err)
		}

		cctx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
		defer cancel()

		start := time.Now()
		err := rl.Wait(cctx)
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("Wait() error = %v, want deadline exceeded", err)
		}
		if elapsed := time.Since(start); elapsed > time.Second {
			t.Errorf("cancelled Wait() took %v, expected to return promptly", elapsed)
		}
	})

	t.Run("ZeroMaxRequestsActsAsOne", func(t *testing.T) {
		rl := NewRateLimiter(0, time.Second)
		if rl.maxRequests != 1 {
			t.Fatalf("maxRequests = %d, want 1", rl.maxRequests)
		}
	})
}
