package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

func TestMemoryStoreFixedWindow(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStore().WithClock(func() time.Time { return now })
	lim := New(store)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if !lim.Allow(ctx, "1.2.3.4", 3, time.Minute) {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if lim.Allow(ctx, "1.2.3.4", 3, time.Minute) {
		t.Fatal("4th request within window should be denied")
	}

	// other identifiers are counted independently
	if !lim.Allow(ctx, "5.6.7.8", 3, time.Minute) {
		t.Fatal("separate identifier should be allowed")
	}

	// window elapses: counter resets fully
	now = now.Add(time.Minute + time.Second)
	if !lim.Allow(ctx, "1.2.3.4", 3, time.Minute) {
		t.Fatal("request after window reset should be allowed")
	}
}

func TestMemoryStoreSweep(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	store := NewMemoryStore().WithClock(func() time.Time { return now })
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		store.Incr(ctx, fmt.Sprintf("ip-%d", i), time.Minute)
	}
	if store.Len() != 10 {
		t.Fatalf("expected 10 buckets, got %d", store.Len())
	}

	now = now.Add(30 * time.Second)
	store.Incr(ctx, "fresh", time.Minute)

	now = now.Add(45 * time.Second) // first 10 expired, "fresh" still live
	if removed := store.Sweep(); removed != 10 {
		t.Fatalf("expected 10 swept, got %d", removed)
	}
	if store.Len() != 1 {
		t.Fatalf("expected 1 bucket after sweep, got %d", store.Len())
	}
}

func TestMemoryStoreConcurrent(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			store.Incr(ctx, "shared", time.Minute)
		}()
	}
	wg.Wait()

	n, err := store.Incr(ctx, "shared", time.Minute)
	if err != nil {
		t.Fatalf("incr failed: %v", err)
	}
	if n != 51 {
		t.Fatalf("expected count 51, got %d", n)
	}
}
