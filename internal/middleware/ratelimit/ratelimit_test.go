package ratelimit

import (
	"sync"
	"testing"
	"time"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestAllow(t *testing.T) {
	clk := &clock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	rl := NewLimiter(Config{RequestsPerMinute: 3, Now: clk.Now})

	for i := 1; i <= 3; i++ {
		if !rl.Allow("u1") {
			t.Fatalf("request %d should pass", i)
		}
	}
	if rl.Allow("u1") {
		t.Error("fourth request should be limited")
	}
	if !rl.Allow("u2") {
		t.Error("other users are not affected")
	}

	clk.Advance(59 * time.Second)
	if rl.Allow("u1") {
		t.Error("window has not closed yet")
	}
	clk.Advance(time.Second)
	if !rl.Allow("u1") {
		t.Error("new window should allow again")
	}

	if m := rl.GetMetrics(); m.TotalHits != 2 || m.ClientCount != 2 {
		t.Errorf("metrics = %+v", m)
	}
}

func TestCleanExpired(t *testing.T) {
	clk := &clock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	rl := NewLimiter(Config{RequestsPerMinute: 5, Now: clk.Now})

	rl.Allow("old")
	clk.Advance(30 * time.Second)
	rl.Allow("new")
	clk.Advance(30 * time.Second)

	if n := rl.CleanExpired(); n != 1 {
		t.Errorf("removed = %d, want 1", n)
	}
	if n := rl.ActiveClients(); n != 1 {
		t.Errorf("active = %d, want 1", n)
	}
}

func TestDefaults(t *testing.T) {
	rl := NewLimiter(Config{})
	for i := 0; i < DefaultConfig().RequestsPerMinute; i++ {
		if !rl.Allow("u") {
			t.Fatalf("request %d limited under default", i+1)
		}
	}
	if rl.Allow("u") {
		t.Error("expected limit after default quota")
	}
}

func TestConcurrentAllow(t *testing.T) {
	rl := NewLimiter(Config{RequestsPerMinute: 50})
	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if rl.Allow("u") {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if allowed != 50 {
		t.Errorf("allowed = %d, want 50", allowed)
	}
}
