package cache

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestLRUCacheTTL(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache[int](10, time.Minute, WithClock(clock.Now))

	c.Set("a", 1)
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("expected hit, got %v %v", v, ok)
	}

	clock.Advance(time.Minute)
	if _, ok := c.Get("a"); ok {
		t.Fatal("entry should expire exactly at ttl")
	}
	if c.Size() != 0 {
		t.Fatalf("expired entry should be removed on read, size=%d", c.Size())
	}
}

func TestLRUCacheSetIfAbsent(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache[struct{}](10, 5*time.Minute, WithClock(clock.Now))

	if !c.SetIfAbsent("k", struct{}{}) {
		t.Fatal("first SetIfAbsent should store")
	}
	if c.SetIfAbsent("k", struct{}{}) {
		t.Fatal("second SetIfAbsent inside ttl should not store")
	}

	clock.Advance(5*time.Minute - time.Millisecond)
	if c.SetIfAbsent("k", struct{}{}) {
		t.Fatal("SetIfAbsent just before expiry should not store")
	}

	clock.Advance(time.Millisecond)
	if !c.SetIfAbsent("k", struct{}{}) {
		t.Fatal("SetIfAbsent after expiry should store again")
	}
}

func TestLRUCacheSetIfAbsentConcurrent(t *testing.T) {
	c := NewLRUCache[struct{}](100, time.Minute)

	var stored int64
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if c.SetIfAbsent("same", struct{}{}) {
				atomic.AddInt64(&stored, 1)
			}
		}()
	}
	wg.Wait()

	if stored != 1 {
		t.Fatalf("expected exactly one winner, got %d", stored)
	}
}

func TestLRUCacheEvictsOldest(t *testing.T) {
	c := NewLRUCache[int](2, time.Hour)
	c.Set("a", 1)
	c.Set("b", 2)
	c.Get("a")
	c.Set("c", 3)

	if _, ok := c.Get("b"); ok {
		t.Fatal("least recently used entry should be evicted")
	}
	if _, ok := c.Get("a"); !ok {
		t.Fatal("recently used entry should survive")
	}
}

func TestLRUCacheOnEvict(t *testing.T) {
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	var evicted []string
	c := NewLRUCache[int](2, time.Minute,
		WithClock(func() time.Time { return now }),
		WithOnEvict(func(key string, expiresAt time.Time) {
			evicted = append(evicted, key)
			if !expiresAt.Equal(now.Add(time.Minute)) {
				t.Errorf("expiresAt = %v", expiresAt)
			}
		}))
	c.Set("a", 1)
	c.Set("b", 2)
	c.Delete("b")
	c.Set("c", 3)
	if len(evicted) != 0 {
		t.Fatalf("eviction reported below capacity: %v", evicted)
	}
	c.Set("d", 4)
	if len(evicted) != 1 || evicted[0] != "a" {
		t.Fatalf("evicted = %v, want [a]", evicted)
	}
}

func TestCleanExpiredAt(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRUCache[int](10, time.Minute, WithClock(clock.Now))
	c.Set("old", 1)
	clock.Advance(30 * time.Second)
	c.Set("new", 2)

	removed := c.CleanExpiredAt(clock.Now().Add(30 * time.Second))
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	if _, ok := c.Get("new"); !ok {
		t.Fatal("unexpired entry should remain")
	}
}

func TestManagerSweep(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	c1 := NewLRUCache[int](10, time.Second, WithClock(clock.Now))
	c2 := NewLRUCache[int](10, time.Second, WithClock(clock.Now))
	c1.Set("a", 1)
	c2.Set("b", 2)
	c2.Set("c", 3)

	m := NewManager(nil)
	m.Register(c1)
	m.Register(c2)

	clock.Advance(2 * time.Second)
	if n := m.Sweep(); n != 3 {
		t.Fatalf("expected 3 swept, got %d", n)
	}
}
