package dedup

import (
	"context"
	"sync/atomic"
	"time"

	"ledgerbot/internal/cache"
	"ledgerbot/internal/log"
)

// MaxTracked bounds memory use. The filter only guarantees its window
// while fewer than MaxTracked messages arrive per window; past that the
// oldest ids are forgotten early and a warning is logged.
const MaxTracked = 100_000

// MemoryFilter keeps seen ids in a process-local TTL cache.
type MemoryFilter struct {
	seen     *cache.LRUCache[struct{}]
	now      func() time.Time
	logger   *log.Logger
	capacity int
	early    atomic.Int64
}

type memoryOptions struct {
	now      func() time.Time
	logger   *log.Logger
	capacity int
}

// MemoryOption configures a MemoryFilter.
type MemoryOption func(*memoryOptions)

// WithClock injects the time source.
func WithClock(now func() time.Time) MemoryOption {
	return func(o *memoryOptions) { o.now = now }
}

// WithLogger receives the warning about ids forgotten before their window.
func WithLogger(l *log.Logger) MemoryOption {
	return func(o *memoryOptions) { o.logger = l }
}

func withCapacity(n int) MemoryOption {
	return func(o *memoryOptions) { o.capacity = n }
}

func NewMemoryFilter(window time.Duration, opts ...MemoryOption) *MemoryFilter {
	if window <= 0 {
		window = DefaultWindow
	}
	o := memoryOptions{now: time.Now, capacity: MaxTracked}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = log.Discard()
	}
	f := &MemoryFilter{
		now:      o.now,
		logger:   o.logger.WithComponent(log.ComponentDedup),
		capacity: o.capacity,
	}
	f.seen = cache.NewLRUCache[struct{}](o.capacity, window,
		cache.WithClock(o.now), cache.WithOnEvict(f.evicted))
	return f
}

// evicted runs when the cache is full. Dropping an id whose window is still
// open means a redelivery of it would be processed again.
func (f *MemoryFilter) evicted(id string, expiresAt time.Time) {
	if !f.now().Before(expiresAt) {
		return
	}
	n := f.early.Add(1)
	if n == 1 || n%1000 == 0 {
		f.logger.Warn("Duplicate filter full, forgetting ids before their window ends",
			log.FieldMessageID, id,
			"capacity", f.capacity,
			"early_evictions", n)
	}
}

// EarlyEvictions counts ids dropped for space while still inside the window.
func (f *MemoryFilter) EarlyEvictions() int64 {
	return f.early.Load()
}

func (f *MemoryFilter) ShouldProcess(_ context.Context, id string) bool {
	return f.seen.SetIfAbsent(id, struct{}{})
}

// EvictExpired drops ids whose window ended at or before now.
func (f *MemoryFilter) EvictExpired(now time.Time) int {
	return f.seen.CleanExpiredAt(now)
}

// CleanExpired implements cache.Cleaner so a cache.Manager can sweep the
// filter in the background.
func (f *MemoryFilter) CleanExpired() int {
	return f.seen.CleanExpired()
}

// Len returns the number of ids currently tracked.
func (f *MemoryFilter) Len() int {
	return f.seen.Size()
}
