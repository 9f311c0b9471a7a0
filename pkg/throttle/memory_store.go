package throttle

import (
	"context"
	"sync"
	"time"
)

type bucket struct {
	tokens     int
	lastRefill time.Time
	lastAccess time.Time
}

// MemoryStore keeps buckets in process memory. Stale buckets are swept
// by a background goroutine; Close stops it.
type MemoryStore struct {
	mu      sync.Mutex
	buckets map[string]*bucket

	sweepInterval time.Duration
	stop          chan struct{}
	stopOnce      sync.Once
}

type MemoryStoreOption func(*MemoryStore)

// WithSweepInterval overrides how often stale buckets are removed.
// Zero disables sweeping.
func WithSweepInterval(interval time.Duration) MemoryStoreOption {
	return func(ms *MemoryStore) {
		ms.sweepInterval = interval
	}
}

func NewMemoryStore(opts ...MemoryStoreOption) *MemoryStore {
	ms := &MemoryStore{
		buckets:       make(map[string]*bucket),
		sweepInterval: 5 * time.Minute,
		stop:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(ms)
	}
	if ms.sweepInterval > 0 {
		go ms.sweep()
	}
	return ms
}

func (ms *MemoryStore) Consume(_ context.Context, key string, cfg Config) (int, time.Time, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	now := time.Now()
	b, ok := ms.buckets[key]
	if !ok {
		b = &bucket{tokens: cfg.Attempts, lastRefill: now}
		ms.buckets[key] = b
	}

	// Refill whole windows at a time; capping the interval count keeps
	// the arithmetic safe after long idle periods.
	elapsed := now.Sub(b.lastRefill)
	intervals := int64(elapsed / cfg.Window)
	if maxIntervals := int64(2); intervals > maxIntervals {
		intervals = maxIntervals
	}
	if intervals > 0 {
		b.tokens = min(b.tokens+int(intervals)*cfg.Attempts, cfg.Attempts)
		b.lastRefill = now
	}

	b.tokens--
	b.lastAccess = now

	return b.tokens, b.lastRefill.Add(cfg.Window), nil
}

func (ms *MemoryStore) Reset(_ context.Context, key string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	delete(ms.buckets, key)
	return nil
}

func (ms *MemoryStore) sweep() {
	ticker := time.NewTicker(ms.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			ms.removeStale()
		case <-ms.stop:
			return
		}
	}
}

func (ms *MemoryStore) removeStale() {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	cutoff := time.Now().Add(-time.Hour)
	for key, b := range ms.buckets {
		if b.lastAccess.Before(cutoff) {
			delete(ms.buckets, key)
		}
	}
}

func (ms *MemoryStore) Close() {
	ms.stopOnce.Do(func() { close(ms.stop) })
}
