package ratelimit

import (
	"context"
	"sync"
	"time"
)

type window struct {
	count   int
	resetAt time.Time
}

// MemoryCounter is the in-process Counter. A single mutex serializes racing
// records for the same recipient, so accounting stays linearizable.
type MemoryCounter struct {
	mu      sync.Mutex
	windows map[string]*window
	now     func() time.Time
}

var _ Counter = (*MemoryCounter)(nil)

func NewMemoryCounter() *MemoryCounter {
	return newMemoryCounter(time.Now)
}

func newMemoryCounter(nowFn func() time.Time) *MemoryCounter {
	if nowFn == nil {
		nowFn = time.Now
	}
	return &MemoryCounter{
		windows: make(map[string]*window),
		now:     nowFn,
	}
}

func (c *MemoryCounter) Peek(ctx context.Context, key string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	w, ok := c.windows[key]
	if !ok || !c.now().Before(w.resetAt) {
		return 0, nil
	}
	return w.count, nil
}

func (c *MemoryCounter) Record(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	w, ok := c.windows[key]
	if !ok || !now.Before(w.resetAt) {
		c.windows[key] = &window{count: 1, resetAt: now.Add(Window)}
		return nil
	}
	w.count++
	return nil
}

func (c *MemoryCounter) Active(ctx context.Context) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	active := 0
	for key, w := range c.windows {
		if now.Before(w.resetAt) {
			active++
			continue
		}
		// Expired windows are dropped lazily here so the map cannot grow
		// with one entry per recipient ever notified.
		delete(c.windows, key)
	}
	return active, nil
}
