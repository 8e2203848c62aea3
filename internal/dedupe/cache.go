package dedupe

import (
	"sync"
	"time"
)

type entry struct {
	key string
	ts  time.Time
}

// Cache remembers the archive IDs indexed recently, bounded by capacity and ttl.
type Cache struct {
	mu       sync.Mutex
	items    map[string]time.Time
	order    []entry
	capacity int
	ttl      time.Duration
	now      func() time.Time
}

// NewCache creates a cache with the provided capacity and ttl.
func NewCache(capacity int, ttl time.Duration) *Cache {
	return newCacheWithClock(capacity, ttl, time.Now)
}

func newCacheWithClock(capacity int, ttl time.Duration, now func() time.Time) *Cache {
	if capacity <= 0 {
		capacity = 1
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Cache{
		items:    make(map[string]time.Time, capacity),
		order:    make([]entry, 0, capacity),
		capacity: capacity,
		ttl:      ttl,
		now:      now,
	}
}

// IsSeen reports whether key was marked inside the ttl window.
// It does not mark the key; call MarkSeen once the key is durably handled.
func (c *Cache) IsSeen(key string) bool {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	ts, ok := c.items[key]
	return ok && now.Sub(ts) <= c.ttl
}

// MarkSeen records key as handled now.
func (c *Cache) MarkSeen(key string) {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = now
	c.order = append(c.order, entry{key: key, ts: now})
	c.compact(now)
}

// Len returns the number of live keys.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *Cache) compact(now time.Time) {
	cutoff := now.Add(-c.ttl)

	for len(c.order) > 0 && (len(c.items) > c.capacity || c.order[0].ts.Before(cutoff)) {
		oldest := c.order[0]
		c.order = c.order[1:]

		// A re-marked key has a newer entry further down the queue.
		if ts, ok := c.items[oldest.key]; ok && ts.Equal(oldest.ts) {
			delete(c.items, oldest.key)
		}
	}
}
