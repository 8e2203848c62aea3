package dedupe

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func TestCacheSeenDuplicate(t *testing.T) {
	cache := NewCache(10, time.Minute)
	require.False(t, cache.IsSeen("alpha"))
	cache.MarkSeen("alpha")
	require.True(t, cache.IsSeen("alpha"))
	require.Equal(t, 1, cache.Len())
}

func TestCacheTTLExpiry(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
	cache := newCacheWithClock(10, 20*time.Millisecond, clock.Now)

	cache.MarkSeen("beta")
	require.True(t, cache.IsSeen("beta"))

	clock.Advance(25 * time.Millisecond)
	require.False(t, cache.IsSeen("beta"))
}

func TestCacheCapacityEvictsOldest(t *testing.T) {
	cache := NewCache(1, time.Minute)
	cache.MarkSeen("first")
	cache.MarkSeen("second")

	require.False(t, cache.IsSeen("first"))
	require.True(t, cache.IsSeen("second"))
	require.Equal(t, 1, cache.Len())
}

func TestCacheRemarkKeepsNewestEntry(t *testing.T) {
	clock := &fakeClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}
	cache := newCacheWithClock(10, time.Minute, clock.Now)

	cache.MarkSeen("gamma")
	clock.Advance(50 * time.Second)
	cache.MarkSeen("gamma")
	clock.Advance(20 * time.Second)

	// The first entry is now past the ttl and gets compacted away, the second must survive.
	cache.MarkSeen("delta")
	require.True(t, cache.IsSeen("gamma"))
	require.True(t, cache.IsSeen("delta"))
}
