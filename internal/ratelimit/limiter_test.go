package ratelimit

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testTier(max int, window time.Duration) Tier {
	return Tier{Class: ClassAI, MaxOperations: max, Window: window}
}

func TestLimiterAllowsBurstUpToLimit(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := base
	limiter := &Limiter{
		Store: NewStore(),
		Clock: func() time.Time { return clock },
	}
	tier := testTier(5, time.Minute)

	for i := 0; i < 5; i++ {
		clock = base.Add(time.Duration(i) * time.Second)
		dec := limiter.Allow(tier, "u1")
		require.True(t, dec.Allowed, "request %d should be allowed", i+1)
		require.Equal(t, 5, dec.Limit)
		require.Equal(t, 4-i, dec.Remaining)
	}

	clock = base.Add(5 * time.Second)
	dec := limiter.Allow(tier, "u1")
	require.False(t, dec.Allowed)
	require.Equal(t, time.Minute, dec.RetryAfter)
	require.Equal(t, 60, dec.RetryAfterSeconds())
	require.Equal(t, 0, dec.Remaining)
	require.Equal(t, base.Add(65*time.Second), dec.ResetAt)

	// The block elapses after a full fresh window.
	clock = base.Add(65 * time.Second)
	dec = limiter.Allow(tier, "u1")
	require.True(t, dec.Allowed)
}

func TestLimiterBlockIsNotExtendedByRetries(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := base
	limiter := &Limiter{
		Store: NewStore(),
		Clock: func() time.Time { return clock },
	}
	tier := testTier(1, time.Minute)

	require.True(t, limiter.Allow(tier, "u1").Allowed)

	// Second request trips the limit and blocks until base+61s.
	clock = base.Add(time.Second)
	dec := limiter.Allow(tier, "u1")
	require.False(t, dec.Allowed)

	blockedUntil := dec.ResetAt
	require.Equal(t, base.Add(61*time.Second), blockedUntil)

	// Hammering during the block keeps the same reset instant.
	for _, offset := range []time.Duration{10 * time.Second, 30 * time.Second, 60 * time.Second} {
		clock = base.Add(offset)
		dec = limiter.Allow(tier, "u1")
		require.False(t, dec.Allowed)
		require.Equal(t, blockedUntil, dec.ResetAt)
		require.Equal(t, ceilToSecond(blockedUntil.Sub(clock)), dec.RetryAfter)
	}

	// Fractional remainders round up, never down.
	clock = blockedUntil.Add(-500 * time.Millisecond)
	dec = limiter.Allow(tier, "u1")
	require.False(t, dec.Allowed)
	require.Equal(t, 1, dec.RetryAfterSeconds())

	// First request at the reset instant is allowed again.
	clock = blockedUntil
	require.True(t, limiter.Allow(tier, "u1").Allowed)
}

func TestLimiterIdentitiesAreIndependent(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := base
	limiter := &Limiter{
		Store: NewStore(),
		Clock: func() time.Time { return clock },
	}
	tier := testTier(1, time.Minute)

	require.True(t, limiter.Allow(tier, "a").Allowed)
	require.True(t, limiter.Allow(tier, "b").Allowed)

	clock = base.Add(time.Second)
	require.False(t, limiter.Allow(tier, "a").Allowed)

	// Exhausting "a" leaves "b" untouched until its own second request.
	dec := limiter.Allow(tier, "b")
	require.False(t, dec.Allowed)
}

func TestLimiterTiersAreIndependent(t *testing.T) {
	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	limiter := &Limiter{
		Store: NewStore(),
		Clock: func() time.Time { return clock },
	}

	ai := Tier{Class: ClassAI, MaxOperations: 1, Window: time.Minute}
	read := Tier{Class: ClassRead, MaxOperations: 1, Window: time.Minute}

	require.True(t, limiter.Allow(ai, "u1").Allowed)
	require.False(t, limiter.Allow(ai, "u1").Allowed)

	// The read tier keeps its own counter for the same identity.
	require.True(t, limiter.Allow(read, "u1").Allowed)
}

func TestLimiterSlidingWindowExpiresOldEntries(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := base
	limiter := &Limiter{
		Store: NewStore(),
		Clock: func() time.Time { return clock },
	}
	tier := testTier(2, time.Minute)

	require.True(t, limiter.Allow(tier, "u1").Allowed)

	clock = base.Add(30 * time.Second)
	require.True(t, limiter.Allow(tier, "u1").Allowed)

	// An entry exactly one window old has aged out, so the request that
	// arrives at that instant is allowed.
	clock = base.Add(time.Minute)
	dec := limiter.Allow(tier, "u1")
	require.True(t, dec.Allowed)
}

func TestLimiterReturnsToFreshStateAfterWindow(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := base
	limiter := &Limiter{
		Store: NewStore(),
		Clock: func() time.Time { return clock },
	}
	tier := testTier(3, time.Minute)

	for i := 0; i < 3; i++ {
		require.True(t, limiter.Allow(tier, "u1").Allowed)
	}

	// Long after the window, repeated decisions behave exactly like a
	// never-seen identity.
	clock = base.Add(10 * time.Minute)
	for i := 0; i < 3; i++ {
		dec := limiter.Allow(tier, "u1")
		require.True(t, dec.Allowed)
		require.Equal(t, 2-i, dec.Remaining)
		clock = clock.Add(10 * time.Minute)
	}
}

func TestLimiterSerializesConcurrentDecisionsPerIdentity(t *testing.T) {
	limiter := NewLimiter(NewStore())
	tier := testTier(10, time.Minute)

	const workers = 100

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if limiter.Allow(tier, "shared").Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Equal(t, tier.MaxOperations, allowed)
}
