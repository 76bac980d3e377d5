package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestStoreSweepReclaimsIdleIdentity(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := base
	store := NewStore()
	limiter := &Limiter{
		Store: store,
		Clock: func() time.Time { return clock },
	}
	tier := testTier(5, time.Minute)

	require.True(t, limiter.Allow(tier, "idle").Allowed)
	require.Equal(t, 1, store.Len())

	removed := store.Sweep(base.Add(400 * time.Second))
	require.Equal(t, 1, removed)
	require.Equal(t, 0, store.Len())

	// The identity comes back as if never seen; counting stays correct.
	clock = base.Add(401 * time.Second)
	dec := limiter.Allow(tier, "idle")
	require.True(t, dec.Allowed)
	require.Equal(t, tier.MaxOperations-1, dec.Remaining)
	require.Equal(t, 1, store.Len())
}

func TestStoreSweepKeepsActiveRecords(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := base
	store := NewStore()
	limiter := &Limiter{
		Store: store,
		Clock: func() time.Time { return clock },
	}
	tier := testTier(5, time.Minute)

	require.True(t, limiter.Allow(tier, "busy").Allowed)

	// Within the window the record still counts and must survive.
	removed := store.Sweep(base.Add(30 * time.Second))
	require.Equal(t, 0, removed)
	require.Equal(t, 1, store.Len())
}

func TestStoreSweepKeepsBlockedRecordsUntilExpiry(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := base
	store := NewStore()
	limiter := &Limiter{
		Store: store,
		Clock: func() time.Time { return clock },
	}
	tier := testTier(1, time.Minute)

	require.True(t, limiter.Allow(tier, "abuser").Allowed)
	clock = base.Add(time.Second)
	require.False(t, limiter.Allow(tier, "abuser").Allowed)

	// Timestamps expire before the block does; the block alone keeps the
	// record alive so a retry still hits the fast path.
	removed := store.Sweep(base.Add(80 * time.Second))
	require.Equal(t, 0, removed)
	require.Equal(t, 1, store.Len())

	removed = store.Sweep(base.Add(5 * time.Minute))
	require.Equal(t, 1, removed)
	require.Equal(t, 0, store.Len())
}

func TestStoreSweepReportsCounts(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	store := NewStore()

	var gotRemoved, gotTracked int
	store.OnSweep = func(removed, tracked int, _ time.Duration) {
		gotRemoved = removed
		gotTracked = tracked
	}

	limiter := &Limiter{
		Store: store,
		Clock: func() time.Time { return base },
	}
	limiter.Allow(testTier(5, time.Minute), "one-shot")
	limiter.Allow(Tier{Class: ClassRead, MaxOperations: 5, Window: time.Hour}, "regular")

	store.Sweep(base.Add(10 * time.Minute))
	require.Equal(t, 1, gotRemoved)
	require.Equal(t, 1, gotTracked)
}

func TestStoreAcquireSharesRecordAcrossCallers(t *testing.T) {
	store := NewStore()

	first := store.acquire(ClassRead, "u1", time.Minute)
	first.timestamps = append(first.timestamps, time.Now())
	first.mu.Unlock()

	second := store.acquire(ClassRead, "u1", time.Minute)
	defer second.mu.Unlock()

	require.Same(t, first, second)
	require.Len(t, second.timestamps, 1)
}

func TestStoreSweeperRunsInBackground(t *testing.T) {
	store := NewStore()

	rec := store.acquire(ClassRead, "stale", time.Millisecond)
	rec.timestamps = append(rec.timestamps, time.Now().Add(-time.Minute))
	rec.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	store.StartSweeper(ctx, 10*time.Millisecond)

	deadline := time.After(2 * time.Second)
	for store.Len() > 0 {
		select {
		case <-deadline:
			t.Fatalf("sweeper did not reclaim stale record, %d still tracked", store.Len())
		case <-time.After(10 * time.Millisecond):
		}
	}
}
