// Package ratelimit enforces per-identity admission control with a sliding
// window per (tier, identity) pair. It is memory-resident and single-process:
// counters are not persisted and no cross-process coordination is attempted.
package ratelimit

import "time"

// Limiter is the admission decision engine. Decisions for the same identity
// are serialized by the store's per-record lock; decisions for different
// identities proceed in parallel. The whole decision path is non-blocking CPU
// work, so the lock is held only briefly.
type Limiter struct {
	Store *Store

	// Clock supplies "now" and exists for deterministic tests. Nil means
	// wall-clock UTC.
	Clock func() time.Time
}

// NewLimiter creates a limiter backed by the given store.
func NewLimiter(store *Store) *Limiter {
	return &Limiter{Store: store}
}

// Allow decides whether the identity may perform one operation under the
// tier. A denied identity is silenced for a full fresh window rather than
// until the oldest counted operation ages out; retrying during the block
// neither extends nor shortens it.
func (l *Limiter) Allow(tier Tier, identity string) Decision {
	now := l.now()

	rec := l.Store.acquire(tier.Class, identity, tier.Window)
	defer rec.mu.Unlock()

	// Fast path: an already-blocked identity skips the pruning and counting
	// below entirely.
	if !rec.blockedUntil.IsZero() && now.Before(rec.blockedUntil) {
		return Decision{
			Allowed:    false,
			RetryAfter: ceilToSecond(rec.blockedUntil.Sub(now)),
			Limit:      tier.MaxOperations,
			ResetAt:    rec.blockedUntil,
		}
	}
	rec.blockedUntil = time.Time{}

	rec.prune(now)

	if len(rec.timestamps) >= tier.MaxOperations {
		rec.blockedUntil = now.Add(tier.Window)
		return Decision{
			Allowed:    false,
			RetryAfter: tier.Window,
			Limit:      tier.MaxOperations,
			ResetAt:    rec.blockedUntil,
		}
	}

	rec.timestamps = append(rec.timestamps, now)
	return Decision{
		Allowed:   true,
		Limit:     tier.MaxOperations,
		Remaining: tier.MaxOperations - len(rec.timestamps),
	}
}

func (l *Limiter) now() time.Time {
	if l != nil && l.Clock != nil {
		return l.Clock()
	}
	return time.Now().UTC()
}

// ceilToSecond rounds a duration up to the next whole second so Retry-After
// never tells a caller to come back early.
func ceilToSecond(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	secs := d / time.Second
	if d%time.Second != 0 {
		secs++
	}
	return secs * time.Second
}
