package ratelimit

import (
	"context"
	"sync"
	"time"
)

// DefaultSweepInterval is deliberately much larger than the largest built-in
// window so the sweeper never evicts a record that is still counting.
const DefaultSweepInterval = 5 * time.Minute

// record is the mutable per-(class,identity) state. Mutation is serialized by
// the record's own mutex; the store map only guards structural access.
type record struct {
	mu sync.Mutex

	// timestamps holds accepted-operation instants in chronological order.
	timestamps []time.Time

	// blockedUntil, when set and in the future, denies the identity without
	// consulting timestamps.
	blockedUntil time.Time

	// window is the owning tier's window, captured at creation so the sweeper
	// can prune without a tier lookup.
	window time.Duration

	// gone marks a record the sweeper removed from the map. A decision call
	// holding a stale reference re-fetches instead of mutating an orphan.
	gone bool
}

// prune drops every timestamp whose age has reached the window. Timestamps
// are chronological, so only a leading run is removed.
func (r *record) prune(now time.Time) {
	cutoff := now.Add(-r.window)
	i := 0
	for i < len(r.timestamps) && !r.timestamps[i].After(cutoff) {
		i++
	}
	if i > 0 {
		r.timestamps = append(r.timestamps[:0], r.timestamps[i:]...)
	}
}

// blockExpired reports whether the block marker is unset or already past.
func (r *record) blockExpired(now time.Time) bool {
	return r.blockedUntil.IsZero() || !now.Before(r.blockedUntil)
}

// Store maintains the (class, identity) -> record mapping and reclaims idle
// records on a background interval. It is safe for concurrent use by any
// number of decision calls.
type Store struct {
	mu      sync.RWMutex
	records map[string]*record

	// OnSweep, when set, is invoked after each sweep pass with the number of
	// records removed, the number still tracked, and how long the pass took.
	OnSweep func(removed, tracked int, took time.Duration)
}

// NewStore creates an empty window state store.
func NewStore() *Store {
	return &Store{records: make(map[string]*record)}
}

func recordKey(class, identity string) string {
	return class + ":" + identity
}

// acquire returns the record for (class, identity) with its mutex held,
// creating it if missing. Concurrent callers for the same key observe the
// same record. The caller must unlock rec.mu.
func (s *Store) acquire(class, identity string, window time.Duration) *record {
	key := recordKey(class, identity)

	for {
		s.mu.RLock()
		rec, ok := s.records[key]
		s.mu.RUnlock()

		if !ok {
			s.mu.Lock()
			rec, ok = s.records[key]
			if !ok {
				rec = &record{window: window}
				s.records[key] = rec
			}
			s.mu.Unlock()
		}

		rec.mu.Lock()
		if !rec.gone {
			return rec
		}
		// Swept out between lookup and lock; retry against the live map.
		rec.mu.Unlock()
	}
}

// Len returns the number of tracked records.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Sweep removes every record that is empty after pruning to now and whose
// block marker has expired. It returns the number of records removed.
//
// The map write lock is held for the whole pass; decision traffic for other
// keys blocks only for the duration of the scan, which is pure in-memory
// work.
func (s *Store) Sweep(now time.Time) int {
	start := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, rec := range s.records {
		rec.mu.Lock()
		rec.prune(now)
		if len(rec.timestamps) == 0 && rec.blockExpired(now) {
			rec.gone = true
			delete(s.records, key)
			removed++
		}
		rec.mu.Unlock()
	}

	if s.OnSweep != nil {
		s.OnSweep(removed, len(s.records), time.Since(start))
	}
	return removed
}

// StartSweeper runs Sweep every interval until the context is cancelled. It
// runs independently of request traffic, so abandoned one-shot identities are
// reclaimed even when the service goes quiet.
func (s *Store) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Sweep(time.Now().UTC())
			}
		}
	}()
}
