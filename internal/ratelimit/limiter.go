// Package ratelimit admits or rejects lead submissions per caller using a
// sliding log of admission timestamps kept in process memory.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

const (
	DefaultWindow        = 60 * time.Second
	DefaultMaxRequests   = 5
	DefaultIdleTTL       = 30 * time.Minute
	DefaultSweepInterval = 10 * time.Minute
)

// Clock supplies the current time.
type Clock func() time.Time

// Decision is the outcome of one admission check.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// RetryAfter is the wait until the oldest admission leaves the window.
func (d Decision) RetryAfter(now time.Time) time.Duration {
	if d.Allowed {
		return 0
	}
	wait := d.ResetAt.Sub(now)
	if wait < 0 {
		return 0
	}
	return wait
}

// record is one identifier's sliding log. removed is set by the sweeper so a
// caller that raced the sweep re-resolves a fresh record instead of writing
// into a detached one.
type record struct {
	mu       sync.Mutex
	log      []time.Time
	lastSeen time.Time
	removed  bool
}

// MemoryStore keeps one record per identifier. Lookups take the map lock
// briefly; mutation of a record is serialized by the record's own lock.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]*record
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*record)}
}

func (s *MemoryStore) acquire(id string) *record {
	s.mu.Lock()
	rec, ok := s.records[id]
	if !ok {
		rec = &record{}
		s.records[id] = rec
	}
	s.mu.Unlock()
	return rec
}

// Len reports the number of tracked identifiers.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

// Sweep drops records whose last request is older than idleTTL.
func (s *MemoryStore) Sweep(now time.Time, idleTTL time.Duration) int {
	cutoff := now.Add(-idleTTL)

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, rec := range s.records {
		rec.mu.Lock()
		if rec.lastSeen.Before(cutoff) {
			rec.removed = true
			delete(s.records, id)
			removed++
		}
		rec.mu.Unlock()
	}
	return removed
}

// Config controls a Limiter.
type Config struct {
	Window        time.Duration
	MaxRequests   int
	IdleTTL       time.Duration
	SweepInterval time.Duration
	Clock         Clock
}

// Limiter enforces at most MaxRequests admissions per identifier in any
// Window-long interval.
type Limiter struct {
	store         *MemoryStore
	window        time.Duration
	max           int
	idleTTL       time.Duration
	sweepInterval time.Duration
	now           Clock
}

// New creates a limiter over store. Zero config values take the defaults.
func New(store *MemoryStore, cfg Config) *Limiter {
	if store == nil {
		store = NewMemoryStore()
	}
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.MaxRequests <= 0 {
		cfg.MaxRequests = DefaultMaxRequests
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = DefaultIdleTTL
	}
	if cfg.IdleTTL < cfg.Window {
		cfg.IdleTTL = cfg.Window
	}
	if cfg.SweepInterval <= 0 {
		cfg.SweepInterval = DefaultSweepInterval
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}
	return &Limiter{
		store:         store,
		window:        cfg.Window,
		max:           cfg.MaxRequests,
		idleTTL:       cfg.IdleTTL,
		sweepInterval: cfg.SweepInterval,
		now:           cfg.Clock,
	}
}

// Limit returns the configured maximum per window.
func (l *Limiter) Limit() int { return l.max }

// Window returns the configured window length.
func (l *Limiter) Window() time.Duration { return l.window }

// Admit records a request from identifier if the window has room. An empty
// identifier means the caller is unknown and is always admitted.
func (l *Limiter) Admit(identifier string) Decision {
	now := l.now()
	if identifier == "" {
		return Decision{Allowed: true, Limit: l.max, Remaining: l.max, ResetAt: now.Add(l.window)}
	}

	for {
		rec := l.store.acquire(identifier)
		rec.mu.Lock()
		if rec.removed {
			rec.mu.Unlock()
			continue
		}
		d := l.admitLocked(rec, now)
		rec.mu.Unlock()
		return d
	}
}

func (l *Limiter) admitLocked(rec *record, now time.Time) Decision {
	keep := rec.log[:0]
	for _, ts := range rec.log {
		if now.Sub(ts) < l.window {
			keep = append(keep, ts)
		}
	}
	rec.log = keep
	rec.lastSeen = now

	if len(rec.log) >= l.max {
		return Decision{
			Allowed:   false,
			Limit:     l.max,
			Remaining: 0,
			ResetAt:   rec.log[0].Add(l.window),
		}
	}

	rec.log = append(rec.log, now)
	return Decision{
		Allowed:   true,
		Limit:     l.max,
		Remaining: l.max - len(rec.log),
		ResetAt:   rec.log[0].Add(l.window),
	}
}

// Sweep reclaims idle identifiers and returns how many were dropped.
func (l *Limiter) Sweep() int {
	return l.store.Sweep(l.now(), l.idleTTL)
}

// StartJanitor sweeps idle identifiers until ctx is cancelled.
func (l *Limiter) StartJanitor(ctx context.Context) {
	t := time.NewTicker(l.sweepInterval)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				l.Sweep()
			}
		}
	}()
}
