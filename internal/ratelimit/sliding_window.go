// Package ratelimit counts requests per key over a trailing time window.
package ratelimit

import (
	"fmt"
	"sync"
	"time"

	"github.com/BradenHooton/rebelbudget/internal/models"
)

const (
	DefaultLimit  = 100
	DefaultWindow = 60 * time.Minute
)

// Config holds limiter settings
type Config struct {
	Limit  int
	Window time.Duration
}

// DefaultConfig returns 100 requests per 60 minutes
func DefaultConfig() Config {
	return Config{Limit: DefaultLimit, Window: DefaultWindow}
}

// RateLimitError is returned when a key has used its allowance. It matches
// models.ErrRateLimited under errors.Is.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded, retry after %s", e.RetryAfter)
}

func (e *RateLimitError) Unwrap() error {
	return models.ErrRateLimited
}

type window struct {
	mu      sync.Mutex
	hits    []time.Time // ascending
	removed bool
}

// SlidingWindow keeps an exact log of request times per key. Each key has
// its own lock, so checks for different keys do not contend.
type SlidingWindow struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu   sync.Mutex
	keys map[string]*window
}

// NewSlidingWindow creates a limiter
func NewSlidingWindow(cfg Config) (*SlidingWindow, error) {
	if cfg.Limit <= 0 {
		return nil, fmt.Errorf("rate limit must be positive, got %d", cfg.Limit)
	}
	if cfg.Window <= 0 {
		return nil, fmt.Errorf("rate limit window must be positive, got %s", cfg.Window)
	}
	return &SlidingWindow{
		limit:  cfg.Limit,
		window: cfg.Window,
		now:    time.Now,
		keys:   make(map[string]*window),
	}, nil
}

// SetClock replaces the time source
func (l *SlidingWindow) SetClock(now func() time.Time) {
	l.now = now
}

// Limit returns the allowance per window
func (l *SlidingWindow) Limit() int { return l.limit }

// acquire returns the locked window for key, creating it if needed
func (l *SlidingWindow) acquire(key string) *window {
	for {
		l.mu.Lock()
		w, ok := l.keys[key]
		if !ok {
			w = &window{}
			l.keys[key] = w
		}
		l.mu.Unlock()

		w.mu.Lock()
		if !w.removed {
			return w
		}
		// Swept between lookup and lock; take the replacement.
		w.mu.Unlock()
	}
}

// prune drops hits at or before cutoff
func (w *window) prune(cutoff time.Time) {
	i := 0
	for i < len(w.hits) && !w.hits[i].After(cutoff) {
		i++
	}
	if i > 0 {
		w.hits = append(w.hits[:0], w.hits[i:]...)
	}
}

// Allow records a request for key if the key is under its limit. Otherwise
// it returns a *RateLimitError and records nothing.
func (l *SlidingWindow) Allow(key string) error {
	w := l.acquire(key)
	defer w.mu.Unlock()

	now := l.now()
	w.prune(now.Add(-l.window))

	if len(w.hits) >= l.limit {
		return &RateLimitError{RetryAfter: w.hits[0].Add(l.window).Sub(now)}
	}

	w.hits = append(w.hits, now)
	return nil
}

// Remaining returns how many more requests key may make right now
func (l *SlidingWindow) Remaining(key string) int {
	l.mu.Lock()
	w, ok := l.keys[key]
	l.mu.Unlock()
	if !ok {
		return l.limit
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	w.prune(l.now().Add(-l.window))
	if n := l.limit - len(w.hits); n > 0 {
		return n
	}
	return 0
}

// Sweep forgets keys whose hits have all aged out and returns how many
// were removed.
func (l *SlidingWindow) Sweep() int {
	cutoff := l.now().Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, w := range l.keys {
		w.mu.Lock()
		w.prune(cutoff)
		if len(w.hits) == 0 {
			w.removed = true
			delete(l.keys, key)
			removed++
		}
		w.mu.Unlock()
	}
	return removed
}

// trackedKeys returns the number of keys currently held
func (l *SlidingWindow) trackedKeys() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.keys)
}
