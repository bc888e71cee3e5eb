// Package ratelimit admits events per caller identity within a sliding time window.
package ratelimit

import (
	"sync"
	"time"
)

// SlidingWindow admits at most max events per key within any window-long
// interval. It is safe for concurrent use.
type SlidingWindow struct {
	max    int
	window time.Duration
	now    func() time.Time

	mu     sync.Mutex
	events map[string][]time.Time // key -> admitted timestamps, oldest first
}

// NewSlidingWindow creates a limiter. A max of zero or less admits nothing.
func NewSlidingWindow(max int, window time.Duration) *SlidingWindow {
	return &SlidingWindow{
		max:    max,
		window: window,
		now:    time.Now,
		events: make(map[string][]time.Time),
	}
}

// Allow records an event for key and reports whether it was admitted.
// Timestamps older than the window are evicted before the capacity check.
func (s *SlidingWindow) Allow(key string) bool {
	now := s.now()
	cutoff := now.Add(-s.window)

	s.mu.Lock()
	defer s.mu.Unlock()

	q := s.events[key]
	i := 0
	for i < len(q) && q[i].Before(cutoff) {
		i++
	}
	q = q[i:]

	if len(q) >= s.max {
		s.store(key, q)
		return false
	}
	s.events[key] = append(q, now)
	return true
}

// store keeps q for key, dropping the key when nothing is left to remember.
func (s *SlidingWindow) store(key string, q []time.Time) {
	if len(q) == 0 {
		delete(s.events, key)
		return
	}
	s.events[key] = q
}

// Prune drops every key whose newest event has left the window and returns
// how many were dropped. Keys of callers that never return are only removed
// here.
func (s *SlidingWindow) Prune() int {
	cutoff := s.now().Add(-s.window)

	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for key, q := range s.events {
		if len(q) == 0 || q[len(q)-1].Before(cutoff) {
			delete(s.events, key)
			n++
		}
	}
	return n
}

// Keys returns the number of identities currently tracked.
func (s *SlidingWindow) Keys() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}
