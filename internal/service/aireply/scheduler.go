package aireply

import (
	"sync"
	"time"
)

// Key identifies one scheduled reply: the match and the message it answers.
type Key struct {
	MatchID   uint64
	MessageID uint64
}

type entry struct {
	timer *time.Timer
}

// Scheduler runs delayed tasks keyed by match+message. Pending tasks can be
// cancelled per match or all at once.
type Scheduler struct {
	mu      sync.Mutex
	pending map[Key]*entry
	closed  bool
	wg      sync.WaitGroup
}

func NewScheduler() *Scheduler {
	return &Scheduler{pending: make(map[Key]*entry)}
}

// Schedule runs fn after delay. Returns false if the scheduler is closed or
// key is already pending.
func (s *Scheduler) Schedule(key Key, delay time.Duration, fn func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}
	if _, dup := s.pending[key]; dup {
		return false
	}

	e := &entry{}
	s.wg.Add(1)
	// the callback takes s.mu, so it cannot observe the map before e is stored
	e.timer = time.AfterFunc(delay, func() {
		defer s.wg.Done()

		s.mu.Lock()
		live := s.pending[key] == e
		if live {
			delete(s.pending, key)
		}
		s.mu.Unlock()

		if live {
			fn()
		}
	})
	s.pending[key] = e
	return true
}

// CancelMatch drops every pending task of matchID. Returns how many were
// cancelled before they started.
func (s *Scheduler) CancelMatch(matchID uint64) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for key, e := range s.pending {
		if key.MatchID != matchID {
			continue
		}
		delete(s.pending, key)
		if s.stop(e) {
			n++
		}
	}
	return n
}

// Pending is the number of tasks waiting to fire.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.pending)
}

// Close cancels every pending task and waits for running ones to return.
// Schedule fails after Close.
func (s *Scheduler) Close() {
	s.mu.Lock()
	s.closed = true
	for key, e := range s.pending {
		delete(s.pending, key)
		s.stop(e)
	}
	s.mu.Unlock()

	s.wg.Wait()
}

// stop must be called with s.mu held and e already removed from pending.
// A timer stopped before firing never runs its callback, so its WaitGroup
// slot is released here; otherwise the callback releases it.
func (s *Scheduler) stop(e *entry) bool {
	if e.timer.Stop() {
		s.wg.Done()
		return true
	}
	return false
}
