// ABOUTME: Keyed single-slot delayed-task scheduler used for debouncing.
// ABOUTME: A new Schedule under the same key supersedes the pending task; Cancel is guaranteed.

package debounce

import (
	"sync"
	"time"
)

// Scheduler holds at most one pending task per key. Scheduling under an
// occupied key replaces the pending task (last-write-wins). A task that has
// been cancelled or superseded never runs, even if its timer already fired:
// the fired callback re-checks its generation under the lock before invoking
// the task.
type Scheduler struct {
	mu      sync.Mutex
	slots   map[string]*slot
	stopped bool
}

type slot struct {
	gen   uint64
	timer *time.Timer
}

func NewScheduler() *Scheduler {
	return &Scheduler{slots: make(map[string]*slot)}
}

// Schedule queues task to run after delay. Any task already pending under key
// is cancelled and replaced.
func (s *Scheduler) Schedule(key string, delay time.Duration, task func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}

	sl, ok := s.slots[key]
	if ok {
		sl.timer.Stop()
	} else {
		sl = &slot{}
		s.slots[key] = sl
	}
	sl.gen++
	gen := sl.gen

	sl.timer = time.AfterFunc(delay, func() {
		if !s.claim(key, gen) {
			return
		}
		task()
	})
}

// claim reports whether the fired timer for (key, gen) is still current, and
// if so releases the slot so the task may run exactly once.
func (s *Scheduler) claim(key string, gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	sl, ok := s.slots[key]
	if !ok || sl.gen != gen || s.stopped {
		return false
	}
	delete(s.slots, key)
	return true
}

// Cancel clears any pending task under key.
func (s *Scheduler) Cancel(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sl, ok := s.slots[key]; ok {
		sl.timer.Stop()
		delete(s.slots, key)
	}
}

// CancelAll clears every pending task. Used on teardown.
func (s *Scheduler) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, sl := range s.slots {
		sl.timer.Stop()
		delete(s.slots, key)
	}
}

// Stop cancels everything and rejects future Schedule calls. A stopped
// scheduler is safe to call from late network callbacks.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopped = true
	for key, sl := range s.slots {
		sl.timer.Stop()
		delete(s.slots, key)
	}
}

// Pending reports whether a task is currently queued under key.
func (s *Scheduler) Pending(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.slots[key]
	return ok
}
