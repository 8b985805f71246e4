package haptic

import (
	"sync"
	"time"
)

// timeoutScheduler is a restartable one-shot countdown.
//
// Expiry runs fire with the scheduler's lock held, so fire must not block
// and must not call back into the scheduler. Each arm gets a generation
// number; a callback from a superseded or cancelled countdown sees a stale
// generation and does nothing.
type timeoutScheduler struct {
	fire func()

	mu       sync.Mutex
	t        *time.Timer
	deadline time.Time
	gen      uint64
}

func newTimeoutScheduler(fire func()) *timeoutScheduler {
	return &timeoutScheduler{fire: fire}
}

// arm cancels any countdown in progress and starts a new one for d.
func (s *timeoutScheduler) arm(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked()
	gen := s.gen
	s.deadline = time.Now().Add(d)
	s.t = time.AfterFunc(d, func() { s.expire(gen) })
}

// cancel disarms the countdown. Once it returns, no callback from an earlier
// arm can reach fire.
func (s *timeoutScheduler) cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked()
}

func (s *timeoutScheduler) cancelLocked() {
	if s.t != nil {
		s.t.Stop()
		s.t = nil
	}
	s.deadline = time.Time{}
	s.gen++
}

func (s *timeoutScheduler) expire(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen || s.t == nil {
		return
	}
	s.t = nil
	s.deadline = time.Time{}
	s.fire()
}

func (s *timeoutScheduler) armed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.t != nil
}

// remaining is the time left on the countdown, 0 when nothing is armed.
func (s *timeoutScheduler) remaining() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.t == nil {
		return 0
	}
	left := time.Until(s.deadline)
	if left < 0 {
		return 0
	}
	return left
}
