package game

import (
	"sync"
	"time"
)

// Scheduler runs the automatic reveal cadence for one game as a chain
// of one-shot timers: the next timer is armed only after the previous
// tick's work has finished. A reveal that takes longer than the
// interval therefore delays the next reveal instead of overlapping it.
//
// States: stopped, running. Start and Stop are both idempotent, and
// Stop cancels any pending timer before returning so a subsequent Start
// can never race a stale fire.
type Scheduler struct {
	mu      sync.Mutex
	timer   *time.Timer
	running bool

	// gen identifies the current chain. A tick that was already
	// executing when Stop ran carries a stale generation and must not
	// re-arm, even if Start has since begun a new chain.
	gen uint64
}

// NewScheduler returns a stopped scheduler.
func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// Start arms the first one-shot timer. tick runs after each interval
// and returns whether the chain should continue; returning false stops
// the scheduler. No-op if already running.
func (s *Scheduler) Start(interval time.Duration, tick func() bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return
	}
	s.running = true
	s.gen++
	s.schedule(s.gen, interval, tick)
}

// schedule arms one timer for the given chain generation. Caller holds
// s.mu.
func (s *Scheduler) schedule(gen uint64, interval time.Duration, tick func() bool) {
	s.timer = time.AfterFunc(interval, func() {
		again := tick()

		s.mu.Lock()
		defer s.mu.Unlock()
		if !s.running || gen != s.gen {
			return
		}
		if !again {
			s.running = false
			s.timer = nil
			return
		}
		s.schedule(gen, interval, tick)
	})
}

// Stop cancels any pending timer and transitions to stopped. Idempotent.
// A tick already executing will finish, but its generation is stale and
// it cannot re-arm, even after a later Start begins a new chain.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}
	s.running = false
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}

// Running reports whether a timer chain is active.
func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}
