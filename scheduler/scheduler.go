package scheduler

import (
	"sync"
	"time"
)

// DefaultSkew is how long before expiry a refresh fires
const DefaultSkew = 60 * time.Second

type State int

const (
	Idle State = iota
	Armed
)

func (s State) String() string {
	if s == Armed {
		return "armed"
	}
	return "idle"
}

// Timer is the handle returned by an AfterFunc. *time.Timer satisfies it.
type Timer interface {
	Stop() bool
}

// AfterFunc runs f on its own goroutine once d has elapsed
type AfterFunc func(d time.Duration, f func()) Timer

func stdAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Scheduler owns a single refresh timer slot. Arm and Cancel are the only
// mutators and, together with the timer callback bookkeeping, are mutually
// exclusive. At most one timer is live at any time.
type Scheduler struct {
	mu        sync.Mutex
	skew      time.Duration
	nowFunc   func() time.Time
	afterFunc AfterFunc

	seq    uint64 // bumped on every Arm and Cancel; a callback only fires if its seq is current
	timer  Timer
	fireAt time.Time
	state  State
}

type Option func(*Scheduler)

// WithSkew sets the lead time subtracted from expiry. Negative values are treated as zero.
func WithSkew(skew time.Duration) Option {
	return func(s *Scheduler) {
		if skew < 0 {
			skew = 0
		}
		s.skew = skew
	}
}

func WithNowFunc(now func() time.Time) Option {
	return func(s *Scheduler) {
		s.nowFunc = now
	}
}

func WithAfterFunc(afterFunc AfterFunc) Option {
	return func(s *Scheduler) {
		s.afterFunc = afterFunc
	}
}

func New(options ...Option) *Scheduler {
	s := &Scheduler{
		skew:      DefaultSkew,
		nowFunc:   time.Now,
		afterFunc: stdAfterFunc,
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// Arm replaces any pending timer with one that calls onDue at expiresAt - skew.
// If that moment has already passed, onDue is scheduled with no delay; it is
// never called from inside Arm.
func (s *Scheduler) Arm(expiresAt time.Time, onDue func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.cancelLocked()

	fireAt := expiresAt.Add(-s.skew)
	delay := fireAt.Sub(s.nowFunc())
	if delay < 0 {
		delay = 0
	}

	seq := s.seq
	s.fireAt = fireAt
	s.state = Armed
	s.timer = s.afterFunc(delay, func() {
		s.fire(seq, onDue)
	})
}

// Cancel stops the pending timer, if any. Calling it when idle is a no-op.
func (s *Scheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked()
}

func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// FireAt reports when the armed timer is due
func (s *Scheduler) FireAt() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Armed {
		return time.Time{}, false
	}
	return s.fireAt, true
}

func (s *Scheduler) Skew() time.Duration {
	return s.skew
}

func (s *Scheduler) cancelLocked() {
	s.seq++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.fireAt = time.Time{}
	s.state = Idle
}

// fire runs onDue outside the lock so the callback may Arm again
func (s *Scheduler) fire(seq uint64, onDue func()) {
	s.mu.Lock()
	if s.state != Armed || s.seq != seq {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	s.fireAt = time.Time{}
	s.state = Idle
	s.mu.Unlock()

	if onDue != nil {
		onDue()
	}
}
