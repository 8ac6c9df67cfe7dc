package scheduler_test

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jrsteele09/lively-auth/scheduler"
	"github.com/stretchr/testify/require"
)

type fakeTimer struct {
	delay   time.Duration
	f       func()
	stopped bool
}

func (t *fakeTimer) Stop() bool {
	wasLive := !t.stopped
	t.stopped = true
	return wasLive
}

// fakeTimers records every timer instead of starting it; tests fire them by hand
type fakeTimers struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (f *fakeTimers) afterFunc(d time.Duration, fn func()) scheduler.Timer {
	f.mu.Lock()
	defer f.mu.Unlock()
	t := &fakeTimer{delay: d, f: fn}
	f.timers = append(f.timers, t)
	return t
}

func (f *fakeTimers) live() []*fakeTimer {
	f.mu.Lock()
	defer f.mu.Unlock()
	var live []*fakeTimer
	for _, t := range f.timers {
		if !t.stopped {
			live = append(live, t)
		}
	}
	return live
}

func (f *fakeTimers) last() *fakeTimer {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.timers[len(f.timers)-1]
}

func newFakeScheduler(now time.Time) (*scheduler.Scheduler, *fakeTimers) {
	timers := &fakeTimers{}
	s := scheduler.New(
		scheduler.WithSkew(time.Minute),
		scheduler.WithNowFunc(func() time.Time { return now }),
		scheduler.WithAfterFunc(timers.afterFunc),
	)
	return s, timers
}

func TestArm(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	t.Run("fires skew before expiry", func(t *testing.T) {
		s, timers := newFakeScheduler(now)

		s.Arm(now.Add(10*time.Minute), func() {})

		require.Equal(t, scheduler.Armed, s.State())
		require.Len(t, timers.live(), 1)
		require.Equal(t, 9*time.Minute, timers.last().delay)

		fireAt, ok := s.FireAt()
		require.True(t, ok)
		require.Equal(t, now.Add(9*time.Minute), fireAt)
	})

	delays := []struct {
		name      string
		expiresIn time.Duration
	}{
		{"expiry equals skew", time.Minute},
		{"expiry inside skew", 30 * time.Second},
		{"already expired", -time.Hour},
	}
	for _, tt := range delays {
		t.Run(tt.name+" fires immediately", func(t *testing.T) {
			s, timers := newFakeScheduler(now)

			s.Arm(now.Add(tt.expiresIn), func() {})

			require.Equal(t, time.Duration(0), timers.last().delay, "delay must never be negative")
		})
	}

	t.Run("second arm replaces the first", func(t *testing.T) {
		s, timers := newFakeScheduler(now)
		var first, second int

		s.Arm(now.Add(10*time.Minute), func() { first++ })
		s.Arm(now.Add(20*time.Minute), func() { second++ })

		live := timers.live()
		require.Len(t, live, 1)
		require.Equal(t, 19*time.Minute, live[0].delay)

		// a stale callback that was already running when it got replaced is ignored
		timers.timers[0].f()
		live[0].f()
		require.Equal(t, 0, first)
		require.Equal(t, 1, second)
	})

	t.Run("fire returns to idle and allows re-arm from callback", func(t *testing.T) {
		s, timers := newFakeScheduler(now)
		var fired int

		var onDue func()
		onDue = func() {
			fired++
			s.Arm(now.Add(10*time.Minute), onDue)
		}
		s.Arm(now.Add(10*time.Minute), onDue)

		timers.last().f()

		require.Equal(t, 1, fired)
		require.Equal(t, scheduler.Armed, s.State())
		require.Len(t, timers.live(), 2, "the fired timer is not stopped but is spent")
		require.Len(t, timers.timers, 2)
	})
}

func TestCancel(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	t.Run("idempotent", func(t *testing.T) {
		s, _ := newFakeScheduler(now)

		s.Cancel()
		s.Cancel()
		s.Cancel()

		require.Equal(t, scheduler.Idle, s.State())
		_, ok := s.FireAt()
		require.False(t, ok)
	})

	t.Run("pending fire becomes a no-op", func(t *testing.T) {
		s, timers := newFakeScheduler(now)
		var fired int

		s.Arm(now.Add(10*time.Minute), func() { fired++ })
		pending := timers.last()
		s.Cancel()

		pending.f()

		require.Equal(t, 0, fired)
		require.True(t, pending.stopped)
		require.Equal(t, scheduler.Idle, s.State())
	})

	t.Run("cancel then arm leaves one live timer", func(t *testing.T) {
		s, timers := newFakeScheduler(now)

		s.Arm(now.Add(10*time.Minute), func() {})
		s.Cancel()
		s.Arm(now.Add(10*time.Minute), func() {})

		require.Len(t, timers.live(), 1)
	})
}

func TestRealTimers(t *testing.T) {
	t.Run("immediate fire is asynchronous", func(t *testing.T) {
		s := scheduler.New(scheduler.WithSkew(time.Minute))
		done := make(chan struct{})
		var insideArm atomic.Bool

		insideArm.Store(true)
		s.Arm(time.Now(), func() {
			require.False(t, insideArm.Load(), "onDue must not run inside Arm")
			close(done)
		})
		insideArm.Store(false)

		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("expected immediate fire")
		}
		require.Equal(t, scheduler.Idle, s.State())
	})

	t.Run("concurrent arm and cancel leave at most one timer", func(t *testing.T) {
		s := scheduler.New(scheduler.WithSkew(0))
		var fired atomic.Int32

		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(2)
			go func() {
				defer wg.Done()
				s.Arm(time.Now().Add(time.Hour), func() { fired.Add(1) })
			}()
			go func() {
				defer wg.Done()
				s.Cancel()
			}()
		}
		wg.Wait()
		s.Cancel()
		s.Arm(time.Now().Add(20*time.Millisecond), func() { fired.Add(1) })

		require.Eventually(t, func() bool { return fired.Load() == 1 }, 2*time.Second, 5*time.Millisecond)
		time.Sleep(100 * time.Millisecond)
		require.Equal(t, int32(1), fired.Load(), "only the last armed timer may fire")
	})
}

func TestDefaults(t *testing.T) {
	require.Equal(t, scheduler.DefaultSkew, scheduler.New().Skew())
	require.Equal(t, time.Duration(0), scheduler.New(scheduler.WithSkew(-time.Second)).Skew())
	require.Equal(t, "armed", scheduler.Armed.String())
	require.Equal(t, "idle", scheduler.Idle.String())
}
