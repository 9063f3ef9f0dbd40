package kiosk

import (
	"sync"
	"time"
)

// IdleTimer fires a callback once after a configurable window with no
// activity.  Activity is reported through Touch; touches inside the
// debounce window collapse into the previous reset so continuous
// pointer movement does not thrash the underlying timer.  The timer is
// independent of the post-check-in Countdown: cancelling one never
// affects the other.
type IdleTimer struct {
	mu        sync.Mutex
	timeout   time.Duration
	debounce  time.Duration
	timer     *time.Timer
	lastReset time.Time
	enabled   bool
	fire      func()
}

// NewIdleTimer builds a stopped timer.  fire runs on the timer's own
// goroutine when the window elapses; callers serialize their own state.
func NewIdleTimer(timeout, debounce time.Duration, fire func()) *IdleTimer {
	return &IdleTimer{timeout: timeout, debounce: debounce, fire: fire}
}

// Start arms the timer and begins a fresh window.  Starting an already
// running timer resets the window.
func (t *IdleTimer) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enabled = true
	t.resetLocked()
}

// Stop disarms the timer.  Touches while stopped are ignored.
func (t *IdleTimer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enabled = false
	if t.timer != nil {
		t.timer.Stop()
	}
}

// Touch records user activity.  A touch within the debounce window of
// the previous reset is a no-op, so N rapid events cost one timer
// reset, not N.
func (t *IdleTimer) Touch() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled {
		return
	}
	if time.Since(t.lastReset) < t.debounce {
		return
	}
	t.resetLocked()
}

func (t *IdleTimer) resetLocked() {
	t.lastReset = time.Now()
	if t.timer == nil {
		t.timer = time.AfterFunc(t.timeout, t.expired)
		return
	}
	t.timer.Stop()
	t.timer.Reset(t.timeout)
}

func (t *IdleTimer) expired() {
	t.mu.Lock()
	enabled := t.enabled
	t.enabled = false // one shot; Start re-arms
	t.mu.Unlock()
	if enabled && t.fire != nil {
		t.fire()
	}
}
