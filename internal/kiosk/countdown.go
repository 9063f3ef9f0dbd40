package kiosk

import (
	"sync"
	"time"
)

// Countdown drives the auto-redirect shown on the checked-in and
// already-checked-in views: it ticks once per interval, reporting the
// remaining seconds, and invokes done when it reaches zero.  Cancel is
// idempotent and only stops this countdown; the idle timer keeps
// running regardless.
type Countdown struct {
	mu        sync.Mutex
	remaining int
	ticker    *time.Ticker
	stop      chan struct{}
	stopped   bool
	tick      func(remaining int)
	done      func()
}

// StartCountdown begins a countdown of seconds ticks with the given
// interval (one second in production; tests shorten it).  tick may be
// nil.  done runs once, on the countdown's goroutine, unless Cancel is
// called first.
func StartCountdown(seconds int, interval time.Duration, tick func(remaining int), done func()) *Countdown {
	c := &Countdown{
		remaining: seconds,
		ticker:    time.NewTicker(interval),
		stop:      make(chan struct{}),
		tick:      tick,
		done:      done,
	}
	go c.run()
	return c
}

func (c *Countdown) run() {
	for {
		select {
		case <-c.stop:
			return
		case <-c.ticker.C:
			c.mu.Lock()
			if c.stopped {
				c.mu.Unlock()
				return
			}
			c.remaining--
			remaining := c.remaining
			finished := remaining <= 0
			if finished {
				c.stopped = true
				c.ticker.Stop()
			}
			c.mu.Unlock()
			if c.tick != nil {
				c.tick(remaining)
			}
			if finished {
				if c.done != nil {
					c.done()
				}
				return
			}
		}
	}
}

// Cancel stops the countdown.  Calling it a second time has no
// additional effect, and it never fires done afterwards.
func (c *Countdown) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return
	}
	c.stopped = true
	c.ticker.Stop()
	close(c.stop)
}

// Remaining returns the seconds left, zero once finished.
func (c *Countdown) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.remaining < 0 {
		return 0
	}
	return c.remaining
}

// Cancelled reports whether Cancel stopped the countdown before it
// finished.
func (c *Countdown) Cancelled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stopped && c.remaining > 0
}
