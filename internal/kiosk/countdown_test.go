package kiosk

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestCountdownTicksDownAndFiresDone(t *testing.T) {
	done := make(chan struct{})
	var ticks atomic.Int32
	StartCountdown(3, 5*time.Millisecond, func(remaining int) {
		ticks.Add(1)
	}, func() { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("countdown never finished")
	}
	if n := ticks.Load(); n != 3 {
		t.Errorf("ticked %d times, want 3", n)
	}
}

func TestCountdownCancelStopsDone(t *testing.T) {
	done := make(chan struct{})
	c := StartCountdown(1000, time.Hour, nil, func() { close(done) })
	c.Cancel()

	select {
	case <-done:
		t.Fatal("done fired after Cancel")
	case <-time.After(30 * time.Millisecond):
	}
	if !c.Cancelled() {
		t.Error("Cancelled() = false after Cancel")
	}
	if got := c.Remaining(); got != 1000 {
		t.Errorf("Remaining() = %d, want 1000", got)
	}
}

func TestCountdownCancelIdempotent(t *testing.T) {
	c := StartCountdown(10, time.Hour, nil, nil)
	c.Cancel()
	c.Cancel() // must not panic or close the stop channel twice
	c.Cancel()
	if !c.Cancelled() {
		t.Error("Cancelled() = false after repeated Cancel")
	}
}

func TestCountdownRemainingNeverNegative(t *testing.T) {
	done := make(chan struct{})
	c := StartCountdown(1, 5*time.Millisecond, nil, func() { close(done) })
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("countdown never finished")
	}
	if got := c.Remaining(); got != 0 {
		t.Errorf("Remaining() after finish = %d, want 0", got)
	}
	if c.Cancelled() {
		t.Error("Cancelled() = true for a countdown that ran to zero")
	}
}
