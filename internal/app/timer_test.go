package app

import (
	"testing"
	"time"
)

func TestQuestionTimersFire(t *testing.T) {
	qt := NewQuestionTimers()
	fired := make(chan struct{})
	qt.Schedule(1, 5*time.Millisecond, func() { close(fired) })

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatalf("scheduled timer never fired")
	}
}

func TestQuestionTimersCancel(t *testing.T) {
	qt := NewQuestionTimers()
	fired := make(chan struct{}, 1)
	qt.Schedule(1, 20*time.Millisecond, func() { fired <- struct{}{} })
	qt.Cancel(1)

	select {
	case <-fired:
		t.Fatalf("cancelled timer fired")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestQuestionTimersScheduleSupersedes(t *testing.T) {
	qt := NewQuestionTimers()
	fired := make(chan string, 2)
	qt.Schedule(1, 50*time.Millisecond, func() { fired <- "first" })
	qt.Schedule(1, 5*time.Millisecond, func() { fired <- "second" })

	select {
	case got := <-fired:
		if got != "second" {
			t.Fatalf("expected superseding timer to fire, got %q", got)
		}
	case <-time.After(time.Second):
		t.Fatalf("superseding timer never fired")
	}

	// The first schedule must stay stopped.
	select {
	case got := <-fired:
		t.Fatalf("superseded timer fired: %q", got)
	case <-time.After(100 * time.Millisecond):
	}
}
