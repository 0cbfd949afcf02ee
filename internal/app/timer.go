package app

import (
	"sync"
	"time"
)

// TimerService schedules one-shot delayed transitions. At most one timer is
// outstanding per question id; scheduling for an id supersedes any pending
// timer for that id, and Cancel guarantees a cancelled timer never fires.
type TimerService interface {
	Schedule(questionID int64, delay time.Duration, fn func())
	Cancel(questionID int64)
}

// QuestionTimers is the production TimerService backed by time.AfterFunc.
type QuestionTimers struct {
	mu     sync.Mutex
	timers map[int64]*time.Timer
}

func NewQuestionTimers() *QuestionTimers {
	return &QuestionTimers{timers: make(map[int64]*time.Timer)}
}

func (qt *QuestionTimers) Schedule(questionID int64, delay time.Duration, fn func()) {
	qt.mu.Lock()
	defer qt.mu.Unlock()
	if existing, ok := qt.timers[questionID]; ok {
		existing.Stop()
	}
	qt.timers[questionID] = time.AfterFunc(delay, func() {
		qt.mu.Lock()
		delete(qt.timers, questionID)
		qt.mu.Unlock()
		fn()
	})
}

func (qt *QuestionTimers) Cancel(questionID int64) {
	qt.mu.Lock()
	defer qt.mu.Unlock()
	if t, ok := qt.timers[questionID]; ok {
		// Stop may lose the race with an already-running callback; the
		// engine's epoch check turns such a fire into a no-op.
		t.Stop()
		delete(qt.timers, questionID)
	}
}
