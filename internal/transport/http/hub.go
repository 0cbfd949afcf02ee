package http

import (
	"sync"

	"quiz-session-service/internal/domain"
)

// StateEvent tells connected players the session moved.
type StateEvent struct {
	SessionID  int64        `json:"sessionId"`
	State      domain.State `json:"state"`
	AtQuestion int64        `json:"atQuestion"`
}

// Hub fans session transitions out to websocket subscribers. It implements
// app.Notifier, so timer-driven transitions reach players the same way
// operator actions do.
type Hub struct {
	mu          sync.Mutex
	subscribers map[int64]map[chan StateEvent]struct{}
}

func NewHub() *Hub {
	return &Hub{subscribers: make(map[int64]map[chan StateEvent]struct{})}
}

// Subscribe returns a channel of transition events for a session. The caller
// must invoke the returned cancel function to avoid leaks.
func (h *Hub) Subscribe(sessionID int64) (<-chan StateEvent, func()) {
	ch := make(chan StateEvent, 8)

	h.mu.Lock()
	if h.subscribers[sessionID] == nil {
		h.subscribers[sessionID] = make(map[chan StateEvent]struct{})
	}
	h.subscribers[sessionID][ch] = struct{}{}
	h.mu.Unlock()

	cancel := func() {
		h.mu.Lock()
		if subs, ok := h.subscribers[sessionID]; ok {
			if _, ok := subs[ch]; ok {
				delete(subs, ch)
				close(ch)
			}
			if len(subs) == 0 {
				delete(h.subscribers, sessionID)
			}
		}
		h.mu.Unlock()
	}
	return ch, cancel
}

// SessionStateChanged broadcasts a transition. Slow subscribers lose their
// oldest event rather than blocking the engine.
func (h *Hub) SessionStateChanged(sessionID int64, state domain.State, atQuestion int64) {
	event := StateEvent{SessionID: sessionID, State: state, AtQuestion: atQuestion}

	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subscribers[sessionID] {
		select {
		case ch <- event:
		default:
			select {
			case <-ch:
			default:
			}
			ch <- event
		}
	}
}
