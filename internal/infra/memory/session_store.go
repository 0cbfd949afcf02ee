package memory

import (
	"sync"
	"sync/atomic"

	"quiz-session-service/internal/app"
)

// SessionStore is the in-process implementation of app.SessionStore. Sessions
// live for the life of the process; id counters are process-local atomics.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[int64]*app.Session
	byQuiz   map[string][]*app.Session
	byPlayer map[int64]int64 // playerID -> sessionID

	sessionID atomic.Int64
	playerID  atomic.Int64
}

func NewSessionStore() *SessionStore {
	return &SessionStore{
		sessions: make(map[int64]*app.Session),
		byQuiz:   make(map[string][]*app.Session),
		byPlayer: make(map[int64]int64),
	}
}

func (s *SessionStore) Create(session *app.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[session.ID] = session
	s.byQuiz[session.QuizID] = append(s.byQuiz[session.QuizID], session)
}

func (s *SessionStore) Get(sessionID int64) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[sessionID]
	return session, ok
}

func (s *SessionStore) FindByPlayer(playerID int64) (*app.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sessionID, ok := s.byPlayer[playerID]
	if !ok {
		return nil, false
	}
	session, ok := s.sessions[sessionID]
	return session, ok
}

func (s *SessionStore) Sessions(quizID string) []*app.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*app.Session, len(s.byQuiz[quizID]))
	copy(out, s.byQuiz[quizID])
	return out
}

func (s *SessionStore) NextSessionID() int64 { return s.sessionID.Add(1) }
func (s *SessionStore) NextPlayerID() int64  { return s.playerID.Add(1) }

// Save refreshes the player index. The caller still holds the session lock,
// so reading the roster here is safe.
func (s *SessionStore) Save(session *app.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range session.Players {
		s.byPlayer[p.ID] = session.ID
	}
}
