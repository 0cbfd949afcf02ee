package redis

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"quiz-session-service/internal/app"
)

// SessionStore is the Redis-aware implementation of app.SessionStore.
// Notes:
//   - Live sessions stay in a local map because the engine mutates them under
//     an in-process mutex; Redis holds the checkpoint written on every Save
//     plus the monotonic id counters.
//   - A restarted instance can replay the snapshots; cross-instance routing
//     of one session is out of scope (one session has one home process).
type SessionStore struct {
	client *redis.Client
	ttl    time.Duration

	mu       sync.RWMutex
	sessions map[int64]*app.Session
	byQuiz   map[string][]*app.Session
	byPlayer map[int64]int64

	// Fallbacks when Redis is unreachable; ids must keep flowing even if a
	// checkpoint write is lost.
	localSessionID atomic.Int64
	localPlayerID  atomic.Int64
}

func NewSessionStore(client *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{
		client:   client,
		ttl:      ttl,
		sessions: make(map[int64]*app.Session),
		byQuiz:   make(map[string][]*app.Session),
		byPlayer: make(map[int64]int64),
	}
}

func (s *SessionStore) Create(session *app.Session) {
	s.mu.Lock()
	s.sessions[session.ID] = session
	s.byQuiz[session.QuizID] = append(s.byQuiz[session.QuizID], session)
	s.mu.Unlock()
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

func (s *SessionStore) NextSessionID() int64 {
	return s.nextID("quiz:counter:session", &s.localSessionID)
}

func (s *SessionStore) NextPlayerID() int64 {
	return s.nextID("quiz:counter:player", &s.localPlayerID)
}

func (s *SessionStore) nextID(key string, fallback *atomic.Int64) int64 {
	id, err := s.client.Incr(context.Background(), key).Result()
	if err != nil {
		// Redis down: keep allocating from the local high-water mark.
		return fallback.Add(1)
	}
	// Track the allocated id so a later fallback never goes backwards.
	for {
		cur := fallback.Load()
		if cur >= id || fallback.CompareAndSwap(cur, id) {
			return id
		}
	}
}

// Save checkpoints the session snapshot (caller holds the session lock) and
// refreshes the player index. The write is best effort; the in-process state
// remains authoritative.
func (s *SessionStore) Save(session *app.Session) {
	s.mu.Lock()
	for _, p := range session.Players {
		s.byPlayer[p.ID] = session.ID
	}
	s.mu.Unlock()

	snapshot, err := json.Marshal(session)
	if err != nil {
		return
	}
	ctx := context.Background()
	_ = s.client.Set(ctx, s.snapshotKey(session.ID), snapshot, s.ttl).Err()
	_ = s.client.Set(ctx, s.livenessKey(session.ID), "1", s.ttl).Err()
}

// LoadSnapshot fetches the last checkpoint written for a session.
func (s *SessionStore) LoadSnapshot(ctx context.Context, sessionID int64) (*app.Session, error) {
	raw, err := s.client.Get(ctx, s.snapshotKey(sessionID)).Bytes()
	if err != nil {
		return nil, err
	}
	var session app.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *SessionStore) snapshotKey(sessionID int64) string {
	return "quiz:session:" + strconv.FormatInt(sessionID, 10) + ":state"
}

func (s *SessionStore) livenessKey(sessionID int64) string {
	return "quiz:session:" + strconv.FormatInt(sessionID, 10) + ":alive"
}
