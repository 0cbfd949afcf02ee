package memory

import (
	"testing"

	"quiz-session-service/internal/app"
	"quiz-session-service/internal/domain"
)

func TestSessionStoreLifecycle(t *testing.T) {
	store := NewSessionStore()

	if id := store.NextSessionID(); id != 1 {
		t.Fatalf("expected first session id 1, got %d", id)
	}
	if id := store.NextSessionID(); id != 2 {
		t.Fatalf("expected second session id 2, got %d", id)
	}

	session := app.NewSession(1, "quiz-1", 101, 2)
	store.Create(session)

	got, ok := store.Get(1)
	if !ok || got != session {
		t.Fatalf("expected created session back")
	}
	if _, ok := store.Get(99); ok {
		t.Fatalf("expected miss for unknown session")
	}
	if sessions := store.Sessions("quiz-1"); len(sessions) != 1 {
		t.Fatalf("expected one session for quiz, got %d", len(sessions))
	}
	if sessions := store.Sessions("other"); len(sessions) != 0 {
		t.Fatalf("expected no sessions for other quiz, got %d", len(sessions))
	}
}

func TestSessionStoreIndexesPlayersOnSave(t *testing.T) {
	store := NewSessionStore()

	session := app.NewSession(1, "quiz-1", 101, 2)
	store.Create(session)

	playerID := store.NextPlayerID()
	session.Players = append(session.Players, &domain.Player{ID: playerID, Name: "Alice"})

	if _, ok := store.FindByPlayer(playerID); ok {
		t.Fatalf("player should not resolve before Save")
	}
	store.Save(session)
	got, ok := store.FindByPlayer(playerID)
	if !ok || got != session {
		t.Fatalf("expected player to resolve to session after Save")
	}
}
