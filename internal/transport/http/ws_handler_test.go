package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"quiz-session-service/internal/app"
	"quiz-session-service/internal/domain"
	"quiz-session-service/internal/infra/memory"
)

const testQuizID = "quiz-1"

// quickQuizID closes its only question after a second, for flow tests that
// need to reach the result states on real timers.
const quickQuizID = "quick-1"

func newTestServer(t *testing.T) (*app.Engine, *httptest.Server) {
	t.Helper()
	store := memory.NewSessionStore()
	repo := memory.NewQuizRepository(memory.NewStaticQuizLoader(sampleQuizzes()), time.Minute)
	log := zap.NewNop()
	// A countdown this long never fires during a test; transitions are driven
	// by SKIP_COUNTDOWN.
	engine := app.NewEngine(store, repo, app.NewQuestionTimers(), log, app.Tuning{Countdown: time.Hour})
	hub := NewHub()
	engine.SetNotifier(hub)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", NewWSHandler(engine, hub, log).ServeWS)
	NewHostHandler(engine, log).Register(mux)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return engine, server
}

func dialPlayer(t *testing.T, server *httptest.Server, sessionID int64, name string) *websocket.Conn {
	t.Helper()
	u := "ws" + server.URL[len("http"):] + "/ws?sessionId=" + strconv.FormatInt(sessionID, 10) + "&name=" + name
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readNext(t *testing.T, conn *websocket.Conn) (string, map[string]any) {
	t.Helper()
	var msg struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	return msg.Type, msg.Payload
}

// readUntil skips interleaved pushes (state events) until the wanted type
// shows up.
func readUntil(t *testing.T, conn *websocket.Conn, want string) map[string]any {
	t.Helper()
	for i := 0; i < 10; i++ {
		typ, payload := readNext(t, conn)
		if typ == want {
			return payload
		}
		if typ == "error" {
			t.Fatalf("expected %s, got error: %v", want, payload)
		}
	}
	t.Fatalf("never received %s", want)
	return nil
}

func TestWebSocketAnswerFlow(t *testing.T) {
	ctx := context.Background()
	engine, server := newTestServer(t)

	sessionID, err := engine.StartSession(ctx, testQuizID, 1)
	if err != nil {
		t.Fatalf("start session: %v", err)
	}

	conn := dialPlayer(t, server, sessionID, "Alice")

	payload := readUntil(t, conn, "joined")
	if _, ok := payload["playerId"]; !ok {
		t.Fatalf("expected playerId in joined payload, got %v", payload)
	}

	// The join reached the autostart threshold; open the question.
	if err := engine.Advance(ctx, sessionID, domain.ActionSkipCountdown); err != nil {
		t.Fatalf("skip countdown: %v", err)
	}
	state := readUntil(t, conn, "state")
	if state["state"] != string(domain.StateQuestionOpen) {
		t.Fatalf("expected QUESTION_OPEN push, got %v", state)
	}

	if err := conn.WriteJSON(map[string]any{
		"type": "question",
		"payload": map[string]any{
			"questionPosition": 1,
		},
	}); err != nil {
		t.Fatalf("write question: %v", err)
	}
	question := readUntil(t, conn, "question")
	if question["text"] != "What is 2 + 2?" {
		t.Fatalf("unexpected question payload %v", question)
	}

	if err := conn.WriteJSON(map[string]any{
		"type": "answer",
		"payload": map[string]any{
			"questionPosition": 1,
			"answerIds":        []int64{12},
		},
	}); err != nil {
		t.Fatalf("write answer: %v", err)
	}
	accepted := readUntil(t, conn, "answerAccepted")
	if accepted["questionPosition"] != float64(1) {
		t.Fatalf("unexpected answerAccepted payload %v", accepted)
	}

	if err := conn.WriteJSON(map[string]any{"type": "status"}); err != nil {
		t.Fatalf("write status: %v", err)
	}
	status := readUntil(t, conn, "status")
	if status["state"] != string(domain.StateQuestionOpen) || status["atQuestion"] != float64(1) {
		t.Fatalf("unexpected status payload %v", status)
	}
}

func TestWebSocketChat(t *testing.T) {
	ctx := context.Background()
	engine, server := newTestServer(t)

	sessionID, err := engine.StartSession(ctx, testQuizID, 10)
	if err != nil {
		t.Fatalf("start session: %v", err)
	}

	alice := dialPlayer(t, server, sessionID, "Alice")
	readUntil(t, alice, "joined")
	bob := dialPlayer(t, server, sessionID, "Bob")
	readUntil(t, bob, "joined")

	if err := alice.WriteJSON(map[string]any{
		"type":    "chat",
		"payload": map[string]any{"message": "hello"},
	}); err != nil {
		t.Fatalf("write chat: %v", err)
	}
	// Chat has no direct reply. A conn's messages are handled in order, so
	// Alice's own chatLog read proves the message landed before Bob looks.
	log := readChatLog(t, alice)
	if len(log) != 1 || log[0]["playerName"] != "Alice" || log[0]["message"] != "hello" {
		t.Fatalf("unexpected chat log %v", log)
	}

	log = readChatLog(t, bob)
	if len(log) != 1 || log[0]["message"] != "hello" {
		t.Fatalf("expected bob to see the message, got %v", log)
	}
}

func readChatLog(t *testing.T, conn *websocket.Conn) []map[string]any {
	t.Helper()
	if err := conn.WriteJSON(map[string]any{"type": "chatLog"}); err != nil {
		t.Fatalf("write chatLog: %v", err)
	}
	for i := 0; i < 10; i++ {
		var msg struct {
			Type    string           `json:"type"`
			Payload []map[string]any `json:"payload"`
		}
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read chatLog: %v", err)
		}
		if msg.Type == "chatLog" {
			return msg.Payload
		}
	}
	t.Fatalf("never received chatLog")
	return nil
}

func TestWebSocketRejectsUnknownSession(t *testing.T) {
	_, server := newTestServer(t)

	conn := dialPlayer(t, server, 999, "Alice")
	typ, payload := readNext(t, conn)
	if typ != "error" {
		t.Fatalf("expected error for unknown session, got %s %v", typ, payload)
	}
}

func sampleQuizzes() map[string]domain.Quiz {
	return map[string]domain.Quiz{
		testQuizID: {
			ID:   testQuizID,
			Name: "Arithmetic",
			Questions: []domain.Question{
				{
					ID:       1,
					Text:     "What is 2 + 2?",
					Duration: 30,
					Points:   10,
					Answers: []domain.Answer{
						{ID: 11, Text: "3", Colour: "red"},
						{ID: 12, Text: "4", Colour: "blue", Correct: true},
						{ID: 13, Text: "5", Colour: "green"},
					},
				},
			},
		},
		quickQuizID: {
			ID:   quickQuizID,
			Name: "Quickfire",
			Questions: []domain.Question{
				{
					ID:       21,
					Text:     "What is 1 + 1?",
					Duration: 1,
					Points:   10,
					Answers: []domain.Answer{
						{ID: 31, Text: "2", Colour: "red", Correct: true},
						{ID: 32, Text: "3", Colour: "blue"},
					},
				},
			},
		},
	}
}
