package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"quiz-session-service/internal/app"
)

// WSHandler is the player-facing websocket API: join a session, answer,
// chat, read results — all over one socket, with session transitions pushed
// as they happen.
type WSHandler struct {
	engine   *app.Engine
	hub      *Hub
	log      *zap.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(engine *app.Engine, hub *Hub, log *zap.Logger) *WSHandler {
	return &WSHandler{
		engine: engine,
		hub:    hub,
		log:    log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	QuestionPosition int     `json:"questionPosition"`
	AnswerIDs        []int64 `json:"answerIds"`
}

type positionPayload struct {
	QuestionPosition int `json:"questionPosition"`
}

type chatPayload struct {
	Message string `json:"message"`
}

type joinedPayload struct {
	PlayerID int64 `json:"playerId"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades the request, joins the player into the session named by
// the query string, then serves the message loop.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	sessionID, err := strconv.ParseInt(r.URL.Query().Get("sessionId"), 10, 64)
	if err != nil {
		http.Error(w, "missing or invalid sessionId", http.StatusBadRequest)
		return
	}
	name := r.URL.Query().Get("name") // blank means a generated name

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	playerID, err := h.engine.Join(r.Context(), sessionID, name)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}

	updates, cancel := h.hub.Subscribe(sessionID)
	defer cancel()

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	updatesDone := make(chan struct{})

	// Single writer goroutine; gorilla connections do not allow concurrent
	// writes.
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.log.Debug("ws write error", zap.Error(err))
				return
			}
		}
	}()

	go func() {
		defer close(updatesDone)
		for {
			select {
			case update, ok := <-updates:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage[any]{Type: "state", Payload: update}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	send <- outboundMessage[any]{Type: "joined", Payload: joinedPayload{PlayerID: playerID}}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		if reply := h.dispatch(r, playerID, inbound); reply != nil {
			select {
			case send <- *reply:
			case <-writerDone:
			}
		}
	}

	close(closeSignals)
	<-updatesDone
	close(send)
	<-writerDone
}

func (h *WSHandler) dispatch(r *http.Request, playerID int64, inbound inboundMessage) *outboundMessage[any] {
	switch inbound.Type {
	case "answer":
		var payload answerPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return errorMessage("invalid answer payload")
		}
		if err := h.engine.SubmitAnswer(r.Context(), playerID, payload.QuestionPosition, payload.AnswerIDs); err != nil {
			return errorMessage(err.Error())
		}
		return &outboundMessage[any]{Type: "answerAccepted", Payload: positionPayload{QuestionPosition: payload.QuestionPosition}}

	case "status":
		status, err := h.engine.PlayerStatus(playerID)
		if err != nil {
			return errorMessage(err.Error())
		}
		return &outboundMessage[any]{Type: "status", Payload: status}

	case "question":
		var payload positionPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return errorMessage("invalid question payload")
		}
		question, err := h.engine.QuestionInfo(r.Context(), playerID, payload.QuestionPosition)
		if err != nil {
			return errorMessage(err.Error())
		}
		return &outboundMessage[any]{Type: "question", Payload: question}

	case "questionResults":
		var payload positionPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return errorMessage("invalid questionResults payload")
		}
		result, err := h.engine.QuestionResults(r.Context(), playerID, payload.QuestionPosition)
		if err != nil {
			return errorMessage(err.Error())
		}
		return &outboundMessage[any]{Type: "questionResults", Payload: result}

	case "finalResults":
		results, err := h.engine.PlayerFinalResults(r.Context(), playerID)
		if err != nil {
			return errorMessage(err.Error())
		}
		return &outboundMessage[any]{Type: "finalResults", Payload: results}

	case "chat":
		var payload chatPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			return errorMessage("invalid chat payload")
		}
		if err := h.engine.ChatSend(playerID, payload.Message); err != nil {
			return errorMessage(err.Error())
		}
		return nil

	case "chatLog":
		messages, err := h.engine.ChatView(playerID)
		if err != nil {
			return errorMessage(err.Error())
		}
		return &outboundMessage[any]{Type: "chatLog", Payload: messages}

	default:
		return errorMessage("unsupported message type")
	}
}

func errorMessage(msg string) *outboundMessage[any] {
	return &outboundMessage[any]{Type: "error", Payload: errorPayload{Message: msg}}
}
