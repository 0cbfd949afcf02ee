package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"quiz-session-service/internal/app"
	"quiz-session-service/internal/domain"
)

// HostHandler exposes the operator surface over plain HTTP: start sessions,
// drive the state machine, read status and results.
type HostHandler struct {
	engine *app.Engine
	log    *zap.Logger
}

func NewHostHandler(engine *app.Engine, log *zap.Logger) *HostHandler {
	return &HostHandler{engine: engine, log: log}
}

// Register mounts the host routes on mux.
func (h *HostHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/quizzes/{quizId}/sessions", h.startSession)
	mux.HandleFunc("GET /v1/quizzes/{quizId}/sessions", h.listSessions)
	mux.HandleFunc("PUT /v1/sessions/{sessionId}", h.advance)
	mux.HandleFunc("GET /v1/sessions/{sessionId}", h.status)
	mux.HandleFunc("GET /v1/sessions/{sessionId}/results", h.finalResults)
	mux.HandleFunc("GET /v1/sessions/{sessionId}/results/csv", h.resultsCSV)
}

type startSessionRequest struct {
	AutoStartNum int `json:"autoStartNum"`
}

func (h *HostHandler) startSession(w http.ResponseWriter, r *http.Request) {
	var req startSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, domain.ErrAutoStartNum)
		return
	}
	sessionID, err := h.engine.StartSession(r.Context(), r.PathValue("quizId"), req.AutoStartNum)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, map[string]int64{"sessionId": sessionID})
}

func (h *HostHandler) listSessions(w http.ResponseWriter, r *http.Request) {
	active, inactive, err := h.engine.SessionList(r.PathValue("quizId"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string][]int64{
		"activeSessions":   active,
		"inactiveSessions": inactive,
	})
}

type advanceRequest struct {
	Action string `json:"action"`
}

func (h *HostHandler) advance(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	var req advanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, domain.ErrInvalidAction)
		return
	}
	action, ok := domain.ParseAction(req.Action)
	if !ok {
		h.writeError(w, domain.ErrInvalidAction)
		return
	}
	if err := h.engine.Advance(r.Context(), sessionID, action); err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, struct{}{})
}

func (h *HostHandler) status(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	status, err := h.engine.SessionStatus(sessionID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, status)
}

func (h *HostHandler) finalResults(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	results, err := h.engine.SessionFinalResults(r.Context(), sessionID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, results)
}

func (h *HostHandler) resultsCSV(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r)
	if !ok {
		return
	}
	csvBytes, err := h.engine.SessionResultsCSV(r.Context(), sessionID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(csvBytes)
}

func (h *HostHandler) sessionID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	sessionID, err := strconv.ParseInt(r.PathValue("sessionId"), 10, 64)
	if err != nil {
		h.writeError(w, domain.ErrSessionNotFound)
		return 0, false
	}
	return sessionID, true
}

func (h *HostHandler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.log.Debug("response write failed", zap.Error(err))
	}
}

func (h *HostHandler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case domain.IsNotFound(err):
		status = http.StatusNotFound
	case domain.IsConflict(err):
		status = http.StatusConflict
	case domain.IsInvalidState(err), domain.IsInvalidInput(err):
		status = http.StatusBadRequest
	}
	h.writeJSON(w, status, map[string]string{"error": err.Error()})
}
