package app

import (
	"sync"

	"quiz-session-service/internal/domain"
)

// Session is one live run-through of a quiz. All mutation happens through the
// engine while holding mu; persistence layers only read it through Snapshot
// or while the engine still holds the lock.
type Session struct {
	mu sync.Mutex

	ID               int64                  `json:"sessionId"`
	QuizID           string                 `json:"quizId"`
	State            domain.State           `json:"state"`
	AtQuestion       int64                  `json:"atQuestion"` // question id, not a position
	AutoStartNum     int                    `json:"autoStartNum"`
	QuestionOpenTime int64                  `json:"questionOpenTime"` // unix seconds
	Players          []*domain.Player       `json:"players"`          // join order
	ResultData       []*domain.ResultData   `json:"resultData"`
	Results          []domain.QuestionResult `json:"results"`
	Messages         []domain.Message       `json:"messages"`

	// epoch increments on every state transition. Timers capture it when
	// armed and fire as no-ops if it has moved on. Process-local.
	epoch uint64 `json:"-"`
}

// NewSession builds a fresh LOBBY session pointed at the quiz's first question.
func NewSession(id int64, quizID string, firstQuestionID int64, autoStartNum int) *Session {
	return &Session{
		ID:           id,
		QuizID:       quizID,
		State:        domain.StateLobby,
		AtQuestion:   firstQuestionID,
		AutoStartNum: autoStartNum,
	}
}

func (s *Session) findPlayer(playerID int64) *domain.Player {
	for _, p := range s.Players {
		if p.ID == playerID {
			return p
		}
	}
	return nil
}

func (s *Session) hasPlayerName(name string) bool {
	for _, p := range s.Players {
		if p.Name == name {
			return true
		}
	}
	return false
}

func (s *Session) findResultData(questionID int64) *domain.ResultData {
	for _, rd := range s.ResultData {
		if rd.QuestionID == questionID {
			return rd
		}
	}
	return nil
}

// setState moves the session and every player to state and bumps the epoch,
// invalidating any timer armed before this transition.
func (s *Session) setState(state domain.State) {
	s.State = state
	for _, p := range s.Players {
		p.State = state
	}
	s.epoch++
}

func (s *Session) playerNames() []string {
	names := make([]string, len(s.Players))
	for i, p := range s.Players {
		names[i] = p.Name
	}
	return names
}
