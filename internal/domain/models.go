package domain

// Answer is one selectable option of a question. IDs are issued by the
// authoring layer and are unique across the whole quiz catalogue.
type Answer struct {
	ID      int64  `json:"id"`
	Text    string `json:"text"`
	Colour  string `json:"colour"`
	Correct bool   `json:"correct"`
}

// Question carries everything the session engine needs to run one round:
// how long it stays open, how many points it pays and which answers count.
type Question struct {
	ID           int64    `json:"id"`
	Text         string   `json:"text"`
	Duration     int      `json:"duration"` // seconds the question is answerable
	Points       float64  `json:"points"`
	ThumbnailURL string   `json:"thumbnailUrl"`
	Answers      []Answer `json:"answers"`
}

// HasAnswer reports whether id belongs to this question's answer set.
func (q Question) HasAnswer(id int64) bool {
	for _, a := range q.Answers {
		if a.ID == id {
			return true
		}
	}
	return false
}

// CorrectIDs returns the ids of all answers flagged correct.
func (q Question) CorrectIDs() map[int64]struct{} {
	ids := make(map[int64]struct{})
	for _, a := range q.Answers {
		if a.Correct {
			ids[a.ID] = struct{}{}
		}
	}
	return ids
}

// Sanitized returns a copy of the question with correctness stripped, safe to
// show players while the question is still live.
func (q Question) Sanitized() Question {
	out := q
	out.Answers = make([]Answer, len(q.Answers))
	for i, a := range q.Answers {
		a.Correct = false
		out.Answers[i] = a
	}
	return out
}

// Quiz is the content a session runs through, owned by the authoring layer.
type Quiz struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Questions []Question `json:"questions"`
}

// Player is a participant in exactly one session for its lifetime.
// QuestionScores and QuestionRanks grow by one entry per question the player
// has been scored for, index-aligned with question order.
type Player struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	State          State     `json:"state"`
	Score          float64   `json:"score"`
	QuestionScores []float64 `json:"questionScores"`
	QuestionRanks  []int     `json:"questionRanks"`
	NumQuestions   int       `json:"numQuestions"`
	AtQuestion     int       `json:"atQuestion"` // 1-based question position
}

// Message is one chat entry in a session, chronological.
type Message struct {
	PlayerID   int64  `json:"playerId"`
	PlayerName string `json:"playerName"`
	Body       string `json:"message"`
	TimeSent   int64  `json:"timeSent"` // unix seconds
}

// ResultData accumulates per-question submissions while a question runs.
// PlayersCorrect is ordered by arrival of correct answers; that order is the
// rank order. AnswerTimes records every submission's latency, correct or not.
type ResultData struct {
	QuestionID     int64    `json:"questionId"`
	PlayersCorrect []string `json:"playersCorrectList"`
	AnswerTimes    []int64  `json:"answerTimes"`
	CorrectCount   int      `json:"correctAnswers"`
}

// QuestionResult is the published summary for one question.
type QuestionResult struct {
	QuestionID        int64    `json:"questionId"`
	PlayersCorrect    []string `json:"playersCorrectList"`
	AverageAnswerTime int64    `json:"averageAnswerTime"`
	PercentCorrect    int      `json:"percentCorrect"`
}

// RankedPlayer is one leaderboard row.
type RankedPlayer struct {
	Name  string  `json:"name"`
	Score float64 `json:"score"`
}

// FinalResults is the full session report.
type FinalResults struct {
	UsersRankedByScore []RankedPlayer   `json:"usersRankedByScore"`
	QuestionResults    []QuestionResult `json:"questionResults"`
}
