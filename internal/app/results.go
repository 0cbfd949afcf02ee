package app

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"math"
	"sort"
	"strconv"

	"quiz-session-service/internal/domain"
)

// QuestionResults publishes the summary for the question the session is
// showing answers for. Only legal in ANSWER_SHOW, at that question; the
// published result is also appended to the session's results list.
func (e *Engine) QuestionResults(ctx context.Context, playerID int64, questionPos int) (domain.QuestionResult, error) {
	session, _, err := e.findPlayerSession(playerID)
	if err != nil {
		return domain.QuestionResult{}, err
	}
	quiz, err := e.quizzes.GetQuiz(ctx, session.QuizID)
	if err != nil {
		return domain.QuestionResult{}, err
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	if questionPos < 1 || questionPos > len(quiz.Questions) {
		return domain.QuestionResult{}, domain.ErrQuestionPosition
	}
	if session.State != domain.StateAnswerShow {
		return domain.QuestionResult{}, domain.ErrWrongSessionState
	}
	question := quiz.Questions[questionPos-1]
	if question.ID != session.AtQuestion {
		return domain.QuestionResult{}, domain.ErrWrongQuestion
	}

	result := summarizeQuestion(question.ID, session.findResultData(question.ID), len(session.Players))
	session.Results = append(session.Results, result)
	e.store.Save(session)
	return result, nil
}

// PlayerFinalResults returns the full session report to a player once the
// session reached FINAL_RESULTS.
func (e *Engine) PlayerFinalResults(ctx context.Context, playerID int64) (domain.FinalResults, error) {
	session, _, err := e.findPlayerSession(playerID)
	if err != nil {
		return domain.FinalResults{}, err
	}
	return e.finalResults(ctx, session)
}

// SessionFinalResults is the host-side variant of PlayerFinalResults.
func (e *Engine) SessionFinalResults(ctx context.Context, sessionID int64) (domain.FinalResults, error) {
	session, ok := e.store.Get(sessionID)
	if !ok {
		return domain.FinalResults{}, domain.ErrSessionNotFound
	}
	return e.finalResults(ctx, session)
}

func (e *Engine) finalResults(ctx context.Context, session *Session) (domain.FinalResults, error) {
	quiz, err := e.quizzes.GetQuiz(ctx, session.QuizID)
	if err != nil {
		return domain.FinalResults{}, err
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	if session.State != domain.StateFinalResults {
		return domain.FinalResults{}, domain.ErrWrongSessionState
	}

	out := domain.FinalResults{
		UsersRankedByScore: []domain.RankedPlayer{},
		QuestionResults:    []domain.QuestionResult{},
	}
	for _, question := range quiz.Questions {
		out.QuestionResults = append(out.QuestionResults,
			summarizeQuestion(question.ID, session.findResultData(question.ID), len(session.Players)))
	}
	for _, p := range session.Players {
		out.UsersRankedByScore = append(out.UsersRankedByScore, domain.RankedPlayer{
			Name:  p.Name,
			Score: p.Score,
		})
	}
	// Stable keeps join order for equal scores.
	sort.SliceStable(out.UsersRankedByScore, func(i, j int) bool {
		return out.UsersRankedByScore[i].Score > out.UsersRankedByScore[j].Score
	})
	return out, nil
}

// summarizeQuestion derives the published per-question numbers from the raw
// accumulator. A question nobody submitted for yields a zeroed result.
func summarizeQuestion(questionID int64, rd *domain.ResultData, playerCount int) domain.QuestionResult {
	result := domain.QuestionResult{
		QuestionID:     questionID,
		PlayersCorrect: []string{},
	}
	if rd == nil || playerCount == 0 {
		return result
	}
	result.PlayersCorrect = append(result.PlayersCorrect, rd.PlayersCorrect...)
	if len(rd.AnswerTimes) > 0 {
		var sum int64
		for _, t := range rd.AnswerTimes {
			sum += t
		}
		result.AverageAnswerTime = int64(math.Round(float64(sum) / float64(len(rd.AnswerTimes))))
	}
	result.PercentCorrect = int(math.Round(float64(rd.CorrectCount) / float64(playerCount) * 100))
	return result
}

// fixedUpRanks computes the post-hoc rank correction for every player: for
// each question, anyone absent from the correct list ties for last place at
// rank (players - correctCount + 1). Pure; returns new, fully padded rank and
// score slices per player id instead of mutating in place.
func fixedUpRanks(quiz domain.Quiz, session *Session) (ranks map[int64][]int, scores map[int64][]float64) {
	ranks = make(map[int64][]int, len(session.Players))
	scores = make(map[int64][]float64, len(session.Players))
	for _, p := range session.Players {
		ranks[p.ID] = padInts(p.QuestionRanks, len(quiz.Questions))
		scores[p.ID] = padFloats(p.QuestionScores, len(quiz.Questions))
	}

	for i, question := range quiz.Questions {
		rd := session.findResultData(question.ID)
		correctCount := 0
		correctNames := make(map[string]struct{})
		if rd != nil {
			correctCount = rd.CorrectCount
			for _, name := range rd.PlayersCorrect {
				correctNames[name] = struct{}{}
			}
		}
		lastPlace := len(session.Players) - correctCount + 1
		for _, p := range session.Players {
			if _, ok := correctNames[p.Name]; !ok {
				ranks[p.ID][i] = lastPlace
			}
		}
	}
	return ranks, scores
}

func padInts(in []int, n int) []int {
	out := make([]int, n)
	copy(out, in)
	return out
}

func padFloats(in []float64, n int) []float64 {
	out := make([]float64, n)
	copy(out, in)
	return out
}

// SessionResultsCSV renders the final score/rank table. The rank fix-up pass
// runs first and replaces the stored rank sequences before serialization.
func (e *Engine) SessionResultsCSV(ctx context.Context, sessionID int64) ([]byte, error) {
	session, ok := e.store.Get(sessionID)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	quiz, err := e.quizzes.GetQuiz(ctx, session.QuizID)
	if err != nil {
		return nil, err
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	if session.State != domain.StateFinalResults {
		return nil, domain.ErrWrongSessionState
	}

	ranks, scores := fixedUpRanks(quiz, session)
	for _, p := range session.Players {
		p.QuestionRanks = ranks[p.ID]
		p.QuestionScores = scores[p.ID]
	}
	e.store.Save(session)

	correctByQuestion := make([]map[string]struct{}, len(quiz.Questions))
	for i, question := range quiz.Questions {
		correctByQuestion[i] = make(map[string]struct{})
		if rd := session.findResultData(question.ID); rd != nil {
			for _, name := range rd.PlayersCorrect {
				correctByQuestion[i][name] = struct{}{}
			}
		}
	}

	players := make([]*domain.Player, len(session.Players))
	copy(players, session.Players)
	sort.Slice(players, func(i, j int) bool { return players[i].Name < players[j].Name })

	header := []string{"Player"}
	for i := range quiz.Questions {
		header = append(header,
			fmt.Sprintf("question%dscore", i+1),
			fmt.Sprintf("question%drank", i+1))
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		return nil, err
	}
	for _, p := range players {
		row := []string{p.Name}
		for i := range quiz.Questions {
			score := 0.0
			if _, ok := correctByQuestion[i][p.Name]; ok {
				score = p.QuestionScores[i]
			}
			row = append(row,
				strconv.FormatFloat(score, 'f', -1, 64),
				strconv.Itoa(p.QuestionRanks[i]))
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
