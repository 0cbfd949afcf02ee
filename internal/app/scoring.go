package app

import (
	"context"

	"go.uber.org/zap"

	"quiz-session-service/internal/domain"
)

// SubmitAnswer records a player's answer set for the question at questionPos
// (1-based) and applies the scoring rules.
//
// A submission is fully correct iff every submitted id is in the question's
// correct-answer set. Correct answers pay points scaled by 1/n where n is how
// many correct submissions the question has already seen, so order matters:
// the first correct answer earns full points and rank 1, later ones earn
// proportionally less. Incorrect submissions record only their latency and
// leave the player ranked last.
func (e *Engine) SubmitAnswer(ctx context.Context, playerID int64, questionPos int, answerIDs []int64) error {
	submittedAt := e.now().Unix()

	session, ok := e.store.FindByPlayer(playerID)
	if !ok {
		return domain.ErrPlayerNotFound
	}
	quiz, err := e.quizzes.GetQuiz(ctx, session.QuizID)
	if err != nil {
		return err
	}

	session.mu.Lock()
	defer session.mu.Unlock()

	player := session.findPlayer(playerID)
	if player == nil {
		return domain.ErrPlayerNotFound
	}
	if session.State != domain.StateQuestionOpen {
		return domain.ErrWrongSessionState
	}
	if questionPos < 1 || questionPos > len(quiz.Questions) {
		return domain.ErrQuestionPosition
	}
	question := quiz.Questions[questionPos-1]
	if question.ID != session.AtQuestion || questionPos != player.AtQuestion {
		return domain.ErrWrongQuestion
	}
	if hasDuplicates(answerIDs) {
		return domain.ErrDuplicateAnswers
	}
	for _, id := range answerIDs {
		if !question.HasAnswer(id) {
			return domain.ErrUnknownAnswer
		}
	}
	if len(answerIDs) == 0 {
		return domain.ErrEmptyAnswer
	}

	correct := isFullyCorrect(answerIDs, question)
	answerTime := submittedAt - session.QuestionOpenTime

	resultData := session.findResultData(question.ID)
	if resultData == nil {
		resultData = &domain.ResultData{QuestionID: question.ID}
		session.ResultData = append(session.ResultData, resultData)
	}

	if correct {
		resultData.PlayersCorrect = append(resultData.PlayersCorrect, player.Name)
		resultData.AnswerTimes = append(resultData.AnswerTimes, answerTime)
		resultData.CorrectCount++

		score := question.Points / float64(resultData.CorrectCount)
		player.Score += score
		player.QuestionScores = append(player.QuestionScores, score)
		player.QuestionRanks = append(player.QuestionRanks, resultData.CorrectCount)
	} else {
		resultData.AnswerTimes = append(resultData.AnswerTimes, answerTime)
		player.QuestionScores = append(player.QuestionScores, 0)
		player.QuestionRanks = append(player.QuestionRanks, len(session.Players))
	}

	e.store.Save(session)
	e.log.Debug("answer recorded",
		zap.Int64("session", session.ID),
		zap.Int64("player", playerID),
		zap.Int64("question", question.ID),
		zap.Bool("correct", correct),
		zap.Int64("answerTime", answerTime))
	return nil
}

// isFullyCorrect reports whether every submitted id is a correct answer.
// Submitting a strict subset of the correct answers still passes; any wrong
// id fails.
func isFullyCorrect(answerIDs []int64, question domain.Question) bool {
	correctIDs := question.CorrectIDs()
	for _, id := range answerIDs {
		if _, ok := correctIDs[id]; !ok {
			return false
		}
	}
	return true
}

func hasDuplicates(ids []int64) bool {
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			return true
		}
		seen[id] = struct{}{}
	}
	return false
}
