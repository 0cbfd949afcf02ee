package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Every engine error wraps exactly one of these so callers can
// classify without matching on individual sentinels.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidState = errors.New("invalid state")
	ErrInvalidInput = errors.New("invalid input")
	ErrConflict     = errors.New("conflict")
)

var (
	// ErrQuizNotFound indicates the quiz content could not be loaded.
	ErrQuizNotFound = fmt.Errorf("quiz %w", ErrNotFound)
	// ErrSessionNotFound is returned for an unknown session id.
	ErrSessionNotFound = fmt.Errorf("quiz session %w", ErrNotFound)
	// ErrPlayerNotFound is returned for an unknown player id.
	ErrPlayerNotFound = fmt.Errorf("player %w", ErrNotFound)

	// ErrInvalidAction rejects an action absent from the transition table
	// for the session's current state.
	ErrInvalidAction = fmt.Errorf("action not allowed in current state: %w", ErrInvalidState)
	// ErrOutOfQuestions rejects NEXT_QUESTION when the session is already
	// on the quiz's last question.
	ErrOutOfQuestions = fmt.Errorf("already at the last question: %w", ErrInvalidState)
	// ErrWrongSessionState rejects an operation attempted outside its
	// required state window (join outside LOBBY, answer outside
	// QUESTION_OPEN, results before ANSWER_SHOW, and so on).
	ErrWrongSessionState = fmt.Errorf("session is in the wrong state: %w", ErrInvalidState)

	// ErrQuestionPosition is returned for a question position outside the
	// quiz bounds.
	ErrQuestionPosition = fmt.Errorf("question position out of range: %w", ErrInvalidInput)
	// ErrWrongQuestion guards against answering a stale or future question.
	ErrWrongQuestion = fmt.Errorf("session or player is at a different question: %w", ErrInvalidInput)
	// ErrDuplicateAnswers rejects a submission containing the same answer
	// id twice.
	ErrDuplicateAnswers = fmt.Errorf("duplicate answer ids: %w", ErrInvalidInput)
	// ErrUnknownAnswer rejects answer ids that do not belong to the question.
	ErrUnknownAnswer = fmt.Errorf("answer id does not belong to question: %w", ErrInvalidInput)
	// ErrEmptyAnswer rejects an empty submission.
	ErrEmptyAnswer = fmt.Errorf("no answer submitted: %w", ErrInvalidInput)
	// ErrMessageLength bounds chat messages to 1..100 characters.
	ErrMessageLength = fmt.Errorf("message must be between 1 and 100 characters: %w", ErrInvalidInput)
	// ErrNoQuestions refuses to start a session for a quiz with no questions.
	ErrNoQuestions = fmt.Errorf("quiz has no questions: %w", ErrInvalidInput)
	// ErrAutoStartNum bounds the autostart threshold to 0..50.
	ErrAutoStartNum = fmt.Errorf("autoStartNum must be between 0 and 50: %w", ErrInvalidInput)

	// ErrDuplicateName rejects a player name already taken in the session.
	ErrDuplicateName = fmt.Errorf("player name already taken: %w", ErrConflict)
	// ErrTooManySessions caps concurrently active sessions per quiz.
	ErrTooManySessions = fmt.Errorf("too many active sessions for this quiz: %w", ErrConflict)
)

func IsNotFound(err error) bool     { return errors.Is(err, ErrNotFound) }
func IsInvalidState(err error) bool { return errors.Is(err, ErrInvalidState) }
func IsInvalidInput(err error) bool { return errors.Is(err, ErrInvalidInput) }
func IsConflict(err error) bool     { return errors.Is(err, ErrConflict) }
