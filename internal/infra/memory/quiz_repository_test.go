package memory

import (
	"context"
	"testing"
	"time"

	"quiz-session-service/internal/domain"
)

func TestQuizRepositoryCaches(t *testing.T) {
	loader := &countingLoader{
		QuizLoader: NewStaticQuizLoader(map[string]domain.Quiz{
			"quiz-1": sampleQuiz(),
		}),
	}
	repo := NewQuizRepository(loader, time.Minute)

	if _, err := repo.GetQuiz(context.Background(), "quiz-1"); err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls)
	}

	if _, err := repo.GetQuiz(context.Background(), "quiz-1"); err != nil {
		t.Fatalf("get quiz 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}
}

func TestQuizRepositoryPropagatesNotFound(t *testing.T) {
	repo := NewQuizRepository(NewStaticQuizLoader(nil), time.Minute)
	if _, err := repo.GetQuiz(context.Background(), "missing"); !domain.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

type countingLoader struct {
	QuizLoader
	calls int
}

func (l *countingLoader) LoadQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	l.calls++
	return l.QuizLoader.LoadQuiz(ctx, quizID)
}

func sampleQuiz() domain.Quiz {
	return domain.Quiz{
		ID:   "quiz-1",
		Name: "Sample",
		Questions: []domain.Question{
			{
				ID:       1,
				Text:     "What is 2 + 2?",
				Duration: 30,
				Points:   10,
				Answers: []domain.Answer{
					{ID: 11, Text: "3", Colour: "red"},
					{ID: 12, Text: "4", Colour: "blue", Correct: true},
				},
			},
		},
	}
}
