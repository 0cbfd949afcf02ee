package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"quiz-session-service/internal/domain"
	"quiz-session-service/internal/infra/memory"
)

func TestQuizRepositoryCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	loader := &countingLoader{
		QuizLoader: memory.NewStaticQuizLoader(map[string]domain.Quiz{
			"quiz-1": sampleQuiz(),
		}),
	}
	repo := NewQuizRepository(newClient(mr), loader, time.Minute)

	quiz, err := repo.GetQuiz(context.Background(), "quiz-1")
	if err != nil {
		t.Fatalf("get quiz: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}
	if len(quiz.Questions) != 1 || quiz.Questions[0].ID != 1 {
		t.Fatalf("unexpected quiz content %+v", quiz)
	}
	if !mr.Exists("quiz:quiz-1:content") {
		t.Fatalf("expected quiz content cached in redis")
	}

	// Second call should hit the cache, loader not incremented.
	quiz, err = repo.GetQuiz(context.Background(), "quiz-1")
	if err != nil {
		t.Fatalf("get quiz 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
	// The cached document must keep the full answer set, correctness included.
	if !quiz.Questions[0].Answers[1].Correct {
		t.Fatalf("cached quiz lost correctness flags: %+v", quiz.Questions[0].Answers)
	}
}

func TestQuizRepositoryPropagatesLoaderError(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	repo := NewQuizRepository(newClient(mr), memory.NewStaticQuizLoader(nil), time.Minute)
	if _, err := repo.GetQuiz(context.Background(), "missing"); !domain.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}

type countingLoader struct {
	memory.QuizLoader
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

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}
