package memory

import (
	"context"
	"testing"
	"time"

	"battle-quiz-service/internal/domain"
)

func TestQuestionRepositoryCaches(t *testing.T) {
	loader := &countingLoader{
		QuestionLoader: NewStaticQuestionLoader(sampleBank()),
	}
	repo := NewQuestionRepository(loader, time.Minute)

	if _, err := repo.FetchQuestions(context.Background(), "general", 1, 2); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls)
	}

	if _, err := repo.FetchQuestions(context.Background(), "general", 1, 2); err != nil {
		t.Fatalf("fetch 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}

	// A different set shape is a different cache entry.
	if _, err := repo.FetchQuestions(context.Background(), "general", 1, 1); err != nil {
		t.Fatalf("fetch 3: %v", err)
	}
	if loader.calls != 2 {
		t.Fatalf("expected second load, got %d", loader.calls)
	}
}

func TestQuestionRepositoryEmptySetIsError(t *testing.T) {
	repo := NewQuestionRepository(NewStaticQuestionLoader(sampleBank()), time.Minute)
	if _, err := repo.FetchQuestions(context.Background(), "unknown", 1, 2); err != domain.ErrQuestionSetNotFound {
		t.Fatalf("expected question set not found, got %v", err)
	}
}

type countingLoader struct {
	QuestionLoader
	calls int
}

func (l *countingLoader) LoadQuestions(ctx context.Context, category string, difficulty, count int) ([]domain.Question, error) {
	l.calls++
	return l.QuestionLoader.LoadQuestions(ctx, category, difficulty, count)
}

func sampleBank() map[string][]domain.Question {
	return map[string][]domain.Question{
		"general": {
			{
				ID:     "q1",
				Prompt: "What is 2 + 2?",
				Options: []domain.Option{
					{Label: "a", Text: "3"},
					{Label: "b", Text: "4"},
					{Label: "c", Text: "5"},
				},
				CorrectLabel: "b",
				Category:     "general",
				Difficulty:   1,
			},
			{
				ID:     "q2",
				Prompt: "What is 3 * 3?",
				Options: []domain.Option{
					{Label: "a", Text: "6"},
					{Label: "b", Text: "9"},
					{Label: "c", Text: "12"},
				},
				CorrectLabel: "b",
				Category:     "general",
				Difficulty:   1,
			},
		},
	}
}
