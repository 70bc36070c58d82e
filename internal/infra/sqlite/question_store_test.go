package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"narrated-quiz-service/internal/domain"
	"narrated-quiz-service/internal/infra/memory"
)

func TestQuestionStoreUpsertAndLoad(t *testing.T) {
	ctx := context.Background()
	store, err := Open(ctx, filepath.Join(t.TempDir(), "questions.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()

	questions := memory.SampleQuestions()
	n, err := store.Upsert(ctx, questions)
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if n != len(questions) {
		t.Fatalf("expected %d written, got %d", len(questions), n)
	}

	changed := questions[0]
	changed.Explanation = "Seven times eight."
	if _, err := store.Upsert(ctx, []domain.Question{changed}); err != nil {
		t.Fatalf("upsert again: %v", err)
	}

	loaded, err := store.LoadQuestions(ctx, questions[0].Selection)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded) != len(questions) {
		t.Fatalf("expected %d questions, got %d", len(questions), len(loaded))
	}
	if loaded[0].Explanation != "Seven times eight." || loaded[0].Options[1] != "56" {
		t.Fatalf("unexpected first question %+v", loaded[0])
	}
	if loaded[1].Context == "" {
		t.Fatalf("expected context to round-trip")
	}

	other, err := store.LoadQuestions(ctx, domain.Selection{Grade: "6", Subject: "math", Term: "1"})
	if err != nil || len(other) != 0 {
		t.Fatalf("expected empty pool, got %d (%v)", len(other), err)
	}
}

func TestQuestionStoreRejectsInvalid(t *testing.T) {
	ctx := context.Background()
	store, err := Open(ctx, filepath.Join(t.TempDir(), "questions.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer store.Close()

	bad := memory.SampleQuestions()[0]
	bad.CorrectAnswer = "57"
	if _, err := store.Upsert(ctx, []domain.Question{bad}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
