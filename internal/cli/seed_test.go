package cli

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"narrated-quiz-service/internal/domain"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "questions.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestLoadQuestionFile(t *testing.T) {
	path := writeFile(t, `
questions:
  - id: sci-4-2-001
    selection: {grade: "4", subject: science, term: "2"}
    prompt: Which planet is closest to the Sun?
    options: [Venus, Mercury, Earth, Mars]
    correctAnswer: Mercury
    explanation: Mercury orbits closest to the Sun.
`)
	questions, err := loadQuestionFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(questions) != 1 || questions[0].Selection.Subject != "science" || questions[0].CorrectAnswer != "Mercury" {
		t.Fatalf("unexpected questions %+v", questions)
	}
}

func TestLoadQuestionFileRejectsInvalidQuestions(t *testing.T) {
	path := writeFile(t, `
questions:
  - id: bad
    selection: {grade: "4", subject: science, term: "2"}
    prompt: Pick one
    options: [a, b, c]
    correctAnswer: a
`)
	if _, err := loadQuestionFile(path); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestStaticQuestionsFallsBackToSamples(t *testing.T) {
	questions, err := staticQuestions("")
	if err != nil || len(questions) == 0 {
		t.Fatalf("expected sample questions, got %d (%v)", len(questions), err)
	}
}

func TestBundledQuestionFileIsValid(t *testing.T) {
	questions, err := loadQuestionFile(filepath.Join("..", "..", "config", "questions.yaml"))
	if err != nil {
		t.Fatalf("load bundled questions: %v", err)
	}
	if len(questions) < 5 {
		t.Fatalf("expected bundled questions, got %d", len(questions))
	}
}
