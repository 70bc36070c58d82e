package app_test

import (
	"bytes"
	"context"
	"errors"
	"log"
	"os"
	"strings"
	"sync"
	"testing"

	"narrated-quiz-service/internal/app"
	"narrated-quiz-service/internal/domain"
)

type countingRecorder struct {
	mu       sync.Mutex
	answered int
	finished int
	err      error
}

func (r *countingRecorder) RecordAnswer(context.Context, domain.AnswerResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.answered++
	return r.err
}

func (r *countingRecorder) RecordSession(context.Context, domain.SessionResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished++
	return r.err
}

func (r *countingRecorder) answers() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.answered
}

func (r *countingRecorder) sessions() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.finished
}

func TestMultiRecorderReachesEveryRecorder(t *testing.T) {
	failing := &countingRecorder{err: errors.New("broker down")}
	ok := &countingRecorder{}
	multi := app.MultiRecorder{failing, app.LogRecorder{}, ok}

	err := multi.RecordAnswer(context.Background(), domain.AnswerResult{SessionID: "s-1", QuestionID: "q1"})
	if err == nil {
		t.Fatalf("expected the failure to surface")
	}
	if err := multi.RecordSession(context.Background(), domain.SessionResult{SessionID: "s-1"}); err == nil {
		t.Fatalf("expected the failure to surface")
	}
	if ok.answers() != 1 || ok.sessions() != 1 {
		t.Fatalf("expected healthy recorder to be called, got %d and %d", ok.answers(), ok.sessions())
	}
}

func TestLogRecorderReportsCorrectOfPresented(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	res := domain.SessionResult{
		SessionID: "s-1",
		Selection: domain.Selection{Grade: "5", Subject: "math", Term: "1"},
		Summary:   domain.Summary{Presented: 4, Target: 5, Correct: 3, Aborted: true},
	}
	if err := (app.LogRecorder{}).RecordSession(context.Background(), res); err != nil {
		t.Fatalf("record session: %v", err)
	}
	if !strings.Contains(buf.String(), "3/4 correct (target 5, aborted=true)") {
		t.Fatalf("unexpected log line %q", buf.String())
	}
}
