package session

import (
	"testing"

	"narrated-quiz-service/internal/domain"
)

func TestProgressCountsEachTokenOnce(t *testing.T) {
	var p Progress
	p.Reset(2)

	if !p.MarkPresented(1) {
		t.Fatalf("expected first token counted")
	}
	if p.MarkPresented(1) {
		t.Fatalf("token counted twice")
	}
	if p.Done() {
		t.Fatalf("done before target")
	}
	p.MarkPresented(2)
	if p.MarkPresented(3) {
		t.Fatalf("counted past target")
	}
	if !p.Done() || p.Presented() != 2 || p.Target() != 2 {
		t.Fatalf("unexpected progress %d/%d", p.Presented(), p.Target())
	}
}

func TestProgressSummary(t *testing.T) {
	var p Progress
	p.Reset(3)
	p.MarkPresented(1)
	p.RecordCorrect()

	got := p.Summary(true)
	want := domain.Summary{Presented: 1, Target: 3, Correct: 1, Aborted: true}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}

	p.Reset(1)
	if p.Presented() != 0 || p.Summary(false).Correct != 0 {
		t.Fatalf("reset kept counters")
	}
}
