package memory

import (
	"context"
	"testing"

	"narrated-quiz-service/internal/domain"
	"narrated-quiz-service/internal/session"
)

type stubBank struct{}

func (stubBank) NextQuestion(context.Context, domain.Selection, string) (domain.Question, error) {
	return domain.Question{}, domain.ErrExhausted
}

func (stubBank) ResetProgress(context.Context, domain.Selection, string) error {
	return nil
}

func TestSessionStoreLifecycle(t *testing.T) {
	store := NewSessionStore()
	c, err := session.NewController(session.Config{ID: "s-1"}, session.Deps{Bank: stubBank{}})
	if err != nil {
		t.Fatalf("new controller: %v", err)
	}
	defer c.Close()

	store.Put(c)
	if got, ok := store.Get("s-1"); !ok || got != c {
		t.Fatalf("expected session present")
	}
	if store.Len() != 1 {
		t.Fatalf("expected one session, got %d", store.Len())
	}

	store.Delete("s-1")
	if _, ok := store.Get("s-1"); ok {
		t.Fatalf("expected session removed")
	}
}
