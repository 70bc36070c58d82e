package app

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"narrated-quiz-service/internal/domain"
)

// QuestionRepository loads the question pool of a selection (from cache/backing store).
type QuestionRepository interface {
	Questions(ctx context.Context, sel domain.Selection) ([]domain.Question, error)
}

// ProgressStore remembers which questions a learner has already been shown.
type ProgressStore interface {
	Seen(ctx context.Context, learnerID string, sel domain.Selection) (map[string]struct{}, error)
	MarkSeen(ctx context.Context, learnerID string, sel domain.Selection, questionID string) error
	Reset(ctx context.Context, learnerID string, sel domain.Selection) error
}

// QuestionBank hands out unseen questions at random, one per call.
type QuestionBank struct {
	questions QuestionRepository
	progress  ProgressStore

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewQuestionBank(questions QuestionRepository, progress ProgressStore) *QuestionBank {
	return &QuestionBank{
		questions: questions,
		progress:  progress,
		rnd:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// NextQuestion returns domain.ErrExhausted once the learner has seen the whole pool. Storage
// failures are reported as domain.ErrNetwork so sessions can offer a retry.
func (b *QuestionBank) NextQuestion(ctx context.Context, sel domain.Selection, learnerID string) (domain.Question, error) {
	if err := sel.Validate(); err != nil {
		return domain.Question{}, err
	}
	pool, err := b.questions.Questions(ctx, sel)
	if err != nil {
		return domain.Question{}, unavailable("load questions", err)
	}
	seen, err := b.progress.Seen(ctx, learnerID, sel)
	if err != nil {
		return domain.Question{}, unavailable("load progress", err)
	}

	unseen := make([]domain.Question, 0, len(pool))
	for _, q := range pool {
		if _, ok := seen[q.ID]; !ok {
			unseen = append(unseen, q)
		}
	}
	if len(unseen) == 0 {
		return domain.Question{}, domain.ErrExhausted
	}

	b.mu.Lock()
	q := unseen[b.rnd.Intn(len(unseen))]
	b.mu.Unlock()

	if err := b.progress.MarkSeen(ctx, learnerID, sel, q.ID); err != nil {
		return domain.Question{}, unavailable("mark seen", err)
	}
	return q, nil
}

// ResetProgress makes the whole pool available to the learner again.
func (b *QuestionBank) ResetProgress(ctx context.Context, sel domain.Selection, learnerID string) error {
	if err := sel.Validate(); err != nil {
		return err
	}
	return b.progress.Reset(ctx, learnerID, sel)
}

func unavailable(op string, err error) error {
	if errors.Is(err, domain.ErrNetwork) || errors.Is(err, context.Canceled) {
		return err
	}
	return fmt.Errorf("%w: %s: %v", domain.ErrNetwork, op, err)
}
