package memory

import (
	"context"
	"sync"

	"narrated-quiz-service/internal/domain"
)

// ProgressStore remembers which questions a learner has seen per selection.
type ProgressStore struct {
	mu   sync.RWMutex
	seen map[string]map[string]struct{}
}

func NewProgressStore() *ProgressStore {
	return &ProgressStore{seen: make(map[string]map[string]struct{})}
}

func (s *ProgressStore) Seen(_ context.Context, learnerID string, sel domain.Selection) (map[string]struct{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]struct{}, len(s.seen[progressKey(learnerID, sel)]))
	for id := range s.seen[progressKey(learnerID, sel)] {
		out[id] = struct{}{}
	}
	return out, nil
}

func (s *ProgressStore) MarkSeen(_ context.Context, learnerID string, sel domain.Selection, questionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := progressKey(learnerID, sel)
	if s.seen[key] == nil {
		s.seen[key] = make(map[string]struct{})
	}
	s.seen[key][questionID] = struct{}{}
	return nil
}

func (s *ProgressStore) Reset(_ context.Context, learnerID string, sel domain.Selection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.seen, progressKey(learnerID, sel))
	return nil
}

func progressKey(learnerID string, sel domain.Selection) string {
	return learnerID + "|" + sel.Key()
}
