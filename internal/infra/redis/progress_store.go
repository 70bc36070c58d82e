package redis

import (
	"context"

	"narrated-quiz-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

// ProgressStore keeps seen question ids in a set per learner and selection:
// SADD progress:{learnerID}:{grade}:{subject}:{term} {questionID}
type ProgressStore struct {
	client *redis.Client
}

func NewProgressStore(client *redis.Client) *ProgressStore {
	return &ProgressStore{client: client}
}

func (s *ProgressStore) Seen(ctx context.Context, learnerID string, sel domain.Selection) (map[string]struct{}, error) {
	ids, err := s.client.SMembers(ctx, s.key(learnerID, sel)).Result()
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		seen[id] = struct{}{}
	}
	return seen, nil
}

func (s *ProgressStore) MarkSeen(ctx context.Context, learnerID string, sel domain.Selection, questionID string) error {
	return s.client.SAdd(ctx, s.key(learnerID, sel), questionID).Err()
}

func (s *ProgressStore) Reset(ctx context.Context, learnerID string, sel domain.Selection) error {
	return s.client.Del(ctx, s.key(learnerID, sel)).Err()
}

func (s *ProgressStore) key(learnerID string, sel domain.Selection) string {
	return "progress:" + learnerID + ":" + sel.Key()
}
