package redis

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"
)

// PreferenceStore keeps device preferences in a hash: HSET prefs:{deviceID} sound 1
type PreferenceStore struct {
	client *redis.Client
}

func NewPreferenceStore(client *redis.Client) *PreferenceStore {
	return &PreferenceStore{client: client}
}

func (s *PreferenceStore) SoundEnabled(ctx context.Context, deviceID string) (bool, error) {
	v, err := s.client.HGet(ctx, s.key(deviceID), "sound").Result()
	if errors.Is(err, redis.Nil) {
		return true, nil
	}
	if err != nil {
		return true, err
	}
	return v == "1", nil
}

func (s *PreferenceStore) SetSoundEnabled(ctx context.Context, deviceID string, enabled bool) error {
	v := "0"
	if enabled {
		v = "1"
	}
	return s.client.HSet(ctx, s.key(deviceID), "sound", v).Err()
}

func (s *PreferenceStore) key(deviceID string) string {
	return "prefs:" + deviceID
}
