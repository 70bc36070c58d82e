package memory

import (
	"context"
	"sync"
)

// PreferenceStore keeps sound preferences per device. Sound defaults to on.
type PreferenceStore struct {
	mu    sync.RWMutex
	sound map[string]bool
}

func NewPreferenceStore() *PreferenceStore {
	return &PreferenceStore{sound: make(map[string]bool)}
}

func (s *PreferenceStore) SoundEnabled(_ context.Context, deviceID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	enabled, ok := s.sound[deviceID]
	if !ok {
		return true, nil
	}
	return enabled, nil
}

func (s *PreferenceStore) SetSoundEnabled(_ context.Context, deviceID string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sound[deviceID] = enabled
	return nil
}
