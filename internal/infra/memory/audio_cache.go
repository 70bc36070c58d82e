package memory

import (
	"context"
	"sync"
	"time"

	"narrated-quiz-service/internal/session"
)

// AudioCache keeps synthesized narration in process memory.
type AudioCache struct {
	clock func() time.Time

	mu      sync.RWMutex
	entries map[string]cachedAudio
}

type cachedAudio struct {
	audio     session.Audio
	expiresAt time.Time
}

func NewAudioCache() *AudioCache {
	return &AudioCache{clock: time.Now, entries: make(map[string]cachedAudio)}
}

func (c *AudioCache) Get(_ context.Context, key string) (session.Audio, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.entries[key]
	if !ok || (!entry.expiresAt.IsZero() && !entry.expiresAt.After(c.clock())) {
		return session.Audio{}, false, nil
	}
	return entry.audio, true, nil
}

func (c *AudioCache) Set(_ context.Context, key string, audio session.Audio, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry := cachedAudio{audio: audio}
	if ttl > 0 {
		entry.expiresAt = c.clock().Add(ttl)
	}
	c.entries[key] = entry
	return nil
}
