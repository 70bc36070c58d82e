package speech

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log"
	"time"

	"narrated-quiz-service/internal/session"
	"golang.org/x/sync/singleflight"
)

const defaultSynthesisTimeout = 30 * time.Second

// Cache stores synthesized audio by key.
type Cache interface {
	Get(ctx context.Context, key string) (session.Audio, bool, error)
	Set(ctx context.Context, key string, audio session.Audio, ttl time.Duration) error
}

// CachingSynthesizer reuses audio for text it has already narrated. Identical requests in
// flight share one upstream call, which runs to completion even if its first caller goes away
// so that a prefetch cancelled by a skip still warms the cache.
type CachingSynthesizer struct {
	next    session.Synthesizer
	cache   Cache
	ttl     time.Duration
	timeout time.Duration
	sf      singleflight.Group
}

func NewCachingSynthesizer(next session.Synthesizer, cache Cache, ttl time.Duration) *CachingSynthesizer {
	return &CachingSynthesizer{
		next:    next,
		cache:   cache,
		ttl:     ttl,
		timeout: defaultSynthesisTimeout,
	}
}

func (c *CachingSynthesizer) Synthesize(ctx context.Context, text string, voice session.Voice) (session.Audio, error) {
	key := CacheKey(text, voice)
	audio, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		log.Printf("audio cache get %s: %v", key, err)
	} else if ok {
		return audio, nil
	}

	ch := c.sf.DoChan(key, func() (interface{}, error) {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
		defer cancel()
		audio, err := c.next.Synthesize(sctx, text, voice)
		if err != nil {
			return nil, err
		}
		if len(audio.Data) > 0 {
			if err := c.cache.Set(sctx, key, audio, c.ttl); err != nil {
				log.Printf("audio cache set %s: %v", key, err)
			}
		}
		return audio, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return session.Audio{}, res.Err
		}
		return res.Val.(session.Audio), nil
	case <-ctx.Done():
		return session.Audio{}, ctx.Err()
	}
}

// CacheKey identifies a narration by its text and how it is spoken.
func CacheKey(text string, voice session.Voice) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%.2f", text, voice.Name, voice.Speed)))
	return hex.EncodeToString(sum[:])
}
