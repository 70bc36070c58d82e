package redis

import (
	"context"
	"errors"
	"time"

	"narrated-quiz-service/internal/session"
	"github.com/redis/go-redis/v9"
)

// AudioCache stores synthesized narration as a hash: HSET tts:{key} format mp3 data <bytes>
type AudioCache struct {
	client *redis.Client
}

func NewAudioCache(client *redis.Client) *AudioCache {
	return &AudioCache{client: client}
}

func (c *AudioCache) Get(ctx context.Context, key string) (session.Audio, bool, error) {
	fields, err := c.client.HGetAll(ctx, c.key(key)).Result()
	if errors.Is(err, redis.Nil) {
		return session.Audio{}, false, nil
	}
	if err != nil {
		return session.Audio{}, false, err
	}
	data, ok := fields["data"]
	if !ok || data == "" {
		return session.Audio{}, false, nil
	}
	return session.Audio{Format: fields["format"], Data: []byte(data)}, true, nil
}

func (c *AudioCache) Set(ctx context.Context, key string, audio session.Audio, ttl time.Duration) error {
	k := c.key(key)
	pipe := c.client.TxPipeline()
	pipe.HSet(ctx, k, "format", audio.Format, "data", audio.Data)
	if ttl > 0 {
		pipe.Expire(ctx, k, ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (c *AudioCache) key(key string) string {
	return "tts:" + key
}
