package memory

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	gocache "github.com/patrickmn/go-cache"

	"github.com/fklc-labs/chatbot-service/internal/app/domain/chat"
)

const transcriptTTL = 5 * time.Minute

// TranscriptCache holds recently read transcripts so repeated turns in the
// same session avoid a database round trip.
type TranscriptCache interface {
	Get(ctx context.Context, key chat.Key) ([]chat.Message, bool)
	Set(ctx context.Context, key chat.Key, msgs []chat.Message)
	Invalidate(ctx context.Context, key chat.Key)
}

func cacheKey(key chat.Key) string {
	return strings.Join([]string{"chat", "history", key.UserID, key.OrgnID, key.SessionID}, ":")
}

// RedisCache caches transcripts in Redis.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a transcript cache on the given Redis client.
func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) Get(ctx context.Context, key chat.Key) ([]chat.Message, bool) {
	raw, err := c.client.Get(ctx, cacheKey(key)).Bytes()
	if err != nil {
		return nil, false
	}
	var msgs []chat.Message
	if err := json.Unmarshal(raw, &msgs); err != nil {
		return nil, false
	}
	return msgs, true
}

func (c *RedisCache) Set(ctx context.Context, key chat.Key, msgs []chat.Message) {
	raw, err := json.Marshal(msgs)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, cacheKey(key), raw, transcriptTTL).Err()
}

func (c *RedisCache) Invalidate(ctx context.Context, key chat.Key) {
	_ = c.client.Del(ctx, cacheKey(key)).Err()
}

// LocalCache caches transcripts in process memory. It is the default when no
// Redis address is configured.
type LocalCache struct {
	cache *gocache.Cache
}

// NewLocalCache creates an in-process transcript cache.
func NewLocalCache() *LocalCache {
	return &LocalCache{cache: gocache.New(transcriptTTL, 2*transcriptTTL)}
}

func (c *LocalCache) Get(_ context.Context, key chat.Key) ([]chat.Message, bool) {
	if v, ok := c.cache.Get(cacheKey(key)); ok {
		if msgs, ok := v.([]chat.Message); ok {
			return msgs, true
		}
	}
	return nil, false
}

func (c *LocalCache) Set(_ context.Context, key chat.Key, msgs []chat.Message) {
	c.cache.Set(cacheKey(key), msgs, gocache.DefaultExpiration)
}

func (c *LocalCache) Invalidate(_ context.Context, key chat.Key) {
	c.cache.Delete(cacheKey(key))
}
