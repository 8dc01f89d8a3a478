package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const exactKeyPrefix = "assistant:exact:"

// RedisExactCache keeps question -> answer pairs in Redis in front of the SQL
// exact-match lookup. It only ever holds copies of rows that exist in SQL.
type RedisExactCache struct {
	client *redis.Client
	ttl    time.Duration
}

type exactPayload struct {
	ID       string `json:"id"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// NewRedisClient connects and pings Redis.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return rdb, nil
}

func NewRedisExactCache(client *redis.Client, ttl time.Duration) *RedisExactCache {
	return &RedisExactCache{client: client, ttl: ttl}
}

func exactKey(question string) string {
	sum := sha256.Sum256([]byte(question))
	return exactKeyPrefix + hex.EncodeToString(sum[:])
}

// Get returns the cached entry for a normalized question, or nil on a miss.
func (c *RedisExactCache) Get(ctx context.Context, question string) (*CacheEntry, error) {
	raw, err := c.client.Get(ctx, exactKey(question)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var p exactPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode cached entry: %w", err)
	}
	if p.Question != question {
		return nil, nil
	}
	return &CacheEntry{ID: p.ID, Question: p.Question, Answer: p.Answer}, nil
}

func (c *RedisExactCache) Put(ctx context.Context, entry *CacheEntry) error {
	b, err := json.Marshal(exactPayload{ID: entry.ID, Question: entry.Question, Answer: entry.Answer})
	if err != nil {
		return fmt.Errorf("encode cached entry: %w", err)
	}
	if err := c.client.Set(ctx, exactKey(entry.Question), b, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}
