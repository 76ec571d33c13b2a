package state

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisKeyPrefix = "conv:"
	redisTTL       = 7 * 24 * time.Hour
)

// RedisStore keeps conversations in Redis with a sliding TTL, so abandoned
// dialogues expire on their own.
type RedisStore struct {
	rdb *redis.Client
}

// NewRedisClient parses a redis:// URL and checks the connection.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	opts.DialTimeout = 3 * time.Second
	opts.ReadTimeout = 2 * time.Second
	opts.WriteTimeout = 2 * time.Second

	rdb := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

func redisKey(key Key) string {
	return redisKeyPrefix + key.String()
}

func (s *RedisStore) Get(ctx context.Context, key Key) (Conversation, error) {
	data, err := s.rdb.Get(ctx, redisKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Idle(), nil
	}
	if err != nil {
		return Idle(), fmt.Errorf("get conversation %s: %w", key, err)
	}
	return decode(data), nil
}

func (s *RedisStore) Set(ctx context.Context, key Key, c Conversation) error {
	if c.IsIdle() {
		return s.Clear(ctx, key)
	}
	data, err := encode(c)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, redisKey(key), data, redisTTL).Err(); err != nil {
		return fmt.Errorf("set conversation %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Clear(ctx context.Context, key Key) error {
	if err := s.rdb.Del(ctx, redisKey(key)).Err(); err != nil {
		return fmt.Errorf("clear conversation %s: %w", key, err)
	}
	return nil
}

var (
	_ Store = (*RedisStore)(nil)
	_ Store = (*PostgresStore)(nil)
	_ Store = (*MemoryStore)(nil)
)
