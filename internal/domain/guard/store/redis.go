package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

type redisStore struct {
	client *redis.Client
	prefix string
}

// NewRedis constructs a redis-backed failure store. Each identifier maps
// to a sorted set scored by the failure time in unix milliseconds, which
// makes pruning a single ZREMRANGEBYSCORE.
func NewRedis(cfg Config) (FailureStore, error) {
	if cfg.Redis == nil {
		return nil, fmt.Errorf("redis configuration missing")
	}
	if cfg.Redis.Addr == "" {
		return nil, fmt.Errorf("redis address required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Username: cfg.Redis.Username,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	prefix := cfg.Redis.Prefix
	if prefix == "" {
		prefix = "guard:failures:"
	}
	return &redisStore{client: client, prefix: prefix}, nil
}

func (s *redisStore) key(identifier string) string {
	return s.prefix + identifier
}

func (s *redisStore) Append(ctx context.Context, identifier string, at time.Time) error {
	// Members must stay unique even for same-millisecond failures, so the
	// member is a uuid and the timestamp lives in the score.
	member := uuid.NewString()
	return s.client.ZAdd(ctx, s.key(identifier), redis.Z{
		Score:  float64(at.UnixMilli()),
		Member: member,
	}).Err()
}

func (s *redisStore) List(ctx context.Context, identifier string) ([]time.Time, error) {
	entries, err := s.client.ZRangeWithScores(ctx, s.key(identifier), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	stamps := make([]time.Time, 0, len(entries))
	for _, entry := range entries {
		stamps = append(stamps, time.UnixMilli(int64(entry.Score)))
	}
	return stamps, nil
}

func (s *redisStore) Prune(ctx context.Context, identifier string, cutoff time.Time) error {
	max := fmt.Sprintf("%d", cutoff.UnixMilli())
	return s.client.ZRemRangeByScore(ctx, s.key(identifier), "-inf", max).Err()
}

func (s *redisStore) Clear(ctx context.Context, identifier string) error {
	return s.client.Del(ctx, s.key(identifier)).Err()
}

func (s *redisStore) Close(_ context.Context) error {
	return s.client.Close()
}
