package portfolio

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "portfolio:"

// RedisStore keeps each owner's holdings in a sorted set scored by the time
// a symbol was first added, which preserves insertion order.
type RedisStore struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisClient parses a redis:// URL, falling back to treating it as a
// plain address, and checks connectivity.
func NewRedisClient(ctx context.Context, redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		opt = &redis.Options{Addr: redisURL}
	}
	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, now: time.Now}
}

func redisKey(owner string) string {
	return redisKeyPrefix + owner
}

func (s *RedisStore) Get(ctx context.Context, owner string) (Holdings, error) {
	symbols, err := s.client.ZRange(ctx, redisKey(owner), 0, -1).Result()
	if err != nil {
		return Holdings{}, fmt.Errorf("read holdings: %w", err)
	}
	return NewHoldings(symbols...), nil
}

func (s *RedisStore) Add(ctx context.Context, owner, symbol string) (Holdings, error) {
	norm, err := NormalizeSymbol(symbol)
	if err != nil {
		return Holdings{}, err
	}
	member := redis.Z{Score: float64(s.now().UnixNano()), Member: norm}
	if err := s.client.ZAddNX(ctx, redisKey(owner), member).Err(); err != nil {
		return Holdings{}, fmt.Errorf("add stock: %w", err)
	}
	return s.Get(ctx, owner)
}

func (s *RedisStore) Remove(ctx context.Context, owner, symbol string) (Holdings, error) {
	norm, err := NormalizeSymbol(symbol)
	if err != nil {
		return Holdings{}, err
	}
	if err := s.client.ZRem(ctx, redisKey(owner), norm).Err(); err != nil {
		return Holdings{}, fmt.Errorf("remove stock: %w", err)
	}
	return s.Get(ctx, owner)
}
