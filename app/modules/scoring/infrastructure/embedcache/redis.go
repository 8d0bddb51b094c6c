package embedcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "promptduel:embedding:"

// RedisStore shares embeddings between server replicas.
type RedisStore struct {
	rdb *goredis.Client
	ttl time.Duration
}

// NewRedisStore connects to url (redis://...) and pings it.
func NewRedisStore(ctx context.Context, url string, ttl time.Duration) (*RedisStore, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("embedcache.NewRedisStore: %w", err)
	}
	if opts.DialTimeout == 0 {
		opts.DialTimeout = 5 * time.Second
	}
	rdb := goredis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &RedisStore{rdb: rdb, ttl: ttl}, nil
}

var _ RemoteStore = (*RedisStore)(nil)

func (s *RedisStore) Get(ctx context.Context, key string) ([]float64, bool, error) {
	raw, err := s.rdb.Get(ctx, redisKeyPrefix+key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("embedcache.RedisStore.Get: %w", err)
	}
	var vec []float64
	if err := json.Unmarshal(raw, &vec); err != nil {
		return nil, false, fmt.Errorf("embedcache.RedisStore.Get: decode: %w", err)
	}
	return vec, true, nil
}

// Set writes with SETNX so the first stored vector wins across replicas.
func (s *RedisStore) Set(ctx context.Context, key string, vec []float64) error {
	raw, err := json.Marshal(vec)
	if err != nil {
		return fmt.Errorf("embedcache.RedisStore.Set: encode: %w", err)
	}
	if err := s.rdb.SetNX(ctx, redisKeyPrefix+key, raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("embedcache.RedisStore.Set: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
