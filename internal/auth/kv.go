package auth

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrNoKey = errors.New("auth: key not found")

// KV is the short-lived key space behind login sessions and reset tokens.
type KV interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	// Take returns and deletes the value in one step.
	Take(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, key string) error
}

type redisKV struct {
	rdb redis.Cmdable
}

func NewRedisKV(rdb redis.Cmdable) KV {
	return redisKV{rdb: rdb}
}

func (r redisKV) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return r.rdb.Set(ctx, key, value, ttl).Err()
}

func (r redisKV) Get(ctx context.Context, key string) (string, error) {
	v, err := r.rdb.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNoKey
	}
	return v, err
}

func (r redisKV) Take(ctx context.Context, key string) (string, error) {
	v, err := r.rdb.GetDel(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNoKey
	}
	return v, err
}

func (r redisKV) Del(ctx context.Context, key string) error {
	return r.rdb.Del(ctx, key).Err()
}
