package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`
}

// Redis keeps blobs as plain string keys without expiry.
type Redis struct {
	cli    *redis.Client
	prefix string
}

func NewRedis(cfg RedisConfig) *Redis {
	prefix := cfg.Prefix
	if prefix == "" {
		prefix = "binary_bot:"
	}
	return &Redis{
		cli:    redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}),
		prefix: prefix,
	}
}

func (r *Redis) Ping(ctx context.Context) error {
	if err := r.cli.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	b, err := r.cli.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis.Get %s: %w", key, err)
	}
	return b, true, nil
}

func (r *Redis) Put(ctx context.Context, key string, value []byte) error {
	if err := r.cli.Set(ctx, r.prefix+key, value, 0).Err(); err != nil {
		return fmt.Errorf("redis.Set %s: %w", key, err)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.cli.Close()
}
