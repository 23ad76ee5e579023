package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisTimeout bounds a token lookup so a slow Redis never stalls a request.
const redisTimeout = 2 * time.Second

// RedisSource reads the current session token from a Redis key that the
// session service keeps up to date.
type RedisSource struct {
	client *redis.Client
	key    string
}

// NewRedisSource reads key through client.
func NewRedisSource(client *redis.Client, key string) *RedisSource {
	return &RedisSource{client: client, key: key}
}

// Token returns the stored token, or ErrNoToken when the key is absent.
func (s *RedisSource) Token(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, redisTimeout)
	defer cancel()

	tok, err := s.client.Get(ctx, s.key).Result()
	if errors.Is(err, redis.Nil) || (err == nil && tok == "") {
		return "", ErrNoToken
	}
	if err != nil {
		return "", fmt.Errorf("read token from redis key %s: %w", s.key, err)
	}
	return tok, nil
}

// Store publishes a token under the source's key with a ttl (0 = no expiry).
func (s *RedisSource) Store(ctx context.Context, token string, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.key, token, ttl).Err(); err != nil {
		return fmt.Errorf("store token in redis key %s: %w", s.key, err)
	}
	return nil
}

// NewRedisClient connects and pings, in the same way as the shared infrastructure client.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	if addr == "" {
		return nil, errors.New("redis address is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}
