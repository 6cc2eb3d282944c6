package redis

import (
	"context"
	"time"

	"shadowrun-gm-dashboard/backend/pkg/config"

	"github.com/redis/go-redis/v9"
)

var ctx = context.Background()

// Nil is returned by Get when a key does not exist
var Nil = redis.Nil

// RedisClient wraps the go-redis client. The review service uses it to cache
// terminal pending-response statuses so player polling loops stop hitting
// Postgres once a decision lands.
type RedisClient struct {
	client *redis.Client
}

// NewRedisClient creates a client from the application config
func NewRedisClient() *RedisClient {
	cfg := config.Get()
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	return &RedisClient{client: client}
}

// Ping verifies connectivity, used by the health checker
func (r *RedisClient) Ping() error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisClient) Set(key string, value interface{}, expiration time.Duration) error {
	return r.client.Set(ctx, key, value, expiration).Err()
}

func (r *RedisClient) Get(key string) (string, error) {
	return r.client.Get(ctx, key).Result()
}

func (r *RedisClient) Del(key string) error {
	return r.client.Del(ctx, key).Err()
}
