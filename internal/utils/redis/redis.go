// Package redis provides a Redis client for interacting with Redis
package redis

import (
	"context"
	"fmt"

	"github.com/redis/rueidis"

	"github.com/tensorplex-labs/swarmwatch/internal/config"
)

// Redis is a read-side client for the DHT mirror kept in Redis.
type Redis struct {
	client rueidis.Client
	cfg    *config.RedisEnvConfig
}

type RedisInterface interface {
	Get(ctx context.Context, key string) (string, error)
	Close()
}

func NewRedis(cfg *config.RedisEnvConfig) (*Redis, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis configuration cannot be nil")
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress: []string{fmt.Sprintf("%s:%d", cfg.RedisHost, cfg.RedisPort)},
		Username:    cfg.RedisUsername,
		Password:    cfg.RedisPassword,
		SelectDB:    cfg.RedisDB,
	})
	if err != nil {
		return nil, err
	}

	return &Redis{
		client: client,
		cfg:    cfg,
	}, nil
}

// Get returns "" with a nil error when the key does not exist.
func (r *Redis) Get(ctx context.Context, key string) (string, error) {
	resp := r.client.Do(ctx, r.client.B().Get().Key(key).Build())
	if err := resp.Error(); err != nil {
		if rueidis.IsRedisNil(err) {
			return "", nil
		}
		return "", err
	}
	return resp.ToString()
}

func (r *Redis) Close() {
	r.client.Close()
}
