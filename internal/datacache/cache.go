// Package datacache keeps downloaded dataset bodies in redis.
package datacache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/go-sod/sodfilter/internal/logging"
)

const keyPrefix = "sod:dataset:"

// Key returns the redis key for a dataset source.
func Key(source string) string {
	sum := sha256.Sum256([]byte(source))
	return keyPrefix + hex.EncodeToString(sum[:])
}

type Cache struct {
	client *redis.Client
	ttl    time.Duration
}

func New(client *redis.Client, ttl time.Duration) *Cache {
	return &Cache{client: client, ttl: ttl}
}

func NewFromConfig(ctx context.Context, cfg *Config) (*Cache, error) {
	logger := logging.FromContext(ctx)
	logger.Infof("creating redis connection to %s", cfg.Addr)

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return New(client, cfg.TTL), nil
}

// Get returns the cached body for source. A miss is reported by the bool, not an error.
func (c *Cache) Get(ctx context.Context, source string) ([]byte, bool, error) {
	body, err := c.client.Get(ctx, Key(source)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	return body, true, nil
}

func (c *Cache) Set(ctx context.Context, source string, body []byte) error {
	if err := c.client.Set(ctx, Key(source), body, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (c *Cache) Close(ctx context.Context) error {
	logging.FromContext(ctx).Infof("closing redis connection")
	if err := c.client.Close(); err != nil {
		return fmt.Errorf("error close redis connection: %w", err)
	}
	return nil
}
