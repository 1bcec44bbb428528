package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-redis/redis/v8"
)

// ErrCacheMiss cache key not found
var ErrCacheMiss = errors.New("cache miss")

// SetJSON marshals v and stores it under key with the given TTL
func SetJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) error {
	if Client == nil {
		return errors.New("redis client not initialized")
	}
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return Client.Set(ctx, key, data, ttl).Err()
}

// GetJSON loads key and unmarshals it into v
func GetJSON(ctx context.Context, key string, v interface{}) error {
	if Client == nil {
		return errors.New("redis client not initialized")
	}
	data, err := Client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrCacheMiss
		}
		return err
	}
	return json.Unmarshal(data, v)
}

// Delete removes keys. Used to invalidate cached product views after
// discount updates.
func Delete(ctx context.Context, keys ...string) error {
	if Client == nil || len(keys) == 0 {
		return nil
	}
	return Client.Del(ctx, keys...).Err()
}
