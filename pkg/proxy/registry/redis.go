package registry

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/keshava/maro/pkg/proxy/types"
)

// RedisStore backs Store with a real Redis server, grounded on the
// original implementation's direct dependency on a Python redis.Redis
// client (original_source/maro/communication/proxy.py) and on the
// go-redis/v9 client retrieved from the example pack.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore dials host:port. A failed ping is surfaced as
// types.ErrRegistryUnreachable, per spec.md §7.
func NewRedisStore(ctx context.Context, host string, port int) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{Addr: fmt.Sprintf("%s:%d", host, port)})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrRegistryUnreachable, err)
	}
	return &RedisStore{client: client}, nil
}

func (r *RedisStore) HSet(ctx context.Context, key, field string, value []byte) error {
	return r.client.HSet(ctx, key, field, value).Err()
}

func (r *RedisStore) HDel(ctx context.Context, key, field string) error {
	return r.client.HDel(ctx, key, field).Err()
}

func (r *RedisStore) HGetAll(ctx context.Context, key string) (map[string][]byte, error) {
	raw, err := r.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, err
	}
	out := make(map[string][]byte, len(raw))
	for k, v := range raw {
		out[k] = []byte(v)
	}
	return out, nil
}

func (r *RedisStore) HMGet(ctx context.Context, key string, fields []string) ([][]byte, error) {
	raw, err := r.client.HMGet(ctx, key, fields...).Result()
	if err != nil {
		return nil, err
	}
	out := make([][]byte, len(raw))
	for i, v := range raw {
		if v == nil {
			continue
		}
		if s, ok := v.(string); ok {
			out[i] = []byte(s)
		}
	}
	return out, nil
}

func (r *RedisStore) HLen(ctx context.Context, key string) (int, error) {
	n, err := r.client.HLen(ctx, key).Result()
	return int(n), err
}

func (r *RedisStore) HKeys(ctx context.Context, key string) ([]string, error) {
	return r.client.HKeys(ctx, key).Result()
}

// Close releases the underlying connection pool.
func (r *RedisStore) Close() error {
	return r.client.Close()
}

var _ Store = (*RedisStore)(nil)
