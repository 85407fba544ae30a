package xblob

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// scanCount SCAN 每批返回的键数量提示。
const scanCount = 100

// Redis 基于 Redis 的网关，每个 blob 对应一个字符串键。
type Redis struct {
	client redis.UniversalClient
	opts   *redisOptions
}

var _ Gateway = (*Redis)(nil)

// NewRedis 创建 Redis 网关。client 由调用方管理生命周期。
func NewRedis(client redis.UniversalClient, opts ...RedisOption) (*Redis, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	o := defaultRedisOptions()
	for _, opt := range opts {
		opt(o)
	}
	return &Redis{client: client, opts: o}, nil
}

func (g *Redis) key(name string) string {
	return g.opts.prefix + name
}

// Read 实现 Gateway。
func (g *Redis) Read(ctx context.Context, name string) ([]byte, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	data, err := g.client.Get(ctx, g.key(name)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("xblob: redis get %s: %w", name, err)
	}
	return data, nil
}

// Write 实现 Gateway。
func (g *Redis) Write(ctx context.Context, name string, data []byte) error {
	if err := validateName(name); err != nil {
		return err
	}
	if err := g.client.Set(ctx, g.key(name), data, g.opts.ttl).Err(); err != nil {
		return fmt.Errorf("xblob: redis set %s: %w", name, err)
	}
	return nil
}

// Clear 实现 Gateway。不传名称时通过 SCAN 删除前缀下的全部键。
func (g *Redis) Clear(ctx context.Context, names ...string) error {
	keys := make([]string, 0, len(names))
	for _, name := range names {
		if err := validateName(name); err != nil {
			return err
		}
		keys = append(keys, g.key(name))
	}

	if len(names) == 0 {
		iter := g.client.Scan(ctx, 0, g.opts.prefix+"*", scanCount).Iterator()
		for iter.Next(ctx) {
			keys = append(keys, iter.Val())
		}
		if err := iter.Err(); err != nil {
			return fmt.Errorf("xblob: redis scan: %w", err)
		}
	}
	if len(keys) == 0 {
		return nil
	}
	if err := g.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("xblob: redis del: %w", err)
	}
	return nil
}
