package xblob

import "time"

// ============================================================================
// 文件系统网关选项
// ============================================================================

// FSOption 配置文件系统网关。
type FSOption func(*fsOptions)

type fsOptions struct {
	attempts uint
	delay    time.Duration
}

func defaultFSOptions() *fsOptions {
	return &fsOptions{
		attempts: 3,
		delay:    50 * time.Millisecond,
	}
}

// WithRetry 设置写入的最大尝试次数与重试间隔。
// attempts 为 0 时忽略；attempts 为 1 表示不重试。
func WithRetry(attempts uint, delay time.Duration) FSOption {
	return func(o *fsOptions) {
		if attempts > 0 {
			o.attempts = attempts
		}
		if delay >= 0 {
			o.delay = delay
		}
	}
}

// ============================================================================
// Redis 网关选项
// ============================================================================

// RedisOption 配置 Redis 网关。
type RedisOption func(*redisOptions)

type redisOptions struct {
	prefix string
	ttl    time.Duration
}

func defaultRedisOptions() *redisOptions {
	return &redisOptions{
		prefix: "xsnap:",
	}
}

// WithKeyPrefix 设置键前缀，默认 "xsnap:"。空字符串被忽略。
func WithKeyPrefix(prefix string) RedisOption {
	return func(o *redisOptions) {
		if prefix != "" {
			o.prefix = prefix
		}
	}
}

// WithBlobTTL 为写入的键设置过期时间，0 表示永不过期（默认）。
func WithBlobTTL(ttl time.Duration) RedisOption {
	return func(o *redisOptions) {
		if ttl >= 0 {
			o.ttl = ttl
		}
	}
}
