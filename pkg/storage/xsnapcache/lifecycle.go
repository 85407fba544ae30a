package xsnapcache

import (
	"context"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel/metric/noop"

	"github.com/omeyang/xsnap/pkg/observability/xlog"
	"github.com/omeyang/xsnap/pkg/storage/xblob"
)

// Initialize 在进程启动时从网关恢复缓存，等同于 Restore。
func (s *Store) Initialize(ctx context.Context) RestoreResult {
	return s.Restore(ctx)
}

// Shutdown 在进程退出前将缓存写入网关，等同于 Flush。
func (s *Store) Shutdown(ctx context.Context) error {
	ctx = normalize(ctx)
	err := s.Flush(ctx)
	if err != nil {
		s.logger.Warn(ctx, "flush on shutdown failed", xlog.Err(err))
		return err
	}
	s.logger.Info(ctx, "cache persisted", slog.Int("entries", s.Count()))
	return nil
}

// Gateway 返回 Store 使用的持久化网关。
func (s *Store) Gateway() xblob.Gateway {
	return s.gateway
}

// ============================================================================
// 进程级默认实例
// ============================================================================

var (
	defaultMu    sync.Mutex
	defaultStore *Store
)

// Default 返回进程级默认 Store。
//
// 首次调用时以默认选项创建并从网关恢复；默认目录不可用时退化为内存网关。
func Default() *Store {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultStore != nil {
		return defaultStore
	}

	ctx := context.Background()
	s, err := New()
	if err != nil {
		xlog.Default().Warn(ctx, "xsnapcache: default dir unavailable, falling back to memory", xlog.Err(err))
		// noop MeterProvider 创建指标不会失败
		s, _ = New(WithGateway(xblob.NewMemory()), WithMeterProvider(noop.NewMeterProvider())) //nolint:errcheck
	}
	s.Initialize(ctx)
	defaultStore = s
	return s
}

// SetDefault 替换进程级默认 Store，nil 表示下次 Default 调用时重新创建。
// 调用方负责在替换前对旧实例调用 Shutdown。
func SetDefault(s *Store) {
	defaultMu.Lock()
	defaultStore = s
	defaultMu.Unlock()
}
