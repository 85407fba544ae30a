package xsnapcache

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
	"time"

	"github.com/omeyang/xsnap/pkg/observability/xlog"
	"github.com/omeyang/xsnap/pkg/storage/xblob"
)

// Store 带 TTL 的进程内缓存，内容可快照到持久化网关并在重启后恢复。
//
// 所有公开操作在同一把互斥锁下执行：读与写互斥，不存在并发读路径。
// 公开的缓存操作不返回错误也不 panic，失败只体现为未命中和日志。
type Store struct {
	mu         sync.Mutex
	structured map[string]Entry
	opaque     map[string]Entry

	opts    *options
	gateway xblob.Gateway
	logger  xlog.Logger
	metrics *metrics
}

// New 创建空的 Store。不会从网关恢复数据，需调用 Initialize 或 Restore。
//
// 未通过 WithGateway 指定网关时，使用 xblob.DefaultDir() 下的本地目录，
// 目录无法创建时返回错误。
func New(opts ...Option) (*Store, error) {
	o := applyOptions(opts)

	gw := o.gateway
	if gw == nil {
		dir, err := xblob.DefaultDir()
		if err != nil {
			return nil, err
		}
		if gw, err = xblob.NewDir(dir); err != nil {
			return nil, err
		}
	}

	s := &Store{
		structured: make(map[string]Entry),
		opaque:     make(map[string]Entry),
		opts:       o,
		gateway:    gw,
		logger:     o.logger.With(slog.String("component", "xsnapcache")),
	}
	m, err := newMetrics(o.meterProvider, s.Count)
	if err != nil {
		return nil, err
	}
	s.metrics = m
	return s, nil
}

func (s *Store) now() time.Time {
	return s.opts.clock.Now()
}

func (s *Store) partition(p Partition) map[string]Entry {
	if p == PartitionOpaque {
		return s.opaque
	}
	return s.structured
}

// Set 写入 key。失败（空 key、nil 值、编码失败）只记录日志，已有条目保持不变。
func (s *Store) Set(ctx context.Context, key string, value any, opts ...SetOption) {
	if err := s.SetE(ctx, key, value, opts...); err != nil {
		s.logger.Warn(normalize(ctx), "could not cache value",
			slog.String("key", key),
			xlog.Err(err),
		)
	}
}

// SetE 与 Set 相同，但返回失败原因。
func (s *Store) SetE(ctx context.Context, key string, value any, opts ...SetOption) error {
	ctx = normalize(ctx)
	err := s.set(key, value, opts)
	s.metrics.set(ctx, err)
	return err
}

func (s *Store) set(key string, value any, opts []SetOption) error {
	if key == "" {
		return ErrEmptyKey
	}
	if isNil(value) {
		return ErrNilValue
	}

	so := &setOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt(so)
		}
	}

	entry := Entry{
		Key:       key,
		ExpiresAt: s.opts.policy.ExpiresAt(value, s.now(), so.ttl),
	}
	part := classify(reflect.TypeOf(value))
	if part == PartitionStructured {
		text, err := s.opts.codec.Marshal(value)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrEncode, err)
		}
		entry.Payload = StructuredPayload{Text: text}
	} else {
		entry.Payload = OpaquePayload{Value: value}
	}

	s.mu.Lock()
	s.partition(part)[key] = entry
	s.mu.Unlock()
	return nil
}

// Get 按类型 T 读取 key。
//
// 结构化类型只查结构化分区，其余类型只查不透明分区。
// 条目已过期、解码失败或类型不匹配时，条目被淘汰并返回未命中。
func Get[T any](ctx context.Context, s *Store, key string) (T, bool) {
	var zero T
	if s == nil || key == "" {
		return zero, false
	}
	ctx = normalize(ctx)
	part := PartitionOf[T]()
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	m := s.partition(part)
	entry, ok := m[key]
	if !ok {
		s.metrics.miss(ctx, missAbsent)
		return zero, false
	}
	if !entry.Live(now) {
		delete(m, key)
		s.metrics.evict(ctx, 1)
		s.metrics.miss(ctx, missExpired)
		return zero, false
	}

	value, err := decodePayload[T](s.opts.codec, entry.Payload)
	if err != nil {
		delete(m, key)
		s.metrics.evict(ctx, 1)
		s.metrics.miss(ctx, missMismatch)
		s.logger.Debug(ctx, "evicted entry on type mismatch",
			slog.String("key", key),
			xlog.Err(err),
		)
		return zero, false
	}
	s.metrics.hit(ctx, part)
	return value, true
}

func decodePayload[T any](codec Codec, payload Payload) (T, error) {
	var value T
	switch p := payload.(type) {
	case StructuredPayload:
		if err := codec.Unmarshal(p.Text, &value); err != nil {
			return value, err
		}
		return value, nil
	case OpaquePayload:
		v, ok := p.Value.(T)
		if !ok {
			return value, fmt.Errorf("xsnapcache: stored %T is not %s", p.Value, reflect.TypeFor[T]())
		}
		return v, nil
	default:
		return value, fmt.Errorf("xsnapcache: unknown payload %T", payload)
	}
}

// Count 返回两个分区的条目总数，包含尚未被清理的过期条目。
func (s *Store) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.structured) + len(s.opaque)
}

// Clear 清空两个分区。memoryOnly 为 false 时同时清除网关下的全部快照。
func (s *Store) Clear(ctx context.Context, memoryOnly bool) {
	ctx = normalize(ctx)

	s.mu.Lock()
	n := len(s.structured) + len(s.opaque)
	s.structured = make(map[string]Entry)
	s.opaque = make(map[string]Entry)
	s.mu.Unlock()

	s.logger.Debug(ctx, "cache cleared",
		slog.Int("entries", n),
		slog.Bool("memory_only", memoryOnly),
	)
	if memoryOnly {
		return
	}
	if err := s.gateway.Clear(ctx); err != nil {
		s.logger.Warn(ctx, "clear snapshots failed", xlog.Err(err))
	}
}

// PurgeExpired 淘汰两个分区中所有已过期的条目，返回淘汰数量。
func (s *Store) PurgeExpired(ctx context.Context) int {
	ctx = normalize(ctx)
	now := s.now()

	s.mu.Lock()
	n := purge(s.structured, now) + purge(s.opaque, now)
	s.mu.Unlock()

	s.metrics.evict(ctx, n)
	if n > 0 {
		s.logger.Debug(ctx, "purged expired entries", slog.Int("count", n))
	}
	return n
}

func purge(m map[string]Entry, now time.Time) int {
	n := 0
	for key, entry := range m {
		if !entry.Live(now) {
			delete(m, key)
			n++
		}
	}
	return n
}

func normalize(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

func isNil(value any) bool {
	if value == nil {
		return true
	}
	v := reflect.ValueOf(value)
	switch v.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan, reflect.Interface:
		return v.IsNil()
	default:
		return false
	}
}
