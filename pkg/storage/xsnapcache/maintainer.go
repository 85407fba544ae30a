package xsnapcache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/omeyang/xsnap/pkg/lifecycle/xrun"
)

// DefaultPurgeSchedule 默认的过期清理计划。
const DefaultPurgeSchedule = "@every 1m"

// MaintainerOption 配置 Maintainer。
type MaintainerOption func(*maintainerOptions)

type maintainerOptions struct {
	schedule string
	autosave time.Duration
}

// WithPurgeSchedule 设置过期清理的 cron 表达式（标准五段式或 @every 描述符）。
// 空字符串被忽略。
func WithPurgeSchedule(expr string) MaintainerOption {
	return func(o *maintainerOptions) {
		if expr != "" {
			o.schedule = expr
		}
	}
}

// WithAutosave 设置周期性快照间隔，d <= 0 表示只在退出时写快照（默认）。
func WithAutosave(d time.Duration) MaintainerOption {
	return func(o *maintainerOptions) {
		o.autosave = d
	}
}

// Maintainer 托管 Store 的生命周期：启动时恢复，运行中定期清理过期条目，
// 退出时写快照。
type Maintainer struct {
	store    *Store
	opts     maintainerOptions
	schedule cron.Schedule
}

// NewMaintainer 创建 Maintainer，清理计划无法解析时返回 ErrInvalidConfig。
func NewMaintainer(store *Store, opts ...MaintainerOption) (*Maintainer, error) {
	if store == nil {
		return nil, ErrNilStore
	}
	o := maintainerOptions{schedule: DefaultPurgeSchedule}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	schedule, err := cron.ParseStandard(o.schedule)
	if err != nil {
		return nil, fmt.Errorf("%w: purge schedule %q: %w", ErrInvalidConfig, o.schedule, err)
	}
	return &Maintainer{store: store, opts: o, schedule: schedule}, nil
}

// Run 恢复缓存后持续运行，直到 ctx 取消；退出前写快照。
//
// 返回写快照的错误；写快照成功时返回 ctx.Err()，可直接作为 xrun 任务使用。
func (m *Maintainer) Run(ctx context.Context) error {
	s := m.store
	s.Initialize(ctx)

	c := cron.New()
	c.Schedule(m.schedule, cron.FuncJob(func() {
		m.store.PurgeExpired(ctx)
	}))
	c.Start()

	g, _ := xrun.NewGroup(ctx, xrun.WithLogger(s.logger), xrun.WithName("xsnapcache"))
	g.GoWithName("wait", xrun.WaitForDone())
	if m.opts.autosave > 0 {
		g.GoWithName("autosave", xrun.Ticker(m.opts.autosave, false, func(ctx context.Context) error {
			// 自动保存失败不终止维护任务，Flush 已记录日志
			_ = s.Flush(ctx) //nolint:errcheck
			return nil
		}))
	}
	waitErr := g.Wait()

	<-c.Stop().Done()
	s.logger.Debug(ctx, "maintainer stopping", slog.Any("cause", context.Cause(ctx)))

	if err := s.Shutdown(context.WithoutCancel(ctx)); err != nil {
		return err
	}
	if waitErr != nil {
		return waitErr
	}
	return ctx.Err()
}

// Store 返回被托管的 Store。
func (m *Maintainer) Store() *Store {
	return m.store
}
