package xrun

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"
)

// Group 基于 errgroup 管理一组任务。
//
// Go、GoWithName、Cancel 可并发调用，Wait 只应调用一次。
type Group struct {
	eg       *errgroup.Group
	ctx      context.Context
	causeCtx context.Context
	cancel   context.CancelCauseFunc
	opts     *options
}

// NewGroup 创建 Group，返回的 context 在任一任务出错或 Cancel 时取消。
// nil ctx 按 context.Background() 处理。
func NewGroup(ctx context.Context, opts ...Option) (*Group, context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}

	causeCtx, cancel := context.WithCancelCause(ctx)
	eg, egCtx := errgroup.WithContext(causeCtx)
	return &Group{eg: eg, ctx: egCtx, causeCtx: causeCtx, cancel: cancel, opts: o}, egCtx
}

// Go 启动任务。
func (g *Group) Go(fn func(ctx context.Context) error) {
	g.eg.Go(func() error {
		if fn == nil {
			return ErrNilFunc
		}
		return fn(g.ctx)
	})
}

// GoWithName 启动任务并记录其启停日志。
func (g *Group) GoWithName(name string, fn func(ctx context.Context) error) {
	g.eg.Go(func() error {
		if fn == nil {
			return ErrNilFunc
		}
		attrs := []slog.Attr{slog.String("group", g.opts.name), slog.String("task", name)}
		g.opts.logger.Debug(g.ctx, "task starting", attrs...)

		err := fn(g.ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			g.opts.logger.Warn(g.ctx, "task exited with error", append(attrs, slog.Any("error", err))...)
		} else {
			g.opts.logger.Debug(g.ctx, "task stopped", attrs...)
		}
		return err
	})
}

// Wait 等待所有任务结束。
//
// 由 Group 自身取消（Cancel、信号、父 ctx 取消）引起的 context.Canceled 被过滤：
// 存在显式原因时返回该原因，否则返回 nil。任务内部产生的 context.Canceled 原样返回。
func (g *Group) Wait() error {
	defer g.cancel(nil)

	err := g.eg.Wait()
	cancelled := g.causeCtx.Err() != nil

	switch {
	case errors.Is(err, context.Canceled) && cancelled:
		return g.explicitCause()
	case err == nil && cancelled:
		return g.explicitCause()
	default:
		return err
	}
}

// Cancel 以 cause 为原因取消所有任务，Wait 会返回 cause。
// cause 不应包装 context.Canceled，否则会被 Wait 过滤。
func (g *Group) Cancel(cause error) {
	g.cancel(cause)
}

func (g *Group) explicitCause() error {
	cause := context.Cause(g.causeCtx)
	if cause == nil || errors.Is(cause, context.Canceled) {
		return nil
	}
	return cause
}
