package xrun

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
)

// Run 在同一个 Group 中运行 tasks，并在收到信号时取消它们。
//
// 返回值遵循 Group.Wait：信号退出返回 *SignalError（errors.Is(err, ErrSignal)），
// 父 ctx 取消返回 nil，任务错误原样返回。
func Run(ctx context.Context, opts []Option, tasks ...func(ctx context.Context) error) error {
	g, _ := NewGroup(ctx, opts...)

	if !g.opts.noSignalHandler {
		signals := g.opts.signals
		if len(signals) == 0 {
			signals = DefaultSignals()
		}
		g.Go(func(ctx context.Context) error {
			return g.waitSignal(ctx, signals)
		})
	}

	for _, task := range tasks {
		g.Go(task)
	}
	return g.Wait()
}

func (g *Group) waitSignal(ctx context.Context, signals []os.Signal) error {
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, signals...)
	defer signal.Stop(ch)

	var sig os.Signal
	select {
	case sig = <-ch:
	case sig = <-injectedSignals(ctx):
	case <-ctx.Done():
		return ctx.Err()
	}

	g.opts.logger.Info(ctx, "received signal",
		slog.String("group", g.opts.name),
		slog.String("signal", sig.String()),
	)
	g.cancel(&SignalError{Signal: sig})
	return nil
}

// injectedSignalsKey 允许测试通过 context 注入信号，而不向进程发送真实信号。
type injectedSignalsKey struct{}

func injectedSignals(ctx context.Context) <-chan os.Signal {
	c, _ := ctx.Value(injectedSignalsKey{}).(<-chan os.Signal)
	return c
}
