// Package xrun 管理进程内多个长期运行任务的启动与协调关闭。
//
// 任务签名统一为 func(ctx context.Context) error：任务应监听 ctx.Done()，
// 取消后尽快返回。任一任务返回非取消错误时，其余任务都会收到取消信号。
//
//	err := xrun.Run(ctx, nil,
//	    maintainer.Run,
//	    xrun.Ticker(time.Minute, false, compact),
//	)
//	if errors.Is(err, xrun.ErrSignal) {
//	    // 正常退出
//	}
//
// [Run] 默认监听 [DefaultSignals]，收到信号时以 [*SignalError] 作为退出原因。
package xrun
