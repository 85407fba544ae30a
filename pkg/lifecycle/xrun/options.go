package xrun

import (
	"os"
	"syscall"

	"github.com/omeyang/xsnap/pkg/observability/xlog"
)

// Option 配置 Group。
type Option func(*options)

type options struct {
	logger          xlog.Logger
	name            string
	signals         []os.Signal
	noSignalHandler bool
}

func defaultOptions() *options {
	return &options{
		logger: xlog.Default(),
		name:   "xrun",
	}
}

// WithLogger 设置生命周期日志的记录器，nil 被忽略。
func WithLogger(logger xlog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithName 设置日志中的 group 名称，空字符串被忽略。
func WithName(name string) Option {
	return func(o *options) {
		if name != "" {
			o.name = name
		}
	}
}

// WithSignals 覆盖 Run 监听的信号列表，空列表等同于默认值。
func WithSignals(signals ...os.Signal) Option {
	copied := append([]os.Signal(nil), signals...)
	return func(o *options) {
		o.signals = copied
	}
}

// WithoutSignalHandler 禁止 Run 注册信号监听。
func WithoutSignalHandler() Option {
	return func(o *options) {
		o.noSignalHandler = true
	}
}

// DefaultSignals 返回 Run 默认监听的信号：SIGHUP、SIGINT、SIGTERM、SIGQUIT。
// 每次调用返回新切片。
func DefaultSignals() []os.Signal {
	return []os.Signal{syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT}
}
