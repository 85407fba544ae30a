package xsnapcache

import (
	"time"

	"github.com/jonboulle/clockwork"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/omeyang/xsnap/pkg/observability/xlog"
	"github.com/omeyang/xsnap/pkg/storage/xblob"
)

const (
	// DefaultStructuredBlob 结构化分区快照的 blob 名称。
	DefaultStructuredBlob = "structuredcache.dat"

	// DefaultOpaqueBlob 不透明分区快照的 blob 名称。
	DefaultOpaqueBlob = "opaquecache.dat"
)

// RecoveryMode 快照损坏时的恢复方式。
type RecoveryMode string

const (
	// RecoveryEraseAll 任一 blob 解码失败时清空网关下的全部 blob（默认）。
	RecoveryEraseAll RecoveryMode = "erase_all"

	// RecoverySkipEntry 只删除损坏的 blob；单条记录解码失败时跳过该记录。
	RecoverySkipEntry RecoveryMode = "skip_entry"
)

// Valid 报告 m 是否为已知的恢复方式。
func (m RecoveryMode) Valid() bool {
	return m == RecoveryEraseAll || m == RecoverySkipEntry
}

// Option 配置 Store。
type Option func(*options)

type options struct {
	gateway        xblob.Gateway
	logger         xlog.Logger
	clock          clockwork.Clock
	policy         Policy
	codec          Codec
	structuredBlob string
	opaqueBlob     string
	compress       bool
	recovery       RecoveryMode
	meterProvider  metric.MeterProvider
}

func defaultOptions() *options {
	return &options{
		logger:         xlog.Default(),
		clock:          clockwork.NewRealClock(),
		policy:         DefaultPolicy(),
		codec:          JSONCodec{},
		structuredBlob: DefaultStructuredBlob,
		opaqueBlob:     DefaultOpaqueBlob,
		recovery:       RecoveryEraseAll,
		meterProvider:  otel.GetMeterProvider(),
	}
}

func applyOptions(opts []Option) *options {
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}
	return o
}

// WithGateway 设置持久化网关。未设置时使用 xblob.DefaultDir() 下的本地目录。
func WithGateway(gw xblob.Gateway) Option {
	return func(o *options) {
		if gw != nil {
			o.gateway = gw
		}
	}
}

// WithLogger 设置日志记录器，nil 被忽略。
func WithLogger(logger xlog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithClock 设置时钟，测试中可传入 clockwork.NewFakeClock()。
func WithClock(clock clockwork.Clock) Option {
	return func(o *options) {
		if clock != nil {
			o.clock = clock
		}
	}
}

// WithDefaultTTL 设置非图片值的默认存活时间，d <= 0 时忽略。
func WithDefaultTTL(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.policy.DefaultTTL = d
		}
	}
}

// WithImageTTL 设置图片值的默认存活时间，d <= 0 时忽略。
func WithImageTTL(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.policy.ImageTTL = d
		}
	}
}

// WithImageMatcher 追加图片判定函数，用于识别未实现 image.Image 的图片类型（如编码后的 PNG 字节）。
func WithImageMatcher(fn func(value any) bool) Option {
	return func(o *options) {
		o.policy.IsImage = fn
	}
}

// WithCodec 替换结构化值编解码器，nil 被忽略。
func WithCodec(codec Codec) Option {
	return func(o *options) {
		if codec != nil {
			o.codec = codec
		}
	}
}

// WithBlobNames 设置两个分区快照的 blob 名称，空字符串保持默认值。
func WithBlobNames(structured, opaque string) Option {
	return func(o *options) {
		if structured != "" {
			o.structuredBlob = structured
		}
		if opaque != "" {
			o.opaqueBlob = opaque
		}
	}
}

// WithCompression 启用快照 zstd 压缩。读取时根据快照头自动识别，与该选项无关。
func WithCompression(enable bool) Option {
	return func(o *options) {
		o.compress = enable
	}
}

// WithRecoveryMode 设置快照损坏时的恢复方式，未知值被忽略。
func WithRecoveryMode(mode RecoveryMode) Option {
	return func(o *options) {
		if mode.Valid() {
			o.recovery = mode
		}
	}
}

// WithMeterProvider 设置指标 MeterProvider，默认 otel.GetMeterProvider()。
func WithMeterProvider(mp metric.MeterProvider) Option {
	return func(o *options) {
		if mp != nil {
			o.meterProvider = mp
		}
	}
}

// ============================================================================
// 写入选项
// ============================================================================

// SetOption 配置单次写入。
type SetOption func(*setOptions)

type setOptions struct {
	ttl *time.Duration
}

// WithTTL 显式指定存活时间，原样生效（零或负数产生立即过期的条目）。
func WithTTL(d time.Duration) SetOption {
	return func(o *setOptions) {
		o.ttl = &d
	}
}

// WithTTLMinutes 以分钟为单位显式指定存活时间。
func WithTTLMinutes(minutes int) SetOption {
	return WithTTL(time.Duration(minutes) * time.Minute)
}
