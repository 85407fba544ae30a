package xsnapcache

import "errors"

// =============================================================================
// 写入相关错误
// =============================================================================

var (
	// ErrEmptyKey 表示 key 为空字符串。
	ErrEmptyKey = errors.New("xsnapcache: empty key")

	// ErrNilValue 表示写入的值为 nil。
	ErrNilValue = errors.New("xsnapcache: nil value")

	// ErrEncode 表示值无法编码为文本，写入被放弃。
	ErrEncode = errors.New("xsnapcache: encode value failed")
)

// =============================================================================
// 快照相关错误
// =============================================================================

var (
	// ErrCorruptSnapshot 表示快照 blob 无法解码（格式、校验和或文档损坏）。
	ErrCorruptSnapshot = errors.New("xsnapcache: corrupt snapshot")

	// ErrUnsupportedVersion 表示快照文档版本缺失或不受支持。
	ErrUnsupportedVersion = errors.New("xsnapcache: unsupported snapshot version")

	// ErrNilGateway 表示未提供持久化网关。
	ErrNilGateway = errors.New("xsnapcache: nil gateway")
)

// =============================================================================
// 配置相关错误
// =============================================================================

var (
	// ErrNilStore 表示传入的 Store 为 nil。
	ErrNilStore = errors.New("xsnapcache: nil store")

	// ErrInvalidConfig 表示配置参数无效。
	ErrInvalidConfig = errors.New("xsnapcache: invalid configuration")
)
