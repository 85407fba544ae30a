package xsnapcache

import "time"

// Partition 缓存分区。
type Partition int

const (
	// PartitionStructured 结构化分区：值以编码后的文本保存。
	PartitionStructured Partition = iota
	// PartitionOpaque 不透明分区：值按原样（引用）保存。
	PartitionOpaque
)

// String 返回分区名称。
func (p Partition) String() string {
	switch p {
	case PartitionStructured:
		return "structured"
	case PartitionOpaque:
		return "opaque"
	default:
		return "unknown"
	}
}

// Payload 条目负载，只能是 StructuredPayload 或 OpaquePayload。
type Payload interface {
	partition() Partition
}

// StructuredPayload 结构化负载，Text 为 ValueCodec 编码结果。
type StructuredPayload struct {
	Text string
}

func (StructuredPayload) partition() Partition { return PartitionStructured }

// OpaquePayload 不透明负载，Value 为写入时的原始值。
type OpaquePayload struct {
	Value any
}

func (OpaquePayload) partition() Partition { return PartitionOpaque }

// Entry 缓存条目。
type Entry struct {
	Key       string
	ExpiresAt time.Time
	Payload   Payload
}

// Live 报告条目在 now 时刻是否存活。
func (e Entry) Live(now time.Time) bool {
	return Live(e.ExpiresAt, now)
}
