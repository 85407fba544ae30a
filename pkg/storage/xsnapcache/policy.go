package xsnapcache

import (
	"image"
	"time"
)

const (
	// DefaultTTL 非图片值的默认存活时间：525600 分钟（365 天）。
	DefaultTTL = 525600 * time.Minute

	// DefaultImageTTL 图片值的默认存活时间：1440 分钟（1 天）。
	DefaultImageTTL = 1440 * time.Minute
)

// Policy 过期策略。
type Policy struct {
	// DefaultTTL 未显式指定 TTL 时非图片值的存活时间。
	DefaultTTL time.Duration
	// ImageTTL 未显式指定 TTL 时图片值的存活时间。
	ImageTTL time.Duration
	// IsImage 额外的图片判定，image.Image 实现总是被视为图片。
	IsImage func(value any) bool
}

// DefaultPolicy 返回默认过期策略。
func DefaultPolicy() Policy {
	return Policy{DefaultTTL: DefaultTTL, ImageTTL: DefaultImageTTL}
}

// TTL 返回 value 的存活时间。explicit 非 nil 时原样返回（包括零和负数）。
func (p Policy) TTL(value any, explicit *time.Duration) time.Duration {
	if explicit != nil {
		return *explicit
	}
	if p.imageLike(value) {
		return p.ImageTTL
	}
	return p.DefaultTTL
}

// ExpiresAt 返回 value 在 now 写入时的过期时刻。
func (p Policy) ExpiresAt(value any, now time.Time, explicit *time.Duration) time.Time {
	return now.Add(p.TTL(value, explicit))
}

func (p Policy) imageLike(value any) bool {
	if _, ok := value.(image.Image); ok {
		return true
	}
	return p.IsImage != nil && p.IsImage(value)
}

// Live 当且仅当 now 早于 expiresAt 时返回 true。
func Live(expiresAt, now time.Time) bool {
	return now.Before(expiresAt)
}
