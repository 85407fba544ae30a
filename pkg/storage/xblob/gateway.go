package xblob

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/omeyang/xsnap/pkg/util/xfile"
)

// Gateway 持久化网关接口。
//
// 实现必须可并发使用。
type Gateway interface {
	// Read 读取 blob 的完整内容，不存在时返回 ErrNotFound。
	Read(ctx context.Context, name string) ([]byte, error)

	// Write 以 data 整体替换 blob。
	Write(ctx context.Context, name string, data []byte) error

	// Clear 删除指定的 blob；不传名称时删除网关下的全部 blob。
	// 删除不存在的 blob 不是错误。
	Clear(ctx context.Context, names ...string) error
}

// DefaultDir 返回默认的快照目录：用户缓存目录下的 xsnap。
func DefaultDir() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("xblob: resolve user cache dir: %w", err)
	}
	return filepath.Join(base, "xsnap"), nil
}

func validateName(name string) error {
	if err := xfile.ValidateName(name); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidName, err)
	}
	return nil
}
