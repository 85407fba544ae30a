package xfile

import (
	"fmt"
	"os"
	"path/filepath"
)

// DefaultDirPerm 默认目录权限（所有者 rwx，组 r-x，其他无权限）。
const DefaultDirPerm = 0750

// EnsureDir 确保目录 dir 存在，使用默认权限 0750。
//
// 目录已存在时直接返回 nil，因此可以在每次写入前调用。
func EnsureDir(dir string) error {
	return EnsureDirWithPerm(dir, DefaultDirPerm)
}

// EnsureDirWithPerm 确保目录 dir 存在，使用指定权限。
//
// perm 必须包含所有者执行位（0100），否则目录无法遍历。
// 已存在的目录不会被修改权限。
//
// 底层使用 os.MkdirAll，会跟随路径中的符号链接。
func EnsureDirWithPerm(dir string, perm os.FileMode) error {
	if dir == "" {
		return fmt.Errorf("directory is required: %w", ErrEmptyPath)
	}
	if containsNullByte(dir) {
		return fmt.Errorf("directory contains null byte: %w", ErrNullByte)
	}
	if perm&0100 == 0 {
		return fmt.Errorf("directory permission %04o missing owner execute bit: %w", perm, ErrInvalidPerm)
	}
	return os.MkdirAll(filepath.Clean(dir), perm)
}
