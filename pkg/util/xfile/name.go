package xfile

import (
	"fmt"
	"path/filepath"
	"strings"
)

// containsNullByte 检测路径是否包含空字节。
func containsNullByte(path string) bool {
	return strings.ContainsRune(path, 0)
}

// ValidateName 校验 name 是否为单个合法路径段。
//
// 拒绝空名称、空字节、任何路径分隔符（同时检查 '/' 和 '\'，
// 避免 Windows 风格名称在 Linux 上混入），以及 "." 和 ".."。
func ValidateName(name string) error {
	if name == "" {
		return fmt.Errorf("name is required: %w", ErrEmptyPath)
	}
	if containsNullByte(name) {
		return fmt.Errorf("name contains null byte: %w", ErrNullByte)
	}
	if strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("name %q contains a path separator: %w", name, ErrInvalidName)
	}
	if name == "." || name == ".." {
		return fmt.Errorf("name %q is reserved: %w", name, ErrInvalidName)
	}
	return nil
}

// JoinName 将校验通过的 name 拼接到绝对路径 base 下。
func JoinName(base, name string) (string, error) {
	if base == "" {
		return "", fmt.Errorf("base directory is required: %w", ErrEmptyPath)
	}
	if containsNullByte(base) {
		return "", fmt.Errorf("base contains null byte: %w", ErrNullByte)
	}
	cleanBase := filepath.Clean(base)
	if !filepath.IsAbs(cleanBase) {
		return "", fmt.Errorf("base must be an absolute path: %w", ErrInvalidPath)
	}
	if err := ValidateName(name); err != nil {
		return "", err
	}
	return filepath.Join(cleanBase, name), nil
}
