package xblob

import "errors"

var (
	// ErrNotFound 表示 blob 不存在。
	ErrNotFound = errors.New("xblob: blob not found")

	// ErrInvalidName 表示 blob 名称非法。
	ErrInvalidName = errors.New("xblob: invalid blob name")

	// ErrNilClient 表示 Redis 客户端为 nil。
	ErrNilClient = errors.New("xblob: nil redis client")

	// ErrNilFilesystem 表示文件系统为 nil。
	ErrNilFilesystem = errors.New("xblob: nil filesystem")
)
