// Package xfile 提供缓存目录与 blob 文件名相关的文件系统工具。
//
// 本包只覆盖持久化网关需要的最小能力：
//
//   - [EnsureDir]/[EnsureDirWithPerm]：幂等地创建缓存目录
//   - [ValidateName]：校验 blob 文件名必须是单个路径段
//   - [JoinName]：在校验通过后将文件名拼接到基准目录
//
// # 文件名约束
//
// blob 名称不允许包含路径分隔符（'/' 或 '\'）、空字节，也不允许是 "." 或 ".."。
// 以点开头的合法文件名（如 ".cache"、"..snap"）不受影响：
//
//	ValidateName("opaquecache.dat") // ✓
//	ValidateName("../etc/passwd")   // ✗ ErrInvalidName
//
// # 错误处理
//
// 预定义错误变量支持 [errors.Is] 判断：
//
//	if err := xfile.ValidateName(name); errors.Is(err, xfile.ErrInvalidName) {
//	    // 拒绝该名称
//	}
package xfile
