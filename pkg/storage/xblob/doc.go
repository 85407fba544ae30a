// Package xblob 提供按名称读写整块二进制数据（blob）的持久化网关。
//
// 网关只关心三件事：按名称读取、按名称整体覆盖写入、清除。
// blob 名称必须是单个路径段（见 xfile.ValidateName）。
//
// # 实现
//
//   - [NewDir]：本地目录，基于 go-billy osfs。目录按需创建；写入先落临时文件再 rename，
//     读者不会看到半写的 blob；瞬时写失败按 [WithRetry] 重试。
//   - [NewMemory]：基于 go-billy memfs 的内存实现，用于测试和临时缓存。
//   - [NewRedis]：每个 blob 一个 Redis 键，键名为前缀加 blob 名称。
//
// 不存在的 blob 读取时返回 [ErrNotFound]，调用方据此区分"无数据"与存储故障。
package xblob
