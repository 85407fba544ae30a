// Package storage 提供数据存储相关的子包。
//
// 子包列表：
//   - xblob: 命名 blob 的持久化网关，支持本地目录、内存和 Redis
//   - xsnapcache: 带 TTL 的进程内缓存，通过 xblob 快照持久化
//
// 设计原则：
//   - 提供统一的接口抽象，支持多种存储后端
//   - 内置可观测性（日志、指标）
package storage
