// Package xsnapcache 提供带 TTL 的进程内键值缓存，内容可快照到持久化网关，
// 进程重启后恢复。
//
// # 分区
//
// 值在写入时按类型分入两个分区之一：
//
//   - 结构化分区：基础类型、带导出字段的结构体、实现 json.Marshaler 或
//     encoding.TextMarshaler 的类型，以及它们的指针、切片、数组和 map。
//     值以 Codec（默认 JSON）编码后的文本保存，Get 时解码。
//   - 不透明分区：其余类型（接口、函数、通道、实现 [Opaque] 或 image.Image 的类型等），
//     按原值保存，Get 时做类型断言。
//
// Get 根据类型参数选择分区：
//
//	store.Set(ctx, "user:42", User{ID: 42, Name: "A"}, xsnapcache.WithTTLMinutes(1))
//	u, ok := xsnapcache.Get[User](ctx, store, "user:42")
//
// # 过期
//
// 未显式指定 TTL 时，图片值默认存活 1 天，其余值默认存活 365 天。
// 过期条目在被读取时淘汰（惰性），也可通过 [Store.PurgeExpired] 或
// [Maintainer] 的定时任务批量淘汰。
//
// # 持久化
//
// [Store.Flush] 将两个分区分别写入两个 blob（结构化分区为 JSON，不透明分区为 gob），
// [Store.Restore] 恢复其中未过期的记录。快照带有格式头与 xxhash64 校验和，可选 zstd 压缩。
// 写入不透明分区的具体类型需先调用 [Register]。
//
// 快照损坏时默认清除网关下的全部快照（[RecoveryEraseAll]），以空缓存继续运行；
// [RecoverySkipEntry] 只删除损坏的 blob，并跳过单条损坏记录。
//
// # 并发
//
// 所有操作在同一把互斥锁下串行执行。Flush 在锁内取快照，编码和 I/O 在锁外进行。
//
// # 错误处理
//
// Set、Get、Count、Clear、PurgeExpired 不返回错误也不会 panic：
// 失败表现为未命中并记录日志。需要错误信息时使用 [Store.SetE]。
package xsnapcache

//go:generate go run go.uber.org/mock/mockgen@v0.6.0 -destination=gateway_mock_test.go -package=xsnapcache github.com/omeyang/xsnap/pkg/storage/xblob Gateway
