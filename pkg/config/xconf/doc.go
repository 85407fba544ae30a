// Package xconf 提供基于 koanf 的配置加载与文件监视。
//
// # 加载
//
// [Load] 根据扩展名（.yaml/.yml/.json）选择解析器，将配置反序列化到目标结构体。
// 目标结构体中已有的字段值即为默认值：配置文件中缺失的键不会覆盖它们。
//
//	cfg := xsnapcache.DefaultConfig()
//	if err := xconf.Load("/etc/xsnap/config.yaml", &cfg); err != nil {
//	    return err
//	}
//
// 结构体标签默认为 "koanf"，时长字段支持 "24h"、"90s" 形式的字符串。
//
// # 监视
//
// [Watcher] 监视配置文件所在目录（编辑器保存时可能先删除再创建文件），
// 在防抖窗口结束后调用回调。[Watcher.Run] 阻塞直到 ctx 取消，
// 签名与 xrun 的服务函数一致，可直接交给 xrun.Group 管理。
package xconf
