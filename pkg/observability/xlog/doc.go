// Package xlog 基于 log/slog 的结构化日志封装。
//
// # 核心功能
//
//   - Builder 模式配置（输出目标、级别、格式、文件轮转）
//   - 动态级别调整（运行时热更新，派生 logger 同步生效）
//   - 全局 Logger 便利入口
//   - 所有方法强制传入 context.Context，只接受 slog.Attr
//
// # 创建 Logger
//
// Builder 采用 first-error-wins：遇到第一个配置错误后，Build 返回该错误。
//
//	logger, cleanup, err := xlog.New().
//	    SetLevelString("debug").
//	    SetFormat("json").
//	    SetRotation("/var/log/app/xsnap.log").
//	    Build()
//	if err != nil {
//	    return err
//	}
//	defer cleanup()
//
// # 全局 Logger
//
//   - [Default]: 惰性初始化（stderr、Info、text）
//   - [SetDefault]: 替换全局 Logger（nil 被忽略）
//   - [ResetDefault]: 重置为未初始化状态（仅用于测试）
//
// # 文件轮转
//
// [Builder.SetRotation] 使用 lumberjack 按大小轮转，cleanup 函数负责关闭文件。
package xlog
