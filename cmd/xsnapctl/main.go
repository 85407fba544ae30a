// xsnapctl 是 xsnapcache 磁盘快照的运维命令行工具。
//
// 用法:
//
//	xsnapctl [全局选项] <命令> [命令参数]
//
// 全局选项:
//
//	-d, --dir           快照目录 (默认: 用户缓存目录下的 xsnap)
//	-c, --config        配置文件 (YAML/JSON)
//	--redis             Redis 地址，指定后从 Redis 读写快照
//	--redis-prefix      Redis 键前缀 (默认: xsnap:)
//	--log-level         日志级别 (debug/info/warn/error)
//	--log-format        日志格式 (text/json)
//
// 命令:
//
//	stat           快照概要与存活/过期记录数
//	list           列出全部记录
//	show <key>     显示一条记录，结构化记录格式化输出
//	compact        重写快照，丢弃已过期记录
//	clear          删除全部快照
//	watch          按间隔持续 compact，直到收到信号；配置文件变更时重新加载日志级别
//
// 退出码:
//
//	0: 成功
//	1: 执行失败（包括 show 未找到记录）
//	2: 参数错误
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// 版本信息，可通过 -ldflags "-X main.Version=..." 注入。
var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
)

func main() {
	os.Exit(run(context.Background(), os.Args, os.Stdout, os.Stderr))
}

// exitError 命令已完成输出，只需设置退出码。
type exitError struct {
	code int
}

func (e *exitError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

// usageError 参数错误，退出码 2。
type usageError struct {
	msg string
}

func (e *usageError) Error() string { return e.msg }

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	app := newApp(stdout, stderr)
	err := app.command().Run(ctx, args)
	if err == nil {
		return 0
	}

	var exitErr *exitError
	if errors.As(err, &exitErr) {
		return exitErr.code
	}
	var usageErr *usageError
	if errors.As(err, &usageErr) {
		fmt.Fprintf(stderr, "参数错误: %v\n", usageErr)
		return 2
	}
	if isCLIUsageError(err) {
		fmt.Fprintf(stderr, "参数错误: %v\n", err)
		return 2
	}
	fmt.Fprintf(stderr, "错误: %v\n", err)
	return 1
}

// isCLIUsageError 识别 urfave/cli 的 flag 解析错误。
func isCLIUsageError(err error) bool {
	msg := err.Error()
	for _, s := range []string{
		"flag provided but not defined",
		"invalid value",
		"flag needs an argument",
		"Required flag",
	} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}
