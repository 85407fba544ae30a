package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v3"

	"github.com/omeyang/xsnap/pkg/observability/xlog"
	"github.com/omeyang/xsnap/pkg/storage/xblob"
	"github.com/omeyang/xsnap/pkg/storage/xsnapcache"
)

// app 保存一次命令执行所需的环境，由 Before 初始化、After 释放。
type app struct {
	stdout io.Writer
	stderr io.Writer

	cfg     xsnapcache.Config
	logger  xlog.LoggerWithLevel
	gateway xblob.Gateway
	closers []func() error
}

func newApp(stdout, stderr io.Writer) *app {
	return &app{stdout: stdout, stderr: stderr}
}

func (a *app) command() *cli.Command {
	return &cli.Command{
		Name:      "xsnapctl",
		Usage:     "xsnapcache 快照运维工具",
		Version:   fmt.Sprintf("%s (commit: %s)", Version, GitCommit),
		Writer:    a.stdout,
		ErrWriter: a.stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "dir",
				Aliases: []string{"d"},
				Usage:   "快照目录",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "配置文件 (YAML/JSON)",
			},
			&cli.StringFlag{
				Name:  "redis",
				Usage: "Redis 地址，例如 127.0.0.1:6379",
			},
			&cli.StringFlag{
				Name:  "redis-prefix",
				Usage: "Redis 键前缀",
				Value: "xsnap:",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "日志级别 (debug/info/warn/error)",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "日志格式 (text/json)",
			},
		},
		Before:   a.before,
		After:    a.after,
		Commands: a.commands(),
		ExitErrHandler: func(context.Context, *cli.Command, error) {
			// 退出码由 run 统一映射
		},
	}
}

func (a *app) before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	cfg := xsnapcache.DefaultConfig()
	if path := cmd.String("config"); path != "" {
		loaded, err := xsnapcache.LoadConfig(path)
		if err != nil {
			return ctx, &usageError{msg: err.Error()}
		}
		cfg = loaded
	}
	if dir := cmd.String("dir"); dir != "" {
		cfg.Dir = dir
	}
	if level := cmd.String("log-level"); level != "" {
		cfg.Log.Level = level
	}
	if format := cmd.String("log-format"); format != "" {
		cfg.Log.Format = format
	}
	a.cfg = cfg

	logger, err := a.buildLogger(cfg.Log)
	if err != nil {
		return ctx, &usageError{msg: err.Error()}
	}
	a.logger = logger

	gw, err := a.buildGateway(cmd)
	if err != nil {
		return ctx, err
	}
	a.gateway = gw
	return ctx, nil
}

func (a *app) after(context.Context, *cli.Command) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *app) buildLogger(cfg xsnapcache.LogConfig) (xlog.LoggerWithLevel, error) {
	b := xlog.New().
		SetOutput(a.stderr).
		SetLevelString(cfg.Level).
		SetFormat(cfg.Format)
	if cfg.File != "" {
		b.SetRotation(cfg.File)
	}
	logger, cleanup, err := b.Build()
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, cleanup)
	return logger, nil
}

func (a *app) buildGateway(cmd *cli.Command) (xblob.Gateway, error) {
	if addr := cmd.String("redis"); addr != "" {
		client := redis.NewClient(&redis.Options{Addr: addr})
		a.closers = append(a.closers, client.Close)
		return xblob.NewRedis(client, xblob.WithKeyPrefix(cmd.String("redis-prefix")))
	}
	return a.cfg.Gateway()
}

// snapshotOptions 返回 Inspect/Compact 使用的选项。
func (a *app) snapshotOptions() []xsnapcache.Option {
	return append(a.cfg.Options(), xsnapcache.WithLogger(a.logger))
}
