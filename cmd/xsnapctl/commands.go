package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/omeyang/xsnap/pkg/config/xconf"
	"github.com/omeyang/xsnap/pkg/lifecycle/xrun"
	"github.com/omeyang/xsnap/pkg/observability/xlog"
	"github.com/omeyang/xsnap/pkg/storage/xsnapcache"
)

const timeLayout = time.RFC3339

func (a *app) commands() []*cli.Command {
	return []*cli.Command{
		{
			Name:   "stat",
			Usage:  "快照概要与存活/过期记录数",
			Action: func(ctx context.Context, _ *cli.Command) error { return a.cmdStat(ctx) },
		},
		{
			Name:   "list",
			Usage:  "列出全部记录",
			Action: func(ctx context.Context, _ *cli.Command) error { return a.cmdList(ctx) },
		},
		{
			Name:      "show",
			Usage:     "显示一条记录",
			ArgsUsage: "<key>",
			Action: func(ctx context.Context, cmd *cli.Command) error {
				if cmd.Args().Len() != 1 {
					return &usageError{msg: "show 需要且只需要一个 key"}
				}
				return a.cmdShow(ctx, cmd.Args().First())
			},
		},
		{
			Name:   "compact",
			Usage:  "重写快照，丢弃已过期记录",
			Action: func(ctx context.Context, _ *cli.Command) error { return a.cmdCompact(ctx) },
		},
		{
			Name:   "clear",
			Usage:  "删除全部快照",
			Action: func(ctx context.Context, _ *cli.Command) error { return a.cmdClear(ctx) },
		},
		{
			Name:  "watch",
			Usage: "按间隔持续 compact，直到收到信号",
			Flags: []cli.Flag{
				&cli.DurationFlag{
					Name:    "interval",
					Aliases: []string{"i"},
					Usage:   "compact 间隔",
					Value:   time.Minute,
				},
			},
			Action: func(ctx context.Context, cmd *cli.Command) error {
				interval := cmd.Duration("interval")
				if interval <= 0 {
					return &usageError{msg: "interval 必须为正数"}
				}
				return a.cmdWatch(ctx, interval, cmd.Root().String("config"))
			},
		},
	}
}

func (a *app) cmdStat(ctx context.Context) error {
	report, err := xsnapcache.Inspect(ctx, a.gateway, a.snapshotOptions()...)
	if err != nil {
		return err
	}
	now := time.Now()

	failed := false
	for _, b := range report.Blobs {
		switch {
		case !b.Present:
			fmt.Fprintf(a.stdout, "%s (%s): 不存在\n", b.Name, b.Partition)
		case b.Err != nil:
			failed = true
			fmt.Fprintf(a.stdout, "%s (%s): 损坏: %v\n", b.Name, b.Partition, b.Err)
		default:
			fmt.Fprintf(a.stdout, "%s (%s): %d 字节, 压缩=%t, 快照=%s, 写入于 %s, %d 条记录\n",
				b.Name, b.Partition, b.Size, b.Compressed, b.SnapshotID,
				b.WrittenAt.Format(timeLayout), b.Records)
		}
	}
	live, expired := report.Count(now)
	fmt.Fprintf(a.stdout, "存活: %d, 已过期: %d\n", live, expired)

	if failed {
		return &exitError{code: 1}
	}
	return nil
}

func (a *app) cmdList(ctx context.Context) error {
	report, err := xsnapcache.Inspect(ctx, a.gateway, a.snapshotOptions()...)
	if err != nil {
		return err
	}
	now := time.Now()

	w := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PARTITION\tKEY\tEXPIRES\tSTATE\tSIZE\tTYPE")
	for _, r := range report.Records {
		state := "live"
		if !r.Live(now) {
			state = "expired"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n",
			r.Partition, r.Key, r.ExpiresAt.Format(timeLayout), state, r.Size, r.TypeName)
	}
	return w.Flush()
}

func (a *app) cmdShow(ctx context.Context, key string) error {
	report, err := xsnapcache.Inspect(ctx, a.gateway, a.snapshotOptions()...)
	if err != nil {
		return err
	}

	if r, ok := report.Find(xsnapcache.PartitionStructured, key); ok {
		fmt.Fprintf(a.stdout, "key: %s\npartition: %s\nexpires: %s\n", r.Key, r.Partition, r.ExpiresAt.Format(timeLayout))
		var pretty bytes.Buffer
		if err := json.Indent(&pretty, []byte(r.Text), "", "  "); err != nil {
			fmt.Fprintln(a.stdout, r.Text)
			return nil
		}
		fmt.Fprintln(a.stdout, pretty.String())
		return nil
	}
	if r, ok := report.Find(xsnapcache.PartitionOpaque, key); ok {
		fmt.Fprintf(a.stdout, "key: %s\npartition: %s\nexpires: %s\ntype: %s\nsize: %d\n",
			r.Key, r.Partition, r.ExpiresAt.Format(timeLayout), r.TypeName, r.Size)
		return nil
	}

	fmt.Fprintf(a.stderr, "未找到 key %q\n", key)
	return &exitError{code: 1}
}

func (a *app) cmdCompact(ctx context.Context) error {
	res, err := xsnapcache.Compact(ctx, a.gateway, time.Now(), a.snapshotOptions()...)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "保留 %d 条，丢弃 %d 条\n", res.Kept, res.Dropped)
	return nil
}

func (a *app) cmdClear(ctx context.Context) error {
	if err := a.gateway.Clear(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, "已删除全部快照")
	return nil
}

// cmdWatch 周期性 compact；configPath 非空时监视配置文件并热更新日志级别。
func (a *app) cmdWatch(ctx context.Context, interval time.Duration, configPath string) error {
	tasks := []func(context.Context) error{
		xrun.Ticker(interval, true, func(ctx context.Context) error {
			res, err := xsnapcache.Compact(ctx, a.gateway, time.Now(), a.snapshotOptions()...)
			if err != nil {
				// 单次失败不终止 watch
				a.logger.Warn(ctx, "compact failed", xlog.Err(err))
				return nil
			}
			a.logger.Info(ctx, "compacted",
				slog.Int("kept", res.Kept),
				slog.Int("dropped", res.Dropped),
			)
			return nil
		}),
	}

	if configPath != "" {
		w, err := xconf.NewWatcher(configPath, a.reloadLogLevel(configPath),
			xconf.WithErrorHandler(func(err error) {
				a.logger.Warn(context.Background(), "config watch error", xlog.Err(err))
			}),
		)
		if err != nil {
			return err
		}
		tasks = append(tasks, w.Run)
	}

	err := xrun.Run(ctx, []xrun.Option{xrun.WithLogger(a.logger), xrun.WithName("xsnapctl")}, tasks...)
	if errors.Is(err, xrun.ErrSignal) {
		return nil
	}
	return err
}

func (a *app) reloadLogLevel(path string) xconf.ChangeFunc {
	return func(ctx context.Context) {
		cfg, err := xsnapcache.LoadConfig(path)
		if err != nil {
			a.logger.Warn(ctx, "reload config failed", xlog.Err(err))
			return
		}
		level, err := xlog.ParseLevel(cfg.Log.Level)
		if err != nil {
			a.logger.Warn(ctx, "invalid log level", xlog.Err(err))
			return
		}
		a.logger.SetLevel(level)
		a.logger.Info(ctx, "log level reloaded", slog.String("level", level.String()))
	}
}
