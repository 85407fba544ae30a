package xconf

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ChangeFunc 在配置文件变更（防抖后）时被调用。
type ChangeFunc func(ctx context.Context)

// WatchOption 监视器配置选项
type WatchOption func(*watchOptions)

type watchOptions struct {
	debounce time.Duration
	onError  func(error)
}

func defaultWatchOptions() *watchOptions {
	return &watchOptions{
		debounce: 100 * time.Millisecond,
		onError:  func(error) {},
	}
}

// WithDebounce 设置防抖时间，d <= 0 时忽略。默认 100ms。
func WithDebounce(d time.Duration) WatchOption {
	return func(o *watchOptions) {
		if d > 0 {
			o.debounce = d
		}
	}
}

// WithErrorHandler 设置 fsnotify 错误回调。
func WithErrorHandler(fn func(error)) WatchOption {
	return func(o *watchOptions) {
		if fn != nil {
			o.onError = fn
		}
	}
}

// Watcher 配置文件监视器
type Watcher struct {
	path      string
	fsw       *fsnotify.Watcher
	onChange  ChangeFunc
	opts      *watchOptions
	closeOnce sync.Once
	closeErr  error
}

// NewWatcher 创建监视 path 的 Watcher。
// 监视的是文件所在目录，只处理目标文件的 Write/Create/Rename 事件。
func NewWatcher(path string, onChange ChangeFunc, opts ...WatchOption) (*Watcher, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}
	if onChange == nil {
		return nil, errors.New("xconf: nil change callback")
	}

	options := defaultWatchOptions()
	for _, opt := range opts {
		opt(options)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("xconf: create watcher: %w", err)
	}
	dir := filepath.Dir(path)
	if err := fsw.Add(dir); err != nil {
		return nil, errors.Join(
			fmt.Errorf("xconf: watch directory %s: %w", dir, err),
			fsw.Close(),
		)
	}

	return &Watcher{
		path:     path,
		fsw:      fsw,
		onChange: onChange,
		opts:     options,
	}, nil
}

// Run 运行监视循环，阻塞直到 ctx 取消，返回 ctx.Err()。
// 退出时关闭底层 fsnotify watcher。
func (w *Watcher) Run(ctx context.Context) error {
	defer w.Close() //nolint:errcheck

	filename := filepath.Base(w.path)
	var (
		timer  *time.Timer
		timerC <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !relevant(event, filename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.opts.debounce)
			} else {
				timer.Reset(w.opts.debounce)
			}
			timerC = timer.C

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.opts.onError(fmt.Errorf("xconf: watch error: %w", err))

		case <-timerC:
			timerC = nil
			w.onChange(ctx)
		}
	}
}

// Close 关闭底层 watcher，可重复调用。
func (w *Watcher) Close() error {
	w.closeOnce.Do(func() {
		w.closeErr = w.fsw.Close()
	})
	return w.closeErr
}

// relevant 判断事件是否可能表示目标文件已更新。
// Rename 覆盖编辑器"写临时文件再 rename"的原子保存方式。
func relevant(event fsnotify.Event, filename string) bool {
	if filepath.Base(event.Name) != filename {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename)
}
