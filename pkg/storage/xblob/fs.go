package xblob

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"
	"sync"

	"github.com/avast/retry-go/v5"
	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"

	"github.com/omeyang/xsnap/pkg/util/xfile"
)

const (
	root       = "/"
	tempPrefix = ".xblob-"
)

// FS 基于 billy.Filesystem 的网关，blob 存放在文件系统根目录下。
// 同一个 FS 上的操作由读写锁串行化，memfs 本身不支持并发访问。
type FS struct {
	mu   sync.RWMutex
	fs   billy.Filesystem
	opts *fsOptions
}

var _ Gateway = (*FS)(nil)

// NewDir 创建以 dir 为根目录的本地网关，目录不存在时自动创建。
func NewDir(dir string, opts ...FSOption) (*FS, error) {
	if err := xfile.EnsureDir(dir); err != nil {
		return nil, fmt.Errorf("xblob: prepare dir: %w", err)
	}
	return NewFS(osfs.New(dir), opts...)
}

// NewMemory 创建内存网关。
func NewMemory(opts ...FSOption) *FS {
	g, _ := NewFS(memfs.New(), opts...) //nolint:errcheck // memfs 非 nil
	return g
}

// NewFS 基于任意 billy.Filesystem 创建网关。
func NewFS(fs billy.Filesystem, opts ...FSOption) (*FS, error) {
	if fs == nil {
		return nil, ErrNilFilesystem
	}
	o := defaultFSOptions()
	for _, opt := range opts {
		opt(o)
	}
	return &FS{fs: fs, opts: o}, nil
}

// Read 实现 Gateway。
func (g *FS) Read(ctx context.Context, name string) ([]byte, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g.mu.RLock()
	data, err := util.ReadFile(g.fs, path.Join(root, name))
	g.mu.RUnlock()
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("xblob: read %s: %w", name, err)
	}
	return data, nil
}

// Write 实现 Gateway。写入先落临时文件再 rename，失败按配置重试。
func (g *FS) Write(ctx context.Context, name string, data []byte) error {
	if err := validateName(name); err != nil {
		return err
	}
	err := retry.New(
		retry.Context(ctx),
		retry.Attempts(g.opts.attempts),
		retry.Delay(g.opts.delay),
		retry.LastErrorOnly(true),
	).Do(func() error {
		return g.writeAtomic(name, data)
	})
	if err != nil {
		return fmt.Errorf("xblob: write %s: %w", name, err)
	}
	return nil
}

func (g *FS) writeAtomic(name string, data []byte) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	tmp, err := g.fs.TempFile(root, tempPrefix+name+"-")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()          //nolint:errcheck
		_ = g.fs.Remove(tmpName) //nolint:errcheck
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = g.fs.Remove(tmpName) //nolint:errcheck
		return err
	}
	if err := g.fs.Rename(tmpName, path.Join(root, name)); err != nil {
		_ = g.fs.Remove(tmpName) //nolint:errcheck
		return err
	}
	return nil
}

// Clear 实现 Gateway。
func (g *FS) Clear(ctx context.Context, names ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(names) == 0 {
		return g.clearAll()
	}

	var errs []error
	for _, name := range names {
		if err := validateName(name); err != nil {
			errs = append(errs, err)
			continue
		}
		err := g.fs.Remove(path.Join(root, name))
		if err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, fmt.Errorf("xblob: remove %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

func (g *FS) clearAll() error {
	entries, err := g.fs.ReadDir(root)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("xblob: list blobs: %w", err)
	}
	var errs []error
	for _, fi := range entries {
		if err := util.RemoveAll(g.fs, path.Join(root, fi.Name())); err != nil {
			errs = append(errs, fmt.Errorf("xblob: remove %s: %w", fi.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Names 返回当前存在的 blob 名称，不含写入中的临时文件。
func (g *FS) Names(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	g.mu.RLock()
	entries, err := g.fs.ReadDir(root)
	g.mu.RUnlock()
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("xblob: list blobs: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, fi := range entries {
		if fi.IsDir() || strings.HasPrefix(fi.Name(), tempPrefix) {
			continue
		}
		names = append(names, fi.Name())
	}
	return names, nil
}
