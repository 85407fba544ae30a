package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/omeyang/xsnap/pkg/observability/xlog"
	"github.com/omeyang/xsnap/pkg/storage/xblob"
	"github.com/omeyang/xsnap/pkg/storage/xsnapcache"
)

type profile struct {
	Name string `json:"name"`
	Age  int    `json:"age"`
}

type session struct {
	Token string
}

func (session) XSnapOpaque() {}

func init() {
	xsnapcache.Register(session{})
}

// seed 写入快照：两条存活记录和一条按真实时间已过期的记录。
func seed(t *testing.T, gw xblob.Gateway) {
	t.Helper()
	ctx := context.Background()
	clock := clockwork.NewFakeClockAt(time.Now().Add(-48 * time.Hour))
	s, err := xsnapcache.New(
		xsnapcache.WithGateway(gw),
		xsnapcache.WithClock(clock),
		xsnapcache.WithLogger(xlog.Discard()),
		xsnapcache.WithMeterProvider(noop.NewMeterProvider()),
	)
	require.NoError(t, err)

	s.Set(ctx, "user:1", profile{Name: "alice", Age: 30})
	s.Set(ctx, "tmp:1", profile{Name: "bob"}, xsnapcache.WithTTL(time.Hour))
	s.Set(ctx, "sess:1", session{Token: "t"})
	require.NoError(t, s.Flush(ctx))
}

func seedDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	gw, err := xblob.NewDir(dir)
	require.NoError(t, err)
	seed(t, gw)
	return dir
}

func runCLI(t *testing.T, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code = run(context.Background(), append([]string{"xsnapctl"}, args...), &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestStat(t *testing.T) {
	dir := seedDir(t)

	code, out, _ := runCLI(t, "--dir", dir, "stat")
	require.Equal(t, 0, code)
	assert.Contains(t, out, xsnapcache.DefaultStructuredBlob)
	assert.Contains(t, out, xsnapcache.DefaultOpaqueBlob)
	assert.Contains(t, out, "存活: 2, 已过期: 1")
}

func TestStat_Empty(t *testing.T) {
	code, out, _ := runCLI(t, "--dir", t.TempDir(), "stat")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "不存在")
	assert.Contains(t, out, "存活: 0, 已过期: 0")
}

func TestStat_Corrupt(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, xsnapcache.DefaultStructuredBlob), []byte("garbage"), 0o600))

	code, out, _ := runCLI(t, "--dir", dir, "stat")
	assert.Equal(t, 1, code)
	assert.Contains(t, out, "损坏")
}

func TestList(t *testing.T) {
	dir := seedDir(t)

	code, out, _ := runCLI(t, "--dir", dir, "list")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "PARTITION")
	assert.Contains(t, out, "user:1")
	assert.Contains(t, out, "tmp:1")
	assert.Contains(t, out, "sess:1")
	assert.Contains(t, out, "expired")
	assert.Contains(t, out, "session")
}

func TestShow(t *testing.T) {
	dir := seedDir(t)

	t.Run("结构化记录格式化输出", func(t *testing.T) {
		code, out, _ := runCLI(t, "--dir", dir, "show", "user:1")
		require.Equal(t, 0, code)
		assert.Contains(t, out, "partition: structured")
		assert.Contains(t, out, `"name": "alice"`)
	})

	t.Run("不透明记录显示类型", func(t *testing.T) {
		code, out, _ := runCLI(t, "--dir", dir, "show", "sess:1")
		require.Equal(t, 0, code)
		assert.Contains(t, out, "partition: opaque")
		assert.Contains(t, out, "session")
	})

	t.Run("未找到返回 1", func(t *testing.T) {
		code, _, errOut := runCLI(t, "--dir", dir, "show", "nope")
		assert.Equal(t, 1, code)
		assert.Contains(t, errOut, "nope")
	})

	t.Run("缺少参数返回 2", func(t *testing.T) {
		code, _, errOut := runCLI(t, "--dir", dir, "show")
		assert.Equal(t, 2, code)
		assert.Contains(t, errOut, "参数错误")
	})
}

func TestCompact(t *testing.T) {
	dir := seedDir(t)

	code, out, _ := runCLI(t, "--dir", dir, "compact")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "保留 2 条，丢弃 1 条")

	code, out, _ = runCLI(t, "--dir", dir, "stat")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "存活: 2, 已过期: 0")
}

func TestClear(t *testing.T) {
	dir := seedDir(t)

	code, _, _ := runCLI(t, "--dir", dir, "clear")
	require.Equal(t, 0, code)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestUsageErrors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"未知 flag", []string{"--bogus", "stat"}},
		{"配置文件不存在", []string{"--config", "/nonexistent/xsnap.yaml", "stat"}},
		{"非法日志级别", []string{"--log-level", "loud", "stat"}},
		{"非法日志格式", []string{"--log-format", "xml", "stat"}},
		{"非法 interval", []string{"watch", "--interval", "0s"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			args := append([]string{"--dir", t.TempDir()}, tt.args...)
			code, _, errOut := runCLI(t, args...)
			assert.Equal(t, 2, code)
			assert.Contains(t, errOut, "参数错误")
		})
	}
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	gw, err := xblob.NewDir(dir)
	require.NoError(t, err)

	ctx := context.Background()
	s, err := xsnapcache.New(
		xsnapcache.WithGateway(gw),
		xsnapcache.WithBlobNames("a.dat", "b.dat"),
		xsnapcache.WithCompression(true),
		xsnapcache.WithLogger(xlog.Discard()),
		xsnapcache.WithMeterProvider(noop.NewMeterProvider()),
	)
	require.NoError(t, err)
	s.Set(ctx, "k", profile{Name: "c"})
	require.NoError(t, s.Flush(ctx))

	cfgPath := filepath.Join(t.TempDir(), "xsnap.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(
		"dir: "+dir+"\nstructured_blob: a.dat\nopaque_blob: b.dat\ncompress: true\n"), 0o600))

	code, out, _ := runCLI(t, "--config", cfgPath, "stat")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "a.dat")
	assert.Contains(t, out, "压缩=true")
	assert.Contains(t, out, "存活: 1, 已过期: 0")
}

func TestRedisGateway(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	gw, err := xblob.NewRedis(client, xblob.WithKeyPrefix("app:"))
	require.NoError(t, err)
	seed(t, gw)

	code, out, _ := runCLI(t, "--redis", mr.Addr(), "--redis-prefix", "app:", "stat")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "存活: 2, 已过期: 1")

	code, _, _ = runCLI(t, "--redis", mr.Addr(), "--redis-prefix", "app:", "clear")
	require.Equal(t, 0, code)
	assert.False(t, mr.Exists("app:"+xsnapcache.DefaultStructuredBlob))
}

func TestWatch(t *testing.T) {
	dir := seedDir(t)
	cfgPath := filepath.Join(t.TempDir(), "xsnap.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("dir: "+dir+"\n"), 0o600))

	ctx, cancel := context.WithCancel(context.Background())
	var out, errOut bytes.Buffer
	done := make(chan int, 1)
	go func() {
		done <- run(ctx, []string{"xsnapctl", "--config", cfgPath, "watch", "--interval", "20ms"}, &out, &errOut)
	}()

	// 首次 compact 立即执行
	gw, err := xblob.NewDir(dir)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		report, err := xsnapcache.Inspect(context.Background(), gw)
		if err != nil {
			return false
		}
		_, expired := report.Count(time.Now())
		return expired == 0 && len(report.Records) == 2
	}, 2*time.Second, 10*time.Millisecond)

	// 修改配置只触发日志级别重载
	require.NoError(t, os.WriteFile(cfgPath, []byte("dir: "+dir+"\nlog:\n  level: debug\n"), 0o600))

	cancel()
	select {
	case code := <-done:
		assert.Equal(t, 0, code, errOut.String())
	case <-time.After(3 * time.Second):
		t.Fatal("watch did not stop")
	}
}
