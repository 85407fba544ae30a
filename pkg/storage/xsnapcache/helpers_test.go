package xsnapcache

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/omeyang/xsnap/pkg/observability/xlog"
	"github.com/omeyang/xsnap/pkg/storage/xblob"
)

var testEpoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

// MockGateway 由 mockgen 生成（见 doc.go 的 go:generate），接口变化时编译失败提示重新生成。
var _ xblob.Gateway = (*MockGateway)(nil)

type user struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type order struct {
	OrderID string `json:"order_id"`
}

// handle 可被 gob 编码的不透明类型。
type handle struct {
	Conn string
	Port int
}

func (handle) XSnapOpaque() {}

func init() {
	Register(handle{})
}

// newStoreOn 在给定网关和时钟上创建 Store，用于模拟进程重启。
func newStoreOn(t *testing.T, gw xblob.Gateway, clock clockwork.Clock, opts ...Option) *Store {
	t.Helper()
	base := []Option{
		WithGateway(gw),
		WithClock(clock),
		WithLogger(xlog.Discard()),
		WithMeterProvider(noop.NewMeterProvider()),
	}
	s, err := New(append(base, opts...)...)
	require.NoError(t, err)
	return s
}

func newTestStore(t *testing.T, opts ...Option) (*Store, *clockwork.FakeClock, *xblob.FS) {
	t.Helper()
	clock := clockwork.NewFakeClockAt(testEpoch)
	gw := xblob.NewMemory()
	return newStoreOn(t, gw, clock, opts...), clock, gw
}
