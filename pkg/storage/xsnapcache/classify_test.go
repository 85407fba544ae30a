package xsnapcache

import (
	"context"
	"encoding/json"
	"image"
	"io"
	"reflect"
	"strings"
	"testing"
	"time"
	"unsafe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type unexportedOnly struct {
	secret string //nolint:unused
}

type rawJSON struct{ raw string }

func (r rawJSON) MarshalJSON() ([]byte, error) { return json.Marshal(r.raw) }

type withReader struct {
	Name string
	R    io.Reader
}

type withFunc struct {
	Name string
	Fn   func() int
}

type withIgnoredFunc struct {
	Name string     `json:"name"`
	Fn   func() int `json:"-"`
}

type withPrivateChan struct {
	Name string
	ch   chan int //nolint:unused
}

type base struct {
	ID int `json:"id"`
}

type withEmbedded struct {
	base
	Name string `json:"name"`
}

type withEmbeddedReader struct {
	io.Reader
	Name string
}

type withChan struct {
	Name string
	Lock chan struct{}
}

type tree []tree

type nested map[string]nested

type node struct {
	Value int   `json:"value"`
	Next  *node `json:"next,omitempty"`
}

type funcNode struct {
	Next *funcNode
	Fn   func()
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		typ  reflect.Type
		want Partition
	}{
		{"int", reflect.TypeFor[int](), PartitionStructured},
		{"string", reflect.TypeFor[string](), PartitionStructured},
		{"bool", reflect.TypeFor[bool](), PartitionStructured},
		{"float64", reflect.TypeFor[float64](), PartitionStructured},
		{"字节切片", reflect.TypeFor[[]byte](), PartitionStructured},
		{"导出字段结构体", reflect.TypeFor[user](), PartitionStructured},
		{"结构体指针", reflect.TypeFor[*user](), PartitionStructured},
		{"结构体切片", reflect.TypeFor[[]user](), PartitionStructured},
		{"数组", reflect.TypeFor[[3]int](), PartitionStructured},
		{"map", reflect.TypeFor[map[string]user](), PartitionStructured},
		{"time.Time", reflect.TypeFor[time.Time](), PartitionStructured},
		{"json.Marshaler且无导出字段", reflect.TypeFor[rawJSON](), PartitionStructured},
		{"无导出字段结构体", reflect.TypeFor[unexportedOnly](), PartitionOpaque},
		{"Opaque标记", reflect.TypeFor[handle](), PartitionOpaque},
		{"Opaque标记指针", reflect.TypeFor[*handle](), PartitionOpaque},
		{"image.Image实现", reflect.TypeFor[*image.RGBA](), PartitionOpaque},
		{"any", reflect.TypeFor[any](), PartitionOpaque},
		{"接口", reflect.TypeFor[io.Reader](), PartitionOpaque},
		{"函数", reflect.TypeFor[func()](), PartitionOpaque},
		{"通道", reflect.TypeFor[chan int](), PartitionOpaque},
		{"unsafe.Pointer", reflect.TypeFor[unsafe.Pointer](), PartitionOpaque},
		{"complex128", reflect.TypeFor[complex128](), PartitionOpaque},
		{"函数切片", reflect.TypeFor[[]func()](), PartitionOpaque},
		{"值为接口的map", reflect.TypeFor[map[string]any](), PartitionOpaque},
		{"不透明元素指针", reflect.TypeFor[*unexportedOnly](), PartitionOpaque},
		{"导出接口字段", reflect.TypeFor[withReader](), PartitionOpaque},
		{"导出函数字段", reflect.TypeFor[withFunc](), PartitionOpaque},
		{"导出通道字段", reflect.TypeFor[withChan](), PartitionOpaque},
		{"json忽略的函数字段", reflect.TypeFor[withIgnoredFunc](), PartitionStructured},
		{"未导出通道字段", reflect.TypeFor[withPrivateChan](), PartitionStructured},
		{"内嵌结构体展开", reflect.TypeFor[withEmbedded](), PartitionStructured},
		{"内嵌接口", reflect.TypeFor[withEmbeddedReader](), PartitionOpaque},
		{"自引用切片", reflect.TypeFor[tree](), PartitionStructured},
		{"自引用map", reflect.TypeFor[nested](), PartitionStructured},
		{"自引用结构体", reflect.TypeFor[node](), PartitionStructured},
		{"自引用结构体指针", reflect.TypeFor[*node](), PartitionStructured},
		{"自引用且含函数字段", reflect.TypeFor[funcNode](), PartitionOpaque},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classify(tt.typ))
			// 第二次命中缓存
			assert.Equal(t, tt.want, classify(tt.typ))
		})
	}

	assert.Equal(t, PartitionOpaque, classify(nil))
	assert.Equal(t, PartitionStructured, PartitionOf[user]())
}

func TestClassify_FieldTypesRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestStore(t)

	t.Run("接口字段按引用保存", func(t *testing.T) {
		r := strings.NewReader("x")
		s.Set(ctx, "reader", withReader{Name: "a", R: r})

		got, ok := Get[withReader](ctx, s, "reader")
		require.True(t, ok)
		assert.Equal(t, "a", got.Name)
		assert.Same(t, r, got.R)
	})

	t.Run("函数字段按引用保存", func(t *testing.T) {
		require.NoError(t, s.SetE(ctx, "func", withFunc{Name: "f", Fn: func() int { return 42 }}))

		got, ok := Get[withFunc](ctx, s, "func")
		require.True(t, ok)
		assert.Equal(t, 42, got.Fn())

		got, ok = Get[withFunc](ctx, s, "func")
		require.True(t, ok, "读取后条目仍然存在")
		assert.Equal(t, "f", got.Name)
	})

	t.Run("json忽略的字段不影响结构化编码", func(t *testing.T) {
		require.NoError(t, s.SetE(ctx, "ignored", withIgnoredFunc{Name: "n", Fn: func() int { return 1 }}))

		got, ok := Get[withIgnoredFunc](ctx, s, "ignored")
		require.True(t, ok)
		assert.Equal(t, "n", got.Name)
		assert.Nil(t, got.Fn)
	})
}

func TestClassify_RecursiveTypes(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newTestStore(t)

	t.Run("自引用切片", func(t *testing.T) {
		v := tree{tree{}, tree{tree{}}}
		require.NoError(t, s.SetE(ctx, "tree", v))
		got, ok := Get[tree](ctx, s, "tree")
		require.True(t, ok)
		assert.Equal(t, v, got)
	})

	t.Run("自引用map", func(t *testing.T) {
		v := nested{"a": nested{"b": nested{}}}
		require.NoError(t, s.SetE(ctx, "nested", v))
		got, ok := Get[nested](ctx, s, "nested")
		require.True(t, ok)
		assert.Equal(t, v, got)
	})

	t.Run("链表", func(t *testing.T) {
		v := &node{Value: 1, Next: &node{Value: 2}}
		require.NoError(t, s.SetE(ctx, "list", v))
		got, ok := Get[*node](ctx, s, "list")
		require.True(t, ok)
		assert.Equal(t, v, got)
	})

	t.Run("含函数字段的链表", func(t *testing.T) {
		v := &funcNode{Fn: func() {}}
		require.NoError(t, s.SetE(ctx, "fnode", v))
		got, ok := Get[*funcNode](ctx, s, "fnode")
		require.True(t, ok)
		assert.Same(t, v, got)
	})
}

func TestPartition_String(t *testing.T) {
	assert.Equal(t, "structured", PartitionStructured.String())
	assert.Equal(t, "opaque", PartitionOpaque.String())
	assert.Equal(t, "unknown", Partition(9).String())
}

func TestPolicy(t *testing.T) {
	p := DefaultPolicy()
	now := testEpoch

	explicit := 5 * time.Minute
	assert.Equal(t, now.Add(explicit), p.ExpiresAt("v", now, &explicit))
	assert.Equal(t, now.Add(DefaultTTL), p.ExpiresAt("v", now, nil))
	assert.Equal(t, now.Add(DefaultImageTTL), p.ExpiresAt(image.NewGray(image.Rect(0, 0, 1, 1)), now, nil))

	zero := time.Duration(0)
	assert.Equal(t, now, p.ExpiresAt("v", now, &zero))

	assert.True(t, Live(now.Add(time.Nanosecond), now))
	assert.False(t, Live(now, now))
	assert.False(t, Live(now.Add(-time.Second), now))
}

func TestJSONCodec(t *testing.T) {
	c := JSONCodec{}

	text, err := c.Marshal(user{ID: 1, Name: "a"})
	assert.NoError(t, err)
	assert.JSONEq(t, `{"id":1,"name":"a"}`, text)

	var u user
	assert.NoError(t, c.Unmarshal(text, &u))
	assert.Equal(t, user{ID: 1, Name: "a"}, u)

	var o order
	assert.Error(t, c.Unmarshal(text, &o), "未知字段")
	assert.Error(t, c.Unmarshal(`{"id":1} {"id":2}`, &u), "尾随数据")
	assert.Error(t, c.Unmarshal(`not json`, &u))
}
