package xsnapcache

import (
	"encoding"
	"encoding/json"
	"image"
	"reflect"
	"strings"
	"sync"
)

// Opaque 标记接口：实现该接口的类型总是进入不透明分区，
// 即使它也可以被 JSON 编码。
type Opaque interface {
	XSnapOpaque()
}

var (
	opaqueType          = reflect.TypeFor[Opaque]()
	imageType           = reflect.TypeFor[image.Image]()
	jsonMarshalerType   = reflect.TypeFor[json.Marshaler]()
	textMarshalerType   = reflect.TypeFor[encoding.TextMarshaler]()
	partitionByTypeMemo sync.Map // reflect.Type -> Partition
)

// PartitionOf 返回 T 对应的分区，Get 据此选择查找的分区。
func PartitionOf[T any]() Partition {
	return classify(reflect.TypeFor[T]())
}

// classify 判断类型所属分区，结果按类型缓存。
//
// 只缓存顶层类型的结果：自引用类型在递归过程中得到的中间结论依赖于尚未确定的祖先。
func classify(t reflect.Type) Partition {
	if t == nil {
		return PartitionOpaque
	}
	if p, ok := partitionByTypeMemo.Load(t); ok {
		return p.(Partition)
	}
	p := classifyType(t, make(map[reflect.Type]struct{}))
	partitionByTypeMemo.Store(t, p)
	return p
}

// classifyType 递归判断分区。visiting 记录当前路径上的类型，
// 再次遇到时按结构化处理，由路径上的其余部分决定结果。
func classifyType(t reflect.Type, visiting map[reflect.Type]struct{}) Partition {
	if p, ok := partitionByTypeMemo.Load(t); ok {
		return p.(Partition)
	}
	if t.Implements(opaqueType) || t.Implements(imageType) {
		return PartitionOpaque
	}
	if t.Implements(jsonMarshalerType) || t.Implements(textMarshalerType) {
		return PartitionStructured
	}
	if _, ok := visiting[t]; ok {
		return PartitionStructured
	}
	visiting[t] = struct{}{}
	defer delete(visiting, t)

	switch t.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return PartitionStructured
	case reflect.Pointer, reflect.Slice, reflect.Array:
		return classifyType(t.Elem(), visiting)
	case reflect.Map:
		if classifyType(t.Key(), visiting) == PartitionOpaque {
			return PartitionOpaque
		}
		return classifyType(t.Elem(), visiting)
	case reflect.Struct:
		encoded, opaque := scanFields(t, visiting)
		if opaque || encoded == 0 {
			return PartitionOpaque
		}
		return PartitionStructured
	default:
		// interface、func、chan、unsafe.Pointer、complex
		return PartitionOpaque
	}
}

// scanFields 按 encoding/json 的字段规则遍历结构体，返回被编码的字段数，
// 以及其中是否存在不透明类型。未命名的内嵌结构体字段被展开。
func scanFields(t reflect.Type, visiting map[reflect.Type]struct{}) (encoded int, opaque bool) {
	for i := range t.NumField() {
		f := t.Field(i)
		tag := f.Tag.Get("json")
		if tag == "-" {
			continue
		}
		name, _, _ := strings.Cut(tag, ",")

		if f.Anonymous {
			ft := f.Type
			if ft.Kind() == reflect.Pointer {
				ft = ft.Elem()
			}
			if !f.IsExported() && ft.Kind() != reflect.Struct {
				continue
			}
			if name == "" && ft.Kind() == reflect.Struct {
				if _, ok := visiting[ft]; ok {
					continue
				}
				visiting[ft] = struct{}{}
				n, o := scanFields(ft, visiting)
				delete(visiting, ft)
				encoded += n
				if o {
					return encoded, true
				}
				continue
			}
		} else if !f.IsExported() {
			continue
		}

		encoded++
		if classifyType(f.Type, visiting) == PartitionOpaque {
			return encoded, true
		}
	}
	return encoded, false
}
