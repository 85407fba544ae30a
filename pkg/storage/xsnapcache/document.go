package xsnapcache

import (
	"bytes"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"time"
)

// documentVersion 两种快照文档的格式版本。
const documentVersion = 1

// structuredDoc 结构化分区快照文档（JSON）。
type structuredDoc struct {
	Version    int                `json:"version"`
	SnapshotID string             `json:"snapshot_id"`
	WrittenAt  time.Time          `json:"written_at"`
	Records    []structuredRecord `json:"records"`
}

type structuredRecord struct {
	Key             string    `json:"key"`
	ExpiresAt       time.Time `json:"expires_at"`
	SerializedValue string    `json:"serialized_value"`
}

// opaqueDoc 不透明分区快照文档（gob）。
// Value 是对 opaqueBox 的 gob 编码，使 Inspect 和 Compact 无需注册具体类型即可处理。
type opaqueDoc struct {
	Version    int
	SnapshotID string
	WrittenAt  time.Time
	Records    []opaqueRecord
}

type opaqueRecord struct {
	Key       string
	ExpiresAt time.Time
	TypeName  string
	Value     []byte
}

// opaqueBox 承载任意值的 gob 外壳，具体类型需通过 Register 注册。
type opaqueBox struct {
	Value any
}

// Register 注册可写入不透明分区快照的具体类型，参数为该类型的一个值。
// 内置基础类型无需注册。与 gob.Register 相同，重复注册同一类型是安全的。
func Register(value any) {
	gob.Register(value)
}

func marshalStructuredDoc(doc *structuredDoc) ([]byte, error) {
	return json.Marshal(doc)
}

func unmarshalStructuredDoc(data []byte) (*structuredDoc, error) {
	var doc *structuredDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptSnapshot, err)
	}
	if doc == nil {
		return nil, fmt.Errorf("%w: null document", ErrCorruptSnapshot)
	}
	if doc.Version != documentVersion {
		return nil, fmt.Errorf("%w: document version %d", ErrUnsupportedVersion, doc.Version)
	}
	return doc, nil
}

func marshalOpaqueDoc(doc *opaqueDoc) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(doc); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func unmarshalOpaqueDoc(data []byte) (*opaqueDoc, error) {
	var doc opaqueDoc
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptSnapshot, err)
	}
	if doc.Version != documentVersion {
		return nil, fmt.Errorf("%w: document version %d", ErrUnsupportedVersion, doc.Version)
	}
	return &doc, nil
}

func encodeOpaqueValue(value any) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&opaqueBox{Value: value}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeOpaqueValue(data []byte) (any, error) {
	var box opaqueBox
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&box); err != nil {
		return nil, err
	}
	if box.Value == nil {
		return nil, fmt.Errorf("xsnapcache: empty opaque value")
	}
	return box.Value, nil
}
