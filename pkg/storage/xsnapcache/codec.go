package xsnapcache

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
)

// Codec 结构化值编解码器。
//
// 实现必须可并发使用。Unmarshal 在文本与目标类型不兼容时必须返回错误，
// Get 依赖该错误识别类型不匹配。
type Codec interface {
	Marshal(value any) (string, error)
	Unmarshal(text string, target any) error
}

// JSONCodec 基于 encoding/json 的默认编解码器。
// 解码拒绝未知字段和尾随数据。
type JSONCodec struct{}

var _ Codec = JSONCodec{}

// Marshal 实现 Codec。
func (JSONCodec) Marshal(value any) (string, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Unmarshal 实现 Codec。
func (JSONCodec) Unmarshal(text string, target any) error {
	dec := json.NewDecoder(bytes.NewReader([]byte(text)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(target); err != nil {
		return err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return errors.New("xsnapcache: trailing data after value")
	}
	return nil
}
