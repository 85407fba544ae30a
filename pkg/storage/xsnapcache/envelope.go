package xsnapcache

import (
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"
	"github.com/klauspost/compress/zstd"
)

// 快照 blob 头部：
//
//	magic(4) | version(1) | flags(1) | xxhash64(8) | payload
//
// 校验和覆盖落盘的 payload（压缩后）。
const (
	envelopeMagic   = "XSNP"
	envelopeVersion = 1
	headerSize      = 4 + 1 + 1 + 8

	flagZstd byte = 1 << 0
)

type envelope struct {
	compressed bool
	payload    []byte
}

func sealEnvelope(doc []byte, compress bool) ([]byte, error) {
	var flags byte
	payload := doc
	if compress {
		enc, err := zstd.NewWriter(nil, zstd.WithEncoderConcurrency(1))
		if err != nil {
			return nil, fmt.Errorf("xsnapcache: create zstd encoder: %w", err)
		}
		payload = enc.EncodeAll(doc, nil)
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("xsnapcache: close zstd encoder: %w", err)
		}
		flags |= flagZstd
	}

	out := make([]byte, headerSize, headerSize+len(payload))
	copy(out, envelopeMagic)
	out[4] = envelopeVersion
	out[5] = flags
	binary.BigEndian.PutUint64(out[6:headerSize], xxhash.Sum64(payload))
	return append(out, payload...), nil
}

// openEnvelope 校验头部与校验和，返回解压后的文档。
func openEnvelope(data []byte) (envelope, []byte, error) {
	var env envelope
	if len(data) < headerSize {
		return env, nil, fmt.Errorf("%w: %d bytes is shorter than header", ErrCorruptSnapshot, len(data))
	}
	if string(data[:4]) != envelopeMagic {
		return env, nil, fmt.Errorf("%w: bad magic %q", ErrCorruptSnapshot, data[:4])
	}
	if data[4] != envelopeVersion {
		return env, nil, fmt.Errorf("%w: envelope version %d", ErrUnsupportedVersion, data[4])
	}
	flags := data[5]
	if flags&^flagZstd != 0 {
		return env, nil, fmt.Errorf("%w: unknown flags %#x", ErrCorruptSnapshot, flags)
	}

	env.payload = data[headerSize:]
	env.compressed = flags&flagZstd != 0
	if want, got := binary.BigEndian.Uint64(data[6:headerSize]), xxhash.Sum64(env.payload); want != got {
		return env, nil, fmt.Errorf("%w: checksum mismatch", ErrCorruptSnapshot)
	}
	if !env.compressed {
		return env, env.payload, nil
	}

	dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return env, nil, fmt.Errorf("xsnapcache: create zstd decoder: %w", err)
	}
	defer dec.Close()
	doc, err := dec.DecodeAll(env.payload, nil)
	if err != nil {
		return env, nil, fmt.Errorf("%w: decompress: %w", ErrCorruptSnapshot, err)
	}
	return env, doc, nil
}
