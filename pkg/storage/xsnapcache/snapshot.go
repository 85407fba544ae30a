package xsnapcache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/omeyang/xsnap/pkg/storage/xblob"
)

// BlobInfo 单个快照 blob 的概要。
type BlobInfo struct {
	Name       string
	Partition  Partition
	Present    bool
	Size       int
	Compressed bool
	SnapshotID string
	WrittenAt  time.Time
	Records    int
	// Err 非 nil 表示 blob 存在但无法解码。
	Err error
}

// RecordInfo 快照中的一条记录。不透明记录的值不会被解码。
type RecordInfo struct {
	Partition Partition
	Key       string
	ExpiresAt time.Time
	Size      int
	// TypeName 不透明记录写入时的 Go 类型名，结构化记录为空。
	TypeName string
	// Text 结构化记录的编码文本，不透明记录为空。
	Text string
}

// Live 报告记录在 now 时刻是否存活。
func (r RecordInfo) Live(now time.Time) bool {
	return Live(r.ExpiresAt, now)
}

// Report Inspect 的结果。
type Report struct {
	Blobs   []BlobInfo
	Records []RecordInfo
}

// Find 按分区和 key 查找记录。
func (r *Report) Find(p Partition, key string) (RecordInfo, bool) {
	for _, rec := range r.Records {
		if rec.Partition == p && rec.Key == key {
			return rec, true
		}
	}
	return RecordInfo{}, false
}

// Count 返回 now 时刻的存活与过期记录数。
func (r *Report) Count(now time.Time) (live, expired int) {
	for _, rec := range r.Records {
		if rec.Live(now) {
			live++
		} else {
			expired++
		}
	}
	return live, expired
}

// Inspect 读取网关中的两个快照并列出记录，不修改任何数据。
//
// 接受与 New 相同的选项，只有 WithBlobNames 生效。
// 损坏的 blob 记录在 BlobInfo.Err 中；网关读取失败时返回错误。
func Inspect(ctx context.Context, gw xblob.Gateway, opts ...Option) (*Report, error) {
	if gw == nil {
		return nil, ErrNilGateway
	}
	o := applyOptions(opts)
	report := &Report{}

	for _, part := range []Partition{PartitionStructured, PartitionOpaque} {
		info, records, err := inspectBlob(ctx, gw, part, o.blobName(part))
		if err != nil {
			return nil, err
		}
		report.Blobs = append(report.Blobs, info)
		report.Records = append(report.Records, records...)
	}
	return report, nil
}

func (o *options) blobName(p Partition) string {
	if p == PartitionOpaque {
		return o.opaqueBlob
	}
	return o.structuredBlob
}

func inspectBlob(ctx context.Context, gw xblob.Gateway, part Partition, name string) (BlobInfo, []RecordInfo, error) {
	info := BlobInfo{Name: name, Partition: part}
	data, err := gw.Read(ctx, name)
	if errors.Is(err, xblob.ErrNotFound) {
		return info, nil, nil
	}
	if err != nil {
		return info, nil, err
	}
	info.Present = true
	info.Size = len(data)

	env, doc, err := openEnvelope(data)
	if err != nil {
		info.Err = err
		return info, nil, nil
	}
	info.Compressed = env.compressed

	var records []RecordInfo
	if part == PartitionStructured {
		d, err := unmarshalStructuredDoc(doc)
		if err != nil {
			info.Err = err
			return info, nil, nil
		}
		info.SnapshotID, info.WrittenAt, info.Records = d.SnapshotID, d.WrittenAt, len(d.Records)
		for _, r := range d.Records {
			records = append(records, RecordInfo{
				Partition: part,
				Key:       r.Key,
				ExpiresAt: r.ExpiresAt,
				Size:      len(r.SerializedValue),
				Text:      r.SerializedValue,
			})
		}
		return info, records, nil
	}

	d, err := unmarshalOpaqueDoc(doc)
	if err != nil {
		info.Err = err
		return info, nil, nil
	}
	info.SnapshotID, info.WrittenAt, info.Records = d.SnapshotID, d.WrittenAt, len(d.Records)
	for _, r := range d.Records {
		records = append(records, RecordInfo{
			Partition: part,
			Key:       r.Key,
			ExpiresAt: r.ExpiresAt,
			Size:      len(r.Value),
			TypeName:  r.TypeName,
		})
	}
	return info, records, nil
}

// CompactResult Compact 的结果。
type CompactResult struct {
	Kept    int
	Dropped int
}

// Compact 重写网关中的快照，丢弃在 now 时刻已过期的记录。
//
// 接受与 New 相同的选项，WithBlobNames 与 WithCompression 生效。
// 不存在的 blob 被跳过。两个 blob 都解码成功后才开始写入，
// 任一 blob 损坏时返回 ErrCorruptSnapshot，且不做任何修改。
func Compact(ctx context.Context, gw xblob.Gateway, now time.Time, opts ...Option) (CompactResult, error) {
	var res CompactResult
	if gw == nil {
		return res, ErrNilGateway
	}
	o := applyOptions(opts)
	id := uuid.NewString()

	type rewrite struct {
		name string
		data []byte
	}
	var pending []rewrite

	for _, part := range []Partition{PartitionStructured, PartitionOpaque} {
		name := o.blobName(part)
		data, err := gw.Read(ctx, name)
		if errors.Is(err, xblob.ErrNotFound) {
			continue
		}
		if err != nil {
			return CompactResult{}, err
		}
		_, doc, err := openEnvelope(data)
		if err != nil {
			return CompactResult{}, fmt.Errorf("%s: %w", name, err)
		}

		var (
			out           []byte
			kept, dropped int
		)
		if part == PartitionStructured {
			out, kept, dropped, err = compactStructured(doc, id, now)
		} else {
			out, kept, dropped, err = compactOpaque(doc, id, now)
		}
		if err != nil {
			return CompactResult{}, fmt.Errorf("%s: %w", name, err)
		}

		sealed, err := sealEnvelope(out, o.compress)
		if err != nil {
			return CompactResult{}, err
		}
		pending = append(pending, rewrite{name: name, data: sealed})
		res.Kept += kept
		res.Dropped += dropped
	}

	for _, w := range pending {
		if err := gw.Write(ctx, w.name, w.data); err != nil {
			return CompactResult{}, err
		}
	}
	return res, nil
}

func compactStructured(data []byte, id string, now time.Time) ([]byte, int, int, error) {
	doc, err := unmarshalStructuredDoc(data)
	if err != nil {
		return nil, 0, 0, err
	}
	kept := doc.Records[:0]
	for _, r := range doc.Records {
		if Live(r.ExpiresAt, now) {
			kept = append(kept, r)
		}
	}
	dropped := len(doc.Records) - len(kept)
	doc.Records, doc.SnapshotID, doc.WrittenAt = kept, id, now
	out, err := marshalStructuredDoc(doc)
	return out, len(kept), dropped, err
}

func compactOpaque(data []byte, id string, now time.Time) ([]byte, int, int, error) {
	doc, err := unmarshalOpaqueDoc(data)
	if err != nil {
		return nil, 0, 0, err
	}
	kept := doc.Records[:0]
	for _, r := range doc.Records {
		if Live(r.ExpiresAt, now) {
			kept = append(kept, r)
		}
	}
	dropped := len(doc.Records) - len(kept)
	doc.Records, doc.SnapshotID, doc.WrittenAt = kept, id, now
	out, err := marshalOpaqueDoc(doc)
	return out, len(kept), dropped, err
}
