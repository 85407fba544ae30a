package xsnapcache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/omeyang/xsnap/pkg/observability/xlog"
	"github.com/omeyang/xsnap/pkg/storage/xblob"
)

// RestoreResult 汇总一次 Restore 的结果。
type RestoreResult struct {
	// Restored 写入内存的条目数。
	Restored int
	// Expired 因已过期而丢弃的记录数。
	Expired int
	// Shadowed 因内存中已有同名 key 而跳过的记录数。
	Shadowed int
	// Skipped RecoverySkipEntry 模式下跳过的损坏记录数。
	Skipped int
	// Erased 恢复过程中是否清除过网关中的快照。
	Erased bool
	// Err 汇总读取与清除时的存储错误，仅供诊断，不影响内存中的数据。
	Err error
}

// ============================================================================
// Flush
// ============================================================================

// Flush 将两个分区的存活条目分别写入各自的快照 blob。
//
// 两个分区在同一把锁下取快照，编码与写入在锁外进行。
// 一个分区失败不影响另一个分区，所有失败合并后返回。
func (s *Store) Flush(ctx context.Context) error {
	ctx = normalize(ctx)
	now := s.now()

	s.mu.Lock()
	structured := liveEntries(s.structured, now)
	opaque := liveEntries(s.opaque, now)
	s.mu.Unlock()

	id := uuid.NewString()
	var errs []error
	if err := s.flushPartition(ctx, s.opts.structuredBlob, func() ([]byte, error) {
		return buildStructuredDoc(id, now, structured)
	}); err != nil {
		errs = append(errs, err)
	}
	if err := s.flushPartition(ctx, s.opts.opaqueBlob, func() ([]byte, error) {
		return s.buildOpaqueDoc(ctx, id, now, opaque)
	}); err != nil {
		errs = append(errs, err)
	}

	if err := errors.Join(errs...); err != nil {
		return err
	}
	s.logger.Debug(ctx, "snapshot flushed",
		slog.String("snapshot_id", id),
		slog.Int("structured", len(structured)),
		slog.Int("opaque", len(opaque)),
	)
	return nil
}

func (s *Store) flushPartition(ctx context.Context, name string, build func() ([]byte, error)) error {
	doc, err := build()
	if err != nil {
		s.logger.Warn(ctx, "encode snapshot failed", slog.String("blob", name), xlog.Err(err))
		return fmt.Errorf("%w: %s: %w", ErrEncode, name, err)
	}
	data, err := sealEnvelope(doc, s.opts.compress)
	if err != nil {
		s.logger.Warn(ctx, "seal snapshot failed", slog.String("blob", name), xlog.Err(err))
		return err
	}
	if err := s.gateway.Write(ctx, name, data); err != nil {
		s.logger.Warn(ctx, "write snapshot failed", slog.String("blob", name), xlog.Err(err))
		return err
	}
	return nil
}

func liveEntries(m map[string]Entry, now time.Time) []Entry {
	out := make([]Entry, 0, len(m))
	for _, e := range m {
		if e.Live(now) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

func buildStructuredDoc(id string, now time.Time, entries []Entry) ([]byte, error) {
	doc := &structuredDoc{
		Version:    documentVersion,
		SnapshotID: id,
		WrittenAt:  now,
		Records:    make([]structuredRecord, 0, len(entries)),
	}
	for _, e := range entries {
		p, ok := e.Payload.(StructuredPayload)
		if !ok {
			continue
		}
		doc.Records = append(doc.Records, structuredRecord{
			Key:             e.Key,
			ExpiresAt:       e.ExpiresAt,
			SerializedValue: p.Text,
		})
	}
	return marshalStructuredDoc(doc)
}

// buildOpaqueDoc 编码不透明分区。无法编码的单个值被跳过并记录日志。
func (s *Store) buildOpaqueDoc(ctx context.Context, id string, now time.Time, entries []Entry) ([]byte, error) {
	doc := &opaqueDoc{
		Version:    documentVersion,
		SnapshotID: id,
		WrittenAt:  now,
		Records:    make([]opaqueRecord, 0, len(entries)),
	}
	for _, e := range entries {
		p, ok := e.Payload.(OpaquePayload)
		if !ok {
			continue
		}
		value, err := encodeOpaqueValue(p.Value)
		if err != nil {
			s.logger.Warn(ctx, "skip unencodable opaque value",
				slog.String("key", e.Key),
				slog.String("type", fmt.Sprintf("%T", p.Value)),
				xlog.Err(err),
			)
			continue
		}
		doc.Records = append(doc.Records, opaqueRecord{
			Key:       e.Key,
			ExpiresAt: e.ExpiresAt,
			TypeName:  fmt.Sprintf("%T", p.Value),
			Value:     value,
		})
	}
	return marshalOpaqueDoc(doc)
}

// ============================================================================
// Restore
// ============================================================================

// Restore 从网关读取两个快照并恢复未过期的记录。
//
// blob 不存在表示无数据可恢复。读取失败被记录并跳过该 blob。
// 解码失败按 RecoveryMode 处理：RecoveryEraseAll 清除网关下的全部快照，
// RecoverySkipEntry 只删除损坏的 blob 并跳过损坏的记录。
// 内存中已存在的 key 不会被快照覆盖。
func (s *Store) Restore(ctx context.Context) RestoreResult {
	ctx = normalize(ctx)
	var (
		res  RestoreResult
		errs []error
	)

	for _, part := range []Partition{PartitionStructured, PartitionOpaque} {
		name := s.opts.blobName(part)
		data, err := s.gateway.Read(ctx, name)
		if errors.Is(err, xblob.ErrNotFound) {
			continue
		}
		if err != nil {
			s.logger.Warn(ctx, "read snapshot failed", slog.String("blob", name), xlog.Err(err))
			errs = append(errs, err)
			continue
		}

		entries, skipped, err := s.decodeBlob(ctx, part, data)
		if err != nil {
			s.logger.Warn(ctx, "snapshot unrecoverable",
				slog.String("blob", name),
				slog.String("recovery", string(s.opts.recovery)),
				xlog.Err(err),
			)
			if cerr := s.eraseCorrupt(ctx, name); cerr != nil {
				errs = append(errs, cerr)
			}
			res.Erased = true
			continue
		}
		res.Skipped += skipped
		s.insertRestored(part, entries, &res)
	}

	res.Err = errors.Join(errs...)
	s.logger.Info(ctx, "snapshot restored",
		slog.Int("restored", res.Restored),
		slog.Int("expired", res.Expired),
		slog.Int("shadowed", res.Shadowed),
		slog.Int("skipped", res.Skipped),
		slog.Bool("erased", res.Erased),
	)
	return res
}

func (s *Store) eraseCorrupt(ctx context.Context, name string) error {
	var err error
	if s.opts.recovery == RecoverySkipEntry {
		err = s.gateway.Clear(ctx, name)
	} else {
		err = s.gateway.Clear(ctx)
	}
	if err != nil {
		s.logger.Warn(ctx, "erase snapshot failed", slog.String("blob", name), xlog.Err(err))
	}
	return err
}

// decodeBlob 解码单个 blob。返回的 error 表示整个 blob 不可恢复。
func (s *Store) decodeBlob(ctx context.Context, part Partition, data []byte) ([]Entry, int, error) {
	_, doc, err := openEnvelope(data)
	if err != nil {
		return nil, 0, err
	}
	if part == PartitionStructured {
		return s.decodeStructured(ctx, doc)
	}
	return s.decodeOpaque(ctx, doc)
}

func (s *Store) decodeStructured(ctx context.Context, data []byte) ([]Entry, int, error) {
	doc, err := unmarshalStructuredDoc(data)
	if err != nil {
		return nil, 0, err
	}
	entries := make([]Entry, 0, len(doc.Records))
	skipped := 0
	for _, r := range doc.Records {
		if r.Key == "" {
			if err := s.badRecord(ctx, r.Key, errors.New("empty key")); err != nil {
				return nil, 0, err
			}
			skipped++
			continue
		}
		entries = append(entries, Entry{
			Key:       r.Key,
			ExpiresAt: r.ExpiresAt,
			Payload:   StructuredPayload{Text: r.SerializedValue},
		})
	}
	return entries, skipped, nil
}

func (s *Store) decodeOpaque(ctx context.Context, data []byte) ([]Entry, int, error) {
	doc, err := unmarshalOpaqueDoc(data)
	if err != nil {
		return nil, 0, err
	}
	now := s.now()
	entries := make([]Entry, 0, len(doc.Records))
	skipped := 0
	for _, r := range doc.Records {
		// 过期记录无需解码，未注册的过期类型不会触发恢复
		if !Live(r.ExpiresAt, now) {
			entries = append(entries, Entry{Key: r.Key, ExpiresAt: r.ExpiresAt})
			continue
		}
		value, recErr := decodeOpaqueRecord(r)
		if recErr != nil {
			if err := s.badRecord(ctx, r.Key, recErr); err != nil {
				return nil, 0, err
			}
			skipped++
			continue
		}
		entries = append(entries, Entry{
			Key:       r.Key,
			ExpiresAt: r.ExpiresAt,
			Payload:   OpaquePayload{Value: value},
		})
	}
	return entries, skipped, nil
}

func decodeOpaqueRecord(r opaqueRecord) (any, error) {
	if r.Key == "" {
		return nil, errors.New("empty key")
	}
	return decodeOpaqueValue(r.Value)
}

// badRecord 在 RecoverySkipEntry 模式下记录并吞掉单条记录错误，否则返回 blob 级错误。
func (s *Store) badRecord(ctx context.Context, key string, err error) error {
	if s.opts.recovery != RecoverySkipEntry {
		return fmt.Errorf("%w: record %q: %w", ErrCorruptSnapshot, key, err)
	}
	s.logger.Warn(ctx, "skip corrupt snapshot record", slog.String("key", key), xlog.Err(err))
	return nil
}

func (s *Store) insertRestored(part Partition, entries []Entry, res *RestoreResult) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.partition(part)
	for _, e := range entries {
		if !e.Live(now) {
			res.Expired++
			continue
		}
		if _, exists := m[e.Key]; exists {
			res.Shadowed++
			continue
		}
		m[e.Key] = e
		res.Restored++
	}
}
