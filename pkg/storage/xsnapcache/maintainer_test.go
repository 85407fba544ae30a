package xsnapcache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMaintainer(t *testing.T) {
	_, err := NewMaintainer(nil)
	assert.ErrorIs(t, err, ErrNilStore)

	s, _, _ := newTestStore(t)
	_, err = NewMaintainer(s, WithPurgeSchedule("every now and then"))
	assert.ErrorIs(t, err, ErrInvalidConfig)

	m, err := NewMaintainer(s, WithPurgeSchedule("*/5 * * * *"), WithAutosave(time.Minute))
	require.NoError(t, err)
	assert.Same(t, s, m.Store())
}

func runMaintainer(t *testing.T, m *Maintainer) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()
	return cancel, done
}

func waitDone(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("Maintainer.Run 未退出")
		return nil
	}
}

func TestMaintainer_RestoreAndFlush(t *testing.T) {
	ctx := context.Background()
	seed, clock, gw := newTestStore(t)
	seed.Set(ctx, "restored", "from-disk")
	require.NoError(t, seed.Flush(ctx))

	s := newStoreOn(t, gw, clock)
	m, err := NewMaintainer(s)
	require.NoError(t, err)

	cancel, done := runMaintainer(t, m)
	require.Eventually(t, func() bool {
		_, ok := Get[string](ctx, s, "restored")
		return ok
	}, 5*time.Second, 10*time.Millisecond)

	s.Set(ctx, "added", "while-running")
	cancel()
	assert.ErrorIs(t, waitDone(t, done), context.Canceled)

	restarted := newStoreOn(t, gw, clock)
	assert.Equal(t, 2, restarted.Restore(ctx).Restored, "退出时写入快照")
}

func TestMaintainer_Purge(t *testing.T) {
	ctx := context.Background()
	s, clock, _ := newTestStore(t)
	s.Set(ctx, "short", "v", WithTTLMinutes(1))
	s.Set(ctx, "long", "v", WithTTLMinutes(60))
	clock.Advance(2 * time.Minute)

	m, err := NewMaintainer(s, WithPurgeSchedule("@every 1s"))
	require.NoError(t, err)
	cancel, done := runMaintainer(t, m)

	assert.Eventually(t, func() bool { return s.Count() == 1 }, 5*time.Second, 50*time.Millisecond)
	cancel()
	waitDone(t, done)
}

func TestMaintainer_Autosave(t *testing.T) {
	ctx := context.Background()
	s, _, gw := newTestStore(t)
	m, err := NewMaintainer(s, WithAutosave(20*time.Millisecond))
	require.NoError(t, err)
	cancel, done := runMaintainer(t, m)
	defer func() {
		cancel()
		waitDone(t, done)
	}()

	s.Set(ctx, "k", "v")
	assert.Eventually(t, func() bool {
		report, err := Inspect(ctx, gw)
		if err != nil {
			return false
		}
		_, ok := report.Find(PartitionStructured, "k")
		return ok
	}, 5*time.Second, 20*time.Millisecond)
}
