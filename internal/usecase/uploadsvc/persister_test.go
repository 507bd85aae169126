package uploadsvc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	meta "github.com/sir_venger/upload_lite/internal/repo"
)

func TestPersister_DebouncedFlush(t *testing.T) {
	store := meta.NewMemoryStore()
	m := newTestManager(t, store, t.TempDir(), 20*time.Millisecond)
	ctx := context.Background()
	payload := testPayload(256)

	created, err := m.CreateUpload(ctx, "a.bin", 256, 64)
	require.NoError(t, err)

	writeIdx(t, m, created.ID, payload, 64, 0)
	writeIdx(t, m, created.ID, payload, 64, 3)

	require.Eventually(t, func() bool {
		snap, err := store.Get(ctx, created.ID)
		return err == nil && len(snap.ReceivedChunks) == 2
	}, 2*time.Second, 5*time.Millisecond)

	// Мутация после сброса взводит новый таймер.
	writeIdx(t, m, created.ID, payload, 64, 1)
	require.Eventually(t, func() bool {
		snap, err := store.Get(ctx, created.ID)
		return err == nil && assert.ObjectsAreEqual([]int{0, 1, 3}, snap.ReceivedChunks)
	}, 2*time.Second, 5*time.Millisecond)
}

func TestPersister_FlushAllCancelsTimer(t *testing.T) {
	store := meta.NewMemoryStore()
	m := newTestManager(t, store, t.TempDir(), time.Hour)
	ctx := context.Background()
	payload := testPayload(128)

	created, err := m.CreateUpload(ctx, "a.bin", 128, 64)
	require.NoError(t, err)
	writeIdx(t, m, created.ID, payload, 64, 1)

	snap, err := store.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Empty(t, snap.ReceivedChunks, "chunk writes must not hit the store synchronously")
	assert.Equal(t, 1, m.persister.Dirty())

	require.NoError(t, m.ShutdownFlush(ctx))

	snap, err = store.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, snap.ReceivedChunks)
	assert.Zero(t, m.persister.Dirty())

	m.persister.mu.Lock()
	assert.Nil(t, m.persister.timer)
	m.persister.mu.Unlock()
}

func TestPersister_FailedFlushIsRetried(t *testing.T) {
	store := newFlakyStore(0)
	m := newTestManager(t, store, t.TempDir(), 10*time.Millisecond)
	ctx := context.Background()
	payload := testPayload(64)

	created, err := m.CreateUpload(ctx, "a.bin", 64, 64)
	require.NoError(t, err)

	store.mu.Lock()
	store.failures = 2
	store.mu.Unlock()

	writeIdx(t, m, created.ID, payload, 64, 0)

	// Без новых мутаций снапшот всё равно догоняет память.
	require.Eventually(t, func() bool {
		snap, err := store.Get(ctx, created.ID)
		return err == nil && len(snap.ReceivedChunks) == 1
	}, 2*time.Second, 5*time.Millisecond)

	store.mu.Lock()
	defer store.mu.Unlock()
	assert.GreaterOrEqual(t, store.saves, 4)
}

func TestPersister_FlushAllReportsFailures(t *testing.T) {
	store := newFlakyStore(0)
	m := newTestManager(t, store, t.TempDir(), time.Hour)
	ctx := context.Background()

	a, err := m.CreateUpload(ctx, "a.bin", 64, 64)
	require.NoError(t, err)
	b, err := m.CreateUpload(ctx, "b.bin", 64, 64)
	require.NoError(t, err)

	writeIdx(t, m, a.ID, testPayload(64), 64, 0)
	writeIdx(t, m, b.ID, testPayload(64), 64, 0)

	store.mu.Lock()
	store.failures = 1
	store.mu.Unlock()

	// Одна ошибка не обрывает пачку: второй id всё равно сохранён.
	require.Error(t, m.ShutdownFlush(ctx))

	saved := 0
	for _, id := range []string{a.ID, b.ID} {
		snap, err := store.Get(ctx, id)
		require.NoError(t, err)
		saved += len(snap.ReceivedChunks)
	}
	assert.Equal(t, 1, saved)
}

func TestPersister_ShutdownWaitsForRunningBatch(t *testing.T) {
	store := newGatedStore()
	m := newTestManager(t, store, t.TempDir(), 10*time.Millisecond)
	ctx := context.Background()

	created, err := m.CreateUpload(ctx, "a.bin", 64, 64)
	require.NoError(t, err)

	store.arm(false)
	writeIdx(t, m, created.ID, testPayload(64), 64, 0)

	// Пачка таймера уже забрала id и висит в Save.
	select {
	case <-store.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("timer batch did not start")
	}

	done := make(chan error, 1)
	go func() { done <- m.ShutdownFlush(ctx) }()

	select {
	case err := <-done:
		t.Fatalf("ShutdownFlush returned while a batch was still writing: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	close(store.release)
	require.NoError(t, <-done)

	snap, err := store.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{0}, snap.ReceivedChunks)
}

func TestPersister_FailedBatchDuringShutdownIsRetriedOnce(t *testing.T) {
	store := newGatedStore()
	m := newTestManager(t, store, t.TempDir(), 10*time.Millisecond)
	ctx := context.Background()

	created, err := m.CreateUpload(ctx, "a.bin", 64, 64)
	require.NoError(t, err)

	store.arm(true)
	writeIdx(t, m, created.ID, testPayload(64), 64, 0)

	select {
	case <-store.entered:
	case <-time.After(2 * time.Second):
		t.Fatal("timer batch did not start")
	}

	done := make(chan error, 1)
	go func() { done <- m.ShutdownFlush(ctx) }()

	require.Eventually(t, func() bool {
		m.persister.mu.Lock()
		defer m.persister.mu.Unlock()
		return m.persister.closed
	}, time.Second, time.Millisecond)

	// Упавшая пачка возвращает id в очередь, а не взводит таймер: его дописывает ShutdownFlush.
	close(store.release)
	require.NoError(t, <-done)

	snap, err := store.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, []int{0}, snap.ReceivedChunks)

	m.persister.mu.Lock()
	defer m.persister.mu.Unlock()
	assert.Nil(t, m.persister.timer)
	assert.Empty(t, m.persister.dirty)
}

func TestPersister_NoTimerAfterShutdown(t *testing.T) {
	m := newTestManager(t, meta.NewMemoryStore(), t.TempDir(), time.Millisecond)
	ctx := context.Background()

	created, err := m.CreateUpload(ctx, "a.bin", 128, 64)
	require.NoError(t, err)
	require.NoError(t, m.ShutdownFlush(ctx))

	writeIdx(t, m, created.ID, testPayload(128), 64, 0)

	m.persister.mu.Lock()
	assert.Nil(t, m.persister.timer)
	m.persister.mu.Unlock()
	assert.Equal(t, 1, m.persister.Dirty())
}
