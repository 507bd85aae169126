package uploadsvc

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sir_venger/upload_lite/internal/models"
	meta "github.com/sir_venger/upload_lite/internal/repo"
)

func newTestManager(t *testing.T, store SnapshotStore, dataDir string, flushDelay time.Duration) *Manager {
	t.Helper()

	m, err := New(Deps{
		Store:            store,
		DataDir:          dataDir,
		DefaultChunkSize: 64,
		MaxChunkSize:     1 << 20,
		FlushDelay:       flushDelay,
		FlushWorkers:     2,
	})
	require.NoError(t, err)

	return m
}

// chunkOf возвращает содержимое чанка idx детерминированного тестового файла.
func chunkOf(payload []byte, chunkSize int64, idx int) []byte {
	start := int64(idx) * chunkSize
	end := min(start+chunkSize, int64(len(payload)))
	return payload[start:end]
}

func testPayload(size int) []byte {
	b := make([]byte, size)
	for i := range b {
		b[i] = byte(i*7 + 3)
	}
	return b
}

func writeIdx(t *testing.T, m *Manager, id string, payload []byte, chunkSize int64, idx int) models.ChunkResult {
	t.Helper()

	data := chunkOf(payload, chunkSize, idx)
	res, err := m.WriteChunk(context.Background(), id, int64(idx)*chunkSize, int64(len(data)), bytes.NewReader(data))
	require.NoError(t, err)

	return res
}

// flakyStore отказывает в Save, пока failures > 0.
type flakyStore struct {
	*meta.MemoryStore

	mu       sync.Mutex
	failures int
	saves    int
}

func newFlakyStore(failures int) *flakyStore {
	return &flakyStore{MemoryStore: meta.NewMemoryStore(), failures: failures}
}

func (s *flakyStore) Save(ctx context.Context, snap models.Snapshot) error {
	s.mu.Lock()
	s.saves++
	if s.failures > 0 {
		s.failures--
		s.mu.Unlock()
		return errors.New("metadata disk unavailable")
	}
	s.mu.Unlock()

	return s.MemoryStore.Save(ctx, snap)
}

// gateReader отдаёт данные только после закрытия release; started закрывается при первом Read.
type gateReader struct {
	data    *bytes.Reader
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func newGateReader(data []byte) *gateReader {
	return &gateReader{
		data:    bytes.NewReader(data),
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (g *gateReader) Read(p []byte) (int, error) {
	g.once.Do(func() { close(g.started) })
	<-g.release
	return g.data.Read(p)
}

// gatedStore задерживает Save, пока открыт gate: entered получает id, Save ждёт release.
// failNext заставляет ближайший задержанный Save вернуть ошибку.
type gatedStore struct {
	*meta.MemoryStore

	mu       sync.Mutex
	gated    bool
	failNext bool
	entered  chan string
	release  chan struct{}
}

func newGatedStore() *gatedStore {
	return &gatedStore{
		MemoryStore: meta.NewMemoryStore(),
		entered:     make(chan string, 16),
		release:     make(chan struct{}),
	}
}

func (s *gatedStore) arm(failNext bool) {
	s.mu.Lock()
	s.gated = true
	s.failNext = failNext
	s.mu.Unlock()
}

func (s *gatedStore) Save(ctx context.Context, snap models.Snapshot) error {
	s.mu.Lock()
	gated := s.gated
	s.gated = false
	fail := gated && s.failNext
	s.mu.Unlock()

	if gated {
		s.entered <- snap.ID
		<-s.release
	}
	if fail {
		return errors.New("metadata disk stalled")
	}

	return s.MemoryStore.Save(ctx, snap)
}

// slowGetStore задерживает Get до release и, как сетевое хранилище, уважает отмену ctx.
type slowGetStore struct {
	*meta.MemoryStore

	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func newSlowGetStore(base *meta.MemoryStore) *slowGetStore {
	return &slowGetStore{
		MemoryStore: base,
		entered:     make(chan struct{}),
		release:     make(chan struct{}),
	}
}

func (s *slowGetStore) Get(ctx context.Context, id string) (models.Snapshot, error) {
	s.once.Do(func() { close(s.entered) })
	<-s.release
	if err := ctx.Err(); err != nil {
		return models.Snapshot{}, err
	}

	return s.MemoryStore.Get(ctx, id)
}
