// Package uploadsvc — менеджер возобновляемых загрузок: учёт полученных чанков,
// сериализация записи по индексу чанка, отложенное сохранение снапшотов и жизненный цикл загрузки.
package uploadsvc

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/sir_venger/upload_lite/internal/metrics"
	"github.com/sir_venger/upload_lite/internal/models"
)

type (
	// SnapshotStore хранилище снапшотов загрузок.
	SnapshotStore interface {
		Get(ctx context.Context, id string) (models.Snapshot, error)
		Save(ctx context.Context, snap models.Snapshot) error
		Delete(ctx context.Context, id string) error
	}

	// Service — транспортно-независимый контракт для HTTP-слоя.
	Service interface {
		CreateUpload(ctx context.Context, filename string, totalSize, chunkSize int64) (models.CreateResult, error)
		WriteChunk(ctx context.Context, id string, offset, length int64, src io.Reader) (models.ChunkResult, error)
		Status(ctx context.Context, id string) (models.Status, error)
		MissingChunks(ctx context.Context, id string) ([]int, error)
		Complete(ctx context.Context, id string) error
		OpenContent(ctx context.Context, id string) (*os.File, models.Status, error)
		Abort(ctx context.Context, id string)
		ShutdownFlush(ctx context.Context) error
		Sweep(ctx context.Context, ttl time.Duration) (int, error)
	}
)

type Deps struct {
	Store            SnapshotStore
	DataDir          string
	DefaultChunkSize int64
	MaxChunkSize     int64
	FlushDelay       time.Duration
	FlushWorkers     int
	Logger           *zap.Logger
	Metrics          *metrics.Metrics
}

type Manager struct {
	Deps
	registry  *Registry
	persister *Persister
}

var _ Service = (*Manager)(nil)

// New конструирует менеджер загрузок с заданными зависимостями.
func New(deps Deps) (*Manager, error) {
	if deps.Store == nil {
		return nil, fmt.Errorf("snapshot store is required")
	}
	if deps.DataDir == "" {
		return nil, fmt.Errorf("data dir is required")
	}
	if deps.DefaultChunkSize <= 0 {
		return nil, fmt.Errorf("default chunk size must be > 0")
	}
	if deps.MaxChunkSize < deps.DefaultChunkSize {
		deps.MaxChunkSize = deps.DefaultChunkSize
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if err := os.MkdirAll(deps.DataDir, 0o755); err != nil {
		return nil, err
	}

	reg := newRegistry(deps.Store, deps.DataDir, deps.Logger, deps.Metrics)
	p := newPersister(reg.snapshot, deps.Store, deps.FlushDelay, deps.FlushWorkers, deps.Logger, deps.Metrics)
	reg.persister = p

	return &Manager{
		Deps:      deps,
		registry:  reg,
		persister: p,
	}, nil
}

// CreateUpload заводит новую загрузку и возвращает её id и фактический размер чанка.
func (m *Manager) CreateUpload(ctx context.Context, filename string, totalSize, chunkSize int64) (models.CreateResult, error) {
	if totalSize <= 0 {
		return models.CreateResult{}, fmt.Errorf("%w: total size must be > 0", models.ErrInvalidArgument)
	}

	u, err := m.registry.Create(ctx, sanitizeFilename(filename), totalSize, m.effectiveChunkSize(chunkSize))
	if err != nil {
		return models.CreateResult{}, err
	}

	m.Logger.Info("upload created",
		zap.String("upload_id", u.ID),
		zap.String("file_name", u.Filename),
		zap.Int64("total_size", u.TotalSize),
		zap.Int64("chunk_size", u.ChunkSize))

	return models.CreateResult{
		ID:          u.ID,
		ChunkSize:   u.ChunkSize,
		TotalChunks: u.TotalChunks(),
	}, nil
}

// ShutdownFlush синхронно сохраняет все несохранённые снапшоты. Вызывается один раз при остановке.
func (m *Manager) ShutdownFlush(ctx context.Context) error {
	return m.persister.FlushAll(ctx)
}

func (m *Manager) effectiveChunkSize(requested int64) int64 {
	switch {
	case requested <= 0:
		return m.DefaultChunkSize
	case requested > m.MaxChunkSize:
		return m.MaxChunkSize
	default:
		return requested
	}
}
