package uploadsvc

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/sir_venger/upload_lite/internal/metrics"
	"github.com/sir_venger/upload_lite/internal/models"
)

// WriteChunk пишет чанк по смещению offset прямо в файл назначения.
// Повторная доставка уже полученного чанка безопасна: данные выбрасываются, файл не трогается.
// Внутренних повторов нет: src к этому моменту обычно уже вычитан, переотправка — задача клиента.
func (m *Manager) WriteChunk(ctx context.Context, id string, offset, length int64, src io.Reader) (models.ChunkResult, error) {
	u, err := m.registry.GetOrLoad(ctx, id)
	if err != nil {
		return models.ChunkResult{}, err
	}

	idx, err := chunkIndex(u, offset, length)
	if err != nil {
		m.Metrics.ChunkWrite(metrics.ResultRejected, 0)
		return models.ChunkResult{}, err
	}

	received, err := m.registry.beginWrite(id, idx)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			m.Metrics.ChunkWrite(metrics.ResultConflict, 0)
		}
		return models.ChunkResult{}, err
	}
	if received {
		_, _ = io.Copy(io.Discard, io.LimitReader(src, length))
		m.Metrics.ChunkWrite(metrics.ResultDuplicate, 0)
		return models.ChunkResult{AlreadyReceived: true}, nil
	}
	defer m.registry.endWrite(id, idx)

	n, err := writeAt(ctx, u.DestinationPath, offset, length, src)
	if err != nil {
		err = classify(err)
		m.logWriteFailure(id, idx, err)
		return models.ChunkResult{}, err
	}

	if err := m.registry.markReceived(id, idx); err != nil {
		// Загрузку отменили во время записи.
		return models.ChunkResult{}, err
	}
	m.persister.MarkDirty(id)
	m.Metrics.ChunkWrite(metrics.ResultWritten, n)

	return models.ChunkResult{BytesWritten: n}, nil
}

// chunkIndex проверяет, что диапазон ровно совпадает с одним чанком загрузки.
func chunkIndex(u *models.Upload, offset, length int64) (int, error) {
	if offset < 0 || offset >= u.TotalSize || offset%u.ChunkSize != 0 {
		return 0, fmt.Errorf("%w: offset %d is not a chunk boundary of a %d-byte upload", models.ErrInvalidRange, offset, u.TotalSize)
	}

	idx := int(offset / u.ChunkSize)
	if want := u.ChunkLength(idx); length != want {
		return 0, fmt.Errorf("%w: chunk %d must be %d bytes, got %d", models.ErrInvalidRange, idx, want, length)
	}

	return idx, nil
}

// writeAt копирует ровно length байт из src в path начиная с offset. Файл не создаётся:
// если его удалил abort, запись должна упасть, а не оставить сироту.
func writeAt(ctx context.Context, path string, offset, length int64, src io.Reader) (int64, error) {
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, models.ErrNotFound
		}
		return 0, err
	}

	n, err := io.CopyN(io.NewOffsetWriter(f, offset), ctxReader{ctx: ctx, r: src}, length)
	if errors.Is(err, io.EOF) {
		err = io.ErrUnexpectedEOF
	}
	if err == nil {
		err = f.Sync()
	}
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}

	return n, err
}

func (m *Manager) logWriteFailure(id string, idx int, err error) {
	fields := []zap.Field{zap.String("upload_id", id), zap.Int("chunk", idx), zap.Error(err)}
	switch {
	case errors.Is(err, models.ErrTransient):
		m.Metrics.ChunkWrite(metrics.ResultTransient, 0)
		m.Logger.Warn("chunk write interrupted", fields...)
	case errors.Is(err, models.ErrFatalIO):
		m.Metrics.ChunkWrite(metrics.ResultFatal, 0)
		m.Logger.Error("chunk write failed", fields...)
	}
}

// ctxReader прекращает чтение, как только контекст запроса отменён.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
