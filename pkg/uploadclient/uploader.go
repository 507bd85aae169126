package uploadclient

import (
	"context"
	"errors"
	"fmt"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/sir_venger/upload_lite/pkg/uploadproto"
)

const (
	defaultParallel = 4
	maxPasses       = 3
)

// FileUpload описывает отправку файла целиком.
type FileUpload struct {
	// UploadID — продолжить существующую загрузку; пусто — завести новую.
	UploadID  string
	FileName  string
	Size      int64
	ChunkSize int64
	Source    io.ReaderAt
	Parallel  int
}

// Upload отправляет недостающие чанки параллельно и завершает загрузку.
// Чанки, отклонённые с повторяемой ошибкой, досылаются в следующем проходе.
func Upload(ctx context.Context, c Client, fu FileUpload) (string, error) {
	if fu.Source == nil {
		return "", fmt.Errorf("source is required")
	}
	if fu.Parallel <= 0 {
		fu.Parallel = defaultParallel
	}

	id, chunk, total, err := prepare(ctx, c, fu)
	if err != nil {
		return "", err
	}

	for pass := 0; pass < maxPasses; pass++ {
		missing, err := c.Missing(ctx, id)
		if err != nil {
			return id, err
		}
		if len(missing) == 0 {
			break
		}

		if err := sendChunks(ctx, c, fu, id, chunk, total, missing); err != nil {
			return id, err
		}
	}

	if err := c.Complete(ctx, id); err != nil {
		return id, err
	}

	return id, nil
}

// prepare заводит загрузку либо читает параметры существующей.
func prepare(ctx context.Context, c Client, fu FileUpload) (string, int64, int, error) {
	if fu.UploadID == "" {
		created, err := c.Create(ctx, uploadproto.CreateRequest{
			FileName:  fu.FileName,
			TotalSize: fu.Size,
			ChunkSize: fu.ChunkSize,
		})
		if err != nil {
			return "", 0, 0, err
		}
		return created.UploadID, created.ChunkSize, created.TotalChunks, nil
	}

	st, err := c.Status(ctx, fu.UploadID)
	if err != nil {
		return "", 0, 0, err
	}
	if st.TotalSize != fu.Size {
		return "", 0, 0, fmt.Errorf("upload %s expects %d bytes, source has %d", fu.UploadID, st.TotalSize, fu.Size)
	}

	return st.UploadID, st.ChunkSize, st.TotalChunks, nil
}

func sendChunks(ctx context.Context, c Client, fu FileUpload, id string, chunk int64, total int, indices []int) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fu.Parallel)

	for _, idx := range indices {
		g.Go(func() error {
			size := chunkSize(fu.Size, chunk, idx)
			off := offsetOf(chunk, idx)
			_, err := c.PutChunk(gctx, PutChunkRequest{
				UploadID:    id,
				Index:       idx,
				Offset:      off,
				Reader:      io.NewSectionReader(fu.Source, off, size),
				Size:        size,
				TotalChunks: total,
			})
			var se *StatusError
			if errors.As(err, &se) && se.Retryable() {
				// Следующий проход пошлёт чанк ещё раз.
				return nil
			}
			if err != nil {
				return fmt.Errorf("chunk %d: %w", idx, err)
			}
			return nil
		})
	}

	return g.Wait()
}
