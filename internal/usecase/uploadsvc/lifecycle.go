package uploadsvc

import (
	"context"
	"errors"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/sir_venger/upload_lite/internal/models"
)

// Status возвращает состояние загрузки: сколько чанков всего и какие уже получены.
func (m *Manager) Status(ctx context.Context, id string) (models.Status, error) {
	u, err := m.registry.GetOrLoad(ctx, id)
	if err != nil {
		return models.Status{}, err
	}

	m.registry.mu.Lock()
	defer m.registry.mu.Unlock()

	received := u.Received.Indices()
	return models.Status{
		ID:             u.ID,
		Filename:       u.Filename,
		TotalSize:      u.TotalSize,
		ChunkSize:      u.ChunkSize,
		TotalChunks:    u.TotalChunks(),
		ReceivedChunks: received,
		ReceivedCount:  len(received),
		Completed:      u.Completed,
	}, nil
}

// MissingChunks возвращает индексы, которых ещё нет, по возрастанию.
func (m *Manager) MissingChunks(ctx context.Context, id string) ([]int, error) {
	u, err := m.registry.GetOrLoad(ctx, id)
	if err != nil {
		return nil, err
	}

	m.registry.mu.Lock()
	defer m.registry.mu.Unlock()

	return u.Received.Missing(), nil
}

// Complete помечает загрузку завершённой. Содержимое не проверяется — только наличие всех чанков.
func (m *Manager) Complete(ctx context.Context, id string) error {
	u, err := m.registry.GetOrLoad(ctx, id)
	if err != nil {
		return err
	}

	m.registry.mu.Lock()
	if missing := u.Received.Missing(); len(missing) > 0 {
		m.registry.mu.Unlock()
		return &models.IncompleteError{Missing: missing}
	}
	already := u.Completed
	u.Completed = true
	m.registry.mu.Unlock()

	if already {
		return nil
	}

	m.persister.MarkDirty(id)
	m.Logger.Info("upload completed", zap.String("upload_id", id), zap.String("file_name", u.Filename))

	return nil
}

// Abort отменяет загрузку. Всегда успешен: ошибки удаления только логируются.
func (m *Manager) Abort(ctx context.Context, id string) {
	m.registry.Abort(ctx, id)
	m.Logger.Info("upload aborted", zap.String("upload_id", id))
}

// OpenContent открывает файл завершённой загрузки на чтение. Незавершённая — ErrIncomplete.
func (m *Manager) OpenContent(ctx context.Context, id string) (*os.File, models.Status, error) {
	st, err := m.Status(ctx, id)
	if err != nil {
		return nil, models.Status{}, err
	}
	if !st.Completed {
		missing, _ := m.MissingChunks(ctx, id)
		return nil, models.Status{}, &models.IncompleteError{Missing: missing}
	}

	u, err := m.registry.GetOrLoad(ctx, id)
	if err != nil {
		return nil, models.Status{}, err
	}

	f, err := os.Open(u.DestinationPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, models.Status{}, models.ErrNotFound
		}
		return nil, models.Status{}, fmt.Errorf("%w: open content: %w", models.ErrIO, err)
	}

	return f, st, nil
}
