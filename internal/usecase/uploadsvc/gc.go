package uploadsvc

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/sir_venger/upload_lite/internal/models"
)

// Sweep удаляет брошенные загрузки старше ttl:
//   - каталоги без снапшота (остатки неудачного create);
//   - незавершённые загрузки, в файл которых давно никто не писал.
//
// Возвращает число удалённых загрузок.
func (m *Manager) Sweep(ctx context.Context, ttl time.Duration) (int, error) {
	now := time.Now()
	entries, err := os.ReadDir(m.DataDir)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, e := range entries {
		if ctx.Err() != nil {
			return removed, ctx.Err()
		}
		if !e.IsDir() || !canonicalID(e.Name()) {
			continue
		}

		id := e.Name()
		dir := filepath.Join(m.DataDir, id)
		fi, err := lastModified(dir)
		if err != nil || now.Sub(fi) < ttl {
			continue
		}

		snap, err := m.Store.Get(ctx, id)
		switch {
		case errors.Is(err, models.ErrNotFound):
			if m.registry.inflight(id) {
				continue
			}
			if err := os.RemoveAll(dir); err != nil {
				m.Logger.Warn("gc: remove orphan dir", zap.String("upload_id", id), zap.Error(err))
				continue
			}
			removed++
		case err != nil:
			m.Logger.Warn("gc: read snapshot", zap.String("upload_id", id), zap.Error(err))
		case !snap.Completed && !m.registry.inflight(id):
			m.Abort(ctx, id)
			removed++
		}
	}

	return removed, nil
}

// StartGC стартует периодическую очистку каталога данных.
func (m *Manager) StartGC(ttl time.Duration, every time.Duration) func() {
	if every <= 0 || ttl <= 0 {
		return func() {}
	}

	ticker := time.NewTicker(every)
	stop := make(chan struct{})
	var once sync.Once
	go func() {
		for {
			select {
			case <-ticker.C:
				n, err := m.Sweep(context.Background(), ttl)
				if err != nil {
					m.Logger.Warn("gc sweep failed", zap.Error(err))
				} else if n > 0 {
					m.Logger.Info("gc sweep", zap.Int("removed", n))
				}
			case <-stop:
				ticker.Stop()
				return
			}
		}
	}()

	return func() {
		once.Do(func() {
			close(stop)
		})
	}
}

// lastModified — самое позднее время изменения каталога и файлов в нём.
func lastModified(dir string) (time.Time, error) {
	fi, err := os.Stat(dir)
	if err != nil {
		return time.Time{}, err
	}
	latest := fi.ModTime()

	entries, err := os.ReadDir(dir)
	if err != nil {
		return latest, nil
	}
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(latest) {
			latest = info.ModTime()
		}
	}

	return latest, nil
}
