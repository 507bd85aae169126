package uploadsvc

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/sir_venger/upload_lite/internal/bitmap"
	"github.com/sir_venger/upload_lite/internal/metrics"
	"github.com/sir_venger/upload_lite/internal/models"
)

// blobFileName — имя файла с данными внутри каталога загрузки.
const blobFileName = "blob"

// Registry владеет всеми дескрипторами загрузок. Снапшоты в хранилище — источник истины,
// а память — write-back кэш, который лениво поднимается из снапшотов.
type Registry struct {
	mu      sync.Mutex
	uploads map[string]*models.Upload
	pending map[string]map[int]struct{} // индексы чанков, которые пишутся прямо сейчас

	loads     singleflight.Group
	store     SnapshotStore
	dataDir   string
	persister *Persister
	log       *zap.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

func newRegistry(store SnapshotStore, dataDir string, log *zap.Logger, m *metrics.Metrics) *Registry {
	return &Registry{
		uploads: map[string]*models.Upload{},
		pending: map[string]map[int]struct{}{},
		store:   store,
		dataDir: dataDir,
		log:     log,
		metrics: m,
		now:     time.Now,
	}
}

// uploadDir — каталог загрузки, в нём лежит blob (и meta.json при файловом хранилище).
func (r *Registry) uploadDir(id string) string {
	return filepath.Join(r.dataDir, id)
}

// GetOrLoad возвращает дескриптор из памяти либо восстанавливает его из снапшота.
func (r *Registry) GetOrLoad(ctx context.Context, id string) (*models.Upload, error) {
	if !canonicalID(id) {
		return nil, models.ErrNotFound
	}

	r.mu.Lock()
	u, ok := r.uploads[id]
	r.mu.Unlock()
	if ok {
		return u, nil
	}

	// Параллельные холодные обращения к одному id читают снапшот один раз.
	// Отмена запроса первого вызвавшего не должна ронять остальных ожидающих.
	loadCtx := context.WithoutCancel(ctx)
	v, err, _ := r.loads.Do(id, func() (any, error) {
		snap, err := r.store.Get(loadCtx, id)
		if err != nil {
			if errors.Is(err, models.ErrNotFound) {
				return nil, models.ErrNotFound
			}
			return nil, fmt.Errorf("%w: load snapshot %s: %w", models.ErrIO, id, err)
		}

		loaded, err := snap.Restore()
		if err != nil {
			return nil, fmt.Errorf("%w: restore snapshot %s: %w", models.ErrIO, id, err)
		}

		r.mu.Lock()
		defer r.mu.Unlock()
		if existing, ok := r.uploads[id]; ok {
			return existing, nil
		}
		r.uploads[id] = loaded
		r.metrics.SetActive(len(r.uploads))

		r.log.Debug("upload restored from snapshot",
			zap.String("upload_id", id),
			zap.Int("received", loaded.Received.Count()),
			zap.Int("total_chunks", loaded.TotalChunks()))

		return loaded, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*models.Upload), nil
}

// Create выделяет файл назначения ровно на totalSize байт и синхронно пишет первый снапшот.
// При ошибке запись в реестре не появляется; уже созданные артефакты подберёт Sweep.
func (r *Registry) Create(ctx context.Context, filename string, totalSize, chunkSize int64) (*models.Upload, error) {
	id := uuid.NewString()
	dir := r.uploadDir(id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: create upload dir: %w", models.ErrIO, err)
	}

	dest := filepath.Join(dir, blobFileName)
	if err := preallocate(dest, totalSize); err != nil {
		return nil, fmt.Errorf("%w: allocate destination: %w", models.ErrIO, err)
	}

	u := &models.Upload{
		ID:              id,
		Filename:        filename,
		TotalSize:       totalSize,
		ChunkSize:       chunkSize,
		CreatedAt:       r.now().UTC(),
		DestinationPath: dest,
		Received:        bitmap.New(models.TotalChunks(totalSize, chunkSize)),
	}

	// Не через persister: id должен быть обнаружим до того, как его увидит клиент.
	if err := r.store.Save(ctx, u.Snapshot()); err != nil {
		return nil, fmt.Errorf("%w: write initial snapshot: %w", models.ErrIO, err)
	}

	r.mu.Lock()
	r.uploads[id] = u
	r.metrics.SetActive(len(r.uploads))
	r.mu.Unlock()

	return u, nil
}

// Abort удаляет файл, снапшот и всё состояние загрузки. Ошибки только логируются.
func (r *Registry) Abort(ctx context.Context, id string) {
	if !canonicalID(id) {
		return
	}

	r.mu.Lock()
	u := r.uploads[id]
	delete(r.uploads, id)
	delete(r.pending, id)
	r.metrics.SetActive(len(r.uploads))
	r.mu.Unlock()

	// Дожидаемся текущего сброса, иначе он может воскресить удалённый снапшот.
	if r.persister != nil {
		r.persister.Forget(id)
	}

	if u != nil && u.DestinationPath != "" {
		if err := os.Remove(u.DestinationPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			r.log.Warn("abort: remove destination", zap.String("upload_id", id), zap.Error(err))
		}
	}
	if err := os.RemoveAll(r.uploadDir(id)); err != nil {
		r.log.Warn("abort: remove upload dir", zap.String("upload_id", id), zap.Error(err))
	}
	if err := r.store.Delete(ctx, id); err != nil {
		r.log.Warn("abort: delete snapshot", zap.String("upload_id", id), zap.Error(err))
	}
}

// beginWrite занимает индекс чанка. Возвращает true, если чанк уже получен.
func (r *Registry) beginWrite(id string, idx int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.uploads[id]
	if !ok {
		return false, models.ErrNotFound
	}
	if u.Received.Has(idx) {
		return true, nil
	}

	inflight := r.pending[id]
	if inflight == nil {
		inflight = map[int]struct{}{}
		r.pending[id] = inflight
	}
	if _, busy := inflight[idx]; busy {
		return false, fmt.Errorf("%w: chunk %d", models.ErrConflict, idx)
	}
	inflight[idx] = struct{}{}

	return false, nil
}

// endWrite освобождает индекс чанка. Должен вызываться на любом пути выхода после beginWrite.
func (r *Registry) endWrite(id string, idx int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	inflight := r.pending[id]
	delete(inflight, idx)
	if len(inflight) == 0 {
		delete(r.pending, id)
	}
}

// markReceived ставит бит чанка. ErrNotFound — загрузку успели отменить.
func (r *Registry) markReceived(id string, idx int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.uploads[id]
	if !ok {
		return models.ErrNotFound
	}

	return u.Received.Set(idx)
}

// snapshot снимает копию дескриптора для persister. false — загрузки больше нет.
func (r *Registry) snapshot(id string) (models.Snapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.uploads[id]
	if !ok {
		return models.Snapshot{}, false
	}

	return u.Snapshot(), true
}

// inflight сообщает, пишется ли сейчас хоть один чанк загрузки.
func (r *Registry) inflight(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.pending[id]) > 0
}

// preallocate создаёт (разреженный) файл итогового размера, чтобы позиционные записи не растягивали его.
func preallocate(path string, size int64) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}

	if err = f.Truncate(size); err != nil {
		_ = f.Close()
		return err
	}

	return f.Close()
}

// canonicalID пропускает только uuid в канонической форме: id используется как имя каталога.
func canonicalID(id string) bool {
	parsed, err := uuid.Parse(id)
	return err == nil && parsed.String() == id
}
