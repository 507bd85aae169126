package uploadsvc

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sir_venger/upload_lite/internal/metrics"
	"github.com/sir_venger/upload_lite/internal/models"
)

// Persister копит "грязные" id и сбрасывает их снапшоты пачкой через delay после первой мутации.
// Одна пачка за раз: параллельная запись снапшота одного id не поддерживается.
type Persister struct {
	mu     sync.Mutex
	dirty  map[string]struct{}
	timer  *time.Timer
	seq    uint64 // номер текущего взведённого таймера
	closed bool   // после FlushAll таймер больше не взводится

	// flushMu сериализует пачки; порядок захвата: flushMu, затем mu.
	flushMu sync.Mutex

	source  func(id string) (models.Snapshot, bool)
	store   SnapshotStore
	delay   time.Duration
	workers int
	log     *zap.Logger
	metrics *metrics.Metrics
}

func newPersister(
	source func(id string) (models.Snapshot, bool),
	store SnapshotStore,
	delay time.Duration,
	workers int,
	log *zap.Logger,
	m *metrics.Metrics,
) *Persister {
	if workers <= 0 {
		workers = 1
	}

	return &Persister{
		dirty:   map[string]struct{}{},
		source:  source,
		store:   store,
		delay:   delay,
		workers: workers,
		log:     log,
		metrics: m,
	}
}

// MarkDirty помечает id и, если таймер не взведён, взводит его.
func (p *Persister) MarkDirty(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.dirty[id] = struct{}{}
	p.armLocked()
}

// armLocked взводит таймер, если он не взведён и persister не закрыт.
func (p *Persister) armLocked() {
	if p.timer != nil || p.closed {
		return
	}

	p.seq++
	seq := p.seq
	p.timer = time.AfterFunc(p.delay, func() { p.fire(seq) })
}

// Dirty возвращает количество id, ожидающих сброса.
func (p *Persister) Dirty() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.dirty)
}

// FlushAll отменяет таймер, дожидается идущей пачки и синхронно сбрасывает всё грязное.
// После вызова таймер больше не взводится. Ошибки по id объединяются.
func (p *Persister) FlushAll(ctx context.Context) error {
	p.mu.Lock()
	p.closed = true
	if p.timer != nil {
		p.timer.Stop()
		p.timer = nil
	}
	p.mu.Unlock()

	// Пачка таймера могла уже забрать id и ещё писать их: ждём её.
	p.flushMu.Lock()
	defer p.flushMu.Unlock()

	p.mu.Lock()
	ids := p.takeDirtyLocked()
	p.mu.Unlock()

	_, err := p.flushLocked(ctx, ids)
	return err
}

// Forget убирает id из очереди. Возвращается только после завершения текущей пачки.
func (p *Persister) Forget(id string) {
	p.flushMu.Lock()
	defer p.flushMu.Unlock()

	p.mu.Lock()
	delete(p.dirty, id)
	p.mu.Unlock()
}

func (p *Persister) fire(seq uint64) {
	p.flushMu.Lock()
	defer p.flushMu.Unlock()

	p.mu.Lock()
	// Таймер отменён FlushAll или уже заменён новым.
	if p.timer == nil || p.seq != seq {
		p.mu.Unlock()
		return
	}
	p.timer = nil
	ids := p.takeDirtyLocked()
	p.mu.Unlock()

	failed, _ := p.flushLocked(context.Background(), ids)
	if len(failed) == 0 {
		return
	}

	// Неудачные id возвращаем в очередь до отпускания flushMu, чтобы их подобрал FlushAll.
	// Новый таймер взводится, только пока persister не закрыт.
	p.mu.Lock()
	for _, id := range failed {
		p.dirty[id] = struct{}{}
	}
	p.armLocked()
	p.mu.Unlock()
}

func (p *Persister) takeDirtyLocked() []string {
	ids := make([]string, 0, len(p.dirty))
	for id := range p.dirty {
		ids = append(ids, id)
	}
	clear(p.dirty)

	return ids
}

// flushLocked пишет полный снапшот каждого id. Ошибка одного id не прерывает пачку.
// Вызывается под flushMu.
func (p *Persister) flushLocked(ctx context.Context, ids []string) ([]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	var (
		mu     sync.Mutex
		failed []string
		errs   []error
	)

	var eg errgroup.Group
	eg.SetLimit(p.workers)
	for _, id := range ids {
		id := id
		eg.Go(func() error {
			snap, ok := p.source(id)
			if !ok {
				// Загрузку отменили, пока она ждала сброса.
				return nil
			}

			err := p.store.Save(ctx, snap)
			p.metrics.Flush(err)
			if err != nil {
				p.log.Error("snapshot flush failed", zap.String("upload_id", id), zap.Error(err))
				mu.Lock()
				failed = append(failed, id)
				errs = append(errs, fmt.Errorf("flush %s: %w", id, err))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = eg.Wait()

	return failed, errors.Join(errs...)
}
