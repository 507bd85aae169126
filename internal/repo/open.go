package meta

import (
	"context"
	"fmt"
	"strings"

	"github.com/sir_venger/upload_lite/internal/models"
	pg "github.com/sir_venger/upload_lite/internal/repo/meta"
)

// Store — общий контракт всех бэкендов снапшотов.
type Store interface {
	Get(ctx context.Context, id string) (models.Snapshot, error)
	Save(ctx context.Context, snap models.Snapshot) error
	Delete(ctx context.Context, id string) error
}

// Open выбирает бэкенд по DSN: memory://, file://<dir> или postgres://.
// Возвращаемая функция освобождает ресурсы бэкенда.
func Open(ctx context.Context, dsn string) (Store, func(), error) {
	dsn = strings.TrimSpace(dsn)
	switch {
	case dsn == "":
		return nil, nil, fmt.Errorf("meta dsn is empty")
	case strings.HasPrefix(dsn, "memory://"):
		return NewMemoryStore(), func() {}, nil
	case strings.HasPrefix(dsn, "file://"):
		s, err := NewFileStore(strings.TrimPrefix(dsn, "file://"))
		if err != nil {
			return nil, nil, err
		}
		return s, func() {}, nil
	case strings.HasPrefix(dsn, "postgres://"), strings.HasPrefix(dsn, "postgresql://"):
		s, err := pg.NewPGStore(ctx, dsn)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		return nil, nil, fmt.Errorf("unsupported meta dsn %q", dsn)
	}
}
