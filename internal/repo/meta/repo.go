// Package meta — Postgres-бэкенд снапшотов загрузок (pgx + squirrel).
package meta

import (
	"context"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	snapshotsTable = "upload_snapshots"
	// Сбросы идут пачками по flush_workers, больше соединений не нужно.
	maxPoolConns = 8
)

// psql — билдер запросов с плейсхолдерами $N.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// PGStore хранит по строке на загрузку; snapshot перезаписывается целиком.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore открывает пул и проверяет соединение. Таблицу создаёт cmd/migrate.
func NewPGStore(ctx context.Context, dsn string) (*PGStore, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("meta dsn is empty")
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse meta dsn: %w", err)
	}
	if cfg.MaxConns > maxPoolConns {
		cfg.MaxConns = maxPoolConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &PGStore{pool: pool}, nil
}

// Close освобождает подключения пула.
func (s *PGStore) Close() {
	s.pool.Close()
}
