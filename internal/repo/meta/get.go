package meta

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/sir_venger/upload_lite/internal/models"
)

// Get возвращает снапшот загрузки по её идентификатору.
func (s *PGStore) Get(ctx context.Context, id string) (models.Snapshot, error) {
	if strings.TrimSpace(id) == "" {
		return models.Snapshot{}, models.ErrNotFound
	}

	sqlStr, args, err := psql.
		Select(
			"file_name",
			"total_size",
			"chunk_size",
			"created_at",
			"COALESCE(received_chunks, '[]'::jsonb) AS received_chunks",
			"destination_path",
			"completed",
		).
		From(snapshotsTable).
		Where(sq.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return models.Snapshot{}, fmt.Errorf("build select: %w", err)
	}

	var (
		name        string
		totalSize   int64
		chunkSize   int64
		createdAt   time.Time
		receivedRaw []byte
		destination string
		completed   bool
	)

	err = s.pool.QueryRow(ctx, sqlStr, args...).
		Scan(&name, &totalSize, &chunkSize, &createdAt, &receivedRaw, &destination, &completed)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Snapshot{}, models.ErrNotFound
		}
		return models.Snapshot{}, fmt.Errorf("scan snapshot row: %w", err)
	}

	var received []int
	if err := json.Unmarshal(receivedRaw, &received); err != nil {
		return models.Snapshot{}, fmt.Errorf("unmarshal received chunks: %w", err)
	}
	if received == nil {
		received = []int{}
	}

	return models.Snapshot{
		ID:              id,
		Filename:        name,
		TotalSize:       totalSize,
		ChunkSize:       chunkSize,
		CreatedAt:       createdAt,
		ReceivedChunks:  received,
		DestinationPath: destination,
		Completed:       completed,
	}, nil
}
