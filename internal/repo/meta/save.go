package meta

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sir_venger/upload_lite/internal/models"
)

// Save записывает (или полностью перезаписывает) снапшот загрузки.
func (s *PGStore) Save(ctx context.Context, snap models.Snapshot) error {
	if snap.ReceivedChunks == nil {
		snap.ReceivedChunks = []int{}
	}

	receivedJSON, err := json.Marshal(snap.ReceivedChunks)
	if err != nil {
		return fmt.Errorf("marshal received chunks: %w", err)
	}

	sqlStr, args, err := psql.
		Insert(snapshotsTable).
		Columns("id", "file_name", "total_size", "chunk_size", "created_at", "received_chunks", "destination_path", "completed").
		Values(snap.ID, snap.Filename, snap.TotalSize, snap.ChunkSize, snap.CreatedAt, receivedJSON, snap.DestinationPath, snap.Completed).
		Suffix(`
					ON CONFLICT (id) DO UPDATE
					SET file_name        = EXCLUDED.file_name,
						total_size       = EXCLUDED.total_size,
						chunk_size       = EXCLUDED.chunk_size,
						received_chunks  = EXCLUDED.received_chunks,
						destination_path = EXCLUDED.destination_path,
						completed        = EXCLUDED.completed`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build upsert sql: %w", err)
	}

	// Выполнение UPSERT'а
	if _, err := s.pool.Exec(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("exec upsert: %w", err)
	}

	return nil
}
