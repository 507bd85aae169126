package meta

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

// Delete удаляет снапшот; отсутствие строки ошибкой не считается.
func (s *PGStore) Delete(ctx context.Context, id string) error {
	sqlStr, args, err := psql.
		Delete(snapshotsTable).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete sql: %w", err)
	}

	if _, err := s.pool.Exec(ctx, sqlStr, args...); err != nil {
		return fmt.Errorf("exec delete: %w", err)
	}

	return nil
}
