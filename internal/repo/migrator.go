package meta

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"
)

const (
	migrationsDir  = "migrations"
	versionTable   = "upload_lite_goose_version"
	migrateDialect = "postgres"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// gooseLogger пишет вывод goose в zap.
type gooseLogger struct {
	s *zap.SugaredLogger
}

func (l gooseLogger) Printf(format string, v ...any) {
	l.s.Infof(strings.TrimSpace(format), v...)
}

func (l gooseLogger) Fatalf(format string, v ...any) {
	l.s.Fatalf(strings.TrimSpace(format), v...)
}

func (l gooseLogger) Print(v ...any)   { l.s.Info(v...) }
func (l gooseLogger) Println(v ...any) { l.s.Info(v...) }
func (l gooseLogger) Fatal(v ...any)   { l.s.Fatal(v...) }

// ApplyMigrations накатывает встроенные SQL-миграции таблицы снапшотов.
func ApplyMigrations(ctx context.Context, dsn string, log *zap.Logger) error {
	if strings.TrimSpace(dsn) == "" {
		return fmt.Errorf("meta dsn is empty")
	}
	if log == nil {
		log = zap.NewNop()
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping db: %w", err)
	}

	goose.SetBaseFS(migrationFiles)
	goose.SetLogger(gooseLogger{s: log.Sugar()})
	goose.SetTableName(versionTable)
	if err := goose.SetDialect(migrateDialect); err != nil {
		return err
	}

	if err := goose.Up(db, migrationsDir); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}

	version, err := goose.GetDBVersion(db)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	log.Info("snapshot schema ready", zap.Int64("version", version))

	return nil
}
