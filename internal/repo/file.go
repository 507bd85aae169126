package meta

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sir_venger/upload_lite/internal/models"
)

// MetaFileName — имя файла снапшота внутри каталога загрузки.
const MetaFileName = "meta.json"

// FileStore хранит снапшоты как <root>/<uploadID>/meta.json рядом с файлом загрузки.
type FileStore struct {
	root string
}

// NewFileStore создаёт файловое хранилище поверх каталога root.
func NewFileStore(root string) (*FileStore, error) {
	if strings.TrimSpace(root) == "" {
		return nil, fmt.Errorf("meta root is empty")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}

	return &FileStore{root: root}, nil
}

// Path возвращает путь до meta.json загрузки.
func (s *FileStore) Path(id string) string {
	return filepath.Join(s.root, id, MetaFileName)
}

// Get читает снапшот с диска.
func (s *FileStore) Get(_ context.Context, id string) (models.Snapshot, error) {
	if !validID(id) {
		return models.Snapshot{}, models.ErrNotFound
	}

	b, err := os.ReadFile(s.Path(id))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return models.Snapshot{}, models.ErrNotFound
		}
		return models.Snapshot{}, err
	}

	var snap models.Snapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return models.Snapshot{}, fmt.Errorf("decode %s: %w", id, err)
	}
	if snap.ID == "" {
		snap.ID = id
	}

	return snap, nil
}

// Save перезаписывает meta.json целиком: пишем во временный файл и делаем rename,
// чтобы после падения на диске был либо старый, либо новый снапшот.
func (s *FileStore) Save(_ context.Context, snap models.Snapshot) error {
	if !validID(snap.ID) {
		return fmt.Errorf("invalid upload id %q", snap.ID)
	}
	if snap.ReceivedChunks == nil {
		snap.ReceivedChunks = []int{}
	}

	b, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Join(s.root, snap.ID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, MetaFileName+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err = tmp.Write(b); err == nil {
		err = tmp.Sync()
	}
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err == nil {
		err = os.Rename(tmpName, s.Path(snap.ID))
	}
	if err != nil {
		_ = os.Remove(tmpName)
		return err
	}

	return nil
}

// Delete удаляет meta.json и каталог, если он опустел.
func (s *FileStore) Delete(_ context.Context, id string) error {
	if !validID(id) {
		return nil
	}

	if err := os.Remove(s.Path(id)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	// Каталог может быть не пуст (в нём файл загрузки) — это нормально.
	_ = os.Remove(filepath.Join(s.root, id))

	return nil
}

// validID не даёт id выйти за пределы каталога хранилища.
func validID(id string) bool {
	return id != "" && id != "." && id != ".." && !strings.ContainsAny(id, `/\`)
}
