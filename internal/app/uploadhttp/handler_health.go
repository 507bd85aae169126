package uploadhttp

import (
	"errors"
	"io/fs"
	"net/http"
	"path/filepath"
)

// healthStats — payload ответа /health.
type healthStats struct {
	OK         bool  `json:"ok"`
	FreeBytes  int64 `json:"free_bytes"`
	TotalBytes int64 `json:"total_bytes"`
}

// health возвращает агрегированную статистику по каталогу данных.
func (a *Server) health(w http.ResponseWriter, r *http.Request) {
	var total int64
	// Суммируем реальный размер файлов загрузок; разреженные хвосты тоже учитываются в Size().
	err := filepath.WalkDir(a.dataDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		total += info.Size()

		return nil
	})

	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		writeJSON(w, http.StatusInternalServerError, healthStats{OK: false})
		return
	}

	writeJSON(w, http.StatusOK, healthStats{
		OK:         true,
		FreeBytes:  freeBytes(a.dataDir),
		TotalBytes: total,
	})
}
