package uploadhttp

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// chunkRequest содержит разобранные path-параметры записи чанка.
type chunkRequest struct {
	uploadID string
	offset   int64
}

// newChunkRequest парсит идентификатор загрузки и смещение из URL.
func newChunkRequest(r *http.Request) (*chunkRequest, error) {
	uploadID := chi.URLParam(r, "uploadID")
	offsetStr := chi.URLParam(r, "offset")
	if uploadID == "" || offsetStr == "" {
		return nil, fmt.Errorf("invalid path")
	}

	// Смещение приходит в десятичном виде, отрицательные значения запрещены.
	offset, err := strconv.ParseInt(offsetStr, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid chunk offset: %w", err)
	}
	if offset < 0 {
		return nil, fmt.Errorf("invalid chunk offset: must be non-negative")
	}

	return &chunkRequest{
		uploadID: uploadID,
		offset:   offset,
	}, nil
}
