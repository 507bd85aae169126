package uploadhttp

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/sir_venger/upload_lite/pkg/httperrors"
	"github.com/sir_venger/upload_lite/pkg/uploadproto"
)

const (
	// maxCreateBody ограничивает JSON тела создания загрузки.
	maxCreateBody = 64 << 10
	// maxFileNameInput — предел длины имени файла до санитизации.
	maxFileNameInput = 4 << 10
)

// createUpload заводит загрузку: выделяет файл и пишет первый снапшот.
func (a *Server) createUpload(w http.ResponseWriter, r *http.Request) {
	var req uploadproto.CreateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxCreateBody)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, uploadproto.ErrorResponse{Error: "invalid json body: " + err.Error()})
		return
	}
	if name := extractFileName(r); name != "" && strings.TrimSpace(req.FileName) == "" {
		req.FileName = name
	}
	if len(req.FileName) > maxFileNameInput {
		writeJSON(w, http.StatusUnprocessableEntity, uploadproto.ErrorResponse{Error: "file name is too long"})
		return
	}

	res, err := a.uploads.CreateUpload(r.Context(), req.FileName, req.TotalSize, req.ChunkSize)
	if err != nil {
		httperrors.Write(w, err)
		return
	}

	w.Header().Set("Location", uploadproto.UploadsPath+"/"+res.ID)
	writeJSON(w, http.StatusCreated, uploadproto.CreateResponse{
		UploadID:    res.ID,
		ChunkSize:   res.ChunkSize,
		TotalChunks: res.TotalChunks,
	})
}

// extractFileName пытается вытащить имя файла из заголовков или query-параметра.
func extractFileName(r *http.Request) string {
	if v := strings.TrimSpace(r.Header.Get("X-File-Name")); v != "" {
		return v
	}
	if v := strings.TrimSpace(r.URL.Query().Get("filename")); v != "" {
		return v
	}
	return ""
}
