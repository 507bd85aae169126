package uploadhttp

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sir_venger/upload_lite/pkg/httperrors"
	"github.com/sir_venger/upload_lite/pkg/uploadproto"
)

// getStatus отдаёт состояние загрузки, по которому клиент решает, что досылать.
func (a *Server) getStatus(w http.ResponseWriter, r *http.Request) {
	st, err := a.uploads.Status(r.Context(), chi.URLParam(r, "uploadID"))
	if err != nil {
		httperrors.Write(w, err)
		return
	}

	writeJSON(w, http.StatusOK, uploadproto.StatusResponse{
		UploadID:       st.ID,
		FileName:       st.Filename,
		TotalSize:      st.TotalSize,
		ChunkSize:      st.ChunkSize,
		TotalChunks:    st.TotalChunks,
		ReceivedChunks: st.ReceivedChunks,
		ReceivedCount:  st.ReceivedCount,
		Completed:      st.Completed,
	})
}

// getMissing отдаёт индексы чанков, которых ещё нет.
func (a *Server) getMissing(w http.ResponseWriter, r *http.Request) {
	missing, err := a.uploads.MissingChunks(r.Context(), chi.URLParam(r, "uploadID"))
	if err != nil {
		httperrors.Write(w, err)
		return
	}

	writeJSON(w, http.StatusOK, uploadproto.MissingResponse{MissingChunks: missing})
}
