package uploadhttp

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sir_venger/upload_lite/pkg/httperrors"
)

// completeUpload помечает загрузку завершённой; при недостающих чанках — 409 с их списком.
func (a *Server) completeUpload(w http.ResponseWriter, r *http.Request) {
	if err := a.uploads.Complete(r.Context(), chi.URLParam(r, "uploadID")); err != nil {
		httperrors.Write(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// abortUpload отменяет загрузку. Ответ всегда 204: отмена идемпотентна.
func (a *Server) abortUpload(w http.ResponseWriter, r *http.Request) {
	a.uploads.Abort(r.Context(), chi.URLParam(r, "uploadID"))
	w.WriteHeader(http.StatusNoContent)
}
