package uploadhttp

import (
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sir_venger/upload_lite/pkg/httperrors"
)

// fetchContent обслуживает GET-запросы, возвращая файл завершённой загрузки (с поддержкой Range).
func (a *Server) fetchContent(w http.ResponseWriter, r *http.Request) {
	f, st, err := a.uploads.OpenContent(r.Context(), chi.URLParam(r, "uploadID"))
	if err != nil {
		httperrors.Write(w, err)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		httperrors.Write(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": st.Filename}))
	http.ServeContent(w, r, st.Filename, info.ModTime(), f)
}
