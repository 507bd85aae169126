package uploadhttp

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/sir_venger/upload_lite/pkg/httperrors"
)

const manualGCTTL = 24 * time.Hour

// gcOnce вручную запускает сбор брошенных загрузок.
func (a *Server) gcOnce(w http.ResponseWriter, r *http.Request) {
	ttl := a.gcTTL
	if ttl <= 0 {
		ttl = manualGCTTL
	}

	removed, err := a.uploads.Sweep(r.Context(), ttl)
	if err != nil {
		httperrors.Write(w, err)
		return
	}

	a.log.Info("manual gc", zap.Int("removed", removed))
	w.WriteHeader(http.StatusNoContent)
}
