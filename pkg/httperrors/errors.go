package httperrors

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sir_venger/upload_lite/internal/models"
	"github.com/sir_venger/upload_lite/pkg/uploadproto"
)

// retryAfterSeconds — подсказка клиенту для Conflict/Transient.
const retryAfterSeconds = "1"

// Write переводит доменную ошибку в HTTP-статус и JSON-тело.
func Write(w http.ResponseWriter, err error) {
	var incomplete *models.IncompleteError

	switch {
	case errors.As(err, &incomplete):
		writeJSON(w, http.StatusConflict, uploadproto.ErrorResponse{
			Error:         err.Error(),
			MissingChunks: incomplete.Missing,
		})
	case errors.Is(err, models.ErrNotFound):
		writeJSON(w, http.StatusNotFound, uploadproto.ErrorResponse{Error: err.Error()})
	case errors.Is(err, models.ErrConflict):
		w.Header().Set(uploadproto.HeaderRetryAfter, retryAfterSeconds)
		writeJSON(w, http.StatusConflict, uploadproto.ErrorResponse{Error: err.Error()})
	case errors.Is(err, models.ErrTransient):
		w.Header().Set(uploadproto.HeaderRetryAfter, retryAfterSeconds)
		writeJSON(w, http.StatusServiceUnavailable, uploadproto.ErrorResponse{Error: err.Error()})
	case errors.Is(err, models.ErrFatalIO):
		writeJSON(w, http.StatusInsufficientStorage, uploadproto.ErrorResponse{Error: err.Error()})
	case errors.Is(err, models.ErrInvalidArgument), errors.Is(err, models.ErrInvalidRange):
		writeJSON(w, http.StatusUnprocessableEntity, uploadproto.ErrorResponse{Error: err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, uploadproto.ErrorResponse{Error: err.Error()})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
