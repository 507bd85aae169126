package uploadhttp

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/sir_venger/upload_lite/pkg/httperrors"
	"github.com/sir_venger/upload_lite/pkg/uploadproto"
)

// insertChunk принимает PUT-запрос с телом чанка и пишет его по смещению в файл загрузки.
func (a *Server) insertChunk(w http.ResponseWriter, r *http.Request) {
	req, err := newChunkRequest(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, uploadproto.ErrorResponse{Error: err.Error()})
		return
	}

	// Длина чанка нужна заранее: по ней проверяется, что пришёл ровно один чанк.
	if r.ContentLength < 0 {
		writeJSON(w, http.StatusLengthRequired, uploadproto.ErrorResponse{Error: "Content-Length is required"})
		return
	}

	res, err := a.uploads.WriteChunk(r.Context(), req.uploadID, req.offset, r.ContentLength, r.Body)
	if err != nil {
		a.log.Debug("chunk rejected",
			zap.String("upload_id", req.uploadID),
			zap.Int64("offset", req.offset),
			zap.Error(err))
		httperrors.Write(w, err)
		return
	}

	status := http.StatusCreated
	if res.AlreadyReceived {
		status = http.StatusOK
	}
	writeJSON(w, status, uploadproto.ChunkResponse{
		AlreadyReceived: res.AlreadyReceived,
		BytesWritten:    res.BytesWritten,
	})
}
