package uploadhttp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sir_venger/upload_lite/internal/metrics"
	meta "github.com/sir_venger/upload_lite/internal/repo"
	"github.com/sir_venger/upload_lite/internal/usecase/uploadsvc"
	"github.com/sir_venger/upload_lite/pkg/uploadproto"
)

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()

	dataDir := t.TempDir()
	reg := prometheus.NewRegistry()
	svc, err := uploadsvc.New(uploadsvc.Deps{
		Store:            meta.NewMemoryStore(),
		DataDir:          dataDir,
		DefaultChunkSize: 64,
		MaxChunkSize:     1 << 20,
		FlushDelay:       time.Hour,
		FlushWorkers:     2,
		Metrics:          metrics.New(reg),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.ShutdownFlush(context.Background()) })

	return New(svc, Options{
		DataDir: dataDir,
		GCTTL:   time.Hour,
		Metrics: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	})
}

func do(h http.Handler, method, target string, body []byte) *httptest.ResponseRecorder {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func createUpload(t *testing.T, h http.Handler, name string, total, chunk int64) uploadproto.CreateResponse {
	t.Helper()

	body, err := json.Marshal(uploadproto.CreateRequest{FileName: name, TotalSize: total, ChunkSize: chunk})
	require.NoError(t, err)

	rec := do(h, http.MethodPost, "/uploads", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp uploadproto.CreateResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func chunkURL(id string, offset int64) string {
	return fmt.Sprintf(uploadproto.ChunkPathFormat, "", id, offset)
}

func TestUploadFlow(t *testing.T) {
	h := newTestHandler(t)
	payload := bytes.Repeat([]byte("0123456789"), 15)

	created := createUpload(t, h, "notes.txt", int64(len(payload)), 64)
	require.Equal(t, 3, created.TotalChunks)
	require.EqualValues(t, 64, created.ChunkSize)

	rec := do(h, http.MethodPut, chunkURL(created.UploadID, 128), payload[128:])
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var chunk uploadproto.ChunkResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&chunk))
	assert.EqualValues(t, 22, chunk.BytesWritten)

	// Повтор того же чанка — 200 и already_received.
	rec = do(h, http.MethodPut, chunkURL(created.UploadID, 128), payload[128:])
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&chunk))
	assert.True(t, chunk.AlreadyReceived)
	assert.Zero(t, chunk.BytesWritten)

	rec = do(h, http.MethodGet, fmt.Sprintf(uploadproto.MissingPathFormat, "", created.UploadID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var missing uploadproto.MissingResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&missing))
	assert.Equal(t, []int{0, 1}, missing.MissingChunks)

	rec = do(h, http.MethodPost, fmt.Sprintf(uploadproto.CompletePathFormat, "", created.UploadID), nil)
	require.Equal(t, http.StatusConflict, rec.Code)
	var errResp uploadproto.ErrorResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&errResp))
	assert.Equal(t, []int{0, 1}, errResp.MissingChunks)

	rec = do(h, http.MethodGet, fmt.Sprintf(uploadproto.ContentPathFormat, "", created.UploadID), nil)
	require.Equal(t, http.StatusConflict, rec.Code)

	for _, off := range []int64{0, 64} {
		rec = do(h, http.MethodPut, chunkURL(created.UploadID, off), payload[off:off+64])
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	rec = do(h, http.MethodGet, fmt.Sprintf(uploadproto.UploadPathFormat, "", created.UploadID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var st uploadproto.StatusResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&st))
	assert.Equal(t, []int{0, 1, 2}, st.ReceivedChunks)
	assert.Equal(t, "notes.txt", st.FileName)
	assert.False(t, st.Completed)

	rec = do(h, http.MethodPost, fmt.Sprintf(uploadproto.CompletePathFormat, "", created.UploadID), nil)
	require.Equal(t, http.StatusNoContent, rec.Code, rec.Body.String())

	rec = do(h, http.MethodGet, fmt.Sprintf(uploadproto.ContentPathFormat, "", created.UploadID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, payload, rec.Body.Bytes())
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "notes.txt")

	rec = do(h, http.MethodDelete, fmt.Sprintf(uploadproto.UploadPathFormat, "", created.UploadID), nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(h, http.MethodGet, fmt.Sprintf(uploadproto.UploadPathFormat, "", created.UploadID), nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	// Отмена неизвестной загрузки тоже 204.
	rec = do(h, http.MethodDelete, fmt.Sprintf(uploadproto.UploadPathFormat, "", created.UploadID), nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
}

func TestInsertChunk_BadRequests(t *testing.T) {
	h := newTestHandler(t)
	created := createUpload(t, h, "a.bin", 150, 64)

	rec := do(h, http.MethodPut, "/uploads/"+created.UploadID+"/chunks/abc", []byte("x"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(h, http.MethodPut, "/uploads/"+created.UploadID+"/chunks/-64", []byte("x"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Смещение не на границе чанка.
	rec = do(h, http.MethodPut, chunkURL(created.UploadID, 10), bytes.Repeat([]byte{1}, 64))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	// Короткий промежуточный чанк.
	rec = do(h, http.MethodPut, chunkURL(created.UploadID, 0), []byte("short"))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	req := httptest.NewRequest(http.MethodPut, chunkURL(created.UploadID, 0), bytes.NewReader(make([]byte, 64)))
	req.ContentLength = -1
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusLengthRequired, rec.Code)

	rec = do(h, http.MethodPut, chunkURL("6ba7b810-9dad-11d1-80b4-00c04fd430c8", 0), make([]byte, 64))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateUpload_Validation(t *testing.T) {
	h := newTestHandler(t)

	rec := do(h, http.MethodPost, "/uploads", []byte("{not json"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(h, http.MethodPost, "/uploads", []byte(`{"file_name":"a","total_size":0}`))
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/uploads", strings.NewReader(`{"total_size":10}`))
	req.Header.Set("X-File-Name", "from-header.bin")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Location"))

	var created uploadproto.CreateResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&created))

	// Имя длиннее предела отклоняется до санитизации, откуда бы оно ни пришло.
	req = httptest.NewRequest(http.MethodPost, "/uploads", strings.NewReader(`{"total_size":10}`))
	req.Header.Set("X-File-Name", strings.Repeat("a", 64<<10))
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	body, err := json.Marshal(uploadproto.CreateRequest{FileName: strings.Repeat("b", maxFileNameInput+1), TotalSize: 10})
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnprocessableEntity, do(h, http.MethodPost, "/uploads", body).Code)

	rec = do(h, http.MethodGet, fmt.Sprintf(uploadproto.UploadPathFormat, "", created.UploadID), nil)
	var st uploadproto.StatusResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&st))
	assert.Equal(t, "from-header.bin", st.FileName)
}

func TestServiceEndpoints(t *testing.T) {
	h := newTestHandler(t)
	created := createUpload(t, h, "a.bin", 64, 64)
	require.Equal(t, http.StatusCreated, do(h, http.MethodPut, chunkURL(created.UploadID, 0), make([]byte, 64)).Code)

	rec := do(h, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var hs healthStats
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&hs))
	assert.True(t, hs.OK)
	assert.GreaterOrEqual(t, hs.TotalBytes, int64(64))

	rec = do(h, http.MethodPost, "/admin/gc", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	// Свежая загрузка моложе ttl: GC её не трогает.
	rec = do(h, http.MethodGet, fmt.Sprintf(uploadproto.UploadPathFormat, "", created.UploadID), nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(h, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "uploads_chunk_writes_total")
}
