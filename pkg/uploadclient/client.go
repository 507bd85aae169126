// Package uploadclient — HTTP-клиент возобновляемых загрузок.
package uploadclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/sir_venger/upload_lite/pkg/uploadproto"
)

type PutChunkRequest struct {
	UploadID    string
	Index       int
	Offset      int64
	Reader      io.Reader
	Size        int64
	TotalChunks int
}

type Client interface {
	// Create Завести загрузку
	Create(ctx context.Context, req uploadproto.CreateRequest) (uploadproto.CreateResponse, error)
	// PutChunk Отправить один чанк
	PutChunk(ctx context.Context, req PutChunkRequest) (uploadproto.ChunkResponse, error)
	// Status Узнать, какие чанки уже приняты
	Status(ctx context.Context, uploadID string) (uploadproto.StatusResponse, error)
	// Missing Узнать, какие чанки ещё нужны
	Missing(ctx context.Context, uploadID string) ([]int, error)
	// Complete Завершить загрузку
	Complete(ctx context.Context, uploadID string) error
	// Abort Отменить загрузку
	Abort(ctx context.Context, uploadID string) error
	// Download Скачать файл завершённой загрузки
	Download(ctx context.Context, uploadID string) (io.ReadCloser, error)
}

// Options настраивает клиент. Progress == nil отключает индикатор.
type Options struct {
	HTTPClient *http.Client
	Progress   io.Writer
}

// StatusError — ответ сервера с кодом >= 300.
type StatusError struct {
	Code       int
	Message    string
	Missing    []int
	RetryAfter string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("upload server: %d %s", e.Code, http.StatusText(e.Code))
	}
	return fmt.Sprintf("upload server: %d: %s", e.Code, e.Message)
}

// Retryable сообщает, стоит ли повторить тот же запрос позже.
func (e *StatusError) Retryable() bool {
	return e.RetryAfter != "" || e.Code == http.StatusServiceUnavailable
}

type httpClient struct {
	c        *http.Client
	baseURL  string
	progress io.Writer
}

// New создаёт клиент для сервера по адресу baseURL.
func New(baseURL string, opts Options) Client {
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{}
	}
	if opts.Progress != nil {
		opts.Progress = &syncWriter{w: opts.Progress}
	}

	return &httpClient{
		c:        opts.HTTPClient,
		baseURL:  strings.TrimRight(baseURL, "/"),
		progress: opts.Progress,
	}
}

// Create заводит загрузку и возвращает её id и размер чанка, выбранный сервером.
func (h *httpClient) Create(ctx context.Context, req uploadproto.CreateRequest) (uploadproto.CreateResponse, error) {
	var resp uploadproto.CreateResponse

	body, err := json.Marshal(req)
	if err != nil {
		return resp, err
	}

	err = h.doJSON(ctx, http.MethodPost, h.baseURL+uploadproto.UploadsPath, bytes.NewReader(body), &resp)
	return resp, err
}

// PutChunk отправляет чанк по его смещению.
func (h *httpClient) PutChunk(ctx context.Context, req PutChunkRequest) (uploadproto.ChunkResponse, error) {
	var out uploadproto.ChunkResponse

	u := fmt.Sprintf(uploadproto.ChunkPathFormat, h.baseURL, req.UploadID, req.Offset)
	bar := newProgressBar(h.progress,
		fmt.Sprintf("Uploading %s chunk %d/%d", req.UploadID, req.Index+1, req.TotalChunks),
		req.Size,
	)
	body := req.Reader
	if bar != nil {
		body = io.TeeReader(req.Reader, progressWriter{bar: bar})
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPut, u, body)
	if err != nil {
		bar.Fail(err)
		return out, err
	}
	bar.render(true)

	// Размер задаётся явно: тело может быть любым io.Reader, а сервер без длины отвечает 411.
	httpReq.ContentLength = req.Size
	httpReq.Header.Set("Content-Type", "application/octet-stream")

	if err := h.send(httpReq, &out); err != nil {
		bar.Fail(err)
		return out, err
	}

	note := ""
	if out.AlreadyReceived {
		note = " (already received)"
	}
	bar.Finish(note)

	return out, nil
}

// Status возвращает состояние загрузки.
func (h *httpClient) Status(ctx context.Context, uploadID string) (uploadproto.StatusResponse, error) {
	var out uploadproto.StatusResponse
	err := h.doJSON(ctx, http.MethodGet, fmt.Sprintf(uploadproto.UploadPathFormat, h.baseURL, uploadID), nil, &out)
	return out, err
}

// Missing возвращает индексы чанков, которые ещё надо отправить.
func (h *httpClient) Missing(ctx context.Context, uploadID string) ([]int, error) {
	var out uploadproto.MissingResponse
	err := h.doJSON(ctx, http.MethodGet, fmt.Sprintf(uploadproto.MissingPathFormat, h.baseURL, uploadID), nil, &out)
	return out.MissingChunks, err
}

// Complete завершает загрузку. Если чанков не хватает, *StatusError несёт их список.
func (h *httpClient) Complete(ctx context.Context, uploadID string) error {
	return h.doJSON(ctx, http.MethodPost, fmt.Sprintf(uploadproto.CompletePathFormat, h.baseURL, uploadID), nil, nil)
}

// Abort отменяет загрузку.
func (h *httpClient) Abort(ctx context.Context, uploadID string) error {
	return h.doJSON(ctx, http.MethodDelete, fmt.Sprintf(uploadproto.UploadPathFormat, h.baseURL, uploadID), nil, nil)
}

// Download скачивает файл завершённой загрузки и возвращает поток с телом.
func (h *httpClient) Download(ctx context.Context, uploadID string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf(uploadproto.ContentPathFormat, h.baseURL, uploadID), nil)
	if err != nil {
		return nil, err
	}

	resp, err := h.c.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		return nil, readStatusError(resp)
	}

	bar := newProgressBar(h.progress, fmt.Sprintf("Downloading %s", uploadID), resp.ContentLength)
	bar.render(true)

	return newProgressReadCloser(resp.Body, bar), nil
}

func (h *httpClient) doJSON(ctx context.Context, method, u string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return h.send(req, out)
}

func (h *httpClient) send(req *http.Request, out any) error {
	resp, err := h.c.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		return readStatusError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func readStatusError(resp *http.Response) error {
	se := &StatusError{
		Code:       resp.StatusCode,
		RetryAfter: resp.Header.Get(uploadproto.HeaderRetryAfter),
	}

	var body uploadproto.ErrorResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&body); err == nil {
		se.Message = body.Error
		se.Missing = body.MissingChunks
	}

	return se
}

// IsStatus проверяет, что err — ответ сервера с кодом code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}

// chunkSize возвращает длину чанка idx файла размера total.
func chunkSize(total, chunk int64, idx int) int64 {
	start := int64(idx) * chunk
	return min(chunk, total-start)
}

// offsetOf переводит индекс чанка в смещение.
func offsetOf(chunk int64, idx int) int64 {
	return int64(idx) * chunk
}
