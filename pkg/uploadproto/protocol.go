// Package uploadproto описывает HTTP-протокол возобновляемых загрузок: пути, заголовки и тела ответов.
package uploadproto

// Пути и заголовки REST-протокола.
const (
	UploadsPath        = "/uploads"
	UploadPathFormat   = "%s/uploads/%s"
	ChunkPathFormat    = "%s/uploads/%s/chunks/%d"
	MissingPathFormat  = "%s/uploads/%s/missing"
	CompletePathFormat = "%s/uploads/%s/complete"
	ContentPathFormat  = "%s/uploads/%s/content"

	HeaderRetryAfter = "Retry-After"
)

// CreateRequest — тело POST /uploads.
type CreateRequest struct {
	FileName  string `json:"file_name"`
	TotalSize int64  `json:"total_size"`
	ChunkSize int64  `json:"chunk_size,omitempty"`
}

// CreateResponse — ответ на создание загрузки.
type CreateResponse struct {
	UploadID    string `json:"upload_id"`
	ChunkSize   int64  `json:"chunk_size"`
	TotalChunks int    `json:"total_chunks"`
}

// ChunkResponse — ответ на PUT чанка.
type ChunkResponse struct {
	AlreadyReceived bool  `json:"already_received"`
	BytesWritten    int64 `json:"bytes_written"`
}

// StatusResponse — состояние загрузки для возобновления.
type StatusResponse struct {
	UploadID       string `json:"upload_id"`
	FileName       string `json:"file_name"`
	TotalSize      int64  `json:"total_size"`
	ChunkSize      int64  `json:"chunk_size"`
	TotalChunks    int    `json:"total_chunks"`
	ReceivedChunks []int  `json:"received_chunks"`
	ReceivedCount  int    `json:"received_count"`
	Completed      bool   `json:"completed"`
}

// MissingResponse перечисляет чанки, которые нужно (пере)отправить.
type MissingResponse struct {
	MissingChunks []int `json:"missing_chunks"`
}

// ErrorResponse — тело ответа с ошибкой.
type ErrorResponse struct {
	Error         string `json:"error"`
	MissingChunks []int  `json:"missing_chunks,omitempty"`
}
