package models

// ChunkResult возвращается после приёма чанка.
type ChunkResult struct {
	AlreadyReceived bool
	BytesWritten    int64
}

// Status — агрегированное состояние загрузки для клиента, который хочет продолжить.
type Status struct {
	ID             string
	Filename       string
	TotalSize      int64
	ChunkSize      int64
	TotalChunks    int
	ReceivedChunks []int
	ReceivedCount  int
	Completed      bool
}

// CreateResult описывает только что созданную загрузку.
type CreateResult struct {
	ID          string
	ChunkSize   int64
	TotalChunks int
}
