package models

import (
	"time"

	"github.com/sir_venger/upload_lite/internal/bitmap"
)

// Upload — дескриптор загрузки, которым владеет реестр.
type Upload struct {
	ID              string
	Filename        string
	TotalSize       int64
	ChunkSize       int64
	CreatedAt       time.Time
	DestinationPath string
	Completed       bool
	Received        *bitmap.Bitmap
}

// TotalChunks считает ceil(totalSize/chunkSize).
func TotalChunks(totalSize, chunkSize int64) int {
	if totalSize <= 0 || chunkSize <= 0 {
		return 0
	}

	return int((totalSize + chunkSize - 1) / chunkSize)
}

// TotalChunks возвращает число чанков загрузки.
func (u *Upload) TotalChunks() int {
	return TotalChunks(u.TotalSize, u.ChunkSize)
}

// ChunkLength возвращает длину чанка idx: chunkSize, кроме, возможно, последнего.
func (u *Upload) ChunkLength(idx int) int64 {
	start := int64(idx) * u.ChunkSize
	if start >= u.TotalSize || idx < 0 {
		return 0
	}

	return min(u.ChunkSize, u.TotalSize-start)
}

// Snapshot формирует полную запись для персистентного хранилища.
func (u *Upload) Snapshot() Snapshot {
	return Snapshot{
		ID:              u.ID,
		Filename:        u.Filename,
		TotalSize:       u.TotalSize,
		ChunkSize:       u.ChunkSize,
		CreatedAt:       u.CreatedAt,
		ReceivedChunks:  u.Received.Indices(),
		DestinationPath: u.DestinationPath,
		Completed:       u.Completed,
	}
}

// Snapshot — то, что лежит на диске (или в БД). Единственный источник восстановления после рестарта.
type Snapshot struct {
	ID              string    `json:"upload_id"`
	Filename        string    `json:"file_name"`
	TotalSize       int64     `json:"total_size"`
	ChunkSize       int64     `json:"chunk_size"`
	CreatedAt       time.Time `json:"created_at"`
	ReceivedChunks  []int     `json:"received_chunks"`
	DestinationPath string    `json:"destination_path"`
	Completed       bool      `json:"completed"`
}

// Clone возвращает копию структуры, чтобы не делиться внутренними слайсами.
func (s Snapshot) Clone() Snapshot {
	out := s
	out.ReceivedChunks = append([]int{}, s.ReceivedChunks...)
	return out
}

// Restore восстанавливает дескриптор из снапшота.
func (s Snapshot) Restore() (*Upload, error) {
	received, err := bitmap.FromIndices(s.ReceivedChunks, TotalChunks(s.TotalSize, s.ChunkSize))
	if err != nil {
		return nil, err
	}

	return &Upload{
		ID:              s.ID,
		Filename:        s.Filename,
		TotalSize:       s.TotalSize,
		ChunkSize:       s.ChunkSize,
		CreatedAt:       s.CreatedAt,
		DestinationPath: s.DestinationPath,
		Completed:       s.Completed,
		Received:        received,
	}, nil
}
