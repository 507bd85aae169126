package models

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("upload not found")
	ErrConflict        = errors.New("chunk write already in progress")
	ErrTransient       = errors.New("transient i/o failure")
	ErrFatalIO         = errors.New("fatal i/o failure")
	ErrIO              = errors.New("upload storage failure")
	ErrIncomplete      = errors.New("upload incomplete")
	ErrInvalidArgument = errors.New("invalid upload parameters")
	ErrInvalidRange    = errors.New("invalid chunk range")
)

// IncompleteError возвращается при попытке завершить загрузку с недостающими чанками.
type IncompleteError struct {
	Missing []int
}

func (e *IncompleteError) Error() string {
	return fmt.Sprintf("%s: %d chunks missing", ErrIncomplete, len(e.Missing))
}

// Is позволяет проверять ошибку через errors.Is(err, ErrIncomplete).
func (e *IncompleteError) Is(target error) bool {
	return target == ErrIncomplete
}
