// Package bitmap хранит множество полученных чанков одной загрузки в виде упакованных битов.
package bitmap

import (
	"errors"
	"fmt"
)

// ErrOutOfRange возвращается при обращении к индексу за пределами [0, Len()).
var ErrOutOfRange = errors.New("chunk index out of range")

// Bitmap — по одному биту на индекс чанка, ceil(length/8) байт.
type Bitmap struct {
	length int
	bits   []byte
}

// New создаёт пустую карту на length индексов.
func New(length int) *Bitmap {
	if length < 0 {
		length = 0
	}

	return &Bitmap{
		length: length,
		bits:   make([]byte, (length+7)/8),
	}
}

// FromIndices восстанавливает карту из списка индексов (например, из снапшота).
func FromIndices(indices []int, length int) (*Bitmap, error) {
	b := New(length)
	for _, idx := range indices {
		if err := b.Set(idx); err != nil {
			return nil, err
		}
	}

	return b, nil
}

// Len возвращает количество индексов, которое покрывает карта.
func (b *Bitmap) Len() int {
	return b.length
}

// Set помечает индекс как полученный. Повторный вызов ничего не меняет.
func (b *Bitmap) Set(i int) error {
	if err := b.check(i); err != nil {
		return err
	}
	b.bits[i>>3] |= 1 << (uint(i) & 7)

	return nil
}

// Has сообщает, получен ли чанк. Индексы вне диапазона считаются неполученными.
func (b *Bitmap) Has(i int) bool {
	if b.check(i) != nil {
		return false
	}

	return b.bits[i>>3]&(1<<(uint(i)&7)) != 0
}

// Count возвращает количество установленных битов.
func (b *Bitmap) Count() int {
	n := 0
	for _, v := range b.bits {
		for ; v != 0; v &= v - 1 {
			n++
		}
	}

	return n
}

// Indices возвращает полученные индексы по возрастанию.
func (b *Bitmap) Indices() []int {
	out := make([]int, 0, b.Count())
	for i := 0; i < b.length; i++ {
		if b.Has(i) {
			out = append(out, i)
		}
	}

	return out
}

// Missing возвращает дополнение Indices() до [0, Len()).
func (b *Bitmap) Missing() []int {
	out := make([]int, 0, b.length-b.Count())
	for i := 0; i < b.length; i++ {
		if !b.Has(i) {
			out = append(out, i)
		}
	}

	return out
}

func (b *Bitmap) check(i int) error {
	if i < 0 || i >= b.length {
		return fmt.Errorf("%w: %d not in [0,%d)", ErrOutOfRange, i, b.length)
	}

	return nil
}
