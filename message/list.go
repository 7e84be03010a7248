package message

import (
	"fmt"
	"math"

	"github.com/maxpoletaev/gamemesh/internal/binario"
)

// MaxListLen is the largest number of elements a list field can carry.
const MaxListLen = math.MaxUint16

// WriteList writes the number of items followed by each item's own encoding.
// Nil and empty lists are written the same way.
func WriteList[T any, PT interface {
	*T
	Meta
}](w *binario.Writer, items []T) error {
	if len(items) > MaxListLen {
		return fmt.Errorf("%w: %d items", ErrListTooLong, len(items))
	}

	if err := w.WriteUint16(uint16(len(items))); err != nil {
		return err
	}

	for i := range items {
		if err := PT(&items[i]).Encode(w); err != nil {
			return fmt.Errorf("item %d: %w", i, err)
		}
	}

	return nil
}

// ReadList reads a list written by WriteList, decoding the elements in order.
// The wire does not tell nil from empty, so an empty list is always returned
// as nil. Compare list fields with len rather than against []T{}.
func ReadList[T any, PT interface {
	*T
	Meta
}](r *binario.Reader) ([]T, error) {
	n, err := r.ReadUint16()
	if err != nil {
		return nil, err
	}

	if n == 0 {
		return nil, nil
	}

	items := make([]T, n)

	for i := range items {
		if err := PT(&items[i]).Decode(r); err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
	}

	return items, nil
}
