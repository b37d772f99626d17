package iterator

import "sync/atomic"

// Iterator hands out Items round-robin and is safe for concurrent use.
type Iterator[T any] struct {
	Items []T
	index atomic.Uint64
}

func (it *Iterator[T]) Len() int {
	return len(it.Items)
}

// Next returns the next item, starting from the first one.
func (it *Iterator[T]) Next() T {
	n := uint64(len(it.Items))
	if n == 0 {
		var zero T
		return zero
	}
	i := it.index.Add(1) - 1
	return it.Items[i%n]
}
