package bundle

// Arena hands out fixed-length slices carved from large chunks. A returned
// slice is never moved or reallocated by later allocations, so it stays a
// stable view for the arena's lifetime. The decoder uses one arena per
// element type for node children, scene roots and skin joints.
type Arena[T any] struct {
	chunkSize int
	chunk     []T
	chunks    int
}

// NewArena creates an arena whose chunks hold at least chunkSize elements.
func NewArena[T any](chunkSize int) *Arena[T] {
	if chunkSize <= 0 {
		chunkSize = 1024
	}
	return &Arena[T]{chunkSize: chunkSize}
}

// Alloc returns a zeroed slice of length n with capacity n, so appending
// to it cannot overwrite a neighbour. Alloc(0) returns nil.
func (a *Arena[T]) Alloc(n int) []T {
	if n <= 0 {
		return nil
	}
	if n > cap(a.chunk)-len(a.chunk) {
		size := a.chunkSize
		if n > size {
			size = n
		}
		a.chunk = make([]T, 0, size)
		a.chunks++
	}
	start := len(a.chunk)
	a.chunk = a.chunk[:start+n]
	return a.chunk[start : start+n : start+n]
}

// Chunks returns how many backing chunks have been allocated.
func (a *Arena[T]) Chunks() int {
	return a.chunks
}
