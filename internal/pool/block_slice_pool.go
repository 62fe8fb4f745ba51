package pool

import "sync"

// Block scratch pool for the image decoder and encoder. Block sizes are
// fixed per image but vary between images, so the pool hands out slices
// resized to the caller's block size.
var blockSlicePool = sync.Pool{
	New: func() any { return &[]byte{} },
}

// GetBlockSlice retrieves and resizes a byte slice from the pool.
//
// The returned slice has the exact length specified by size and holds
// whatever bytes the backing array held; callers that need zeroed scratch
// must clear it themselves. The caller must call the returned cleanup
// function (typically with defer) to return the slice to the pool.
//
// Example:
//
//	block, cleanup := pool.GetBlockSlice(int(hdr.BlockSize))
//	defer cleanup()
//	// Use block scratch...
func GetBlockSlice(size int) ([]byte, func()) {
	ptr, _ := blockSlicePool.Get().(*[]byte)
	slice := (*ptr)[:0]

	if cap(slice) < size {
		slice = make([]byte, size)
		*ptr = slice
	} else {
		slice = slice[:size]
		*ptr = slice
	}

	return slice, func() { blockSlicePool.Put(ptr) }
}
