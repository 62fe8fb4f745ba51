package crc32forge

import "hash/crc32"

// InitialState is the register value before any input has been processed.
const InitialState uint32 = 0xFFFFFFFF

// table is the byte-at-a-time lookup table for the reflected IEEE
// polynomial, shared with hash/crc32.
var table = crc32.IEEETable

// revTable maps the top byte of a table entry back to its index. The top
// bytes of the 256 entries form a permutation of 0..255, which is what
// makes every register step invertible.
var revTable = func() [256]byte {
	var rev [256]byte
	for i, entry := range table {
		rev[entry>>24] = byte(i)
	}

	return rev
}()

// Step advances the register state by one input byte.
func Step(state uint32, b byte) uint32 {
	return (state >> 8) ^ table[byte(state)^b]
}

// Unstep rewinds the register state by one input byte: it returns the
// prior state such that Step(prior, b) == state.
func Unstep(state uint32, b byte) uint32 {
	idx := revTable[state>>24]
	return (state^table[idx])<<8 | uint32(idx^b)
}

// Update advances the register state over data.
func Update(state uint32, data []byte) uint32 {
	for _, b := range data {
		state = Step(state, b)
	}

	return state
}

// Reverse rewinds the register state over data: it returns the state the
// register held before data was processed, undoing Update byte by byte
// from the end.
func Reverse(state uint32, data []byte) uint32 {
	for i := len(data) - 1; i >= 0; i-- {
		state = Unstep(state, data[i])
	}

	return state
}

// Finalize converts a register state into the checksum reported for the
// bytes consumed so far.
func Finalize(state uint32) uint32 {
	return state ^ 0xFFFFFFFF
}

// Unfinalize converts a reported checksum back into the register state
// that produced it.
func Unfinalize(sum uint32) uint32 {
	return sum ^ 0xFFFFFFFF
}
