package crc32forge

import (
	"github.com/quarterpast/partforge/errs"
	"github.com/quarterpast/partforge/internal/pool"
)

// SuffixLen is the number of bytes Forge appends to steer a checksum.
// Four bytes span the full register, so any target is reachable.
const SuffixLen = 4

const (
	slotMask = pool.ForgeTableSlots - 1

	// fibMultiplier spreads 32-bit register states across the slot table
	// (Knuth's multiplicative hash constant, 2^32/phi).
	fibMultiplier uint32 = 2654435761
	fibShift             = 15

	slotOccupied uint64 = 1 << 48
)

// Forge finds 4 bytes that drive the register from state to target, both
// raw register values. Stepping the register through the returned bytes
// from state yields exactly target, which makes the bytes splicable into
// the middle of a buffer: state is the register after everything before
// the splice window, target the register required before everything after
// it (computable with Reverse).
//
// The search meets in the middle: the forward half tabulates the register
// after every two-byte prefix, the backward half rewinds the target
// through the last two steps. Candidates are scanned in ascending byte
// order and the first hit wins, so equal inputs always forge equal bytes.
// ErrForgeNotFound reports an exhausted search.
func Forge(state, target uint32) ([SuffixLen]byte, error) {
	slots := pool.GetForgeTable()
	defer pool.PutForgeTable(slots)

	for b0 := 0; b0 < 256; b0++ {
		s1 := Step(state, byte(b0))
		for b1 := 0; b1 < 256; b1++ {
			insert(slots, Step(s1, byte(b1)), uint16(b0)<<8|uint16(b1))
		}
	}

	// Rewinding one step pins the top 24 bits of the earlier state and
	// leaves its low byte free; the free byte and the table index together
	// determine the input byte for that step.
	idx3 := revTable[target>>24]
	hi3 := (target ^ table[idx3]) << 8

	for lo3 := 0; lo3 < 256; lo3++ {
		s3 := hi3 | uint32(lo3)
		idx2 := revTable[s3>>24]
		hi2 := (s3 ^ table[idx2]) << 8

		for lo2 := 0; lo2 < 256; lo2++ {
			pair, ok := lookup(slots, hi2|uint32(lo2))
			if !ok {
				continue
			}

			return [SuffixLen]byte{
				byte(pair >> 8),
				byte(pair),
				byte(lo2) ^ idx2,
				byte(lo3) ^ idx3,
			}, nil
		}
	}

	return [SuffixLen]byte{}, errs.ErrForgeNotFound
}

// ForgeChecksum finds a 4-byte suffix whose appendage makes the finalized
// CRC-32 equal sum. Appending the suffix to whatever input produced state
// yields data with Finalize(Update(state, suffix)) == sum.
func ForgeChecksum(state, sum uint32) ([SuffixLen]byte, error) {
	return Forge(state, Unfinalize(sum))
}

// insert stores a (state, prefix pair) entry with linear probing. Existing
// entries are never overwritten, so the earliest pair in enumeration order
// is the one lookups find.
func insert(slots []uint64, state uint32, pair uint16) {
	i := state * fibMultiplier >> fibShift
	for slots[i] != 0 {
		i = (i + 1) & slotMask
	}

	slots[i] = slotOccupied | uint64(state)<<16 | uint64(pair)
}

// lookup probes for state and returns its prefix pair. The table is at
// most half full, so an empty slot always terminates the probe.
func lookup(slots []uint64, state uint32) (uint16, bool) {
	i := state * fibMultiplier >> fibShift
	for {
		slot := slots[i]
		if slot == 0 {
			return 0, false
		}

		if uint32(slot>>16) == state {
			return uint16(slot), true
		}

		i = (i + 1) & slotMask
	}
}
