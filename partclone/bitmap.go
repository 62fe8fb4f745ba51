package partclone

import (
	"fmt"
	"math/bits"

	"github.com/quarterpast/partforge/errs"
	"github.com/quarterpast/partforge/format"
)

// Bitmap tracks which blocks of the source device carry data in the
// stream. It is held packed, one bit per block, least significant bit
// first within each byte, which is the BM_BIT on-stream layout.
type Bitmap struct {
	totalBlocks uint64
	bits        []byte
}

// NewBitmap creates an all-unused bitmap covering totalBlocks blocks.
func NewBitmap(totalBlocks uint64) *Bitmap {
	return &Bitmap{
		totalBlocks: totalBlocks,
		bits:        make([]byte, (totalBlocks+7)/8),
	}
}

// BitmapStorageSize returns the on-stream byte size of a bitmap: one bit
// per block rounded up for BM_BIT, one byte per block for BM_BYTE.
func BitmapStorageSize(mode format.BitmapMode, totalBlocks uint64) (uint64, error) {
	switch mode {
	case format.BitmapBit:
		return (totalBlocks + 7) / 8, nil
	case format.BitmapByte:
		return totalBlocks, nil
	default:
		return 0, fmt.Errorf("%w: %d", errs.ErrBitmapMode, mode)
	}
}

// ParseBitmap decodes raw on-stream bitmap bytes. For BM_BYTE input any
// nonzero byte marks its block used.
func ParseBitmap(mode format.BitmapMode, totalBlocks uint64, raw []byte) (*Bitmap, error) {
	want, err := BitmapStorageSize(mode, totalBlocks)
	if err != nil {
		return nil, err
	}

	if uint64(len(raw)) != want {
		return nil, fmt.Errorf("%w: bitmap is %d bytes, want %d", errs.ErrTruncatedInput, len(raw), want)
	}

	bm := NewBitmap(totalBlocks)

	switch mode {
	case format.BitmapBit:
		copy(bm.bits, raw)
		// Padding bits past the last block must not leak into CountUsed.
		if rem := totalBlocks % 8; rem != 0 && len(bm.bits) > 0 {
			bm.bits[len(bm.bits)-1] &= byte(1<<rem) - 1
		}
	case format.BitmapByte:
		for i, b := range raw {
			if b != 0 {
				bm.bits[i/8] |= 1 << (i % 8)
			}
		}
	}

	return bm, nil
}

// Used reports whether block idx carries data in the stream.
func (bm *Bitmap) Used(idx uint64) bool {
	if idx >= bm.totalBlocks {
		return false
	}

	return bm.bits[idx/8]>>(idx%8)&1 == 1
}

// SetUsed marks block idx as carrying data.
func (bm *Bitmap) SetUsed(idx uint64) {
	if idx >= bm.totalBlocks {
		return
	}

	bm.bits[idx/8] |= 1 << (idx % 8)
}

// CountUsed returns the number of blocks marked used.
func (bm *Bitmap) CountUsed() uint64 {
	var n uint64
	for _, b := range bm.bits {
		n += uint64(bits.OnesCount8(b))
	}

	return n
}

// TotalBlocks returns the number of blocks the bitmap covers.
func (bm *Bitmap) TotalBlocks() uint64 {
	return bm.totalBlocks
}

// MarshalMode encodes the bitmap for the stream in the given mode.
func (bm *Bitmap) MarshalMode(mode format.BitmapMode) ([]byte, error) {
	switch mode {
	case format.BitmapBit:
		out := make([]byte, len(bm.bits))
		copy(out, bm.bits)

		return out, nil
	case format.BitmapByte:
		out := make([]byte, bm.totalBlocks)
		for i := range out {
			if bm.Used(uint64(i)) {
				out[i] = 1
			}
		}

		return out, nil
	default:
		return nil, fmt.Errorf("%w: %d", errs.ErrBitmapMode, mode)
	}
}
