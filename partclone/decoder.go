package partclone

import (
	"fmt"
	"io"
	"math"

	"github.com/quarterpast/partforge/crc32forge"
	"github.com/quarterpast/partforge/endian"
	"github.com/quarterpast/partforge/errs"
	"github.com/quarterpast/partforge/format"
	"github.com/quarterpast/partforge/internal/options"
	"github.com/quarterpast/partforge/internal/pool"
)

// DefaultProgressInterval is how many blocks pass between progress
// callbacks unless WithProgressInterval overrides it.
const DefaultProgressInterval = 100_000

// Progress is a point-in-time snapshot of a running restore.
type Progress struct {
	// BlocksDone counts all blocks emitted so far, used and unused.
	BlocksDone uint64
	// TotalBlocks is the block count the restore will reach.
	TotalBlocks uint64
	// DataBlocks counts the used blocks consumed from the stream.
	DataBlocks uint64
}

// Report summarizes a completed restore or encode.
type Report struct {
	// Header is the image descriptor the stream carried.
	Header Header
	// DataBlocks is the number of blocks carried in the stream.
	DataBlocks uint64
	// BytesWritten is the logical size of the produced output. For a
	// restore this always equals Header.TotalBlocks*Header.BlockSize.
	BytesWritten uint64
	// ChecksumBlobs is the number of embedded checksums the stream carried
	// between block groups.
	ChecksumBlobs uint64
	// BitmapUsed is the used-block count derived from the bitmap itself,
	// which real images occasionally disagree about with Header.UsedBlocks.
	BitmapUsed uint64
	// DescCRCMismatch is set when the stored descriptor checksum does not
	// match the descriptor bytes. Images from some partclone builds carry
	// inconsistent descriptor checksums, so the mismatch is reported
	// rather than fatal.
	DescCRCMismatch bool
}

// DecoderConfig collects the adjustable decoder behavior; values are set
// through Option constructors.
type DecoderConfig struct {
	progress         func(Progress)
	progressInterval uint64
	verifyChecksums  bool
	sparse           bool
}

// Option configures a Decoder.
type Option = options.Option[*DecoderConfig]

// WithProgress registers fn to be invoked every progress interval and once
// more after the final block.
func WithProgress(fn func(Progress)) Option {
	return options.NoError(func(c *DecoderConfig) {
		c.progress = fn
	})
}

// WithProgressInterval sets how many blocks pass between progress
// callbacks. Zero values are ignored.
func WithProgressInterval(blocks uint64) Option {
	return options.NoError(func(c *DecoderConfig) {
		if blocks > 0 {
			c.progressInterval = blocks
		}
	})
}

// WithChecksumVerify recomputes the bitmap checksum and every embedded
// block-group checksum and fails the restore on the first mismatch,
// instead of skipping the blobs unread.
func WithChecksumVerify() Option {
	return options.NoError(func(c *DecoderConfig) {
		c.verifyChecksums = true
	})
}

// WithSparseOutput seeks across unused block runs instead of writing zero
// filler, producing a sparse file on filesystems that support holes. The
// output passed to Restore must implement io.Seeker; otherwise zeros are
// written as usual.
func WithSparseOutput() Option {
	return options.NoError(func(c *DecoderConfig) {
		c.sparse = true
	})
}

// Decoder reads a decompressed partclone v2 stream.
//
// NewDecoder consumes the descriptor and bitmap eagerly, so callers can
// inspect Header and Bitmap and size the destination before streaming
// blocks with Restore.
type Decoder struct {
	r            io.Reader
	hdr          Header
	bitmap       *Bitmap
	opts         DecoderConfig
	descMismatch bool
	restored     bool
}

// NewDecoder reads the image descriptor and bitmap from r and returns a
// decoder ready to restore blocks. r must yield the decompressed stream;
// see compress.NewReader for transport detection.
func NewDecoder(r io.Reader, opts ...Option) (*Decoder, error) {
	config := DecoderConfig{progressInterval: DefaultProgressInterval}
	if err := options.Apply(&config, opts...); err != nil {
		return nil, err
	}

	d := &Decoder{r: r, opts: config}

	if err := d.readDescriptor(); err != nil {
		return nil, err
	}

	if err := d.readBitmap(); err != nil {
		return nil, err
	}

	return d, nil
}

// Header returns the parsed image descriptor.
func (d *Decoder) Header() Header {
	return d.hdr
}

// Bitmap returns the parsed block allocation bitmap.
func (d *Decoder) Bitmap() *Bitmap {
	return d.bitmap
}

func (d *Decoder) readDescriptor() error {
	desc := make([]byte, HeaderSize)
	if _, err := io.ReadFull(d.r, desc); err != nil {
		return fmt.Errorf("%w: reading descriptor: %v", errs.ErrHeaderSize, err)
	}

	if err := d.hdr.Parse(desc); err != nil {
		return err
	}

	d.descMismatch = DescriptorCRC(desc[:descCRCOffset]) != d.hdr.DescCRC

	return nil
}

func (d *Decoder) readBitmap() error {
	size, err := BitmapStorageSize(d.hdr.BitmapMode, d.hdr.TotalBlocks)
	if err != nil {
		return err
	}

	if size > math.MaxInt {
		return fmt.Errorf("%w: %d byte bitmap", errs.ErrImageTooLarge, size)
	}

	raw := make([]byte, size)
	if _, err := io.ReadFull(d.r, raw); err != nil {
		return fmt.Errorf("%w: reading bitmap: %v", errs.ErrTruncatedInput, err)
	}

	bm, err := ParseBitmap(d.hdr.BitmapMode, d.hdr.TotalBlocks, raw)
	if err != nil {
		return err
	}
	d.bitmap = bm

	if d.hdr.ChecksumSize > 0 {
		blob := make([]byte, d.hdr.ChecksumSize)
		if _, err := io.ReadFull(d.r, blob); err != nil {
			return fmt.Errorf("%w: reading bitmap checksum: %v", errs.ErrTruncatedInput, err)
		}

		if d.opts.verifyChecksums {
			if err := d.verifyBlob(blob, crc32forge.Update(crc32forge.InitialState, raw), "bitmap"); err != nil {
				return err
			}
		}
	}

	return nil
}

// verifyBlob checks a stored checksum blob against a computed register
// state. Blobs of non-CRC32 modes pass through unchecked.
func (d *Decoder) verifyBlob(blob []byte, state uint32, what string) error {
	if len(blob) < 4 || d.hdr.ChecksumMode != format.ChecksumCRC32 {
		return nil
	}

	stored := endian.Little().Uint32(blob[:4])
	if stored != state {
		return fmt.Errorf("%w: %s: stored %#08x, computed %#08x", errs.ErrChecksumMismatch, what, stored, state)
	}

	return nil
}

// Restore streams the raw device image into w: used blocks from the
// stream in device order, unused blocks as zero filler. It consumes the
// remainder of the stream and may be called once per decoder.
func (d *Decoder) Restore(w io.Writer) (*Report, error) {
	if d.restored {
		return nil, fmt.Errorf("restore already consumed the stream")
	}
	d.restored = true

	block, cleanup := pool.GetBlockSlice(int(d.hdr.BlockSize))
	defer cleanup()

	zero, zeroCleanup := pool.GetBlockSlice(int(d.hdr.BlockSize))
	defer zeroCleanup()
	clear(zero)

	blob := make([]byte, d.hdr.ChecksumSize)

	// The group counter advances per DATA block consumed, not per block
	// emitted, so bitmap gaps never shift checksum positions.
	checksumEvery := uint64(0)
	if d.hdr.ChecksumSize > 0 && d.hdr.BlocksPerChecksum > 0 {
		checksumEvery = uint64(d.hdr.BlocksPerChecksum)
	}

	seeker, canSeek := w.(io.Seeker)
	sparse := d.opts.sparse && canSeek

	var (
		dataBlocks uint64
		written    uint64
		blobs      uint64
		gap        int64
		crcState   = crc32forge.InitialState
	)

	for idx := uint64(0); idx < d.hdr.TotalBlocks; idx++ {
		if d.bitmap.Used(idx) {
			if gap > 0 {
				if _, err := seeker.Seek(gap, io.SeekCurrent); err != nil {
					return nil, err
				}
				gap = 0
			}

			if _, err := io.ReadFull(d.r, block); err != nil {
				return nil, fmt.Errorf("%w: block %d: %v", errs.ErrTruncatedInput, idx, err)
			}

			if _, err := w.Write(block); err != nil {
				return nil, err
			}
			written += uint64(len(block))
			dataBlocks++

			if d.opts.verifyChecksums {
				crcState = crc32forge.Update(crcState, block)
			}

			if checksumEvery > 0 && dataBlocks%checksumEvery == 0 {
				if _, err := io.ReadFull(d.r, blob); err != nil {
					return nil, fmt.Errorf("%w: checksum after block %d: %v", errs.ErrTruncatedInput, idx, err)
				}
				blobs++

				if d.opts.verifyChecksums {
					if err := d.verifyBlob(blob, crcState, fmt.Sprintf("block group ending at %d", idx)); err != nil {
						return nil, err
					}
					if d.hdr.ReseedChecksum {
						crcState = crc32forge.InitialState
					}
				}
			}
		} else {
			written += uint64(len(zero))
			if sparse {
				gap += int64(len(zero))
			} else if _, err := w.Write(zero); err != nil {
				return nil, err
			}
		}

		if d.opts.progress != nil && (idx+1)%d.opts.progressInterval == 0 {
			d.opts.progress(Progress{BlocksDone: idx + 1, TotalBlocks: d.hdr.TotalBlocks, DataBlocks: dataBlocks})
		}
	}

	// Writers append a checksum for a trailing partial group; the default
	// skip path leaves it unread, verify mode checks it.
	if d.opts.verifyChecksums && checksumEvery > 0 && dataBlocks%checksumEvery != 0 {
		if _, err := io.ReadFull(d.r, blob); err != nil {
			return nil, fmt.Errorf("%w: trailing checksum: %v", errs.ErrTruncatedInput, err)
		}
		blobs++

		if err := d.verifyBlob(blob, crcState, "trailing block group"); err != nil {
			return nil, err
		}
	}

	// A sparse restore ending in a gap still needs the file to reach full
	// size; writing the final zero byte extends it without filling the hole.
	if gap > 0 {
		if _, err := seeker.Seek(gap-1, io.SeekCurrent); err != nil {
			return nil, err
		}
		if _, err := w.Write([]byte{0}); err != nil {
			return nil, err
		}
	}

	if d.opts.progress != nil && d.hdr.TotalBlocks%d.opts.progressInterval != 0 {
		d.opts.progress(Progress{BlocksDone: d.hdr.TotalBlocks, TotalBlocks: d.hdr.TotalBlocks, DataBlocks: dataBlocks})
	}

	return &Report{
		Header:          d.hdr,
		DataBlocks:      dataBlocks,
		BytesWritten:    written,
		ChecksumBlobs:   blobs,
		BitmapUsed:      d.bitmap.CountUsed(),
		DescCRCMismatch: d.descMismatch,
	}, nil
}
