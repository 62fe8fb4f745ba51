package partclone

import (
	"fmt"
	"io"

	"github.com/quarterpast/partforge/crc32forge"
	"github.com/quarterpast/partforge/endian"
	"github.com/quarterpast/partforge/errs"
	"github.com/quarterpast/partforge/format"
	"github.com/quarterpast/partforge/internal/options"
	"github.com/quarterpast/partforge/internal/pool"
)

// Encoder defaults. Block size matches the common 4KiB filesystem block;
// the checksum group size matches partclone's default cadence.
const (
	DefaultBlockSize         = 4096
	DefaultBlocksPerChecksum = 64

	defaultToolVersion = "partforge-1.0"
	defaultFSType      = "raw"

	// optionsSectionSize is the byte size of the image options section,
	// which is what the FeatureSize field advertises.
	optionsSectionSize = 18
)

// EncodeConfig collects the adjustable encoder behavior; values are set
// through EncodeOption constructors and validated as they apply.
type EncodeConfig struct {
	blockSize         uint32
	fsType            string
	toolVersion       string
	bitmapMode        format.BitmapMode
	checksums         bool
	blocksPerChecksum uint32
	reseed            bool
	allUsed           bool
}

// EncodeOption configures Encode.
type EncodeOption = options.Option[*EncodeConfig]

// WithBlockSize sets the block size the raw input is sliced into.
func WithBlockSize(size uint32) EncodeOption {
	return options.New(func(c *EncodeConfig) error {
		if size == 0 || size > maxBlockSize {
			return fmt.Errorf("%w: %d", errs.ErrBlockSize, size)
		}
		c.blockSize = size

		return nil
	})
}

// WithFSType sets the filesystem name recorded in the descriptor.
func WithFSType(fsType string) EncodeOption {
	return options.NoError(func(c *EncodeConfig) {
		c.fsType = fsType
	})
}

// WithToolVersion sets the tool version string recorded in the descriptor.
func WithToolVersion(version string) EncodeOption {
	return options.NoError(func(c *EncodeConfig) {
		c.toolVersion = version
	})
}

// WithBitmapMode selects the on-stream bitmap layout, BM_BIT by default.
func WithBitmapMode(mode format.BitmapMode) EncodeOption {
	return options.New(func(c *EncodeConfig) error {
		if mode != format.BitmapBit && mode != format.BitmapByte {
			return fmt.Errorf("%w: %d", errs.ErrBitmapMode, mode)
		}
		c.bitmapMode = mode

		return nil
	})
}

// WithoutChecksums omits the bitmap and block-group checksums from the
// stream entirely.
func WithoutChecksums() EncodeOption {
	return options.NoError(func(c *EncodeConfig) {
		c.checksums = false
	})
}

// WithBlocksPerChecksum sets how many data blocks each embedded checksum
// covers. Zero values are ignored.
func WithBlocksPerChecksum(blocks uint32) EncodeOption {
	return options.NoError(func(c *EncodeConfig) {
		if blocks > 0 {
			c.blocksPerChecksum = blocks
		}
	})
}

// WithContinuousChecksum carries the checksum register across group
// boundaries instead of reseeding it after every embedded blob.
func WithContinuousChecksum() EncodeOption {
	return options.NoError(func(c *EncodeConfig) {
		c.reseed = false
	})
}

// WithAllBlocksUsed marks every block used regardless of content, the way
// a raw device clone does. By default all-zero blocks are marked unused so
// they cost nothing in the stream.
func WithAllBlocksUsed() EncodeOption {
	return options.NoError(func(c *EncodeConfig) {
		c.allUsed = true
	})
}

// Encode writes src as a partclone v2 stream to w.
//
// The input is scanned twice: the first pass builds the block bitmap, the
// second streams used blocks with their group checksums, which is why src
// must seek. A final partial block is zero padded to the block boundary;
// DeviceSize records the original byte length.
func Encode(w io.Writer, src io.ReadSeeker, opts ...EncodeOption) (*Report, error) {
	config := EncodeConfig{
		blockSize:         DefaultBlockSize,
		fsType:            defaultFSType,
		toolVersion:       defaultToolVersion,
		bitmapMode:        format.BitmapBit,
		checksums:         true,
		blocksPerChecksum: DefaultBlocksPerChecksum,
		reseed:            true,
	}
	if err := options.Apply(&config, opts...); err != nil {
		return nil, err
	}

	size, err := src.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, err
	}

	blockSize := uint64(config.blockSize)
	totalBlocks := (uint64(size) + blockSize - 1) / blockSize

	block, cleanup := pool.GetBlockSlice(int(config.blockSize))
	defer cleanup()

	bitmap := NewBitmap(totalBlocks)
	if err := scanBitmap(src, bitmap, block, config.allUsed); err != nil {
		return nil, err
	}
	used := bitmap.CountUsed()

	hdr := Header{
		ToolVersion: config.toolVersion,
		Version:     VersionText,
		FSType:      config.fsType,
		DeviceSize:  uint64(size),
		TotalBlocks: totalBlocks,
		SuperUsed:   used,
		UsedBlocks:  used,
		BlockSize:   config.blockSize,
		FeatureSize: optionsSectionSize,

		ImageVersion:   2,
		CPUBits:        64,
		ReseedChecksum: config.reseed,
		BitmapMode:     config.bitmapMode,
	}
	if config.checksums {
		hdr.ChecksumMode = format.ChecksumCRC32
		hdr.ChecksumSize = 4
		hdr.BlocksPerChecksum = config.blocksPerChecksum
	}

	var written uint64

	desc := hdr.Bytes()
	if _, err := w.Write(desc); err != nil {
		return nil, err
	}
	written += uint64(len(desc))

	bitmapBytes, err := bitmap.MarshalMode(config.bitmapMode)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(bitmapBytes); err != nil {
		return nil, err
	}
	written += uint64(len(bitmapBytes))

	if hdr.ChecksumSize > 0 {
		n, err := writeCRCBlob(w, crc32forge.Update(crc32forge.InitialState, bitmapBytes))
		if err != nil {
			return nil, err
		}
		written += uint64(n)
	}

	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return nil, err
	}

	checksumEvery := uint64(0)
	if hdr.ChecksumSize > 0 && hdr.BlocksPerChecksum > 0 {
		checksumEvery = uint64(hdr.BlocksPerChecksum)
	}

	var (
		dataBlocks uint64
		blobs      uint64
		crcState   = crc32forge.InitialState
	)

	for idx := uint64(0); idx < totalBlocks; idx++ {
		if err := readPaddedBlock(src, block); err != nil {
			return nil, err
		}

		if !bitmap.Used(idx) {
			continue
		}

		if _, err := w.Write(block); err != nil {
			return nil, err
		}
		written += uint64(len(block))
		dataBlocks++

		if checksumEvery == 0 {
			continue
		}

		crcState = crc32forge.Update(crcState, block)
		if dataBlocks%checksumEvery == 0 {
			n, err := writeCRCBlob(w, crcState)
			if err != nil {
				return nil, err
			}
			written += uint64(n)
			blobs++

			if config.reseed {
				crcState = crc32forge.InitialState
			}
		}
	}

	// A trailing partial group still gets its checksum so readers that
	// verify can cover every stored block.
	if checksumEvery > 0 && dataBlocks%checksumEvery != 0 {
		n, err := writeCRCBlob(w, crcState)
		if err != nil {
			return nil, err
		}
		written += uint64(n)
		blobs++
	}

	return &Report{
		Header:        hdr,
		DataBlocks:    dataBlocks,
		BytesWritten:  written,
		ChecksumBlobs: blobs,
		BitmapUsed:    used,
	}, nil
}

// scanBitmap reads src block by block from the start and marks non-zero
// blocks used.
func scanBitmap(src io.ReadSeeker, bitmap *Bitmap, block []byte, allUsed bool) error {
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return err
	}

	for idx := uint64(0); idx < bitmap.TotalBlocks(); idx++ {
		if err := readPaddedBlock(src, block); err != nil {
			return err
		}

		if allUsed || !isZeroBlock(block) {
			bitmap.SetUsed(idx)
		}
	}

	return nil
}

// readPaddedBlock fills block from src, zero padding a short final read.
func readPaddedBlock(src io.Reader, block []byte) error {
	n, err := io.ReadFull(src, block)
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		clear(block[n:])
		return nil
	}

	return err
}

func writeCRCBlob(w io.Writer, state uint32) (int, error) {
	var blob [4]byte
	endian.Little().PutUint32(blob[:], state)

	return w.Write(blob[:])
}

func isZeroBlock(block []byte) bool {
	for _, b := range block {
		if b != 0 {
			return false
		}
	}

	return true
}
