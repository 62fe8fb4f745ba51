package partclone

import (
	"bytes"
	"fmt"
	"math"

	"github.com/quarterpast/partforge/crc32forge"
	"github.com/quarterpast/partforge/endian"
	"github.com/quarterpast/partforge/errs"
	"github.com/quarterpast/partforge/format"
)

const (
	// HeaderSize is the size of the full image descriptor: tool header,
	// filesystem info, image options and the descriptor checksum.
	HeaderSize = 110

	// descCRCOffset is where the descriptor payload ends and its stored
	// checksum begins.
	descCRCOffset = 106

	// VersionText is the format version string carried by v2 images.
	VersionText = "0002"

	// maxBlockSize bounds the descriptor's block size field. Real
	// filesystems stop at 64KiB; anything past 16MiB is corruption, not a
	// block device.
	maxBlockSize = 16 << 20

	magicText = "partclone-image"
)

// Byte offsets of the descriptor fields.
const (
	offMagic             = 0   // 16 bytes, "partclone-image" + NUL
	offToolVersion       = 16  // 14 bytes, NUL padded
	offVersion           = 30  // 4 bytes
	offEndianMarker      = 34  // uint16
	offFSType            = 36  // 16 bytes, NUL padded
	offDeviceSize        = 52  // uint64
	offTotalBlocks       = 60  // uint64
	offSuperUsed         = 68  // uint64
	offUsedBlocks        = 76  // uint64
	offBlockSize         = 84  // uint32
	offFeatureSize       = 88  // uint32
	offImageVersion      = 92  // uint16
	offCPUBits           = 94  // uint16
	offChecksumMode      = 96  // uint16
	offChecksumSize      = 98  // uint16
	offBlocksPerChecksum = 100 // uint32
	offReseed            = 104 // uint8
	offBitmapMode        = 105 // uint8
)

// Header is the decoded image descriptor.
type Header struct {
	// ToolVersion is the version string of the tool that wrote the image.
	ToolVersion string // byte offset 16-29
	// Version is the image format version string, VersionText for v2.
	Version string // byte offset 30-33
	// FSType names the imaged filesystem, e.g. "EXTFS", "NTFS" or "raw".
	FSType string // byte offset 36-51

	// DeviceSize is the size of the source device in bytes.
	DeviceSize uint64 // byte offset 52-59
	// TotalBlocks is the number of blocks the device holds; the restored
	// image is always TotalBlocks*BlockSize bytes.
	TotalBlocks uint64 // byte offset 60-67
	// SuperUsed is the used-block count reported by the superblock.
	SuperUsed uint64 // byte offset 68-75
	// UsedBlocks is the used-block count derived from the bitmap.
	UsedBlocks uint64 // byte offset 76-83
	// BlockSize is the filesystem block size in bytes.
	BlockSize uint32 // byte offset 84-87

	FeatureSize       uint32              // byte offset 88-91
	ImageVersion      uint16              // byte offset 92-93
	CPUBits           uint16              // byte offset 94-95
	ChecksumMode      format.ChecksumMode // byte offset 96-97
	ChecksumSize      uint16              // byte offset 98-99
	BlocksPerChecksum uint32              // byte offset 100-103
	ReseedChecksum    bool                // byte offset 104
	BitmapMode        format.BitmapMode   // byte offset 105

	// DescCRC is the stored checksum of the preceding 106 descriptor
	// bytes, in partclone's unfinalized register form.
	DescCRC uint32 // byte offset 106-109
}

// Parse parses the descriptor from a byte slice.
//
// Parameters:
//   - data: Byte slice containing the descriptor (must be exactly HeaderSize bytes)
//
// Returns:
//   - error: errs.ErrHeaderSize, errs.ErrBadMagic, an endianness error, or
//     a field validation error
func (h *Header) Parse(data []byte) error {
	if len(data) != HeaderSize {
		return fmt.Errorf("%w: got %d bytes, want %d", errs.ErrHeaderSize, len(data), HeaderSize)
	}

	if string(data[offMagic:offMagic+len(magicText)]) != magicText {
		return fmt.Errorf("%w: %q", errs.ErrBadMagic, data[offMagic:offMagic+len(magicText)])
	}

	// The marker field itself is stored little-endian; EngineForMarker
	// rejects everything but a little-endian image.
	marker := endian.Little().Uint16(data[offEndianMarker:offFSType])
	engine, err := endian.EngineForMarker(marker)
	if err != nil {
		return err
	}

	h.ToolVersion = trimField(data[offToolVersion:offVersion])
	h.Version = trimField(data[offVersion:offEndianMarker])
	h.FSType = trimField(data[offFSType:offDeviceSize])

	h.DeviceSize = engine.Uint64(data[offDeviceSize:offTotalBlocks])
	h.TotalBlocks = engine.Uint64(data[offTotalBlocks:offSuperUsed])
	h.SuperUsed = engine.Uint64(data[offSuperUsed:offUsedBlocks])
	h.UsedBlocks = engine.Uint64(data[offUsedBlocks:offBlockSize])
	h.BlockSize = engine.Uint32(data[offBlockSize:offFeatureSize])

	h.FeatureSize = engine.Uint32(data[offFeatureSize:offImageVersion])
	h.ImageVersion = engine.Uint16(data[offImageVersion:offCPUBits])
	h.CPUBits = engine.Uint16(data[offCPUBits:offChecksumMode])
	h.ChecksumMode = format.ChecksumMode(engine.Uint16(data[offChecksumMode:offChecksumSize]))
	h.ChecksumSize = engine.Uint16(data[offChecksumSize:offBlocksPerChecksum])
	h.BlocksPerChecksum = engine.Uint32(data[offBlocksPerChecksum:offReseed])
	h.ReseedChecksum = data[offReseed] != 0
	h.BitmapMode = format.BitmapMode(data[offBitmapMode])

	h.DescCRC = engine.Uint32(data[descCRCOffset:HeaderSize])

	return h.validate()
}

func (h *Header) validate() error {
	if h.BitmapMode != format.BitmapBit && h.BitmapMode != format.BitmapByte {
		return fmt.Errorf("%w: %d", errs.ErrBitmapMode, h.BitmapMode)
	}

	if h.BlockSize == 0 || h.BlockSize > maxBlockSize {
		return fmt.Errorf("%w: %d", errs.ErrBlockSize, h.BlockSize)
	}

	if _, err := h.RawSize(); err != nil {
		return err
	}

	return nil
}

// RawSize returns the restored image size, TotalBlocks*BlockSize.
func (h *Header) RawSize() (uint64, error) {
	if h.TotalBlocks == 0 {
		return 0, nil
	}

	if h.BlockSize != 0 && h.TotalBlocks > math.MaxUint64/uint64(h.BlockSize) {
		return 0, fmt.Errorf("%w: %d blocks of %d bytes", errs.ErrImageTooLarge, h.TotalBlocks, h.BlockSize)
	}

	return h.TotalBlocks * uint64(h.BlockSize), nil
}

// Bytes serializes the descriptor into a byte slice. The descriptor
// checksum is recomputed from the serialized payload and stored back into
// h.DescCRC, so the output always carries a consistent checksum.
func (h *Header) Bytes() []byte {
	b := make([]byte, HeaderSize)
	engine := endian.Little()

	copy(b[offMagic:offToolVersion], magicText)
	copy(b[offToolVersion:offVersion], h.ToolVersion)
	copy(b[offVersion:offEndianMarker], h.Version)
	engine.PutUint16(b[offEndianMarker:offFSType], endian.MarkerLittle)
	copy(b[offFSType:offDeviceSize], h.FSType)

	engine.PutUint64(b[offDeviceSize:offTotalBlocks], h.DeviceSize)
	engine.PutUint64(b[offTotalBlocks:offSuperUsed], h.TotalBlocks)
	engine.PutUint64(b[offSuperUsed:offUsedBlocks], h.SuperUsed)
	engine.PutUint64(b[offUsedBlocks:offBlockSize], h.UsedBlocks)
	engine.PutUint32(b[offBlockSize:offFeatureSize], h.BlockSize)

	engine.PutUint32(b[offFeatureSize:offImageVersion], h.FeatureSize)
	engine.PutUint16(b[offImageVersion:offCPUBits], h.ImageVersion)
	engine.PutUint16(b[offCPUBits:offChecksumMode], h.CPUBits)
	engine.PutUint16(b[offChecksumMode:offChecksumSize], uint16(h.ChecksumMode))
	engine.PutUint16(b[offChecksumSize:offBlocksPerChecksum], h.ChecksumSize)
	engine.PutUint32(b[offBlocksPerChecksum:offReseed], h.BlocksPerChecksum)
	if h.ReseedChecksum {
		b[offReseed] = 1
	}
	b[offBitmapMode] = byte(h.BitmapMode)

	h.DescCRC = DescriptorCRC(b[:descCRCOffset])
	engine.PutUint32(b[descCRCOffset:HeaderSize], h.DescCRC)

	return b
}

// ParseHeader parses a Header from a byte slice.
//
// Parameters:
//   - data: Byte slice containing the descriptor (must be at least HeaderSize bytes)
//
// Returns:
//   - Header: Parsed descriptor struct
//   - error: errs.ErrHeaderSize or field validation errors
func ParseHeader(data []byte) (Header, error) {
	if len(data) < HeaderSize {
		return Header{}, fmt.Errorf("%w: got %d bytes, want %d", errs.ErrHeaderSize, len(data), HeaderSize)
	}

	h := Header{}
	if err := h.Parse(data[:HeaderSize]); err != nil {
		return Header{}, err
	}

	return h, nil
}

// DescriptorCRC computes the checksum partclone stores for descriptor
// bytes: a CRC-32 register seeded with all ones and left unfinalized.
func DescriptorCRC(desc []byte) uint32 {
	return crc32forge.Update(crc32forge.InitialState, desc)
}

// trimField decodes a NUL-padded fixed-size string field.
func trimField(field []byte) string {
	if i := bytes.IndexByte(field, 0); i >= 0 {
		field = field[:i]
	}

	return string(field)
}
