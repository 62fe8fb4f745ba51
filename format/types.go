package format

type (
	BitmapMode   uint8
	ChecksumMode uint16
	Compression  uint8
)

const (
	BitmapNone BitmapMode = 0x0 // BitmapNone means the image carries no block bitmap.
	BitmapBit  BitmapMode = 0x1 // BitmapBit packs one bit per block, LSB first within each byte.
	BitmapByte BitmapMode = 0x2 // BitmapByte stores one byte per block, nonzero meaning in use.

	ChecksumNone  ChecksumMode = 0x0  // ChecksumNone means no checksums are embedded in the stream.
	ChecksumCRC32 ChecksumMode = 0x20 // ChecksumCRC32 is partclone's on-disk value for CRC32 grouping.

	CompressionNone Compression = 0x0 // CompressionNone represents an uncompressed image stream.
	CompressionGzip Compression = 0x1 // CompressionGzip represents a gzip image stream.
	CompressionZstd Compression = 0x2 // CompressionZstd represents a Zstandard image stream.
	CompressionLZ4  Compression = 0x3 // CompressionLZ4 represents an LZ4 frame image stream.
	CompressionS2   Compression = 0x4 // CompressionS2 represents an S2/snappy framed image stream.
)

func (m BitmapMode) String() string {
	switch m {
	case BitmapNone:
		return "None"
	case BitmapBit:
		return "Bit"
	case BitmapByte:
		return "Byte"
	default:
		return "Unknown"
	}
}

// Valid reports whether the mode is one the decoder can interpret.
func (m BitmapMode) Valid() bool {
	return m == BitmapBit || m == BitmapByte
}

func (c ChecksumMode) String() string {
	switch c {
	case ChecksumNone:
		return "None"
	case ChecksumCRC32:
		return "CRC32"
	default:
		return "Unknown"
	}
}

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "None"
	case CompressionGzip:
		return "Gzip"
	case CompressionZstd:
		return "Zstd"
	case CompressionLZ4:
		return "LZ4"
	case CompressionS2:
		return "S2"
	default:
		return "Unknown"
	}
}
