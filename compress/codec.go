package compress

import (
	"bufio"
	"bytes"
	"fmt"
	"io"

	"github.com/quarterpast/partforge/format"
)

// magicLen is the longest magic prefix Detect inspects (the s2/snappy
// stream identifier chunk).
const magicLen = 10

var (
	gzipMagic = []byte{0x1f, 0x8b}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
	lz4Magic  = []byte{0x04, 0x22, 0x4d, 0x18}
	s2Magic   = []byte{0xff, 0x06, 0x00, 0x00, 0x73, 0x4e, 0x61, 0x50, 0x70, 0x59}
)

// Detect identifies the transport compression from the leading bytes of a
// stream. Short or unrecognized prefixes report CompressionNone; an
// uncompressed partclone stream starts with its own "partclone-image"
// magic, which matches none of the compressed prefixes.
func Detect(peek []byte) format.Compression {
	switch {
	case bytes.HasPrefix(peek, gzipMagic):
		return format.CompressionGzip
	case bytes.HasPrefix(peek, zstdMagic):
		return format.CompressionZstd
	case bytes.HasPrefix(peek, lz4Magic):
		return format.CompressionLZ4
	case bytes.HasPrefix(peek, s2Magic):
		return format.CompressionS2
	default:
		return format.CompressionNone
	}
}

// NewReader sniffs r's leading bytes, picks the matching decompressor and
// returns the wrapped stream along with the detected compression.
//
// The returned ReadCloser owns any decompressor state but NOT r itself;
// closing it never closes r.
func NewReader(r io.Reader) (io.ReadCloser, format.Compression, error) {
	br := bufio.NewReaderSize(r, 1<<16)

	peek, err := br.Peek(magicLen)
	if err != nil && len(peek) == 0 {
		// Empty input: hand back a passthrough and let the caller hit EOF
		// with its own context.
		return io.NopCloser(br), format.CompressionNone, nil
	}

	kind := Detect(peek)
	rc, err := NewReaderFor(kind, br)
	if err != nil {
		return nil, kind, err
	}

	return rc, kind, nil
}

// NewReaderFor wraps r with the decompressor for an explicitly chosen
// compression.
func NewReaderFor(kind format.Compression, r io.Reader) (io.ReadCloser, error) {
	switch kind {
	case format.CompressionNone:
		return io.NopCloser(r), nil
	case format.CompressionGzip:
		return newGzipReader(r)
	case format.CompressionZstd:
		return newZstdReader(r)
	case format.CompressionLZ4:
		return newLZ4Reader(r)
	case format.CompressionS2:
		return newS2Reader(r)
	default:
		return nil, fmt.Errorf("unsupported stream compression: %s", kind)
	}
}

// NewWriter wraps w with the compressor for the chosen compression.
// Closing the returned WriteCloser flushes the compressed trailer but does
// not close w.
func NewWriter(kind format.Compression, w io.Writer) (io.WriteCloser, error) {
	switch kind {
	case format.CompressionNone:
		return nopWriteCloser{w}, nil
	case format.CompressionGzip:
		return newGzipWriter(w), nil
	case format.CompressionZstd:
		return newZstdWriter(w)
	case format.CompressionLZ4:
		return newLZ4Writer(w), nil
	case format.CompressionS2:
		return newS2Writer(w), nil
	default:
		return nil, fmt.Errorf("unsupported stream compression: %s", kind)
	}
}
