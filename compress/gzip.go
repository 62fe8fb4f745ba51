package compress

import (
	"io"

	"github.com/klauspost/compress/gzip"
)

// gzipReader keeps the flate state so Close releases it without touching
// the underlying stream.
type gzipReader struct {
	*gzip.Reader
}

func newGzipReader(r io.Reader) (io.ReadCloser, error) {
	zr, err := gzip.NewReader(r)
	if err != nil {
		return nil, err
	}

	// Partclone images are commonly produced as independent gzip members
	// concatenated per part; multistream mode (the default) reads across
	// member boundaries transparently.
	zr.Multistream(true)

	return &gzipReader{Reader: zr}, nil
}

func newGzipWriter(w io.Writer) io.WriteCloser {
	return gzip.NewWriter(w)
}
