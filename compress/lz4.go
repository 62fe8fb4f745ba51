package compress

import (
	"io"

	"github.com/pierrec/lz4/v4"
)

// lz4Reader adapts the frame reader, which has no Close of its own, to the
// ReadCloser contract the transport layer hands out.
type lz4Reader struct {
	*lz4.Reader
}

func (lz4Reader) Close() error { return nil }

func newLZ4Reader(r io.Reader) (io.ReadCloser, error) {
	return lz4Reader{Reader: lz4.NewReader(r)}, nil
}

func newLZ4Writer(w io.Writer) io.WriteCloser {
	return lz4.NewWriter(w)
}
