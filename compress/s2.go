package compress

import (
	"io"

	"github.com/klauspost/compress/s2"
)

// s2Reader adapts the snappy-compatible stream reader to the ReadCloser
// contract; the reader itself holds no resources beyond its buffers.
type s2Reader struct {
	*s2.Reader
}

func (s2Reader) Close() error { return nil }

func newS2Reader(r io.Reader) (io.ReadCloser, error) {
	return s2Reader{Reader: s2.NewReader(r)}, nil
}

func newS2Writer(w io.Writer) io.WriteCloser {
	return s2.NewWriter(w, s2.WriterConcurrency(1))
}
