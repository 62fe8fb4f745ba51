//go:build cgozstd

package compress

import (
	"io"

	"github.com/valyala/gozstd"
)

// cgoZstdReader frees the C-side decoder context on Close.
type cgoZstdReader struct {
	*gozstd.Reader
}

func (r *cgoZstdReader) Close() error {
	r.Release()
	return nil
}

func newZstdReader(r io.Reader) (io.ReadCloser, error) {
	return &cgoZstdReader{Reader: gozstd.NewReader(r)}, nil
}

// cgoZstdWriter finishes the frame and frees the C-side encoder context on
// Close.
type cgoZstdWriter struct {
	*gozstd.Writer
}

func (w *cgoZstdWriter) Close() error {
	err := w.Writer.Close()
	w.Release()

	return err
}

func newZstdWriter(w io.Writer) (io.WriteCloser, error) {
	return &cgoZstdWriter{Writer: gozstd.NewWriter(w)}, nil
}
