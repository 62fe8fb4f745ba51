package partclone

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/quarterpast/partforge/errs"
)

// MultiPartReader presents an image split across multiple part files as
// one concatenated stream. Parts are consumed in lexicographic path order,
// matching how split(1) and MultiPartWriter name sequential chunks.
type MultiPartReader struct {
	paths []string
	index int
	cur   *os.File
}

// NewMultiPartReader opens the first of paths for reading. The path list
// is copied and sorted, so callers may pass glob results in any order.
func NewMultiPartReader(paths []string) (*MultiPartReader, error) {
	if len(paths) == 0 {
		return nil, errs.ErrNoParts
	}

	sorted := make([]string, len(paths))
	copy(sorted, paths)
	sort.Strings(sorted)

	f, err := os.Open(sorted[0])
	if err != nil {
		return nil, err
	}

	return &MultiPartReader{paths: sorted, cur: f}, nil
}

// Paths returns the part paths in read order.
func (m *MultiPartReader) Paths() []string {
	out := make([]string, len(m.paths))
	copy(out, m.paths)

	return out
}

// Read fills p from the current part, rolling into the next part whenever
// one drains. It reports io.EOF only after the final part is exhausted.
func (m *MultiPartReader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}

	for {
		if m.cur == nil {
			return 0, io.EOF
		}

		n, err := m.cur.Read(p)
		if n > 0 {
			return n, nil
		}

		if err != nil && err != io.EOF {
			return 0, err
		}

		if err := m.advance(); err != nil {
			return 0, err
		}
	}
}

func (m *MultiPartReader) advance() error {
	err := m.cur.Close()
	m.cur = nil
	if err != nil {
		return err
	}

	m.index++
	if m.index >= len(m.paths) {
		return nil
	}

	f, err := os.Open(m.paths[m.index])
	if err != nil {
		return err
	}
	m.cur = f

	return nil
}

// Close closes the currently open part.
func (m *MultiPartReader) Close() error {
	if m.cur == nil {
		return nil
	}

	err := m.cur.Close()
	m.cur = nil

	return err
}

// MultiPartWriter splits a stream across numbered part files so archives
// stay under size limits of target filesystems and transfer tools.
//
// Parts are named base.00000, base.00001, ..., keeping lexicographic
// order aligned with write order so MultiPartReader reassembles them
// without extra bookkeeping.
type MultiPartWriter struct {
	base     string
	partSize int64
	index    int
	written  int64
	cur      *os.File
	paths    []string
}

// NewMultiPartWriter creates a writer that starts a new part file every
// partSize bytes.
func NewMultiPartWriter(base string, partSize int64) (*MultiPartWriter, error) {
	if partSize <= 0 {
		return nil, fmt.Errorf("part size must be positive, got %d", partSize)
	}

	return &MultiPartWriter{base: base, partSize: partSize}, nil
}

// Paths returns the part files created so far, in write order.
func (m *MultiPartWriter) Paths() []string {
	out := make([]string, len(m.paths))
	copy(out, m.paths)

	return out
}

// Write appends p to the stream, rolling to a new part file whenever the
// current part reaches the configured size.
func (m *MultiPartWriter) Write(p []byte) (int, error) {
	total := 0

	for len(p) > 0 {
		if m.cur == nil {
			f, err := os.Create(fmt.Sprintf("%s.%05d", m.base, m.index))
			if err != nil {
				return total, err
			}

			m.paths = append(m.paths, f.Name())
			m.cur = f
			m.written = 0
		}

		chunk := int64(len(p))
		if room := m.partSize - m.written; chunk > room {
			chunk = room
		}

		n, err := m.cur.Write(p[:chunk])
		total += n
		m.written += int64(n)
		if err != nil {
			return total, err
		}

		p = p[n:]

		if m.written >= m.partSize {
			if err := m.cur.Close(); err != nil {
				return total, err
			}
			m.cur = nil
			m.index++
		}
	}

	return total, nil
}

// Close finishes the current part file.
func (m *MultiPartWriter) Close() error {
	if m.cur == nil {
		return nil
	}

	err := m.cur.Close()
	m.cur = nil

	return err
}
