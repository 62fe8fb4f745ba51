package reencrypt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/quarterpast/partforge/errs"
)

// Entry is one asset record from the index: the logical path, the length
// of the opaque filler region that precedes the content inside the
// encrypted file, and the two checksums an external validator re-derives.
type Entry struct {
	Path         string
	Filler       uint32 // bytes of padding before the content region
	EncryptedCRC uint32 // finalized CRC-32 of the encrypted file on disk
	ContentCRC   uint32 // finalized CRC-32 of the decrypted content region
}

// Index is the parsed asset index. It is read-only after parse: the
// reencryption path forges file bytes to match the recorded checksums
// rather than ever editing a record, which is what lets the on-disk index
// survive byte-for-byte.
type Index struct {
	entries map[string]Entry
	order   []string
}

// ParseIndex reads newline-delimited records of the form
//
//	path,filler,encryptedCRC,contentCRC
//
// with all three numeric fields unsigned decimal. Fields split off right
// to left, so paths may contain commas. Blank lines are skipped and CR
// line endings tolerated. A line that does not parse fails the whole
// index with errs.ErrMalformedIndex and its line number.
func ParseIndex(r io.Reader) (*Index, error) {
	idx := &Index{entries: make(map[string]Entry)}

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}

		entry, err := parseEntry(line)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", errs.ErrMalformedIndex, lineNo, err)
		}

		if _, dup := idx.entries[entry.Path]; !dup {
			idx.order = append(idx.order, entry.Path)
		}
		idx.entries[entry.Path] = entry
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading index: %w", err)
	}

	return idx, nil
}

// Lookup returns the entry recorded for path.
func (idx *Index) Lookup(path string) (Entry, bool) {
	entry, ok := idx.entries[path]
	return entry, ok
}

// Entries returns every entry in original index order.
func (idx *Index) Entries() []Entry {
	out := make([]Entry, 0, len(idx.order))
	for _, path := range idx.order {
		out = append(out, idx.entries[path])
	}

	return out
}

// Len returns the number of distinct paths in the index.
func (idx *Index) Len() int {
	return len(idx.entries)
}

func parseEntry(line string) (Entry, error) {
	rest, contentCRC, err := cutNumericField(line)
	if err != nil {
		return Entry{}, fmt.Errorf("content crc: %v", err)
	}

	rest, encryptedCRC, err := cutNumericField(rest)
	if err != nil {
		return Entry{}, fmt.Errorf("encrypted crc: %v", err)
	}

	path, filler, err := cutNumericField(rest)
	if err != nil {
		return Entry{}, fmt.Errorf("filler: %v", err)
	}
	if path == "" {
		return Entry{}, errors.New("empty path")
	}

	return Entry{
		Path:         path,
		Filler:       filler,
		EncryptedCRC: encryptedCRC,
		ContentCRC:   contentCRC,
	}, nil
}

// cutNumericField splits off the unsigned decimal field after the last
// comma and returns the remainder of the line.
func cutNumericField(line string) (string, uint32, error) {
	i := strings.LastIndexByte(line, ',')
	if i < 0 {
		return "", 0, errors.New("missing field")
	}

	v, err := strconv.ParseUint(line[i+1:], 10, 32)
	if err != nil {
		return "", 0, err
	}

	return line[:i], uint32(v), nil
}
