package digest

import (
	"io"
	"os"

	"github.com/cespare/xxhash/v2"
)

// Sum64 computes the xxHash64 digest of data.
func Sum64(data []byte) uint64 {
	return xxhash.Sum64(data)
}

// Sum64String computes the xxHash64 digest of the given string.
func Sum64String(data string) uint64 {
	return xxhash.Sum64String(data)
}

// File computes the xxHash64 digest of a file's contents without loading
// the whole file into memory.
func File(path string) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	d := xxhash.New()
	if _, err := io.Copy(d, f); err != nil {
		return 0, err
	}

	return d.Sum64(), nil
}
