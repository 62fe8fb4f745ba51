package reencrypt

import (
	"errors"
	"io/fs"
	"os"

	"github.com/quarterpast/partforge/crc32forge"
)

// DefaultSpotCheckSamples is how many untouched entries SpotCheck reads
// when the caller does not say otherwise.
const DefaultSpotCheckSamples = 20

// Mismatch reports an untouched index entry whose on-disk bytes no longer
// produce the recorded encrypted checksum.
type Mismatch struct {
	Path string // index path
	Want uint32
	Got  uint32
}

// SpotCheck samples index entries outside the modified set and compares
// each file's CRC-32 against the recorded encrypted checksum. It catches
// out-of-band damage, such as a filesystem repair altering files the
// batch never touched. Entries are sampled at a fixed stride across index
// order until samples files have been read; samples under 1 selects
// DefaultSpotCheckSamples. Paths resolve against root the way Batch
// resolves them, and missing files are skipped. The returned count is the
// number of files actually checked.
func SpotCheck(root string, idx *Index, modified map[string]struct{}, samples int) ([]Mismatch, int, error) {
	if samples < 1 {
		samples = DefaultSpotCheckSamples
	}

	entries := idx.Entries()
	stride := 1
	if len(entries) > samples {
		stride = len(entries) / samples
	}

	var mismatches []Mismatch
	checked := 0
	for i, entry := range entries {
		if checked >= samples {
			break
		}
		if _, skip := modified[entry.Path]; skip {
			continue
		}
		if i%stride != 0 {
			continue
		}

		data, err := os.ReadFile(resolvePath(root, entry.Path))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return mismatches, checked, err
		}

		got := crc32forge.Finalize(crc32forge.Update(crc32forge.InitialState, data))
		if got != entry.EncryptedCRC {
			mismatches = append(mismatches, Mismatch{
				Path: entry.Path,
				Want: entry.EncryptedCRC,
				Got:  got,
			})
		}
		checked++
	}

	return mismatches, checked, nil
}
