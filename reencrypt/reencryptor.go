package reencrypt

import (
	"fmt"
	"os"

	"github.com/quarterpast/partforge/crc32forge"
	"github.com/quarterpast/partforge/errs"
	"github.com/quarterpast/partforge/internal/pool"
)

// State tracks a file's progress through the rewrite pipeline. The
// constants are ordered along the pipeline, so comparisons against
// StateWritten tell whether bytes reached the disk.
type State uint8

const (
	// StatePending is the initial state. A result left here failed before
	// any bytes were produced and the target file is untouched.
	StatePending State = iota

	// StateContentForged marks the 4-byte suffix pinning the content
	// checksum as found.
	StateContentForged

	// StateEncrypted marks the filler, content and suffix as XORed with
	// the keystream.
	StateEncrypted

	// StateIndexCRCForged marks the encrypted filler patch pinning the
	// file checksum as applied.
	StateIndexCRCForged

	// StateFillerTooSmall replaces StateIndexCRCForged when the filler
	// region cannot absorb the 4-byte patch. The file still proceeds,
	// with its encrypted checksum left unforged.
	StateFillerTooSmall

	// StateWritten marks the encrypted bytes as flushed to disk.
	StateWritten

	// StateVerified is the success terminal: the re-read file reproduced
	// the index checksums.
	StateVerified

	// StateVerifyFailed is the soft-failure terminal: bytes were written
	// but re-reading them did not reproduce the index checksums.
	StateVerifyFailed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateContentForged:
		return "content-forged"
	case StateEncrypted:
		return "encrypted"
	case StateIndexCRCForged:
		return "index-crc-forged"
	case StateFillerTooSmall:
		return "filler-too-small"
	case StateWritten:
		return "written"
	case StateVerified:
		return "verified"
	case StateVerifyFailed:
		return "verify-failed"
	default:
		return "unknown"
	}
}

// Result records the outcome of one asset rewrite.
type Result struct {
	// Path is the on-disk location the rewrite targeted.
	Path string

	// State is where the pipeline stopped. States before StateWritten
	// paired with a non-nil Err mean the target file was left untouched.
	State State

	// FillerTooSmall reports that the encrypted-checksum patch was
	// skipped, so EncryptedCRC is expected to miss the index value and
	// verification gates on the content checksum alone.
	FillerTooSmall bool

	// EncryptedCRC and ContentCRC are the finalized checksums observed
	// during verification: the written file's CRC-32 and the decrypted
	// content region's CRC-32. Both are zero until verification runs.
	EncryptedCRC uint32
	ContentCRC   uint32

	// Bytes is the encrypted file length produced.
	Bytes int

	// Err carries the failure detail. Nil for a verified result, and for
	// a verified result with FillerTooSmall set.
	Err error
}

// Ok reports whether the rewrite fully succeeded: verified on disk with
// both checksums forged and matching.
func (r *Result) Ok() bool {
	return r.State == StateVerified && !r.FillerTooSmall
}

// VerifyError details a post-write checksum mismatch.
type VerifyError struct {
	Path  string
	Check string // "encrypted" or "content"
	Want  uint32
	Got   uint32
}

func (e *VerifyError) Error() string {
	return fmt.Sprintf("%s: %s crc32 mismatch: want %#08x, got %#08x",
		e.Path, e.Check, e.Want, e.Got)
}

// Unwrap lets errors.Is match errs.ErrVerifyFailed.
func (e *VerifyError) Unwrap() error {
	return errs.ErrVerifyFailed
}

// Reencryptor rewrites single assets with a caller-supplied keystream.
// It is stateful through that keystream and not safe for concurrent use;
// Batch runs one Reencryptor per worker.
type Reencryptor struct {
	ks Keystream
}

// NewReencryptor returns a Reencryptor driven by ks.
func NewReencryptor(ks Keystream) *Reencryptor {
	return &Reencryptor{ks: ks}
}

// Encrypt produces the encrypted image of plaintext for entry: Filler
// zero bytes, the plaintext, and a forged 4-byte suffix, XORed with the
// keystream keyed by entry.Path and patched in the last 4 filler bytes so
// the buffer's CRC-32 finalizes to entry.EncryptedCRC.
//
// The returned state is StateIndexCRCForged on full success, or
// StateFillerTooSmall when the filler left nothing to patch; the buffer
// is still valid then, only its checksum is not forged. A content-forge
// miss is a hard failure with a nil buffer.
func (r *Reencryptor) Encrypt(entry Entry, plaintext []byte) ([]byte, State, error) {
	bb := pool.GetAssetBuffer()
	defer pool.PutAssetBuffer(bb)

	state, err := r.encryptInto(bb, entry, plaintext)
	if err != nil {
		return nil, state, err
	}

	return append([]byte(nil), bb.Bytes()...), state, nil
}

// encryptInto fills bb with the encrypted file image. The buffer must be
// empty on entry.
func (r *Reencryptor) encryptInto(bb *pool.ByteBuffer, entry Entry, plaintext []byte) (State, error) {
	// The suffix drives the content region's checksum to the index value.
	contentState := crc32forge.Update(crc32forge.InitialState, plaintext)
	suffix, err := crc32forge.ForgeChecksum(contentState, entry.ContentCRC)
	if err != nil {
		return StatePending, fmt.Errorf("content crc forge for %s: %w", entry.Path, err)
	}

	filler := int(entry.Filler)
	bb.AppendZeros(filler)
	bb.Write(plaintext)
	bb.Write(suffix[:])

	buf := bb.Bytes()
	Apply(r.ks, entry.Path, buf)

	if filler < crc32forge.SuffixLen {
		return StateFillerTooSmall, nil
	}

	// The filler carries no meaning, so its last 4 encrypted bytes are
	// free to overwrite: forge them to land the whole file's checksum on
	// the index value, rewinding the target back through the tail.
	patchAt := filler - crc32forge.SuffixLen
	stateA := crc32forge.Update(crc32forge.InitialState, buf[:patchAt])
	stateB := crc32forge.Reverse(crc32forge.Unfinalize(entry.EncryptedCRC), buf[filler:])

	patch, err := crc32forge.Forge(stateA, stateB)
	if err != nil {
		return StateFillerTooSmall, nil
	}
	copy(buf[patchAt:filler], patch[:])

	return StateIndexCRCForged, nil
}

// ReencryptFile encrypts plaintext for entry, overwrites the file at
// path and verifies the result. Verification is not optional: the file
// is re-read from disk, its checksum compared against the index, then
// decrypted with the same keystream and the content region compared
// again. A result only reaches StateVerified after that round trip.
func (r *Reencryptor) ReencryptFile(entry Entry, plaintext []byte, path string) *Result {
	res := &Result{Path: path, State: StatePending}

	bb := pool.GetAssetBuffer()
	defer pool.PutAssetBuffer(bb)

	state, err := r.encryptInto(bb, entry, plaintext)
	if err != nil {
		res.Err = err
		return res
	}
	res.State = state
	res.FillerTooSmall = state == StateFillerTooSmall
	res.Bytes = bb.Len()

	if err := os.WriteFile(path, bb.Bytes(), 0o644); err != nil {
		res.Err = fmt.Errorf("writing %s: %w", path, err)
		return res
	}
	res.State = StateWritten

	return r.verify(entry, res)
}

// verify re-reads the written file and checks both index checksums,
// replaying decryption with the reencryptor's keystream.
func (r *Reencryptor) verify(entry Entry, res *Result) *Result {
	written, err := os.ReadFile(res.Path)
	if err != nil {
		res.Err = fmt.Errorf("re-reading %s: %w", res.Path, err)
		return res
	}
	res.EncryptedCRC = crc32forge.Finalize(crc32forge.Update(crc32forge.InitialState, written))

	if !res.FillerTooSmall && res.EncryptedCRC != entry.EncryptedCRC {
		res.State = StateVerifyFailed
		res.Err = &VerifyError{
			Path:  res.Path,
			Check: "encrypted",
			Want:  entry.EncryptedCRC,
			Got:   res.EncryptedCRC,
		}

		return res
	}

	content, err := Decrypt(entry, written, r.ks)
	if err != nil {
		res.State = StateVerifyFailed
		res.Err = fmt.Errorf("decrypting %s: %w", res.Path, err)
		return res
	}
	res.ContentCRC = crc32forge.Finalize(crc32forge.Update(crc32forge.InitialState, content))

	if res.ContentCRC != entry.ContentCRC {
		res.State = StateVerifyFailed
		res.Err = &VerifyError{
			Path:  res.Path,
			Check: "content",
			Want:  entry.ContentCRC,
			Got:   res.ContentCRC,
		}

		return res
	}

	res.State = StateVerified

	return res
}

// Decrypt reverses the on-disk cipher for entry and returns the content
// region, everything past the filler. For files produced by Encrypt the
// region ends with the forged 4-byte suffix.
func Decrypt(entry Entry, encrypted []byte, ks Keystream) ([]byte, error) {
	if len(encrypted) < int(entry.Filler) {
		return nil, fmt.Errorf("%w: %s holds %d bytes, filler alone is %d",
			errs.ErrTruncatedInput, entry.Path, len(encrypted), entry.Filler)
	}

	plain := append([]byte(nil), encrypted...)
	Apply(ks, entry.Path, plain)

	return plain[entry.Filler:], nil
}
