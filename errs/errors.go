// Package errs defines the sentinel errors shared across partforge packages.
//
// Callers should match these with errors.Is; the failure site wraps them
// with fmt.Errorf("%w: ...") to attach field names, offsets, paths and
// expected/actual checksum values.
package errs

import "errors"

var (
	// ErrHeaderSize indicates the input ended before the fixed-size image
	// descriptor could be read in full.
	ErrHeaderSize = errors.New("image descriptor too short")

	// ErrBadMagic indicates the image magic string does not identify a
	// partclone image.
	ErrBadMagic = errors.New("bad image magic")

	// ErrBadEndianMarker indicates the endianness marker is neither the
	// little-endian nor the big-endian constant.
	ErrBadEndianMarker = errors.New("unrecognized endianness marker")

	// ErrBigEndianImage indicates a structurally valid big-endian image,
	// which this implementation does not support.
	ErrBigEndianImage = errors.New("big-endian images are not supported")

	// ErrBitmapMode indicates an unknown block bitmap layout.
	ErrBitmapMode = errors.New("unsupported bitmap mode")

	// ErrBlockSize indicates a zero or absurdly large block size field.
	ErrBlockSize = errors.New("invalid block size")

	// ErrImageTooLarge indicates total blocks times block size overflows
	// the 64-bit output size.
	ErrImageTooLarge = errors.New("raw image size overflows uint64")

	// ErrTruncatedInput indicates the compressed stream ended before every
	// block and checksum the header promised was consumed.
	ErrTruncatedInput = errors.New("image stream truncated")

	// ErrChecksumMismatch indicates an embedded stream checksum does not
	// match the bytes it covers.
	ErrChecksumMismatch = errors.New("embedded checksum mismatch")

	// ErrNoParts indicates a decode was attempted with an empty part list.
	ErrNoParts = errors.New("no input parts")

	// ErrForgeNotFound indicates the meet-in-the-middle search exhausted
	// its enumeration space without a 4-byte solution. Retrying with the
	// same inputs cannot succeed.
	ErrForgeNotFound = errors.New("no 4-byte crc32 preimage found")

	// ErrEntryNotFound indicates a path with no record in the asset index.
	ErrEntryNotFound = errors.New("path not present in asset index")

	// ErrMalformedIndex indicates an asset index line that does not parse
	// as path,filler,encryptedCRC,contentCRC.
	ErrMalformedIndex = errors.New("malformed asset index line")

	// ErrVerifyFailed indicates the post-write round trip read back bytes
	// whose checksums do not match the index.
	ErrVerifyFailed = errors.New("post-write verification failed")

	// ErrShortKeySeed indicates a keystream seed shorter than the minimum.
	ErrShortKeySeed = errors.New("keystream seed too short")

	// ErrMalformedBaseline indicates a change-scan baseline line that does
	// not parse as digest and path.
	ErrMalformedBaseline = errors.New("malformed baseline line")
)
