// Package partclone reads and writes partclone v2 block images.
//
// A v2 image is a fixed 110-byte descriptor (tool header, filesystem info,
// image options and a descriptor checksum), a block allocation bitmap with
// its own checksum, and then the used blocks in device order. Every
// BlocksPerChecksum data blocks the stream carries an embedded CRC-32 of
// the block run; unused blocks are not stored at all and are restored as
// zero filler, so the raw output is always TotalBlocks*BlockSize bytes.
//
// Decoder consumes a decompressed stream; pair it with the compress
// package when images are gzip, zstd, lz4 or s2 compressed on disk.
// Images split into sequential part files are joined by MultiPartReader:
//
//	parts, _ := partclone.NewMultiPartReader(paths)
//	defer parts.Close()
//
//	stream, _, err := compress.NewReader(parts)
//	...
//	dec, err := partclone.NewDecoder(stream)
//	...
//	report, err := dec.Restore(out)
//
// Encode performs the inverse transform: it scans a raw image, marks
// all-zero blocks as unused and writes a v2 stream that Decoder restores
// byte for byte. Checksums embedded by Encode follow partclone's register
// convention (seeded with all ones, never finalized).
//
// Only little-endian images are supported; a valid big-endian descriptor
// is rejected with errs.ErrBigEndianImage.
package partclone
