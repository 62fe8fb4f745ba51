// Package partforge restores partclone v2 disk images to raw device files
// and rewrites XOR-encrypted game assets so their forged CRC-32 checksums
// keep matching the install's integrity index.
//
// The package grew out of pinball cabinet modding: machine images ship as
// multi-part, gzip-compressed partclone archives, and the game inside them
// verifies every asset file against a CRC index at boot. Replacing an asset
// therefore needs both halves of the pipeline, extracting the image and
// forging the checksums of whatever gets put back.
//
// # Core Features
//
//   - Partclone v2 image decoding: descriptor, block bitmap, per-group
//     checksums, multi-part archives, sparse restore output
//   - Image encoding for producing test fixtures and repacked archives
//   - Transparent transport compression (gzip, zstd, s2, lz4) with
//     magic-byte detection on read
//   - CRC-32 forging: a meet-in-the-middle search that makes any 4-byte
//     window of a buffer land the checksum on a chosen value
//   - Asset reencryption with a per-path XOR keystream and dual checksum
//     forging, so modified files still pass the game's integrity checks
//
// # Restoring an Image
//
// Restore a multi-part archive to a raw image file:
//
//	import "github.com/quarterpast/partforge"
//
//	parts, _ := filepath.Glob("backup/sda3.img.*")
//	report, err := partforge.RestoreImage(parts, "sda3.raw",
//	    partclone.WithChecksumVerify(),
//	    partclone.WithSparseOutput(),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("restored %d blocks (%d bytes)\n", report.DataBlocks, report.BytesWritten)
//
// # Reencrypting Assets
//
// Rewrite modified assets against the game's fl.dat index:
//
//	changes := []reencrypt.Change{
//	    {Path: "/edata/images/backglass.png", ReplacementPath: "mods/backglass.png"},
//	}
//	summary, err := partforge.ReencryptAssets("game/fl.dat", seed, changes)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Printf("%d verified, %d failed\n", summary.Verified, summary.HardFailures)
//
// # Forging a Checksum
//
// Make arbitrary data carry a chosen CRC-32 by appending four bytes:
//
//	forged, err := partforge.ForgeCRC32(payload, 0xDEADBEEF)
//	// crc32.ChecksumIEEE(forged) == 0xDEADBEEF
//
// # Package Structure
//
// This package provides top-level wrappers around the subpackages,
// covering the common end-to-end flows. For fine-grained control use the
// subpackages directly:
//
//   - partclone: image descriptor, bitmap, decoder, encoder, part files
//   - compress: transport compression codecs and detection
//   - crc32forge: incremental CRC-32 register math and the 4-byte forge
//   - reencrypt: asset index, keystream, reencryption batches, spot checks
package partforge

import (
	"io"
	"os"
	"path/filepath"

	"github.com/quarterpast/partforge/compress"
	"github.com/quarterpast/partforge/crc32forge"
	"github.com/quarterpast/partforge/format"
	"github.com/quarterpast/partforge/partclone"
	"github.com/quarterpast/partforge/reencrypt"
)

// RestoreImage restores a partclone archive to a raw image file at output.
//
// The archive may be split across multiple part files; parts are
// concatenated in lexicographic path order, so glob results can be passed
// as-is. Transport compression is detected from the stream's leading bytes,
// and an uncompressed archive passes through unchanged.
//
// The output file is created or truncated. With
// partclone.WithSparseOutput, unused block runs become holes instead of
// written zeros.
//
// Parameters:
//   - parts: paths of the archive's part files, in any order
//   - output: path of the raw image file to write
//   - opts: decoder options (see partclone.Option)
//
// Returns the restore report, or an error if the archive is malformed,
// truncated, or fails verification under partclone.WithChecksumVerify.
//
// Example:
//
//	parts, _ := filepath.Glob("backup/sda3.img.*")
//	report, err := partforge.RestoreImage(parts, "sda3.raw")
func RestoreImage(parts []string, output string, opts ...partclone.Option) (*partclone.Report, error) {
	archive, err := partclone.NewMultiPartReader(parts)
	if err != nil {
		return nil, err
	}
	defer archive.Close()

	stream, _, err := compress.NewReader(archive)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	dec, err := partclone.NewDecoder(stream, opts...)
	if err != nil {
		return nil, err
	}

	out, err := os.Create(output)
	if err != nil {
		return nil, err
	}

	report, err := dec.Restore(out)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, err
	}

	return report, nil
}

// InspectImage reads an archive's descriptor and block bitmap without
// restoring any data, so callers can size the destination or display image
// metadata before committing to a full restore.
//
// Returns the parsed descriptor and the used-block count derived from the
// bitmap, which real images occasionally disagree about with the
// descriptor's own used-block field.
func InspectImage(parts []string) (partclone.Header, uint64, error) {
	archive, err := partclone.NewMultiPartReader(parts)
	if err != nil {
		return partclone.Header{}, 0, err
	}
	defer archive.Close()

	stream, _, err := compress.NewReader(archive)
	if err != nil {
		return partclone.Header{}, 0, err
	}
	defer stream.Close()

	dec, err := partclone.NewDecoder(stream)
	if err != nil {
		return partclone.Header{}, 0, err
	}

	return dec.Header(), dec.Bitmap().CountUsed(), nil
}

// BuildImage encodes src as a partclone v2 archive on out, compressed with
// the chosen transport codec. format.CompressionNone writes the stream
// bare.
//
// src is scanned twice (bitmap pass, then data pass), which is why it must
// seek. All-zero blocks are marked unused and cost nothing in the archive
// unless partclone.WithAllBlocksUsed overrides that.
//
// Parameters:
//   - src: the raw image to encode
//   - out: destination for the compressed archive
//   - compression: transport codec (see format.Compression)
//   - opts: encoder options (see partclone.EncodeOption)
//
// Example:
//
//	f, _ := os.Open("sda3.raw")
//	out, _ := os.Create("sda3.img")
//	report, err := partforge.BuildImage(f, out, format.CompressionGzip)
func BuildImage(src io.ReadSeeker, out io.Writer, compression format.Compression, opts ...partclone.EncodeOption) (*partclone.Report, error) {
	cw, err := compress.NewWriter(compression, out)
	if err != nil {
		return nil, err
	}

	report, err := partclone.Encode(cw, src, opts...)
	if cerr := cw.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, err
	}

	return report, nil
}

// BuildImageParts encodes src like BuildImage but splits the archive
// across numbered part files (base.00000, base.00001, ...) of at most
// partSize bytes each, the layout RestoreImage reassembles.
//
// Returns the encode report and the part paths in write order. On error
// the paths written so far are still returned so callers can clean up.
func BuildImageParts(src io.ReadSeeker, base string, partSize int64, compression format.Compression, opts ...partclone.EncodeOption) (*partclone.Report, []string, error) {
	parts, err := partclone.NewMultiPartWriter(base, partSize)
	if err != nil {
		return nil, nil, err
	}

	report, err := BuildImage(src, parts, compression, opts...)
	if cerr := parts.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, parts.Paths(), err
	}

	return report, parts.Paths(), nil
}

// ReencryptAssets encrypts replacement asset files against the CRC index
// at indexPath and writes them into the game tree, forging both the
// encrypted-file checksum and the decrypted-content checksum recorded in
// the index. The index file itself is never modified.
//
// Asset paths in the index resolve relative to the index file's directory;
// pass reencrypt.WithRoot to resolve them elsewhere. Workers default to
// GOMAXPROCS; see reencrypt.BatchOption for tuning and progress callbacks.
//
// The seed keys the per-path XOR keystream and must match the one the game
// decrypts with. Every written file is re-read and its checksums verified
// before it counts as done; consult the summary for per-file results.
//
// Parameters:
//   - indexPath: path of the CRC index (fl.dat)
//   - seed: keystream seed, at least reencrypt.MinKeySeedLen bytes
//   - changes: modified assets and their replacement files
//   - opts: batch options (see reencrypt.BatchOption)
//
// Example:
//
//	summary, err := partforge.ReencryptAssets("game/fl.dat", seed, changes,
//	    reencrypt.WithWorkers(4),
//	)
func ReencryptAssets(indexPath string, seed []byte, changes []reencrypt.Change, opts ...reencrypt.BatchOption) (*reencrypt.Summary, error) {
	f, err := os.Open(indexPath)
	if err != nil {
		return nil, err
	}

	idx, err := reencrypt.ParseIndex(f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, err
	}

	// Validate the seed once up front; the per-worker factory cannot
	// report errors.
	if _, err := reencrypt.NewChaChaKeystream(seed); err != nil {
		return nil, err
	}
	newKS := func() reencrypt.Keystream {
		ks, kerr := reencrypt.NewChaChaKeystream(seed)
		if kerr != nil {
			panic(kerr)
		}

		return ks
	}

	batchOpts := append([]reencrypt.BatchOption{reencrypt.WithRoot(filepath.Dir(indexPath))}, opts...)

	return reencrypt.NewBatch(idx, newKS, batchOpts...).Run(changes), nil
}

// ForgeCRC32 returns data extended by four bytes chosen so the finalized
// IEEE CRC-32 of the whole result equals target. The input slice is not
// modified.
//
// This is the append-style convenience over crc32forge.ForgeChecksum; use
// crc32forge.Forge directly to splice a forged window into the middle of
// a buffer.
//
// Example:
//
//	forged, _ := partforge.ForgeCRC32([]byte("hello"), 0xDEADBEEF)
//	crc32.ChecksumIEEE(forged) // 0xDEADBEEF
func ForgeCRC32(data []byte, target uint32) ([]byte, error) {
	suffix, err := crc32forge.ForgeChecksum(crc32forge.Update(crc32forge.InitialState, data), target)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(data)+crc32forge.SuffixLen)
	out = append(out, data...)

	return append(out, suffix[:]...), nil
}
