package partforge

import (
	"bytes"
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quarterpast/partforge/errs"
	"github.com/quarterpast/partforge/format"
	"github.com/quarterpast/partforge/partclone"
	"github.com/quarterpast/partforge/reencrypt"
)

// rawDisk builds a raw image of 16-byte blocks from a pattern string: '.'
// is an all-zero block, any other rune fills the block with its byte.
func rawDisk(pattern string) []byte {
	out := make([]byte, 0, len(pattern)*16)
	for _, r := range pattern {
		b := byte(r)
		if r == '.' {
			b = 0
		}
		out = append(out, bytes.Repeat([]byte{b}, 16)...)
	}

	return out
}

// buildArchive encodes raw into a single compressed archive file and
// returns its path.
func buildArchive(t *testing.T, dir string, raw []byte, codec format.Compression, opts ...partclone.EncodeOption) string {
	t.Helper()

	path := filepath.Join(dir, "disk.img")
	f, err := os.Create(path)
	require.NoError(t, err)

	_, err = BuildImage(bytes.NewReader(raw), f, codec, opts...)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	return path
}

// TestBuildRestoreRoundTrip verifies the facade round trip through a
// gzip-compressed single-file archive.
func TestBuildRestoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	raw := rawDisk("AB..C.DE")

	archive := buildArchive(t, dir, raw, format.CompressionGzip, partclone.WithBlockSize(16))

	output := filepath.Join(dir, "disk.raw")
	report, err := RestoreImage([]string{archive}, output, partclone.WithChecksumVerify())
	require.NoError(t, err)

	assert.Equal(t, uint64(5), report.DataBlocks)
	assert.Equal(t, uint64(len(raw)), report.BytesWritten)
	assert.False(t, report.DescCRCMismatch)

	got, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, raw, got)
}

// TestBuildRestoreAcrossCodecs verifies every transport codec survives the
// facade round trip.
func TestBuildRestoreAcrossCodecs(t *testing.T) {
	raw := rawDisk("A.B.C.D.E.F")

	codecs := []format.Compression{
		format.CompressionNone,
		format.CompressionGzip,
		format.CompressionZstd,
		format.CompressionLZ4,
		format.CompressionS2,
	}

	for _, codec := range codecs {
		t.Run(codec.String(), func(t *testing.T) {
			dir := t.TempDir()
			archive := buildArchive(t, dir, raw, codec, partclone.WithBlockSize(16))

			output := filepath.Join(dir, "disk.raw")
			report, err := RestoreImage([]string{archive}, output, partclone.WithChecksumVerify())
			require.NoError(t, err)
			assert.Equal(t, uint64(6), report.DataBlocks)

			got, err := os.ReadFile(output)
			require.NoError(t, err)
			assert.Equal(t, raw, got)
		})
	}
}

// TestBuildImagePartsRoundTrip verifies split archives reassemble even when
// the part list arrives out of order.
func TestBuildImagePartsRoundTrip(t *testing.T) {
	dir := t.TempDir()
	raw := rawDisk("ABCDEFGH")

	base := filepath.Join(dir, "disk.img")
	_, parts, err := BuildImageParts(bytes.NewReader(raw), base, 32, format.CompressionNone, partclone.WithBlockSize(16))
	require.NoError(t, err)
	require.Greater(t, len(parts), 1, "a 32-byte part size must split the archive")

	reversed := make([]string, 0, len(parts))
	for i := len(parts) - 1; i >= 0; i-- {
		reversed = append(reversed, parts[i])
	}

	output := filepath.Join(dir, "disk.raw")
	report, err := RestoreImage(reversed, output, partclone.WithChecksumVerify())
	require.NoError(t, err)
	assert.Equal(t, uint64(8), report.DataBlocks)

	got, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, raw, got)
}

// TestRestoreImageSparse verifies a sparse restore produces the same
// logical bytes, including a trailing hole.
func TestRestoreImageSparse(t *testing.T) {
	dir := t.TempDir()
	raw := rawDisk("A.B....")

	archive := buildArchive(t, dir, raw, format.CompressionZstd, partclone.WithBlockSize(16))

	output := filepath.Join(dir, "sparse.raw")
	report, err := RestoreImage([]string{archive}, output, partclone.WithSparseOutput())
	require.NoError(t, err)
	assert.Equal(t, uint64(len(raw)), report.BytesWritten)

	got, err := os.ReadFile(output)
	require.NoError(t, err)
	assert.Equal(t, raw, got)
}

// TestInspectImage verifies descriptor fields surface without a restore.
func TestInspectImage(t *testing.T) {
	dir := t.TempDir()
	raw := rawDisk("A.B.C")

	archive := buildArchive(t, dir, raw, format.CompressionGzip,
		partclone.WithBlockSize(16),
		partclone.WithFSType("NTFS"),
	)

	hdr, used, err := InspectImage([]string{archive})
	require.NoError(t, err)

	assert.Equal(t, "NTFS", hdr.FSType)
	assert.Equal(t, uint32(16), hdr.BlockSize)
	assert.Equal(t, uint64(5), hdr.TotalBlocks)
	assert.Equal(t, uint64(len(raw)), hdr.DeviceSize)
	assert.Equal(t, uint64(3), used)
}

// TestRestoreImageNoParts verifies the empty part list error surfaces
// through the facade.
func TestRestoreImageNoParts(t *testing.T) {
	_, err := RestoreImage(nil, filepath.Join(t.TempDir(), "out.raw"))
	require.ErrorIs(t, err, errs.ErrNoParts)
}

// TestForgeCRC32 verifies the appended bytes land the checksum on target.
func TestForgeCRC32(t *testing.T) {
	data := []byte("replacement asset payload")

	targets := []uint32{
		0,
		0xFFFFFFFF,
		0xDEADBEEF,
		crc32.ChecksumIEEE([]byte("arbitrary")),
	}

	for _, target := range targets {
		forged, err := ForgeCRC32(data, target)
		require.NoError(t, err)
		require.Len(t, forged, len(data)+4)

		assert.Equal(t, data, forged[:len(data)], "payload must pass through unchanged")
		assert.Equal(t, target, crc32.ChecksumIEEE(forged))
	}
}

// TestForgeCRC32LeavesInputAlone verifies the input slice is copied, not
// extended in place.
func TestForgeCRC32LeavesInputAlone(t *testing.T) {
	data := make([]byte, 5, 16)
	copy(data, "hello")
	orig := bytes.Clone(data)

	forged, err := ForgeCRC32(data, 0x12345678)
	require.NoError(t, err)

	assert.Equal(t, orig, data)
	assert.Equal(t, uint32(0x12345678), crc32.ChecksumIEEE(forged))
}

// TestReencryptAssets verifies the end-to-end facade against a game tree:
// parse the index, encrypt the replacement, forge both checksums, verify
// from disk.
func TestReencryptAssets(t *testing.T) {
	root := t.TempDir()
	seed := []byte("partforge facade test seed bytes")
	content := []byte("replacement table artwork")

	wantEnc := crc32.ChecksumIEEE([]byte("encrypted target"))
	wantContent := crc32.ChecksumIEEE([]byte("content target"))

	indexPath := filepath.Join(root, "fl.dat")
	line := fmt.Sprintf("/edata/images/table.png,8,%d,%d\n", wantEnc, wantContent)
	require.NoError(t, os.WriteFile(indexPath, []byte(line), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(root, "edata", "images"), 0o755))

	replacement := filepath.Join(root, "new_table.png")
	require.NoError(t, os.WriteFile(replacement, content, 0o644))

	summary, err := ReencryptAssets(indexPath, seed, []reencrypt.Change{
		{Path: "/edata/images/table.png", ReplacementPath: replacement},
	})
	require.NoError(t, err)
	require.Len(t, summary.Results, 1)

	assert.Equal(t, 1, summary.Verified)
	assert.Zero(t, summary.SoftFailures)
	assert.Zero(t, summary.HardFailures)
	assert.True(t, summary.Results[0].Ok())

	disk, err := os.ReadFile(filepath.Join(root, "edata", "images", "table.png"))
	require.NoError(t, err)
	assert.Equal(t, wantEnc, crc32.ChecksumIEEE(disk), "encrypted file checksum must match the index")

	ks, err := reencrypt.NewChaChaKeystream(seed)
	require.NoError(t, err)

	plain, err := reencrypt.Decrypt(reencrypt.Entry{Path: "/edata/images/table.png", Filler: 8}, disk, ks)
	require.NoError(t, err)
	assert.Equal(t, wantContent, crc32.ChecksumIEEE(plain), "decrypted content checksum must match the index")
	assert.Equal(t, content, plain[:len(content)])
}

// TestReencryptAssetsRootOverride verifies reencrypt.WithRoot takes
// precedence over the index file's directory.
func TestReencryptAssetsRootOverride(t *testing.T) {
	indexDir := t.TempDir()
	gameRoot := t.TempDir()
	seed := []byte("partforge facade test seed bytes")
	content := []byte("payload")

	wantEnc := crc32.ChecksumIEEE([]byte("enc"))
	wantContent := crc32.ChecksumIEEE([]byte("dec"))

	indexPath := filepath.Join(indexDir, "fl.dat")
	line := fmt.Sprintf("/edata/a.bin,8,%d,%d\n", wantEnc, wantContent)
	require.NoError(t, os.WriteFile(indexPath, []byte(line), 0o644))
	require.NoError(t, os.MkdirAll(filepath.Join(gameRoot, "edata"), 0o755))

	replacement := filepath.Join(indexDir, "a.bin")
	require.NoError(t, os.WriteFile(replacement, content, 0o644))

	summary, err := ReencryptAssets(indexPath, seed, []reencrypt.Change{
		{Path: "/edata/a.bin", ReplacementPath: replacement},
	}, reencrypt.WithRoot(gameRoot))
	require.NoError(t, err)
	require.Equal(t, 1, summary.Verified)

	_, err = os.Stat(filepath.Join(gameRoot, "edata", "a.bin"))
	assert.NoError(t, err, "the asset must land under the overridden root")

	_, err = os.Stat(filepath.Join(indexDir, "edata", "a.bin"))
	assert.True(t, os.IsNotExist(err), "nothing may be written under the index directory")
}

// TestReencryptAssetsShortSeed verifies seed validation happens before any
// file is touched.
func TestReencryptAssetsShortSeed(t *testing.T) {
	dir := t.TempDir()
	indexPath := filepath.Join(dir, "fl.dat")
	require.NoError(t, os.WriteFile(indexPath, []byte("/a,4,1,2\n"), 0o644))

	_, err := ReencryptAssets(indexPath, []byte("short"), nil)
	require.ErrorIs(t, err, errs.ErrShortKeySeed)
}

// TestReencryptAssetsMissingIndex verifies a missing index file fails fast.
func TestReencryptAssetsMissingIndex(t *testing.T) {
	_, err := ReencryptAssets(filepath.Join(t.TempDir(), "fl.dat"), make([]byte, 32), nil)
	require.Error(t, err)
}

// TestReencryptAssetsMalformedIndex verifies index parse errors surface
// with the sentinel.
func TestReencryptAssetsMalformedIndex(t *testing.T) {
	dir := t.TempDir()
	indexPath := filepath.Join(dir, "fl.dat")
	require.NoError(t, os.WriteFile(indexPath, []byte("not an index line\n"), 0o644))

	_, err := ReencryptAssets(indexPath, make([]byte, 32), nil)
	require.ErrorIs(t, err, errs.ErrMalformedIndex)
}
