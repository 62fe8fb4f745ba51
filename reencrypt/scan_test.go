package reencrypt

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quarterpast/partforge/errs"
)

func writeTree(t *testing.T, root string, files map[string][]byte) {
	t.Helper()

	for rel, content := range files {
		full := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, content, 0o644))
	}
}

func TestBaselineRoundTripNoChanges(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string][]byte{
		"edata/a.bin":     []byte("alpha"),
		"edata/sub/b.bin": []byte("beta"),
	})

	var baseline bytes.Buffer
	require.NoError(t, WriteBaseline(root, &baseline))

	changes, err := ScanChanges(root, &baseline)
	require.NoError(t, err)
	assert.Empty(t, changes)
}

func TestBaselineFormat(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string][]byte{
		"edata/a.bin":     []byte("alpha"),
		"edata/sub/b.bin": []byte("beta"),
	})

	var baseline bytes.Buffer
	require.NoError(t, WriteBaseline(root, &baseline))

	lines := strings.Split(strings.TrimRight(baseline.String(), "\n"), "\n")
	require.Len(t, lines, 2)

	lineRe := regexp.MustCompile(`^[0-9a-f]{16}  \S`)
	for _, line := range lines {
		assert.Regexp(t, lineRe, line)
	}

	// WalkDir visits lexically, so baselines are diffable.
	assert.True(t, strings.HasSuffix(lines[0], "edata/a.bin"))
	assert.True(t, strings.HasSuffix(lines[1], "edata/sub/b.bin"))
}

func TestScanDetectsModification(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string][]byte{
		"edata/a.bin": []byte("alpha"),
		"edata/b.bin": []byte("beta"),
	})

	var baseline bytes.Buffer
	require.NoError(t, WriteBaseline(root, &baseline))

	writeTree(t, root, map[string][]byte{"edata/a.bin": []byte("alpha, replaced")})

	changes, err := ScanChanges(root, &baseline)
	require.NoError(t, err)
	require.Len(t, changes, 1)

	assert.Equal(t, "/edata/a.bin", changes[0].Path)
	assert.Equal(t, filepath.Join(root, "edata", "a.bin"), changes[0].ReplacementPath)
}

func TestScanIgnoresNewAndDeleted(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string][]byte{
		"edata/keep.bin":   []byte("kept"),
		"edata/doomed.bin": []byte("doomed"),
	})

	var baseline bytes.Buffer
	require.NoError(t, WriteBaseline(root, &baseline))

	require.NoError(t, os.Remove(filepath.Join(root, "edata", "doomed.bin")))
	writeTree(t, root, map[string][]byte{"edata/new.bin": []byte("added later")})

	changes, err := ScanChanges(root, &baseline)
	require.NoError(t, err)
	assert.Empty(t, changes)
}

func TestBaselineSkipsDotfiles(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string][]byte{
		"edata/a.bin":    []byte("alpha"),
		".baseline":      []byte("should not appear"),
		".cache/tmp.bin": []byte("neither should this"),
	})

	var baseline bytes.Buffer
	require.NoError(t, WriteBaseline(root, &baseline))

	content := baseline.String()
	assert.Contains(t, content, "edata/a.bin")
	assert.NotContains(t, content, ".baseline")
	assert.NotContains(t, content, "tmp.bin")
}

func TestScanMalformedBaseline(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"no separator", "deadbeefdeadbeef/path\n"},
		{"bad digest", "nothexnothexnoth  edata/a.bin\n"},
		{"missing path", "deadbeefdeadbeef  \n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ScanChanges(t.TempDir(), strings.NewReader(tt.raw))
			require.ErrorIs(t, err, errs.ErrMalformedBaseline)
			assert.Contains(t, err.Error(), "line 1")
		})
	}
}
