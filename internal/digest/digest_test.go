package digest

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSum64String(t *testing.T) {
	tests := []struct {
		name string
		data string
		sum  uint64
	}{
		{"empty string", "", 0xef46db3751d8e999},
		{"short string", "test", 0x4fdcca5ddb678139},
		{"long string", "this is a longer test string to hash", 0x69275f7f7ee59dbd},
		{"another string", "another test string", 0x212a22f593810bec},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.sum, Sum64String(tt.data))
		})
	}
}

func TestSum64MatchesString(t *testing.T) {
	data := "bytes and string agree"
	assert.Equal(t, Sum64String(data), Sum64([]byte(data)))
}

func TestFile(t *testing.T) {
	content := []byte("file digest content, streamed in chunks")
	path := filepath.Join(t.TempDir(), "asset.bin")
	require.NoError(t, os.WriteFile(path, content, 0o644))

	sum, err := File(path)
	require.NoError(t, err)
	assert.Equal(t, Sum64(content), sum)
}

func TestFileMissing(t *testing.T) {
	_, err := File(filepath.Join(t.TempDir(), "absent"))
	require.Error(t, err)
}

func BenchmarkSum64String(b *testing.B) {
	const path = "/edata/images/backglass/title_screen.png"
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Sum64String(path)
	}
}
