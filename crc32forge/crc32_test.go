package crc32forge

import (
	"hash/crc32"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestUpdateMatchesStdlib(t *testing.T) {
	seededRand := rand.New(rand.NewSource(1))
	randomData := make([]byte, 1024)
	_, err := seededRand.Read(randomData)
	require.NoError(t, err)

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", nil},
		{"single byte", []byte{0x42}},
		{"ascii", []byte("hello world")},
		{"random 1KiB", randomData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := Update(InitialState, tt.data)
			require.Equal(t, crc32.ChecksumIEEE(tt.data), Finalize(state))
		})
	}
}

func TestUpdateIncremental(t *testing.T) {
	data := []byte("the quick brown fox jumps over the lazy dog")

	whole := Update(InitialState, data)

	chunked := InitialState
	for i := 0; i < len(data); i += 7 {
		end := i + 7
		if end > len(data) {
			end = len(data)
		}
		chunked = Update(chunked, data[i:end])
	}

	require.Equal(t, whole, chunked)
}

func TestUnfinalizeResumesStdlibChecksum(t *testing.T) {
	head := []byte("partclone-image header")
	tail := []byte(" and trailing payload")

	sum := crc32.ChecksumIEEE(head)

	// Resuming from a finalized checksum must agree with hashing the
	// concatenation in one pass.
	state := Update(Unfinalize(sum), tail)
	require.Equal(t, crc32.ChecksumIEEE(append(append([]byte{}, head...), tail...)), Finalize(state))
}

func TestStepUnstepRoundTrip(t *testing.T) {
	seededRand := rand.New(rand.NewSource(2))

	for i := 0; i < 1000; i++ {
		state := seededRand.Uint32()
		b := byte(seededRand.Intn(256))

		after := Step(state, b)
		require.Equal(t, state, Unstep(after, b))
	}
}

func TestReverseInvertsUpdate(t *testing.T) {
	seededRand := rand.New(rand.NewSource(3))

	data := make([]byte, 256)
	_, err := seededRand.Read(data)
	require.NoError(t, err)

	start := seededRand.Uint32()
	end := Update(start, data)

	require.Equal(t, start, Reverse(end, data))
}

func TestReverseEmpty(t *testing.T) {
	require.Equal(t, uint32(0x1234abcd), Reverse(0x1234abcd, nil))
}

func TestFinalizeUnfinalize(t *testing.T) {
	seededRand := rand.New(rand.NewSource(4))

	for i := 0; i < 100; i++ {
		v := seededRand.Uint32()
		require.Equal(t, v, Unfinalize(Finalize(v)))
		require.Equal(t, v, Finalize(Unfinalize(v)))
	}
}

func TestRevTableIsPermutation(t *testing.T) {
	seen := make(map[byte]bool, 256)
	for i := 0; i < 256; i++ {
		top := byte(table[i] >> 24)
		require.False(t, seen[top], "top byte %#x repeats", top)
		seen[top] = true
		require.Equal(t, byte(i), revTable[top])
	}
}
