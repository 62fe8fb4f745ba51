package reencrypt

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quarterpast/partforge/errs"
)

func testSeed() []byte {
	return []byte("partforge keystream test seed 01")
}

func newTestKeystream(t *testing.T) Keystream {
	t.Helper()

	ks, err := NewChaChaKeystream(testSeed())
	require.NoError(t, err)

	return ks
}

func TestNewChaChaKeystreamShortSeed(t *testing.T) {
	_, err := NewChaChaKeystream([]byte("too short"))
	require.ErrorIs(t, err, errs.ErrShortKeySeed)
}

func TestKeystreamDeterministic(t *testing.T) {
	a := newTestKeystream(t)
	b := newTestKeystream(t)

	a.SetKey("/edata/a.bin")
	b.SetKey("/edata/a.bin")

	for i := 0; i < 16; i++ {
		assert.Equal(t, a.NextU64(), b.NextU64(), "step %d", i)
	}
}

func TestKeystreamPathsDiverge(t *testing.T) {
	a := newTestKeystream(t)
	b := newTestKeystream(t)

	a.SetKey("/edata/a.bin")
	b.SetKey("/edata/b.bin")

	assert.NotEqual(t, a.NextU64(), b.NextU64())
}

func TestKeystreamSeedsDiverge(t *testing.T) {
	a := newTestKeystream(t)

	b, err := NewChaChaKeystream([]byte("partforge keystream test seed 02"))
	require.NoError(t, err)

	a.SetKey("/edata/a.bin")
	b.SetKey("/edata/a.bin")

	assert.NotEqual(t, a.NextU64(), b.NextU64())
}

func TestKeystreamSetKeyReplays(t *testing.T) {
	ks := newTestKeystream(t)

	ks.SetKey("/edata/a.bin")
	first := []uint64{ks.NextU64(), ks.NextU64(), ks.NextU64()}

	ks.SetKey("/edata/other.bin")
	ks.NextU64()

	ks.SetKey("/edata/a.bin")
	replay := []uint64{ks.NextU64(), ks.NextU64(), ks.NextU64()}

	assert.Equal(t, first, replay)
}

func TestApplyInvolution(t *testing.T) {
	ks := newTestKeystream(t)
	original := []byte("thirteen byte")
	buf := append([]byte(nil), original...)

	Apply(ks, "/edata/a.bin", buf)
	assert.NotEqual(t, original, buf)

	Apply(ks, "/edata/a.bin", buf)
	assert.Equal(t, original, buf)
}

func TestApplyChunkAlignment(t *testing.T) {
	// A shorter buffer consumes the same pad prefix as a longer one, so
	// a trailing partial chunk must line up with the full-chunk layout.
	short := make([]byte, 13)
	long := make([]byte, 16)

	Apply(newTestKeystream(t), "/edata/a.bin", short)
	Apply(newTestKeystream(t), "/edata/a.bin", long)

	assert.True(t, bytes.Equal(short, long[:13]))
}

func TestApplyEmptyBuffer(t *testing.T) {
	assert.NotPanics(t, func() {
		Apply(newTestKeystream(t), "/edata/a.bin", nil)
	})
}
