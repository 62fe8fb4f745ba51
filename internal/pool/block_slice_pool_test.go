package pool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetBlockSlice(t *testing.T) {
	block, cleanup := GetBlockSlice(4096)
	require.NotNil(t, cleanup)
	assert.Equal(t, 4096, len(block))
	cleanup()
}

func TestGetBlockSlice_Reuse(t *testing.T) {
	block, cleanup := GetBlockSlice(4096)
	for i := range block {
		block[i] = 0xAB
	}
	cleanup()

	// A smaller request may reuse the same backing array; length must still
	// match exactly.
	small, cleanup2 := GetBlockSlice(512)
	assert.Equal(t, 512, len(small))
	cleanup2()
}

func TestGetBlockSlice_Zero(t *testing.T) {
	block, cleanup := GetBlockSlice(0)
	assert.Equal(t, 0, len(block))
	cleanup()
}
