package endian

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/quarterpast/partforge/errs"
)

func TestLittle(t *testing.T) {
	engine := Little()

	// Should implement Engine interface
	require.Implements(t, (*Engine)(nil), engine)

	// Should be binary.LittleEndian
	require.Equal(t, binary.LittleEndian, engine)

	// Test actual endian behavior
	var testValue uint16 = 0x0102
	bytes := make([]byte, 2)
	engine.PutUint16(bytes, testValue)
	// Little endian should put LSB first
	require.Equal(t, byte(0x02), bytes[0], "Little endian should put LSB first")
	require.Equal(t, byte(0x01), bytes[1], "Little endian should put MSB second")

	// Test reading back
	readValue := engine.Uint16(bytes)
	require.Equal(t, testValue, readValue)
}

func TestBig(t *testing.T) {
	engine := Big()

	require.Implements(t, (*Engine)(nil), engine)
	require.Equal(t, binary.BigEndian, engine)

	var testValue uint16 = 0x0102
	bytes := make([]byte, 2)
	engine.PutUint16(bytes, testValue)
	// Big endian should put MSB first
	require.Equal(t, byte(0x01), bytes[0], "Big endian should put MSB first")
	require.Equal(t, byte(0x02), bytes[1], "Big endian should put LSB second")

	readValue := engine.Uint16(bytes)
	require.Equal(t, testValue, readValue)
}

func TestEngineForMarker(t *testing.T) {
	t.Run("Little-endian marker", func(t *testing.T) {
		engine, err := EngineForMarker(MarkerLittle)

		require.NoError(t, err)
		require.Equal(t, binary.LittleEndian, engine)
	})

	t.Run("Big-endian marker", func(t *testing.T) {
		engine, err := EngineForMarker(MarkerBig)

		require.Error(t, err)
		require.ErrorIs(t, err, errs.ErrBigEndianImage)
		require.Nil(t, engine)
	})

	t.Run("Garbage marker", func(t *testing.T) {
		engine, err := EngineForMarker(0x1234)

		require.Error(t, err)
		require.ErrorIs(t, err, errs.ErrBadEndianMarker)
		require.Nil(t, engine)
	})

	t.Run("Zero marker", func(t *testing.T) {
		_, err := EngineForMarker(0)

		require.ErrorIs(t, err, errs.ErrBadEndianMarker)
	})
}

func TestMarkerRoundTrip(t *testing.T) {
	// The marker is itself stored little-endian; reading the on-disk bytes
	// DE C0 as a little-endian uint16 must yield MarkerLittle.
	onDisk := []byte{0xDE, 0xC0}
	marker := Little().Uint16(onDisk)

	require.Equal(t, MarkerLittle, marker)

	engine, err := EngineForMarker(marker)
	require.NoError(t, err)

	// Uint64 fields after the marker decode with the same engine.
	var buf [8]byte
	engine.PutUint64(buf[:], 0x0102030405060708)
	require.Equal(t, uint64(0x0102030405060708), engine.Uint64(buf[:]))
}
