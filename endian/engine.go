// Package endian provides byte order utilities for the partclone image
// format.
//
// The package combines encoding/binary's ByteOrder and AppendByteOrder
// interfaces into a single Engine interface, and maps partclone's on-disk
// endianness marker to the engine that decodes the rest of the descriptor.
//
// Partclone writes a 16-bit marker directly after the version strings:
// 0xC0DE for little-endian images, byte-swapped to 0xDEC0 for big-endian
// ones. Only little-endian images exist in the wild for the platforms this
// library targets, so EngineForMarker rejects 0xDEC0 with a distinct error
// to keep the diagnosis obvious.
//
// All functions and returned Engine instances are immutable, stateless and
// safe for concurrent use.
package endian

import (
	"encoding/binary"

	"github.com/quarterpast/partforge/errs"
)

// Marker values as they appear when the descriptor bytes are read as a
// little-endian uint16.
const (
	MarkerLittle uint16 = 0xC0DE
	MarkerBig    uint16 = 0xDEC0
)

// Engine combines ByteOrder and AppendByteOrder from encoding/binary into
// a single interface for byte order operations.
//
// binary.LittleEndian and binary.BigEndian both satisfy it.
type Engine interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

// Little returns the little-endian engine.
func Little() Engine {
	return binary.LittleEndian
}

// Big returns the big-endian engine.
func Big() Engine {
	return binary.BigEndian
}

// EngineForMarker maps an on-disk endianness marker to the engine for the
// remaining descriptor fields.
//
// Returns:
//   - Engine: little-endian engine for MarkerLittle
//   - error: errs.ErrBigEndianImage for MarkerBig, errs.ErrBadEndianMarker
//     for anything else
func EngineForMarker(marker uint16) (Engine, error) {
	switch marker {
	case MarkerLittle:
		return binary.LittleEndian, nil
	case MarkerBig:
		return nil, errs.ErrBigEndianImage
	default:
		return nil, errs.ErrBadEndianMarker
	}
}
