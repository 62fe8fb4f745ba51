// Package crc32forge manipulates raw CRC-32 register states and forges
// byte suffixes that steer a checksum to a chosen value.
//
// The package works with the reflected IEEE polynomial (0xEDB88320), the
// variant used by gzip, zlib and the asset archives this module rewrites.
// Unlike hash/crc32, which only exposes finalized checksums, every
// function here operates on the internal shift register:
//
//	state := crc32forge.InitialState
//	state = crc32forge.Update(state, []byte("hello"))
//	sum := crc32forge.Finalize(state) // == crc32.ChecksumIEEE([]byte("hello"))
//
// Each per-byte step is invertible, so Unstep and Reverse walk a register
// backwards through known input. Combining both directions, Forge performs
// a meet-in-the-middle search over the 4-byte space between two register
// states: the forward half tabulates all 65536 two-byte extensions of the
// start state, and the backward half rewinds the target through the last
// two steps until it hits a tabulated entry. The search costs two
// 65536-entry passes instead of 2^32 trials and always returns the same
// bytes for the same inputs. ForgeChecksum wraps Forge for the common case
// of appending a suffix that lands on a finalized checksum.
package crc32forge
