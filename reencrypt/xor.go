package reencrypt

// Apply XORs buf in place with the keystream for path, consuming 8 pad
// bytes per step. A trailing partial step still consumes one full NextU64
// and uses only its low bytes, matching the on-disk cipher layout. XOR is
// an involution, so the same call encrypts and decrypts.
func Apply(ks Keystream, path string, buf []byte) {
	ks.SetKey(path)

	for pos := 0; pos < len(buf); pos += 8 {
		pad := ks.NextU64()

		end := min(pos+8, len(buf))
		for i := pos; i < end; i++ {
			buf[i] ^= byte(pad)
			pad >>= 8
		}
	}
}
