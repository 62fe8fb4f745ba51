package reencrypt

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20"
	"golang.org/x/crypto/hkdf"

	"github.com/quarterpast/partforge/errs"
)

// MinKeySeedLen is the smallest seed NewChaChaKeystream accepts.
const MinKeySeedLen = 16

// Keystream produces the XOR pad applied over asset bytes. Reseeding with
// the same path must reproduce the same stream; that determinism is what
// lets decryption and the post-write verification replay encryption
// exactly. Production systems back this with licensed hardware, and
// NewChaChaKeystream provides a software generator with the same contract.
//
// Implementations are stateful and not safe for concurrent use. Batch
// gives each worker its own instance.
type Keystream interface {
	// SetKey reseeds the generator for the file at the given logical path.
	SetKey(path string)

	// NextU64 advances the stream and returns the next 8 pad bytes.
	// Byte b of the pad is (k >> (8*b)) & 0xFF.
	NextU64() uint64
}

type chachaKeystream struct {
	seed   []byte
	cipher *chacha20.Cipher
}

// NewChaChaKeystream returns a deterministic software keystream. SetKey
// derives a ChaCha20 key and nonce from the seed and the path through
// HKDF-SHA256, so equal seed and path pairs always yield equal streams
// while distinct paths diverge from the first byte.
func NewChaChaKeystream(seed []byte) (Keystream, error) {
	if len(seed) < MinKeySeedLen {
		return nil, fmt.Errorf("%w: got %d bytes, need at least %d",
			errs.ErrShortKeySeed, len(seed), MinKeySeedLen)
	}

	return &chachaKeystream{seed: append([]byte(nil), seed...)}, nil
}

func (k *chachaKeystream) SetKey(path string) {
	kdf := hkdf.New(sha256.New, k.seed, nil, []byte(path))

	var material [chacha20.KeySize + chacha20.NonceSize]byte
	if _, err := io.ReadFull(kdf, material[:]); err != nil {
		panic("reencrypt: hkdf expand: " + err.Error())
	}

	cipher, err := chacha20.NewUnauthenticatedCipher(
		material[:chacha20.KeySize], material[chacha20.KeySize:])
	if err != nil {
		panic("reencrypt: chacha20 init: " + err.Error())
	}

	k.cipher = cipher
}

func (k *chachaKeystream) NextU64() uint64 {
	var pad [8]byte
	k.cipher.XORKeyStream(pad[:], pad[:])

	return binary.LittleEndian.Uint64(pad[:])
}
