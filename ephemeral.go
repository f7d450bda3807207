package tpke

import (
	"encoding/binary"
)

const (
	// EphemeralKeySize is the AEAD key length in bytes.
	EphemeralKeySize = 32
	// KeyLimbBits is the width of one homomorphically encrypted key limb.
	KeyLimbBits = 16
	// KeyLimbs is the number of limbs an ephemeral key is carried in.
	KeyLimbs = EphemeralKeySize * 8 / KeyLimbBits
)

// EphemeralKey is the one-time AEAD key that protects a payload. It is the
// only value that crosses from the homomorphic layer to the symmetric one.
type EphemeralKey [EphemeralKeySize]byte

// NewEphemeralKey draws a fresh random key.
func NewEphemeralKey() (*EphemeralKey, error) {
	b, err := SecureRandom(EphemeralKeySize)
	if err != nil {
		return nil, err
	}
	defer ZeroizeBytes(b)

	var k EphemeralKey
	copy(k[:], b)
	return &k, nil
}

// Limbs splits the key into KeyLimbs big-endian 16-bit values.
func (k *EphemeralKey) Limbs() [KeyLimbs]uint64 {
	var limbs [KeyLimbs]uint64
	for i := range limbs {
		limbs[i] = uint64(binary.BigEndian.Uint16(k[2*i:]))
	}
	return limbs
}

// ephemeralKeyFromLimbs is the inverse of Limbs.
func ephemeralKeyFromLimbs(limbs []uint64) (*EphemeralKey, error) {
	if len(limbs) != KeyLimbs {
		return nil, ErrParameterMismatch.Detailf("expected %d key limbs, got %d", KeyLimbs, len(limbs))
	}
	var k EphemeralKey
	for i, l := range limbs {
		if l >= 1<<KeyLimbBits {
			return nil, ErrDecodeFailure.Detailf("limb %d out of range", i)
		}
		binary.BigEndian.PutUint16(k[2*i:], uint16(l))
	}
	return &k, nil
}

// Zeroize clears the key.
func (k *EphemeralKey) Zeroize() {
	ZeroizeBytes(k[:])
}
