package tpke

import (
	"encoding/binary"

	"golang.org/x/crypto/blake2b"
)

// Domain separators for hashing into the scalar field.
const (
	domainHashToScalar = "TPKE_HASH_TO_SCALAR"
	domainChallenge    = "TPKE_CHALLENGE"
)

// RandomNonZeroScalar draws uniform scalars until one is nonzero.
func RandomNonZeroScalar(g Group) (Scalar, error) {
	for {
		s, err := g.ScalarRandom()
		if err != nil {
			return nil, err
		}
		if !s.IsZero() {
			return s, nil
		}
	}
}

// NodeIndices maps small integer node identifiers to field elements.
func NodeIndices(g Group, ids ...uint32) []Scalar {
	indices := make([]Scalar, len(ids))
	for i, id := range ids {
		indices[i] = g.ScalarFromUint64(uint64(id))
	}
	return indices
}

// SequentialIndices returns the indices 1..n.
func SequentialIndices(g Group, n int) []Scalar {
	indices := make([]Scalar, n)
	for i := range indices {
		indices[i] = g.ScalarFromUint64(uint64(i + 1))
	}
	return indices
}

// HashToScalar hashes data to a scalar value using a 64-byte blake2b
// digest, reduced uniformly by the group.
func HashToScalar(g Group, data ...[]byte) (Scalar, error) {
	return hashToScalar(g, domainHashToScalar, data...)
}

// ChallengeHash computes a Fiat-Shamir challenge over a length-prefixed
// transcript.
func ChallengeHash(g Group, transcript ...[]byte) (Scalar, error) {
	return hashToScalar(g, domainChallenge, transcript...)
}

func hashToScalar(g Group, domain string, data ...[]byte) (Scalar, error) {
	hasher, err := blake2b.New512(nil)
	if err != nil {
		return nil, err
	}
	hasher.Write([]byte(domain))
	hasher.Write([]byte(g.Name()))

	var lengthBytes [4]byte
	for _, d := range data {
		binary.BigEndian.PutUint32(lengthBytes[:], uint32(len(d)))
		hasher.Write(lengthBytes[:])
		hasher.Write(d)
	}

	return g.ScalarFromUniformBytes(hasher.Sum(nil))
}

// BatchInvert inverts every scalar with a single field inversion
// (Montgomery's trick). Any zero input yields ErrNoInverse.
func BatchInvert(scalars []Scalar) ([]Scalar, error) {
	n := len(scalars)
	if n == 0 {
		return nil, nil
	}

	for i, scalar := range scalars {
		if scalar.IsZero() {
			return nil, ErrNoInverse.WithContext("position", i)
		}
	}

	// partials[i] = s0 * s1 * ... * si
	partials := make([]Scalar, n)
	partials[0] = scalars[0]
	for i := 1; i < n; i++ {
		partials[i] = partials[i-1].Mul(scalars[i])
	}

	acc, err := partials[n-1].Invert()
	if err != nil {
		return nil, err
	}

	// acc holds (s0 * ... * si)^-1 at the top of each iteration.
	inverses := make([]Scalar, n)
	for i := n - 1; i > 0; i-- {
		inverses[i] = acc.Mul(partials[i-1])
		acc = acc.Mul(scalars[i])
	}
	inverses[0] = acc

	return inverses, nil
}

// ZeroizeBytes securely clears a byte slice
func ZeroizeBytes(data []byte) {
	for i := range data {
		data[i] = 0
	}
}

// ZeroizeScalarSlice securely clears a slice of scalars
func ZeroizeScalarSlice(scalars []Scalar) {
	for _, scalar := range scalars {
		if scalar != nil {
			scalar.Zeroize()
		}
	}
}
