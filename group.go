package tpke

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// Group defines the prime-order group the scheme runs over. Its scalars
// form the scalar field used for node indices, shares and secret keys.
type Group interface {
	// Metadata
	Name() string
	ScalarSize() int
	PointSize() int
	// Order returns the prime modulus of the scalar field.
	Order() *big.Int

	// Scalar constructors
	ScalarFromBytes([]byte) (Scalar, error)
	ScalarFromUniformBytes([]byte) (Scalar, error)
	ScalarFromUint64(uint64) Scalar
	ScalarFromBigInt(*big.Int) Scalar
	ScalarRandom() (Scalar, error)
	ScalarZero() Scalar
	ScalarOne() Scalar

	// Point constructors
	PointFromBytes([]byte) (Point, error)
	BasePoint() Point
	PointIdentity() Point
}

// Scalar is an element of the scalar field of a Group. Values are
// immutable: every arithmetic method returns a fresh Scalar.
type Scalar interface {
	// Bytes returns the canonical fixed-width encoding.
	Bytes() []byte
	String() string

	Add(Scalar) Scalar
	Sub(Scalar) Scalar
	Mul(Scalar) Scalar
	Negate() Scalar
	// Invert fails with ErrNoInverse on zero.
	Invert() (Scalar, error)

	Equal(Scalar) bool
	IsZero() bool

	// Zeroize clears the secret value in place.
	Zeroize()
}

// Point is a group element.
type Point interface {
	// Bytes returns the canonical fixed-width encoding.
	Bytes() []byte
	String() string

	Add(Point) Point
	Sub(Point) Point
	Mul(Scalar) Point
	Negate() Point

	Equal(Point) bool
	IsIdentity() bool
}

// GroupType names a supported group backend.
type GroupType string

const (
	GroupEd25519     GroupType = "ed25519"
	GroupSecp256k1   GroupType = "secp256k1"
	GroupBLS12381G1  GroupType = "bls12381-g1"
	DefaultGroupType           = GroupEd25519
)

// SupportedGroups lists every group NewGroup accepts.
func SupportedGroups() []GroupType {
	return []GroupType{GroupEd25519, GroupSecp256k1, GroupBLS12381G1}
}

// NewGroup creates a new group instance. An empty type selects the default.
func NewGroup(groupType GroupType) (Group, error) {
	switch groupType {
	case GroupEd25519, "":
		return NewEd25519Group(), nil
	case GroupSecp256k1:
		return NewSecp256k1Group(), nil
	case GroupBLS12381G1:
		return NewBLS12381Group(), nil
	default:
		return nil, ErrInvalidParameters.WithDetails(fmt.Sprintf("unsupported group: %s", groupType))
	}
}

// SecureRandom generates cryptographically secure random bytes
func SecureRandom(size int) ([]byte, error) {
	bytes := make([]byte, size)
	if _, err := rand.Read(bytes); err != nil {
		return nil, ErrRandomnessGeneration.WithCause(err)
	}
	return bytes, nil
}

// reduceBigInt returns v mod order as a non-negative integer.
func reduceBigInt(v, order *big.Int) *big.Int {
	r := new(big.Int).Mod(v, order)
	return r
}
