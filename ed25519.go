package tpke

import (
	"bytes"
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math/big"
	"runtime"

	"filippo.io/edwards25519"
)

// ed25519Order is the prime order l = 2^252 + 27742317777372353535851937790883648493.
var ed25519Order, _ = new(big.Int).SetString(
	"7237005577332262213973186563042994240857116359379907606001950938285454250989", 10)

// Ed25519Group implements Group over the prime-order subgroup of edwards25519.
// Scalar arithmetic is constant time.
type Ed25519Group struct{}

// NewEd25519Group creates a new Ed25519 group instance
func NewEd25519Group() *Ed25519Group {
	return &Ed25519Group{}
}

func (g *Ed25519Group) Name() string    { return string(GroupEd25519) }
func (g *Ed25519Group) ScalarSize() int { return 32 }
func (g *Ed25519Group) PointSize() int  { return 32 }
func (g *Ed25519Group) Order() *big.Int { return new(big.Int).Set(ed25519Order) }

func (g *Ed25519Group) ScalarFromBytes(data []byte) (Scalar, error) {
	if len(data) != 32 {
		return nil, ErrInvalidScalarLength
	}

	scalar, err := edwards25519.NewScalar().SetCanonicalBytes(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScalar, err)
	}

	return &Ed25519Scalar{inner: scalar}, nil
}

func (g *Ed25519Group) ScalarFromUniformBytes(data []byte) (Scalar, error) {
	if len(data) < 32 {
		return nil, ErrInvalidScalarLength
	}

	// SetUniformBytes wants exactly 64 bytes; shorter input is zero padded.
	uniformBytes := make([]byte, 64)
	copy(uniformBytes, data)

	scalar, err := edwards25519.NewScalar().SetUniformBytes(uniformBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScalar, err)
	}
	return &Ed25519Scalar{inner: scalar}, nil
}

func (g *Ed25519Group) ScalarFromUint64(v uint64) Scalar {
	var buf [32]byte
	binary.LittleEndian.PutUint64(buf[:8], v)
	// Any 64-bit value is below l, so the encoding is always canonical.
	scalar, _ := edwards25519.NewScalar().SetCanonicalBytes(buf[:])
	return &Ed25519Scalar{inner: scalar}
}

func (g *Ed25519Group) ScalarFromBigInt(v *big.Int) Scalar {
	be := reduceBigInt(v, ed25519Order).FillBytes(make([]byte, 32))
	le := make([]byte, 32)
	for i := range be {
		le[31-i] = be[i]
	}
	scalar, _ := edwards25519.NewScalar().SetCanonicalBytes(le)
	return &Ed25519Scalar{inner: scalar}
}

func (g *Ed25519Group) ScalarRandom() (Scalar, error) {
	bytes := make([]byte, 64) // 64 bytes for a uniform reduction
	if _, err := rand.Read(bytes); err != nil {
		return nil, ErrRandomnessGeneration.WithCause(err)
	}
	defer ZeroizeBytes(bytes)

	scalar, _ := edwards25519.NewScalar().SetUniformBytes(bytes)
	return NewEd25519Scalar(scalar), nil
}

// NewEd25519Scalar creates a new Ed25519Scalar with automatic cleanup via finalizer
func NewEd25519Scalar(inner *edwards25519.Scalar) *Ed25519Scalar {
	s := &Ed25519Scalar{inner: inner}
	runtime.SetFinalizer(s, (*Ed25519Scalar).finalize)
	return s
}

// finalize is called by the garbage collector as backup cleanup
func (s *Ed25519Scalar) finalize() {
	if s.inner != nil {
		s.Zeroize()
	}
}

func (g *Ed25519Group) ScalarZero() Scalar {
	return &Ed25519Scalar{inner: edwards25519.NewScalar()}
}

func (g *Ed25519Group) ScalarOne() Scalar {
	return g.ScalarFromUint64(1)
}

func (g *Ed25519Group) PointFromBytes(data []byte) (Point, error) {
	if len(data) != 32 {
		return nil, ErrInvalidPointLength
	}

	point, err := new(edwards25519.Point).SetBytes(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPoint, err)
	}
	// SetBytes accepts non-canonical encodings of valid points; published
	// artifacts must round-trip byte for byte.
	if !bytes.Equal(point.Bytes(), data) {
		return nil, fmt.Errorf("%w: non-canonical encoding", ErrInvalidPoint)
	}

	return &Ed25519Point{inner: point}, nil
}

func (g *Ed25519Group) BasePoint() Point {
	return &Ed25519Point{inner: edwards25519.NewGeneratorPoint()}
}

func (g *Ed25519Group) PointIdentity() Point {
	return &Ed25519Point{inner: edwards25519.NewIdentityPoint()}
}

// Ed25519Scalar implements the Scalar interface
type Ed25519Scalar struct {
	inner *edwards25519.Scalar
}

func (s *Ed25519Scalar) Bytes() []byte {
	return s.inner.Bytes()
}

func (s *Ed25519Scalar) String() string {
	return hex.EncodeToString(s.Bytes())
}

func (s *Ed25519Scalar) Add(other Scalar) Scalar {
	result := edwards25519.NewScalar()
	result.Add(s.inner, other.(*Ed25519Scalar).inner)
	return &Ed25519Scalar{inner: result}
}

func (s *Ed25519Scalar) Sub(other Scalar) Scalar {
	result := edwards25519.NewScalar()
	result.Subtract(s.inner, other.(*Ed25519Scalar).inner)
	return &Ed25519Scalar{inner: result}
}

func (s *Ed25519Scalar) Mul(other Scalar) Scalar {
	result := edwards25519.NewScalar()
	result.Multiply(s.inner, other.(*Ed25519Scalar).inner)
	return &Ed25519Scalar{inner: result}
}

func (s *Ed25519Scalar) Negate() Scalar {
	result := edwards25519.NewScalar()
	result.Negate(s.inner)
	return &Ed25519Scalar{inner: result}
}

func (s *Ed25519Scalar) Invert() (Scalar, error) {
	if s.IsZero() {
		return nil, ErrNoInverse
	}

	result := edwards25519.NewScalar()
	result.Invert(s.inner)
	return &Ed25519Scalar{inner: result}, nil
}

func (s *Ed25519Scalar) Equal(other Scalar) bool {
	o, ok := other.(*Ed25519Scalar)
	return ok && s.inner.Equal(o.inner) == 1
}

func (s *Ed25519Scalar) IsZero() bool {
	return s.inner.Equal(edwards25519.NewScalar()) == 1
}

func (s *Ed25519Scalar) Zeroize() {
	s.inner.Set(edwards25519.NewScalar())
	runtime.SetFinalizer(s, nil)
}

// Ed25519Point implements the Point interface
type Ed25519Point struct {
	inner *edwards25519.Point
}

func (p *Ed25519Point) Bytes() []byte {
	return p.inner.Bytes()
}

func (p *Ed25519Point) String() string {
	return hex.EncodeToString(p.Bytes())
}

func (p *Ed25519Point) Add(other Point) Point {
	result := edwards25519.NewIdentityPoint()
	result.Add(p.inner, other.(*Ed25519Point).inner)
	return &Ed25519Point{inner: result}
}

func (p *Ed25519Point) Sub(other Point) Point {
	result := edwards25519.NewIdentityPoint()
	result.Subtract(p.inner, other.(*Ed25519Point).inner)
	return &Ed25519Point{inner: result}
}

func (p *Ed25519Point) Mul(scalar Scalar) Point {
	result := edwards25519.NewIdentityPoint()
	result.ScalarMult(scalar.(*Ed25519Scalar).inner, p.inner)
	return &Ed25519Point{inner: result}
}

func (p *Ed25519Point) Negate() Point {
	result := edwards25519.NewIdentityPoint()
	result.Negate(p.inner)
	return &Ed25519Point{inner: result}
}

func (p *Ed25519Point) Equal(other Point) bool {
	o, ok := other.(*Ed25519Point)
	return ok && p.inner.Equal(o.inner) == 1
}

func (p *Ed25519Point) IsIdentity() bool {
	return p.inner.Equal(edwards25519.NewIdentityPoint()) == 1
}
