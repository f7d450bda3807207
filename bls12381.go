package tpke

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"math/big"

	"github.com/drand/kyber"
	bls "github.com/drand/kyber-bls12381"
	"github.com/drand/kyber/group/mod"
	"github.com/drand/kyber/util/random"
)

// bls12381Order is the prime order r of the BLS12-381 G1 subgroup.
var bls12381Order, _ = new(big.Int).SetString(
	"73eda753299d7d483339d80809a1d80553bda402fffe5bfeffffffff00000001", 16)

// BLS12381Group implements Group over BLS12-381 G1 through kyber. Points use
// the 48-byte compressed encoding. Scalar arithmetic is big.Int based and
// not constant time.
type BLS12381Group struct {
	g1 kyber.Group
}

// NewBLS12381Group creates a new BLS12-381 G1 group instance
func NewBLS12381Group() *BLS12381Group {
	return &BLS12381Group{g1: bls.NewBLS12381Suite().G1()}
}

func (g *BLS12381Group) Name() string    { return string(GroupBLS12381G1) }
func (g *BLS12381Group) ScalarSize() int { return g.g1.ScalarLen() }
func (g *BLS12381Group) PointSize() int  { return g.g1.PointLen() }
func (g *BLS12381Group) Order() *big.Int { return new(big.Int).Set(bls12381Order) }

func (g *BLS12381Group) ScalarFromBytes(data []byte) (Scalar, error) {
	if len(data) != g.ScalarSize() {
		return nil, ErrInvalidScalarLength
	}

	s := g.g1.Scalar()
	if err := s.UnmarshalBinary(data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidScalar, err)
	}
	out := &BLS12381Scalar{inner: s}
	if !bytes.Equal(out.Bytes(), data) {
		return nil, fmt.Errorf("%w: non-canonical encoding", ErrInvalidScalar)
	}
	return out, nil
}

func (g *BLS12381Group) ScalarFromUniformBytes(data []byte) (Scalar, error) {
	if len(data) < 32 {
		return nil, ErrInvalidScalarLength
	}
	return g.ScalarFromBigInt(new(big.Int).SetBytes(data)), nil
}

func (g *BLS12381Group) ScalarFromUint64(v uint64) Scalar {
	return g.ScalarFromBigInt(new(big.Int).SetUint64(v))
}

func (g *BLS12381Group) ScalarFromBigInt(v *big.Int) Scalar {
	return &BLS12381Scalar{inner: mod.NewInt(reduceBigInt(v, bls12381Order), bls12381Order)}
}

func (g *BLS12381Group) ScalarRandom() (Scalar, error) {
	return &BLS12381Scalar{inner: g.g1.Scalar().Pick(random.New())}, nil
}

func (g *BLS12381Group) ScalarZero() Scalar {
	return &BLS12381Scalar{inner: g.g1.Scalar().Zero()}
}

func (g *BLS12381Group) ScalarOne() Scalar {
	return &BLS12381Scalar{inner: g.g1.Scalar().One()}
}

func (g *BLS12381Group) PointFromBytes(data []byte) (Point, error) {
	if len(data) != g.PointSize() {
		return nil, ErrInvalidPointLength
	}

	p := g.g1.Point()
	if err := p.UnmarshalBinary(data); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPoint, err)
	}
	out := &BLS12381Point{inner: p}
	if !bytes.Equal(out.Bytes(), data) {
		return nil, fmt.Errorf("%w: non-canonical encoding", ErrInvalidPoint)
	}
	return out, nil
}

func (g *BLS12381Group) BasePoint() Point {
	return &BLS12381Point{inner: g.g1.Point().Base()}
}

func (g *BLS12381Group) PointIdentity() Point {
	return &BLS12381Point{inner: g.g1.Point().Null()}
}

// BLS12381Scalar implements the Scalar interface
type BLS12381Scalar struct {
	inner kyber.Scalar
}

func (s *BLS12381Scalar) Bytes() []byte {
	b, _ := s.inner.MarshalBinary()
	return b
}

func (s *BLS12381Scalar) String() string {
	return hex.EncodeToString(s.Bytes())
}

func (s *BLS12381Scalar) Add(other Scalar) Scalar {
	return &BLS12381Scalar{inner: s.inner.Clone().Add(s.inner, other.(*BLS12381Scalar).inner)}
}

func (s *BLS12381Scalar) Sub(other Scalar) Scalar {
	return &BLS12381Scalar{inner: s.inner.Clone().Sub(s.inner, other.(*BLS12381Scalar).inner)}
}

func (s *BLS12381Scalar) Mul(other Scalar) Scalar {
	return &BLS12381Scalar{inner: s.inner.Clone().Mul(s.inner, other.(*BLS12381Scalar).inner)}
}

func (s *BLS12381Scalar) Negate() Scalar {
	return &BLS12381Scalar{inner: s.inner.Clone().Neg(s.inner)}
}

func (s *BLS12381Scalar) Invert() (Scalar, error) {
	if s.IsZero() {
		return nil, ErrNoInverse
	}
	return &BLS12381Scalar{inner: s.inner.Clone().Inv(s.inner)}, nil
}

func (s *BLS12381Scalar) Equal(other Scalar) bool {
	o, ok := other.(*BLS12381Scalar)
	return ok && s.inner.Equal(o.inner)
}

func (s *BLS12381Scalar) IsZero() bool {
	return s.inner.Equal(s.inner.Clone().Zero())
}

func (s *BLS12381Scalar) Zeroize() {
	s.inner.Zero()
}

// BLS12381Point implements the Point interface
type BLS12381Point struct {
	inner kyber.Point
}

func (p *BLS12381Point) Bytes() []byte {
	b, _ := p.inner.MarshalBinary()
	return b
}

func (p *BLS12381Point) String() string {
	return hex.EncodeToString(p.Bytes())
}

func (p *BLS12381Point) Add(other Point) Point {
	return &BLS12381Point{inner: p.inner.Clone().Add(p.inner, other.(*BLS12381Point).inner)}
}

func (p *BLS12381Point) Sub(other Point) Point {
	return &BLS12381Point{inner: p.inner.Clone().Sub(p.inner, other.(*BLS12381Point).inner)}
}

func (p *BLS12381Point) Mul(scalar Scalar) Point {
	return &BLS12381Point{inner: p.inner.Clone().Mul(scalar.(*BLS12381Scalar).inner, p.inner)}
}

func (p *BLS12381Point) Negate() Point {
	return &BLS12381Point{inner: p.inner.Clone().Neg(p.inner)}
}

func (p *BLS12381Point) Equal(other Point) bool {
	o, ok := other.(*BLS12381Point)
	return ok && p.inner.Equal(o.inner)
}

func (p *BLS12381Point) IsIdentity() bool {
	return p.inner.Equal(p.inner.Clone().Null())
}
