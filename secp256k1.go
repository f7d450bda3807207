package tpke

import (
	"bytes"
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math/big"
	"runtime"

	"github.com/btcsuite/btcd/btcec/v2"
)

// Secp256k1Group implements Group over secp256k1. Points use the 33-byte
// compressed SEC1 encoding; the identity is encoded as 33 zero bytes.
type Secp256k1Group struct{}

// NewSecp256k1Group creates a new secp256k1 group instance
func NewSecp256k1Group() *Secp256k1Group {
	return &Secp256k1Group{}
}

func (g *Secp256k1Group) Name() string    { return string(GroupSecp256k1) }
func (g *Secp256k1Group) ScalarSize() int { return 32 }
func (g *Secp256k1Group) PointSize() int  { return 33 }

func (g *Secp256k1Group) Order() *big.Int {
	return new(big.Int).Set(btcec.S256().Params().N)
}

func (g *Secp256k1Group) ScalarFromBytes(data []byte) (Scalar, error) {
	if len(data) != 32 {
		return nil, ErrInvalidScalarLength
	}

	scalar := new(btcec.ModNScalar)
	if overflow := scalar.SetBytes((*[32]byte)(data)); overflow != 0 {
		return nil, ErrInvalidScalar
	}

	return &Secp256k1Scalar{inner: scalar}, nil
}

func (g *Secp256k1Group) ScalarFromUniformBytes(data []byte) (Scalar, error) {
	if len(data) < 32 {
		return nil, fmt.Errorf("%w: need at least 32 bytes, got %d", ErrInvalidScalarLength, len(data))
	}

	// Reduce the whole input so wide hashes stay unbiased.
	return g.ScalarFromBigInt(new(big.Int).SetBytes(data)), nil
}

func (g *Secp256k1Group) ScalarFromUint64(v uint64) Scalar {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	scalar := new(btcec.ModNScalar)
	scalar.SetByteSlice(buf[:])
	return &Secp256k1Scalar{inner: scalar}
}

func (g *Secp256k1Group) ScalarFromBigInt(v *big.Int) Scalar {
	var buf [32]byte
	reduceBigInt(v, btcec.S256().Params().N).FillBytes(buf[:])
	scalar := new(btcec.ModNScalar)
	scalar.SetBytes(&buf)
	return &Secp256k1Scalar{inner: scalar}
}

func (g *Secp256k1Group) ScalarRandom() (Scalar, error) {
	var buf [32]byte
	defer ZeroizeBytes(buf[:])
	for {
		if _, err := rand.Read(buf[:]); err != nil {
			return nil, ErrRandomnessGeneration.WithCause(err)
		}

		scalar := new(btcec.ModNScalar)
		if overflow := scalar.SetBytes(&buf); overflow == 0 {
			s := &Secp256k1Scalar{inner: scalar}
			runtime.SetFinalizer(s, (*Secp256k1Scalar).Zeroize)
			return s, nil
		}
		// If overflow, try again with new random bytes
	}
}

func (g *Secp256k1Group) ScalarZero() Scalar {
	return &Secp256k1Scalar{inner: new(btcec.ModNScalar)}
}

func (g *Secp256k1Group) ScalarOne() Scalar {
	scalar := new(btcec.ModNScalar)
	scalar.SetInt(1)
	return &Secp256k1Scalar{inner: scalar}
}

func (g *Secp256k1Group) PointFromBytes(data []byte) (Point, error) {
	if len(data) != 33 {
		return nil, ErrInvalidPointLength
	}
	if bytes.Equal(data, make([]byte, 33)) {
		return &Secp256k1Point{}, nil
	}
	if data[0] != 0x02 && data[0] != 0x03 {
		return nil, fmt.Errorf("%w: not a compressed encoding", ErrInvalidPoint)
	}

	pubKey, err := btcec.ParsePubKey(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPoint, err)
	}

	return &Secp256k1Point{inner: pubKey}, nil
}

func (g *Secp256k1Group) BasePoint() Point {
	return &Secp256k1Point{inner: btcec.Generator()}
}

func (g *Secp256k1Group) PointIdentity() Point {
	// Point at infinity
	return &Secp256k1Point{inner: nil}
}

// Secp256k1Scalar implements the Scalar interface
type Secp256k1Scalar struct {
	inner *btcec.ModNScalar
}

func (s *Secp256k1Scalar) Bytes() []byte {
	var bytes [32]byte
	s.inner.PutBytes(&bytes)
	return bytes[:]
}

func (s *Secp256k1Scalar) String() string {
	return hex.EncodeToString(s.Bytes())
}

func (s *Secp256k1Scalar) Add(other Scalar) Scalar {
	result := new(btcec.ModNScalar)
	result.Add2(s.inner, other.(*Secp256k1Scalar).inner)
	return &Secp256k1Scalar{inner: result}
}

func (s *Secp256k1Scalar) Sub(other Scalar) Scalar {
	neg := new(btcec.ModNScalar).NegateVal(other.(*Secp256k1Scalar).inner)
	result := new(btcec.ModNScalar)
	result.Add2(s.inner, neg)
	return &Secp256k1Scalar{inner: result}
}

func (s *Secp256k1Scalar) Mul(other Scalar) Scalar {
	result := new(btcec.ModNScalar)
	result.Mul2(s.inner, other.(*Secp256k1Scalar).inner)
	return &Secp256k1Scalar{inner: result}
}

func (s *Secp256k1Scalar) Negate() Scalar {
	result := new(btcec.ModNScalar)
	result.NegateVal(s.inner)
	return &Secp256k1Scalar{inner: result}
}

func (s *Secp256k1Scalar) Invert() (Scalar, error) {
	if s.IsZero() {
		return nil, ErrNoInverse
	}

	result := new(btcec.ModNScalar)
	// WARNING: btcec/v2 only offers variable-time scalar inversion. Prefer
	// ed25519 where inversion timing matters.
	result.Set(s.inner).InverseNonConst()
	return &Secp256k1Scalar{inner: result}, nil
}

func (s *Secp256k1Scalar) Equal(other Scalar) bool {
	o, ok := other.(*Secp256k1Scalar)
	return ok && s.inner.Equals(o.inner)
}

func (s *Secp256k1Scalar) IsZero() bool {
	return s.inner.IsZero()
}

func (s *Secp256k1Scalar) Zeroize() {
	s.inner.Zero()
	runtime.SetFinalizer(s, nil)
}

// Secp256k1Point implements the Point interface. A nil inner key is the
// point at infinity.
type Secp256k1Point struct {
	inner *btcec.PublicKey
}

func (p *Secp256k1Point) Bytes() []byte {
	if p.inner == nil {
		return make([]byte, 33) // Point at infinity
	}
	return p.inner.SerializeCompressed()
}

func (p *Secp256k1Point) String() string {
	return hex.EncodeToString(p.Bytes())
}

// fromJacobian converts back to affine, mapping infinity to the nil point.
func fromJacobian(jac *btcec.JacobianPoint) *Secp256k1Point {
	if jac.Z.Normalize().IsZero() || (jac.X.Normalize().IsZero() && jac.Y.Normalize().IsZero()) {
		return &Secp256k1Point{}
	}
	jac.ToAffine()
	return &Secp256k1Point{inner: btcec.NewPublicKey(&jac.X, &jac.Y)}
}

func (p *Secp256k1Point) Add(other Point) Point {
	o := other.(*Secp256k1Point)
	if p.inner == nil {
		return o
	}
	if o.inner == nil {
		return p
	}

	var a, b, result btcec.JacobianPoint
	p.inner.AsJacobian(&a)
	o.inner.AsJacobian(&b)

	// WARNING: variable-time point addition.
	btcec.AddNonConst(&a, &b, &result)
	return fromJacobian(&result)
}

func (p *Secp256k1Point) Sub(other Point) Point {
	return p.Add(other.Negate())
}

func (p *Secp256k1Point) Mul(scalar Scalar) Point {
	k := scalar.(*Secp256k1Scalar).inner
	if p.inner == nil || k.IsZero() {
		return &Secp256k1Point{}
	}

	var pointJac, result btcec.JacobianPoint
	p.inner.AsJacobian(&pointJac)

	// WARNING: variable-time scalar multiplication.
	btcec.ScalarMultNonConst(k, &pointJac, &result)
	return fromJacobian(&result)
}

func (p *Secp256k1Point) Negate() Point {
	if p.inner == nil {
		return p // Point at infinity
	}

	var jac btcec.JacobianPoint
	p.inner.AsJacobian(&jac)
	jac.Y.Negate(1).Normalize()
	return fromJacobian(&jac)
}

func (p *Secp256k1Point) Equal(other Point) bool {
	o, ok := other.(*Secp256k1Point)
	if !ok {
		return false
	}
	if p.inner == nil || o.inner == nil {
		return p.inner == nil && o.inner == nil
	}
	return p.inner.IsEqual(o.inner)
}

func (p *Secp256k1Point) IsIdentity() bool {
	return p.inner == nil
}
