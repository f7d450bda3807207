package tpke

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func allGroups(t *testing.T) []Group {
	t.Helper()
	groups := make([]Group, 0, len(SupportedGroups()))
	for _, gt := range SupportedGroups() {
		g, err := NewGroup(gt)
		require.NoError(t, err)
		groups = append(groups, g)
	}
	return groups
}

// TestGroupConformance runs the same algebraic checks against every backend.
func TestGroupConformance(t *testing.T) {
	for _, g := range allGroups(t) {
		g := g
		t.Run(g.Name(), func(t *testing.T) {
			t.Run("ScalarArithmetic", func(t *testing.T) {
				a, err := RandomNonZeroScalar(g)
				require.NoError(t, err)
				b, err := RandomNonZeroScalar(g)
				require.NoError(t, err)

				require.True(t, a.Add(b).Sub(b).Equal(a))
				require.True(t, a.Add(a.Negate()).IsZero())
				require.True(t, a.Mul(g.ScalarOne()).Equal(a))
				require.True(t, a.Mul(b).Equal(b.Mul(a)))

				inv, err := a.Invert()
				require.NoError(t, err)
				require.True(t, a.Mul(inv).Equal(g.ScalarOne()))

				_, err = g.ScalarZero().Invert()
				require.ErrorIs(t, err, ErrNoInverse)
			})

			t.Run("ScalarsAreImmutable", func(t *testing.T) {
				a := g.ScalarFromUint64(7)
				b := g.ScalarFromUint64(5)
				_ = a.Add(b)
				_ = a.Mul(b)
				_ = a.Negate()
				require.True(t, a.Equal(g.ScalarFromUint64(7)))
				require.True(t, b.Equal(g.ScalarFromUint64(5)))
			})

			t.Run("ScalarEncoding", func(t *testing.T) {
				a, err := g.ScalarRandom()
				require.NoError(t, err)
				require.Len(t, a.Bytes(), g.ScalarSize())

				back, err := g.ScalarFromBytes(a.Bytes())
				require.NoError(t, err)
				require.True(t, back.Equal(a))

				_, err = g.ScalarFromBytes(make([]byte, g.ScalarSize()-1))
				require.Error(t, err)

				// the order itself is not a canonical scalar
				order := g.Order().Bytes()
				_, err = g.ScalarFromBytes(toScalarBytes(g, g.Order()))
				require.Error(t, err, "order %x accepted", order)
			})

			t.Run("ScalarFromBigIntReduces", func(t *testing.T) {
				v := new(big.Int).Add(g.Order(), big.NewInt(9))
				require.True(t, g.ScalarFromBigInt(v).Equal(g.ScalarFromUint64(9)))
				require.True(t, g.ScalarFromBigInt(big.NewInt(-1)).Equal(g.ScalarOne().Negate()))
			})

			t.Run("PointArithmetic", func(t *testing.T) {
				a := g.ScalarFromUint64(11)
				b := g.ScalarFromUint64(31)
				base := g.BasePoint()

				require.True(t, base.Mul(a).Add(base.Mul(b)).Equal(base.Mul(a.Add(b))))
				require.True(t, base.Mul(b).Sub(base.Mul(a)).Equal(base.Mul(g.ScalarFromUint64(20))))
				require.True(t, base.Mul(a).Negate().Equal(base.Mul(a.Negate())))
				require.True(t, base.Sub(base).IsIdentity())
				require.True(t, base.Mul(g.ScalarZero()).IsIdentity())
				require.True(t, g.PointIdentity().Mul(a).IsIdentity())
				require.True(t, g.PointIdentity().Add(base).Equal(base))
				require.False(t, base.IsIdentity())

				// Sub must not mutate its operands
				p, q := base.Mul(a), base.Mul(b)
				_ = p.Sub(q)
				require.True(t, q.Equal(base.Mul(b)))
				require.True(t, p.Equal(base.Mul(a)))
			})

			t.Run("PointEncoding", func(t *testing.T) {
				s, err := RandomNonZeroScalar(g)
				require.NoError(t, err)
				p := g.BasePoint().Mul(s)
				require.Len(t, p.Bytes(), g.PointSize())

				back, err := g.PointFromBytes(p.Bytes())
				require.NoError(t, err)
				require.True(t, back.Equal(p))

				id, err := g.PointFromBytes(g.PointIdentity().Bytes())
				require.NoError(t, err)
				require.True(t, id.IsIdentity())

				_, err = g.PointFromBytes(p.Bytes()[1:])
				require.Error(t, err)

				garbage := make([]byte, g.PointSize())
				for i := range garbage {
					garbage[i] = 0xff
				}
				_, err = g.PointFromBytes(garbage)
				require.Error(t, err)
			})

			t.Run("UniformBytes", func(t *testing.T) {
				buf := make([]byte, 64)
				for i := range buf {
					buf[i] = 0xff
				}
				s, err := g.ScalarFromUniformBytes(buf)
				require.NoError(t, err)
				back, err := g.ScalarFromBytes(s.Bytes())
				require.NoError(t, err)
				require.True(t, back.Equal(s))
			})
		})
	}
}

// toScalarBytes encodes v in the scalar byte order of g.
func toScalarBytes(g Group, v *big.Int) []byte {
	buf := make([]byte, g.ScalarSize())
	v.FillBytes(buf)
	if g.Name() == string(GroupEd25519) {
		for i, j := 0, len(buf)-1; i < j; i, j = i+1, j-1 {
			buf[i], buf[j] = buf[j], buf[i]
		}
	}
	return buf
}

func TestNewGroup(t *testing.T) {
	g, err := NewGroup("")
	require.NoError(t, err)
	require.Equal(t, string(DefaultGroupType), g.Name())

	_, err = NewGroup("p256")
	require.ErrorIs(t, err, ErrInvalidParameters)
}

func TestBatchInvert(t *testing.T) {
	g := NewSecp256k1Group()
	scalars := make([]Scalar, 6)
	for i := range scalars {
		s, err := RandomNonZeroScalar(g)
		require.NoError(t, err)
		scalars[i] = s
	}

	inverses, err := BatchInvert(scalars)
	require.NoError(t, err)
	for i, s := range scalars {
		want, err := s.Invert()
		require.NoError(t, err)
		require.True(t, inverses[i].Equal(want), "position %d", i)
	}

	single, err := BatchInvert(scalars[:1])
	require.NoError(t, err)
	require.True(t, single[0].Mul(scalars[0]).Equal(g.ScalarOne()))

	scalars[3] = g.ScalarZero()
	_, err = BatchInvert(scalars)
	require.ErrorIs(t, err, ErrNoInverse)
	require.Equal(t, 3, GetErrorContext(err)["position"])

	empty, err := BatchInvert(nil)
	require.NoError(t, err)
	require.Empty(t, empty)
}

func TestHashToScalar(t *testing.T) {
	for _, g := range allGroups(t) {
		a, err := HashToScalar(g, []byte("ab"), []byte("c"))
		require.NoError(t, err)
		b, err := HashToScalar(g, []byte("a"), []byte("bc"))
		require.NoError(t, err)
		require.False(t, a.Equal(b), "length prefixes must separate inputs")

		c, err := ChallengeHash(g, []byte("ab"), []byte("c"))
		require.NoError(t, err)
		require.False(t, a.Equal(c), "domains must separate hashes")

		again, err := HashToScalar(g, []byte("ab"), []byte("c"))
		require.NoError(t, err)
		require.True(t, a.Equal(again))
	}
}
