package tpke

import (
	"fmt"
	"testing"

	"github.com/drand/kyber/share"
	"github.com/drand/kyber/util/random"
	"github.com/stretchr/testify/require"
)

// TestSplitInterpolate verifies that every t-subset of the shares recovers
// the secret and that t-1 shares do not.
func TestSplitInterpolate(t *testing.T) {
	for _, g := range allGroups(t) {
		for _, params := range [][2]int{{1, 1}, {2, 3}, {3, 5}, {5, 5}} {
			threshold, n := params[0], params[1]
			t.Run(fmt.Sprintf("%s/%d-of-%d", g.Name(), threshold, n), func(t *testing.T) {
				secret, err := g.ScalarRandom()
				require.NoError(t, err)
				shares, err := Split(g, secret, SequentialIndices(g, n), threshold)
				require.NoError(t, err)
				require.Len(t, shares, n)

				forEachSubset(n, threshold, func(subset []int) {
					picked := make([]*Share, len(subset))
					for i, pos := range subset {
						picked[i] = shares[pos]
					}
					got, err := Interpolate(g, picked)
					require.NoError(t, err)
					require.True(t, got.Equal(secret), "subset %v", subset)
				})

				if threshold > 1 {
					got, err := Interpolate(g, shares[:threshold-1])
					require.NoError(t, err)
					require.False(t, got.Equal(secret))
				}
				require.NoError(t, VerifyShares(g, shares, threshold))
			})
		}
	}
}

// forEachSubset calls fn with every k-element subset of [0, n) in
// lexicographic order.
func forEachSubset(n, k int, fn func([]int)) {
	subset := make([]int, k)
	var rec func(start, depth int)
	rec = func(start, depth int) {
		if depth == k {
			fn(append([]int(nil), subset...))
			return
		}
		for i := start; i < n; i++ {
			subset[depth] = i
			rec(i+1, depth+1)
		}
	}
	rec(0, 0)
}

func TestSplitRejects(t *testing.T) {
	g := NewEd25519Group()
	secret := g.ScalarFromUint64(5)

	_, err := Split(g, secret, SequentialIndices(g, 3), 0)
	require.ErrorIs(t, err, ErrInvalidParameters)

	_, err = Split(g, secret, SequentialIndices(g, 3), 4)
	require.ErrorIs(t, err, ErrInvalidParameters)

	_, err = Split(g, secret, NodeIndices(g, 1, 2, 2), 2)
	require.ErrorIs(t, err, ErrDuplicateIndex)

	_, err = Split(g, secret, []Scalar{g.ScalarOne(), g.ScalarZero()}, 2)
	require.ErrorIs(t, err, ErrInvalidParameters)

	// the secret survives the polynomial being wiped
	shares, err := Split(g, secret, SequentialIndices(g, 2), 1)
	require.NoError(t, err)
	require.True(t, secret.Equal(g.ScalarFromUint64(5)))
	require.True(t, shares[0].Value.Equal(secret))
}

func TestLagrangeCoefficients(t *testing.T) {
	for _, g := range allGroups(t) {
		t.Run(g.Name(), func(t *testing.T) {
			chosen := NodeIndices(g, 2, 5, 7, 11)
			coefficients, err := LagrangeCoefficients(g, chosen)
			require.NoError(t, err)

			// interpolating the constant polynomial 1 gives 1
			sum := g.ScalarZero()
			for _, c := range coefficients {
				sum = sum.Add(c)
			}
			require.True(t, sum.Equal(g.ScalarOne()))

			_, err = LagrangeCoefficients(g, nil)
			require.ErrorIs(t, err, ErrInsufficientShares)

			_, err = LagrangeCoefficients(g, NodeIndices(g, 3, 3))
			require.ErrorIs(t, err, ErrDuplicateIndex)
		})
	}
}

func TestVerifySharesDetectsTampering(t *testing.T) {
	g := NewSecp256k1Group()
	shares, err := Split(g, g.ScalarFromUint64(77), SequentialIndices(g, 4), 2)
	require.NoError(t, err)

	shares[2] = NewShare(shares[2].Index, shares[2].Value.Add(g.ScalarOne()))
	require.ErrorIs(t, VerifyShares(g, shares, 2), ErrParameterMismatch)
	require.ErrorIs(t, VerifyShares(g, shares[:1], 2), ErrInsufficientShares)
}

func TestContextReconstruct(t *testing.T) {
	g := NewEd25519Group()
	tc, err := GenContext(g, 4, 3, SequentialIndices(g, 4))
	require.NoError(t, err)

	secret := g.ScalarFromUint64(1 << 40)
	shares, err := Split(g, secret, tc.Indices(), 3)
	require.NoError(t, err)

	got, err := tc.Reconstruct(shares[1:])
	require.NoError(t, err)
	require.True(t, got.Equal(secret))

	_, err = tc.Reconstruct(shares[:2])
	require.ErrorIs(t, err, ErrInsufficientShares)

	foreign := NewShare(g.ScalarFromUint64(9), shares[0].Value)
	_, err = tc.Reconstruct([]*Share{shares[0], shares[1], foreign})
	require.ErrorIs(t, err, ErrUnknownIndex)
}

// TestKyberShares interpolates shares dealt by kyber's own polynomial,
// which places share i at x = i+1.
func TestKyberShares(t *testing.T) {
	g := NewBLS12381Group()
	const n, threshold = 5, 3

	secret, err := g.ScalarRandom()
	require.NoError(t, err)
	poly := share.NewPriPoly(g.g1, threshold, secret.(*BLS12381Scalar).inner, random.New())
	dealt := poly.Shares(n)

	picked := make([]*Share, 0, threshold)
	for _, pos := range []int{4, 0, 2} {
		s := dealt[pos]
		picked = append(picked, NewShare(g.ScalarFromUint64(uint64(s.I)+1), &BLS12381Scalar{inner: s.V}))
	}
	got, err := Interpolate(g, picked)
	require.NoError(t, err)
	require.True(t, got.Equal(secret))
}
