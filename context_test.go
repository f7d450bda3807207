package tpke

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenContext(t *testing.T) {
	g := NewEd25519Group()

	tc, err := GenContext(g, 3, 2, NodeIndices(g, 10, 20, 30))
	require.NoError(t, err)
	require.Equal(t, 3, tc.Total())
	require.Equal(t, 2, tc.Threshold())
	require.Equal(t, DefaultCipher, tc.Cipher().Algorithm())
	require.Equal(t, "none", tc.ProofSystem().Name())
	require.Equal(t, uint64(1)<<KeyLimbBits, tc.Decoder().Bound())

	pos, ok := tc.IndexOf(g.ScalarFromUint64(20))
	require.True(t, ok)
	require.Equal(t, 1, pos)
	_, ok = tc.IndexOf(g.ScalarFromUint64(2))
	require.False(t, ok)
	_, ok = tc.IndexOf(nil)
	require.False(t, ok)

	// callers cannot reorder the committee
	indices := tc.Indices()
	indices[0] = g.ScalarFromUint64(99)
	require.True(t, tc.Indices()[0].Equal(g.ScalarFromUint64(10)))

	t.Run("Fingerprint", func(t *testing.T) {
		same, err := GenContext(g, 3, 2, NodeIndices(g, 10, 20, 30))
		require.NoError(t, err)
		require.Equal(t, tc.ID(), same.ID())

		aes, err := NewSymmetricCipher(CipherAES256GCM)
		require.NoError(t, err)
		others := []func() (*ThresholdContext, error){
			func() (*ThresholdContext, error) { return GenContext(g, 3, 3, NodeIndices(g, 10, 20, 30)) },
			func() (*ThresholdContext, error) { return GenContext(g, 3, 2, NodeIndices(g, 10, 30, 20)) },
			func() (*ThresholdContext, error) {
				return GenContext(g, 3, 2, NodeIndices(g, 10, 20, 30), WithCipher(aes))
			},
			func() (*ThresholdContext, error) {
				s := NewSecp256k1Group()
				return GenContext(s, 3, 2, NodeIndices(s, 10, 20, 30))
			},
		}
		for i, mk := range others {
			other, err := mk()
			require.NoError(t, err)
			require.NotEqual(t, tc.ID(), other.ID(), "variant %d", i)
		}
	})

	t.Run("Invalid", func(t *testing.T) {
		_, err := GenContext(nil, 3, 2, NodeIndices(g, 1, 2, 3))
		require.ErrorIs(t, err, ErrInvalidParameters)
		_, err = GenContext(g, 3, 4, NodeIndices(g, 1, 2, 3))
		require.ErrorIs(t, err, ErrInvalidParameters)
		_, err = GenContext(g, 0, 0, nil)
		require.ErrorIs(t, err, ErrInvalidParameters)
		_, err = GenContext(g, MaxNodes+1, 2, SequentialIndices(g, MaxNodes+1))
		require.ErrorIs(t, err, ErrInvalidParameters)
		_, err = GenContext(g, 3, 2, NodeIndices(g, 1, 1, 3))
		require.ErrorIs(t, err, ErrInvalidParameters)
	})
}
