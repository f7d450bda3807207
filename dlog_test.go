package tpke

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecoder(t *testing.T) {
	for _, g := range allGroups(t) {
		t.Run(g.Name(), func(t *testing.T) {
			d, err := NewDecoder(g, KeyLimbBits)
			require.NoError(t, err)
			require.Equal(t, uint64(1)<<16, d.Bound())
			require.Equal(t, KeyLimbBits, d.Bits())

			for _, v := range []uint64{0, 1, 255, 256, 257, 4242, 65534, 65535} {
				got, err := d.Decode(g.BasePoint().Mul(g.ScalarFromUint64(v)))
				require.NoError(t, err)
				require.Equal(t, v, got)
			}

			_, err = d.Decode(g.BasePoint().Mul(g.ScalarFromUint64(d.Bound())))
			require.ErrorIs(t, err, ErrDecodeFailure)
			_, err = d.Decode(g.BasePoint().Mul(g.ScalarOne().Negate()))
			require.ErrorIs(t, err, ErrDecodeFailure)
		})
	}
}

func TestDecoderOddBits(t *testing.T) {
	g := NewEd25519Group()
	d, err := NewDecoder(g, 5)
	require.NoError(t, err)
	for v := uint64(0); v < 32; v++ {
		got, err := d.Decode(g.BasePoint().Mul(g.ScalarFromUint64(v)))
		require.NoError(t, err)
		require.Equal(t, v, got)
	}
	// one past the bound
	_, err = d.Decode(g.BasePoint().Mul(g.ScalarFromUint64(32)))
	require.ErrorIs(t, err, ErrDecodeFailure)

	_, err = NewDecoder(g, 0)
	require.ErrorIs(t, err, ErrInvalidParameters)
	_, err = NewDecoder(g, 33)
	require.ErrorIs(t, err, ErrInvalidParameters)
}

func BenchmarkDecode(b *testing.B) {
	g := NewEd25519Group()
	d, err := NewDecoder(g, KeyLimbBits)
	require.NoError(b, err)
	p := g.BasePoint().Mul(g.ScalarFromUint64(65535))
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := d.Decode(p); err != nil {
			b.Fatal(err)
		}
	}
}
