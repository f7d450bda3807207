package tpke

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKeyProof(t *testing.T) {
	for _, g := range allGroups(t) {
		t.Run(g.Name(), func(t *testing.T) {
			kp, err := GenerateKeyPair(g)
			require.NoError(t, err)
			other, err := GenerateKeyPair(g)
			require.NoError(t, err)

			proof, err := kp.ProvePossession(g)
			require.NoError(t, err)
			require.NoError(t, VerifyKeyProof(g, kp.PublicKey, proof))

			require.ErrorIs(t, VerifyKeyProof(g, other.PublicKey, proof), ErrInvalidKeyProof)
			require.ErrorIs(t, VerifyKeyProof(g, kp.PublicKey, nil), ErrInvalidKeyProof)
			require.ErrorIs(t, VerifyKeyProof(g, nil, proof), ErrInvalidKeyProof)

			forged := &KeyProof{Challenge: proof.Challenge, Response: proof.Response.Add(g.ScalarOne())}
			require.False(t, forged.Verify(g, kp.PublicKey))

			// a proof made with the wrong secret does not verify
			bad, err := NewKeyProof(g, other.SecretKey, kp.PublicKey)
			require.NoError(t, err)
			require.False(t, bad.Verify(g, kp.PublicKey))
		})
	}
}

func TestKeyPairFromSecret(t *testing.T) {
	g := NewSecp256k1Group()
	kp, err := GenerateKeyPair(g)
	require.NoError(t, err)

	again, err := KeyPairFromSecret(g, kp.SecretKey)
	require.NoError(t, err)
	require.True(t, again.PublicKey.Equal(kp.PublicKey))

	_, err = KeyPairFromSecret(g, g.ScalarZero())
	require.ErrorIs(t, err, ErrInvalidSecretKey)
}
