package tpke

import (
	"fmt"
)

// KeyProof is a Schnorr proof of knowledge of the secret key behind a
// public key. Nodes attach one when registering so a seller never encrypts
// shares to a key nobody can open.
type KeyProof struct {
	Challenge Scalar
	Response  Scalar
}

// NewKeyProof proves knowledge of secret for publicKey = secret·G.
func NewKeyProof(g Group, secret Scalar, publicKey Point) (*KeyProof, error) {
	nonce, err := RandomNonZeroScalar(g)
	if err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}
	defer nonce.Zeroize()

	// R = g^r
	commitment := g.BasePoint().Mul(nonce)

	// c = H(X || R)
	challenge, err := keyProofChallenge(g, publicKey, commitment)
	if err != nil {
		return nil, fmt.Errorf("failed to compute challenge: %w", err)
	}

	// s = r + c*x
	response := nonce.Add(challenge.Mul(secret))

	return &KeyProof{
		Challenge: challenge,
		Response:  response,
	}, nil
}

// Verify checks the proof against publicKey.
func (kp *KeyProof) Verify(g Group, publicKey Point) bool {
	if kp == nil || kp.Challenge == nil || kp.Response == nil {
		return false
	}

	// R' = g^s - c*X
	commitment := g.BasePoint().Mul(kp.Response).Sub(publicKey.Mul(kp.Challenge))

	expectedChallenge, err := keyProofChallenge(g, publicKey, commitment)
	if err != nil {
		return false
	}
	return kp.Challenge.Equal(expectedChallenge)
}

// ProvePossession returns a KeyProof for the pair.
func (kp *KeyPair) ProvePossession(g Group) (*KeyProof, error) {
	return NewKeyProof(g, kp.SecretKey, kp.PublicKey)
}

// VerifyKeyProof returns ErrInvalidKeyProof unless proof verifies for
// publicKey.
func VerifyKeyProof(g Group, publicKey Point, proof *KeyProof) error {
	if publicKey == nil {
		return ErrInvalidKeyProof.WithDetails("missing public key")
	}
	if !proof.Verify(g, publicKey) {
		return ErrInvalidKeyProof.WithContext("public_key", publicKey.String())
	}
	return nil
}

func keyProofChallenge(g Group, publicKey, commitment Point) (Scalar, error) {
	return ChallengeHash(g, []byte("key-possession"), publicKey.Bytes(), commitment.Bytes())
}
