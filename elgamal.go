package tpke

import (
	"fmt"
)

// KeyPair is an ElGamal key pair: PublicKey = SecretKey·G.
type KeyPair struct {
	SecretKey Scalar
	PublicKey Point
}

// GenerateKeyPair draws a nonzero secret key and derives its public key.
func GenerateKeyPair(g Group) (*KeyPair, error) {
	sk, err := RandomNonZeroScalar(g)
	if err != nil {
		return nil, fmt.Errorf("failed to generate secret key: %w", err)
	}
	return &KeyPair{
		SecretKey: sk,
		PublicKey: g.BasePoint().Mul(sk),
	}, nil
}

// KeyPairFromSecret rebuilds a key pair from a stored secret key.
func KeyPairFromSecret(g Group, sk Scalar) (*KeyPair, error) {
	if sk == nil || sk.IsZero() {
		return nil, ErrInvalidSecretKey.WithDetails("secret key is zero")
	}
	return &KeyPair{SecretKey: sk, PublicKey: g.BasePoint().Mul(sk)}, nil
}

// Zeroize clears the secret key.
func (kp *KeyPair) Zeroize() {
	if kp.SecretKey != nil {
		kp.SecretKey.Zeroize()
	}
}

// Ciphertext is an exponential ElGamal ciphertext (C1, C2) = (r·G, m·G + r·pk).
type Ciphertext struct {
	C1 Point
	C2 Point
}

// Add returns the component-wise sum, an encryption of the sum of the
// plaintexts under the same key.
func (c *Ciphertext) Add(other *Ciphertext) *Ciphertext {
	return &Ciphertext{C1: c.C1.Add(other.C1), C2: c.C2.Add(other.C2)}
}

// Scale returns (k·C1, k·C2), an encryption of k·m.
func (c *Ciphertext) Scale(k Scalar) *Ciphertext {
	return &Ciphertext{C1: c.C1.Mul(k), C2: c.C2.Mul(k)}
}

// Equal reports component-wise equality.
func (c *Ciphertext) Equal(other *Ciphertext) bool {
	return other != nil && c.C1.Equal(other.C1) && c.C2.Equal(other.C2)
}

// Encrypt encrypts m under pk with fresh randomness.
func Encrypt(g Group, pk Point, m Scalar) (*Ciphertext, error) {
	ct, r, err := encrypt(g, pk, m)
	if err != nil {
		return nil, err
	}
	r.Zeroize()
	return ct, nil
}

// encrypt also returns the randomness r for proof systems.
func encrypt(g Group, pk Point, m Scalar) (*Ciphertext, Scalar, error) {
	r, err := RandomNonZeroScalar(g)
	if err != nil {
		return nil, nil, err
	}
	base := g.BasePoint()
	return &Ciphertext{
		C1: base.Mul(r),
		C2: base.Mul(m).Add(pk.Mul(r)),
	}, r, nil
}

// InnerProduct returns sum_i ws[i]·cs[i].
func InnerProduct(g Group, cs []*Ciphertext, ws []Scalar) (*Ciphertext, error) {
	if len(cs) != len(ws) {
		return nil, ErrParameterMismatch.Detailf("%d ciphertexts, %d weights", len(cs), len(ws))
	}
	acc := &Ciphertext{C1: g.PointIdentity(), C2: g.PointIdentity()}
	for i := range cs {
		acc = acc.Add(cs[i].Scale(ws[i]))
	}
	return acc, nil
}

// ReEncryptCiphertext turns an encryption under registered into an encryption of the
// same plaintext under target. sk must be the secret key of registered.
//
// With fresh k the output is (k·G, (C2 + k·target) - sk·C1). The plaintext
// point m·G is never formed on its own.
func ReEncryptCiphertext(g Group, c *Ciphertext, sk Scalar, registered, target Point) (*Ciphertext, error) {
	ct, k, err := reEncrypt(g, c, sk, registered, target)
	if err != nil {
		return nil, err
	}
	k.Zeroize()
	return ct, nil
}

func reEncrypt(g Group, c *Ciphertext, sk Scalar, registered, target Point) (*Ciphertext, Scalar, error) {
	if sk == nil || sk.IsZero() {
		return nil, nil, ErrInvalidSecretKey.WithDetails("secret key is zero")
	}
	base := g.BasePoint()
	if !base.Mul(sk).Equal(registered) {
		return nil, nil, ErrInvalidSecretKey
	}

	k, err := RandomNonZeroScalar(g)
	if err != nil {
		return nil, nil, err
	}

	masked := c.C2.Add(target.Mul(k))
	return &Ciphertext{
		C1: base.Mul(k),
		C2: masked.Sub(c.C1.Mul(sk)),
	}, k, nil
}

// decryptPoint strips the mask and returns m·G.
func decryptPoint(sk Scalar, c *Ciphertext) Point {
	return c.C2.Sub(c.C1.Mul(sk))
}

// Decrypt opens c with sk and decodes the plaintext with d.
func Decrypt(d *Decoder, sk Scalar, c *Ciphertext) (uint64, error) {
	return d.Decode(decryptPoint(sk, c))
}
