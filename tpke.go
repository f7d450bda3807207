package tpke

import (
	"fmt"
)

// KeyCiphertext is the seller's artifact for one node: the node's Shamir
// share of every ephemeral key limb, encrypted under the node's key.
type KeyCiphertext struct {
	Index     Scalar
	Recipient Point
	Parts     []*Ciphertext
	Proof     Proof
}

// ReEncryption is a node's output for one buyer: the same share parts,
// now encrypted under the buyer's key.
type ReEncryption struct {
	Index Scalar
	Parts []*Ciphertext
	Proof Proof
}

// CombinedCiphertext is the Lagrange combination of at least t
// re-encryptions. It encrypts the key limbs themselves under the buyer key.
type CombinedCiphertext struct {
	Indices []Scalar
	Parts   []*Ciphertext
	Proof   Proof
}

// Publication is everything the seller publishes for one message.
type Publication struct {
	Shares  []*KeyCiphertext
	Payload *SymmetricCiphertext
	Proof   Proof
}

// Share returns the KeyCiphertext addressed to idx.
func (p *Publication) Share(idx Scalar) (*KeyCiphertext, error) {
	for _, kc := range p.Shares {
		if kc.Index.Equal(idx) {
			return kc, nil
		}
	}
	return nil, ErrUnknownIndex.WithContext("index", scalarLabel(idx))
}

// GenKeyPair generates a key pair in the context's group.
func GenKeyPair(tc *ThresholdContext) (*KeyPair, error) {
	return GenerateKeyPair(tc.group)
}

// EncryptBytes encrypts msg under a fresh ephemeral key and shares that
// key among the nodes, whose public keys are given in context index order.
// The ephemeral key never leaves this call.
func EncryptBytes(tc *ThresholdContext, nodeKeys []Point, msg []byte) (*Publication, error) {
	if len(nodeKeys) != tc.total {
		return nil, ErrParameterMismatch.Detailf("%d node keys for %d nodes", len(nodeKeys), tc.total)
	}

	key, err := NewEphemeralKey()
	if err != nil {
		return nil, err
	}
	defer key.Zeroize()

	payload, err := tc.cipher.Encrypt(key, msg)
	if err != nil {
		return nil, err
	}

	limbs := key.Limbs()
	defer func() {
		for i := range limbs {
			limbs[i] = 0
		}
	}()

	kcs, witness, err := shareAndEncrypt(tc, nodeKeys, limbs[:])
	if err != nil {
		return nil, err
	}
	defer witness.Zeroize()

	pub := &Publication{Shares: kcs, Payload: payload}
	if pub.Proof, err = tc.proofs.ProveShares(tc, kcs, witness); err != nil {
		return nil, fmt.Errorf("failed to prove shares: %w", err)
	}
	return pub, nil
}

// EncryptValue threshold-encrypts a single value below the decoder bound
// without a symmetric layer. Each KeyCiphertext carries one part.
func EncryptValue(tc *ThresholdContext, nodeKeys []Point, v uint64) ([]*KeyCiphertext, error) {
	if len(nodeKeys) != tc.total {
		return nil, ErrParameterMismatch.Detailf("%d node keys for %d nodes", len(nodeKeys), tc.total)
	}
	if v >= tc.decoder.Bound() {
		return nil, ErrInvalidParameters.Detailf("value must be below %d", tc.decoder.Bound())
	}

	kcs, witness, err := shareAndEncrypt(tc, nodeKeys, []uint64{v})
	if err != nil {
		return nil, err
	}
	witness.Zeroize()
	return kcs, nil
}

// shareAndEncrypt Shamir-shares every value and encrypts node i's shares
// under nodeKeys[i].
func shareAndEncrypt(tc *ThresholdContext, nodeKeys []Point, values []uint64) ([]*KeyCiphertext, *ShareWitness, error) {
	g := tc.group
	for i, pk := range nodeKeys {
		if pk == nil || pk.IsIdentity() {
			return nil, nil, ErrInvalidParameters.Detailf("node key at position %d is the identity", i)
		}
	}

	witness := &ShareWitness{
		Shares:     make([][KeyLimbs]*Share, tc.total),
		Randomness: make([][KeyLimbs]Scalar, tc.total),
	}

	kcs := make([]*KeyCiphertext, tc.total)
	for i, idx := range tc.indices {
		kcs[i] = &KeyCiphertext{
			Index:     idx,
			Recipient: nodeKeys[i],
			Parts:     make([]*Ciphertext, len(values)),
		}
	}

	for l, v := range values {
		secret := g.ScalarFromUint64(v)
		shares, err := Split(g, secret, tc.indices, tc.threshold)
		secret.Zeroize()
		if err != nil {
			witness.Zeroize()
			return nil, nil, err
		}

		for i, share := range shares {
			ct, r, err := encrypt(g, nodeKeys[i], share.Value)
			if err != nil {
				witness.Zeroize()
				return nil, nil, err
			}
			kcs[i].Parts[l] = ct
			if l < KeyLimbs {
				witness.Shares[i][l] = share
				witness.Randomness[i][l] = r
			}
		}
	}

	return kcs, witness, nil
}

// ReEncrypt transforms a node's KeyCiphertext into a ReEncryption for the
// buyer. nodeSK must match kc.Recipient. Every call draws fresh randomness.
func ReEncrypt(tc *ThresholdContext, kc *KeyCiphertext, nodeSK Scalar, buyerPK Point) (*ReEncryption, error) {
	if kc == nil || len(kc.Parts) == 0 {
		return nil, ErrParameterMismatch.WithDetails("empty key ciphertext")
	}
	if _, ok := tc.IndexOf(kc.Index); !ok {
		return nil, ErrUnknownIndex.WithContext("index", scalarLabel(kc.Index))
	}
	if buyerPK == nil || buyerPK.IsIdentity() {
		return nil, ErrInvalidParameters.WithDetails("buyer key is the identity")
	}
	if nodeSK == nil || nodeSK.IsZero() {
		return nil, ErrInvalidSecretKey.WithDetails("secret key is zero")
	}
	if err := checkParts(kc.Parts, len(kc.Parts)); err != nil {
		return nil, err
	}

	g := tc.group
	re := &ReEncryption{
		Index: kc.Index,
		Parts: make([]*Ciphertext, len(kc.Parts)),
	}
	witness := &ReEncryptionWitness{SecretKey: nodeSK}
	defer func() {
		ZeroizeScalarSlice(witness.Randomness[:])
	}()

	for l, part := range kc.Parts {
		ct, k, err := reEncrypt(g, part, nodeSK, kc.Recipient, buyerPK)
		if err != nil {
			return nil, err
		}
		re.Parts[l] = ct
		if l < KeyLimbs {
			witness.Randomness[l] = k
		} else {
			k.Zeroize()
		}
	}

	proof, err := tc.proofs.ProveReEncryption(tc, kc, re, buyerPK, witness)
	if err != nil {
		return nil, fmt.Errorf("failed to prove re-encryption: %w", err)
	}
	re.Proof = proof
	return re, nil
}

// Combine merges re-encryptions from the nodes at chosen into one
// ciphertext under the buyer key. res[i] must come from chosen[i]. It uses
// only public data.
func Combine(tc *ThresholdContext, res []*ReEncryption, chosen []Scalar) (*CombinedCiphertext, error) {
	if len(res) != len(chosen) {
		return nil, ErrParameterMismatch.Detailf("%d re-encryptions for %d indices", len(res), len(chosen))
	}
	if err := tc.validateChosen(chosen); err != nil {
		return nil, err
	}

	parts := -1
	for i, re := range res {
		if re == nil || re.Index == nil || !re.Index.Equal(chosen[i]) {
			return nil, ErrParameterMismatch.Detailf("re-encryption at position %d does not come from the chosen index", i)
		}
		if parts < 0 {
			parts = len(re.Parts)
		}
		if err := checkParts(re.Parts, parts); err != nil {
			return nil, err.WithContext("position", i)
		}
	}

	coefficients, err := LagrangeCoefficients(tc.group, chosen)
	if err != nil {
		return nil, err
	}

	cc := &CombinedCiphertext{
		Indices: append([]Scalar(nil), chosen...),
		Parts:   make([]*Ciphertext, parts),
	}
	column := make([]*Ciphertext, len(res))
	for l := 0; l < parts; l++ {
		for i, re := range res {
			column[i] = re.Parts[l]
		}
		if cc.Parts[l], err = InnerProduct(tc.group, column, coefficients); err != nil {
			return nil, err
		}
	}
	return cc, nil
}

// checkParts rejects part lists of the wrong length or with missing
// ciphertext components.
func checkParts(parts []*Ciphertext, want int) *TPKEError {
	if want == 0 || len(parts) != want {
		return ErrParameterMismatch.Detailf("%d parts, expected %d", len(parts), want)
	}
	for l, c := range parts {
		if c == nil || c.C1 == nil || c.C2 == nil {
			return ErrParameterMismatch.Detailf("part %d is missing", l)
		}
	}
	return nil
}

// DecryptBytes recovers the ephemeral key from cc with the buyer's secret
// key and opens the payload. Every failure is reported as
// ErrDecryptionFailure wrapping the cause.
func DecryptBytes(tc *ThresholdContext, buyerSK Scalar, cc *CombinedCiphertext, payload *SymmetricCiphertext) ([]byte, error) {
	msg, err := decryptBytes(tc, buyerSK, cc, payload)
	if err != nil {
		return nil, ErrDecryptionFailure.WithCause(err)
	}
	return msg, nil
}

func decryptBytes(tc *ThresholdContext, buyerSK Scalar, cc *CombinedCiphertext, payload *SymmetricCiphertext) ([]byte, error) {
	limbs, err := decryptLimbs(tc, buyerSK, cc, KeyLimbs)
	if err != nil {
		return nil, err
	}

	key, err := ephemeralKeyFromLimbs(limbs)
	for i := range limbs {
		limbs[i] = 0
	}
	if err != nil {
		return nil, err
	}
	defer key.Zeroize()

	return tc.cipher.Decrypt(key, payload)
}

// DecryptValue is the buyer side of EncryptValue.
func DecryptValue(tc *ThresholdContext, buyerSK Scalar, cc *CombinedCiphertext) (uint64, error) {
	limbs, err := decryptLimbs(tc, buyerSK, cc, 1)
	if err != nil {
		return 0, ErrDecryptionFailure.WithCause(err)
	}
	return limbs[0], nil
}

func decryptLimbs(tc *ThresholdContext, sk Scalar, cc *CombinedCiphertext, parts int) ([]uint64, error) {
	if cc == nil || len(cc.Parts) != parts {
		return nil, ErrParameterMismatch.Detailf("combined ciphertext must have %d parts", parts)
	}
	if err := tc.validateChosen(cc.Indices); err != nil {
		return nil, err
	}

	limbs := make([]uint64, parts)
	for l, part := range cc.Parts {
		v, err := Decrypt(tc.decoder, sk, part)
		if err != nil {
			return nil, err
		}
		limbs[l] = v
	}
	return limbs, nil
}
