package tpke

// Proof is an opaque proof attached to a protocol output. A nil Proof means
// no proof is attached; verifiers of a ProofSystem that requires proofs
// must reject it.
type Proof []byte

// ShareWitness is the secret material behind a publication: for every node
// position, the Shamir share of each key limb and the encryption
// randomness of each part.
type ShareWitness struct {
	Shares     [][KeyLimbs]*Share
	Randomness [][KeyLimbs]Scalar
}

// Zeroize clears the witness.
func (w *ShareWitness) Zeroize() {
	for i := range w.Shares {
		for _, s := range w.Shares[i] {
			if s != nil {
				s.Zeroize()
			}
		}
	}
	for i := range w.Randomness {
		ZeroizeScalarSlice(w.Randomness[i][:])
	}
}

// ReEncryptionWitness is the secret material behind one re-encryption.
type ReEncryptionWitness struct {
	SecretKey  Scalar
	Randomness [KeyLimbs]Scalar
}

// ProofSystem is the extension point for zero-knowledge proofs that a
// seller encrypted valid shares and that a node re-encrypted honestly.
// Implementations must not retain witnesses.
type ProofSystem interface {
	Name() string
	ProveShares(tc *ThresholdContext, kcs []*KeyCiphertext, w *ShareWitness) (Proof, error)
	VerifyShares(tc *ThresholdContext, pub *Publication) error
	ProveReEncryption(tc *ThresholdContext, kc *KeyCiphertext, re *ReEncryption, buyer Point, w *ReEncryptionWitness) (Proof, error)
	VerifyReEncryption(tc *ThresholdContext, kc *KeyCiphertext, re *ReEncryption, buyer Point) error
}

// NoProofs attaches nothing and accepts everything.
type NoProofs struct{}

func (NoProofs) Name() string { return "none" }

func (NoProofs) ProveShares(*ThresholdContext, []*KeyCiphertext, *ShareWitness) (Proof, error) {
	return nil, nil
}

func (NoProofs) VerifyShares(*ThresholdContext, *Publication) error { return nil }

func (NoProofs) ProveReEncryption(*ThresholdContext, *KeyCiphertext, *ReEncryption, Point, *ReEncryptionWitness) (Proof, error) {
	return nil, nil
}

func (NoProofs) VerifyReEncryption(*ThresholdContext, *KeyCiphertext, *ReEncryption, Point) error {
	return nil
}

// VerifyCombination recomputes the combination of res over chosen from
// public inputs and checks it against cc. Anyone can run it; it needs no
// proof.
func VerifyCombination(tc *ThresholdContext, res []*ReEncryption, chosen []Scalar, cc *CombinedCiphertext) error {
	expected, err := Combine(tc, res, chosen)
	if err != nil {
		return err
	}
	if cc == nil || len(cc.Parts) != len(expected.Parts) {
		return ErrProofVerification.WithDetails("combined ciphertext has wrong shape")
	}
	for i := range expected.Parts {
		if !expected.Parts[i].Equal(cc.Parts[i]) {
			return ErrProofVerification.Detailf("combined part %d differs", i)
		}
	}
	return nil
}
