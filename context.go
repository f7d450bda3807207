package tpke

import (
	"encoding/binary"
	"encoding/hex"

	"golang.org/x/crypto/blake2b"
)

// MaxNodes is the largest committee a context accepts.
const MaxNodes = 20

// ThresholdContext fixes the public parameters of one trade: the group,
// the committee size n, the threshold t, the ordered node indices, the
// symmetric cipher and the decoder for re-encrypted key limbs. It is
// immutable after GenContext and safe to share between goroutines.
type ThresholdContext struct {
	group     Group
	cipher    SymmetricCipher
	proofs    ProofSystem
	total     int
	threshold int
	indices   []Scalar
	position  map[string]int
	decoder   *Decoder

	fingerprint []byte
}

type contextOptions struct {
	cipher SymmetricCipher
	proofs ProofSystem
}

// ContextOption configures GenContext.
type ContextOption func(*contextOptions)

// WithCipher selects the symmetric layer. The default is ChaCha20-Poly1305.
func WithCipher(c SymmetricCipher) ContextOption {
	return func(o *contextOptions) {
		o.cipher = c
	}
}

// WithProofSystem installs a proof system. The default attaches no proofs.
func WithProofSystem(ps ProofSystem) ContextOption {
	return func(o *contextOptions) {
		o.proofs = ps
	}
}

// GenContext validates and freezes the parameters of a trade. It fails with
// ErrInvalidParameters, caused by every violation found, unless
// 1 <= t <= n <= MaxNodes and indices holds n distinct nonzero values.
func GenContext(g Group, n, t int, indices []Scalar, opts ...ContextOption) (*ThresholdContext, error) {
	if g == nil {
		return nil, ErrInvalidParameters.WithDetails("group is nil")
	}
	if err := NewDefaultContextValidator().ValidateParameters(n, t, indices).Err(); err != nil {
		return nil, err
	}

	o := &contextOptions{proofs: NoProofs{}}
	for _, opt := range opts {
		opt(o)
	}
	if o.cipher == nil {
		c, err := NewSymmetricCipher(DefaultCipher)
		if err != nil {
			return nil, err
		}
		o.cipher = c
	}

	decoder, err := NewDecoder(g, KeyLimbBits)
	if err != nil {
		return nil, err
	}

	tc := &ThresholdContext{
		group:     g,
		cipher:    o.cipher,
		proofs:    o.proofs,
		total:     n,
		threshold: t,
		indices:   append([]Scalar(nil), indices...),
		position:  make(map[string]int, n),
		decoder:   decoder,
	}
	for i, idx := range indices {
		tc.position[string(idx.Bytes())] = i
	}
	tc.fingerprint = tc.computeFingerprint()

	return tc, nil
}

func (tc *ThresholdContext) computeFingerprint() []byte {
	h, _ := blake2b.New256(nil)
	h.Write([]byte(tc.group.Name()))
	h.Write([]byte(tc.cipher.Algorithm()))
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], uint32(tc.total))
	h.Write(buf[:])
	binary.BigEndian.PutUint32(buf[:], uint32(tc.threshold))
	h.Write(buf[:])
	for _, idx := range tc.indices {
		h.Write(idx.Bytes())
	}
	return h.Sum(nil)
}

func (tc *ThresholdContext) Group() Group             { return tc.group }
func (tc *ThresholdContext) Cipher() SymmetricCipher  { return tc.cipher }
func (tc *ThresholdContext) ProofSystem() ProofSystem { return tc.proofs }
func (tc *ThresholdContext) Total() int               { return tc.total }
func (tc *ThresholdContext) Threshold() int           { return tc.threshold }
func (tc *ThresholdContext) Decoder() *Decoder        { return tc.decoder }

// Indices returns a copy of the ordered node indices.
func (tc *ThresholdContext) Indices() []Scalar {
	return append([]Scalar(nil), tc.indices...)
}

// IndexOf returns the position of idx in the context.
func (tc *ThresholdContext) IndexOf(idx Scalar) (int, bool) {
	if idx == nil {
		return 0, false
	}
	i, ok := tc.position[string(idx.Bytes())]
	return i, ok
}

// Fingerprint identifies the public parameters. Two contexts with the same
// fingerprint interoperate.
func (tc *ThresholdContext) Fingerprint() []byte {
	return append([]byte(nil), tc.fingerprint...)
}

// ID is the hex form of Fingerprint.
func (tc *ThresholdContext) ID() string {
	return hex.EncodeToString(tc.fingerprint)
}

// validateChosen checks a set of indices selected for combination:
// every index must belong to the context and appear once, then at least
// t must remain.
func (tc *ThresholdContext) validateChosen(chosen []Scalar) error {
	seen := make(map[string]struct{}, len(chosen))
	for _, idx := range chosen {
		if _, ok := tc.IndexOf(idx); !ok {
			return ErrUnknownIndex.WithContext("index", scalarLabel(idx))
		}
		key := string(idx.Bytes())
		if _, dup := seen[key]; dup {
			return ErrDuplicateIndex.WithContext("index", idx.String())
		}
		seen[key] = struct{}{}
	}
	if len(chosen) < tc.threshold {
		return ErrInsufficientShares.Detailf("need %d, got %d", tc.threshold, len(chosen))
	}
	return nil
}

func scalarLabel(s Scalar) string {
	if s == nil {
		return "<nil>"
	}
	return s.String()
}
