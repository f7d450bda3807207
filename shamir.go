package tpke

import (
	"fmt"
)

// Share represents a Shamir secret share
type Share struct {
	Index Scalar // x-coordinate (node index)
	Value Scalar // y-coordinate (share value)
}

// NewShare creates a new share
func NewShare(index, value Scalar) *Share {
	return &Share{
		Index: index,
		Value: value,
	}
}

// Zeroize clears the share value.
func (s *Share) Zeroize() {
	if s.Value != nil {
		s.Value.Zeroize()
	}
}

// checkIndices rejects zero and repeated indices.
func checkIndices(indices []Scalar) error {
	seen := make(map[string]int, len(indices))
	for i, idx := range indices {
		if idx == nil || idx.IsZero() {
			return ErrInvalidParameters.Detailf("index at position %d is zero", i)
		}
		key := string(idx.Bytes())
		if j, ok := seen[key]; ok {
			return ErrDuplicateIndex.Detailf("positions %d and %d share index %s", j, i, idx)
		}
		seen[key] = i
	}
	return nil
}

// Split shares secret with a random polynomial of degree t-1, one share per
// index, in index order.
func Split(g Group, secret Scalar, indices []Scalar, t int) ([]*Share, error) {
	if t < 1 {
		return nil, ErrInvalidParameters.Detailf("threshold %d must be at least 1", t)
	}
	if t > len(indices) {
		return nil, ErrInvalidParameters.Detailf("threshold %d exceeds %d indices", t, len(indices))
	}
	if err := checkIndices(indices); err != nil {
		return nil, err
	}

	polynomial, err := NewRandomPolynomial(g, t-1, secret)
	if err != nil {
		return nil, fmt.Errorf("failed to create polynomial: %w", err)
	}
	defer polynomial.Zeroize()

	shares := make([]*Share, len(indices))
	for i, idx := range indices {
		shares[i] = NewShare(idx, polynomial.Evaluate(idx))
	}

	return shares, nil
}

// LagrangeCoefficients returns L_i(0) = prod_{j!=i} (0 - x_j)/(x_i - x_j)
// for every index in chosen, in the same order.
func LagrangeCoefficients(g Group, chosen []Scalar) ([]Scalar, error) {
	if len(chosen) == 0 {
		return nil, ErrInsufficientShares.WithDetails("no indices")
	}
	if err := checkIndices(chosen); err != nil {
		return nil, err
	}

	numerators := make([]Scalar, len(chosen))
	denominators := make([]Scalar, len(chosen))
	for i, xi := range chosen {
		numerator := g.ScalarOne()
		denominator := g.ScalarOne()
		for j, xj := range chosen {
			if i == j {
				continue
			}
			numerator = numerator.Mul(xj.Negate())
			denominator = denominator.Mul(xi.Sub(xj))
		}
		numerators[i] = numerator
		denominators[i] = denominator
	}

	inverses, err := BatchInvert(denominators)
	if err != nil {
		return nil, fmt.Errorf("failed to invert denominators: %w", err)
	}

	coefficients := make([]Scalar, len(chosen))
	for i := range chosen {
		coefficients[i] = numerators[i].Mul(inverses[i])
	}
	return coefficients, nil
}

// Interpolate evaluates at zero the unique polynomial through the given
// shares. It does not know about thresholds: fewer than t shares silently
// produce an unrelated value.
func Interpolate(g Group, shares []*Share) (Scalar, error) {
	indices := make([]Scalar, len(shares))
	for i, s := range shares {
		indices[i] = s.Index
	}

	coefficients, err := LagrangeCoefficients(g, indices)
	if err != nil {
		return nil, err
	}

	secret := g.ScalarZero()
	for i, s := range shares {
		secret = secret.Add(s.Value.Mul(coefficients[i]))
	}
	return secret, nil
}

// VerifyShares checks that two different t-subsets reconstruct the same
// secret. With exactly t shares there is only one subset and the check is
// vacuous.
func VerifyShares(g Group, shares []*Share, t int) error {
	if len(shares) < t {
		return ErrInsufficientShares.Detailf("need %d, got %d", t, len(shares))
	}
	if len(shares) == t {
		return nil
	}

	secret1, err := Interpolate(g, shares[:t])
	if err != nil {
		return fmt.Errorf("failed to reconstruct with first subset: %w", err)
	}

	altShares := make([]*Share, t)
	copy(altShares[:t-1], shares[:t-1])
	altShares[t-1] = shares[t] // Replace last share

	secret2, err := Interpolate(g, altShares)
	if err != nil {
		return fmt.Errorf("failed to reconstruct with alternate subset: %w", err)
	}

	if !secret1.Equal(secret2) {
		return ErrParameterMismatch.WithDetails("shares are inconsistent")
	}
	return nil
}

// Reconstruct recovers the secret from at least t shares whose indices
// belong to the context. It is the reference path the homomorphic Combine
// must agree with.
func (tc *ThresholdContext) Reconstruct(shares []*Share) (Scalar, error) {
	indices := make([]Scalar, len(shares))
	for i, s := range shares {
		indices[i] = s.Index
	}
	if err := tc.validateChosen(indices); err != nil {
		return nil, err
	}
	return Interpolate(tc.group, shares)
}
