package tpke

import (
	"fmt"
)

// Polynomial represents a polynomial over the scalar field of a group.
type Polynomial struct {
	group        Group
	coefficients []Scalar
}

// NewRandomPolynomial creates a random polynomial of the given degree whose
// constant term is the secret.
func NewRandomPolynomial(g Group, degree int, constantTerm Scalar) (*Polynomial, error) {
	if degree < 0 {
		return nil, ErrInvalidParameters.Detailf("polynomial degree %d is negative", degree)
	}

	coefficients := make([]Scalar, degree+1)
	coefficients[0] = constantTerm

	for i := 1; i <= degree; i++ {
		coeff, err := g.ScalarRandom()
		if err != nil {
			return nil, fmt.Errorf("failed to generate coefficient %d: %w", i, err)
		}
		coefficients[i] = coeff
	}

	return &Polynomial{
		group:        g,
		coefficients: coefficients,
	}, nil
}

// Evaluate evaluates the polynomial at x with Horner's method.
func (p *Polynomial) Evaluate(x Scalar) Scalar {
	// Starting from zero keeps the result a fresh value even for degree 0,
	// so zeroizing the secret never clears a share.
	result := p.group.ScalarZero()
	for i := len(p.coefficients) - 1; i >= 0; i-- {
		result = result.Mul(x).Add(p.coefficients[i])
	}

	return result
}

// Degree returns the degree of the polynomial
func (p *Polynomial) Degree() int {
	return len(p.coefficients) - 1
}

// Zeroize clears the random coefficients. The constant term belongs to the
// caller and is left untouched.
func (p *Polynomial) Zeroize() {
	for i := 1; i < len(p.coefficients); i++ {
		if p.coefficients[i] != nil {
			p.coefficients[i].Zeroize()
		}
	}
	for i := range p.coefficients {
		p.coefficients[i] = nil
	}
	p.coefficients = nil
}
