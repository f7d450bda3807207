package tpke

import (
	"fmt"
	"math"

	"github.com/hashicorp/go-multierror"
)

// SecurityLevel represents the security level of threshold parameters
type SecurityLevel string

const (
	SecurityLevelLow    SecurityLevel = "low"
	SecurityLevelMedium SecurityLevel = "medium"
	SecurityLevelHigh   SecurityLevel = "high"
)

// ValidationResult contains the result of parameter validation
type ValidationResult struct {
	Valid           bool          `json:"valid"`
	SecurityLevel   SecurityLevel `json:"security_level"`
	Warnings        []string      `json:"warnings,omitempty"`
	Errors          []string      `json:"errors,omitempty"`
	Recommendations []string      `json:"recommendations,omitempty"`

	errs *multierror.Error
}

func newValidationResult() *ValidationResult {
	return &ValidationResult{
		Valid:           true,
		SecurityLevel:   SecurityLevelMedium,
		Warnings:        []string{},
		Errors:          []string{},
		Recommendations: []string{},
	}
}

func (r *ValidationResult) fail(err error) {
	r.Valid = false
	r.SecurityLevel = SecurityLevelLow
	r.Errors = append(r.Errors, err.Error())
	r.errs = multierror.Append(r.errs, err)
}

// Err returns nil for a valid result, otherwise ErrInvalidParameters
// caused by every violation found.
func (r *ValidationResult) Err() error {
	if r.Valid {
		return nil
	}
	return ErrInvalidParameters.WithCause(r.errs.ErrorOrNil())
}

// ContextValidator checks threshold context parameters. Hard limits become
// errors; choices that are legal but weak become warnings.
type ContextValidator struct {
	MaxNodes            int     `json:"max_nodes"`
	RecommendedMinRatio float64 `json:"recommended_min_ratio"` // Minimum recommended threshold ratio
	RecommendedMaxRatio float64 `json:"recommended_max_ratio"` // Maximum recommended threshold ratio
}

// NewDefaultContextValidator creates a validator with the package limits
func NewDefaultContextValidator() *ContextValidator {
	return &ContextValidator{
		MaxNodes:            MaxNodes,
		RecommendedMinRatio: 0.51, // Just over half
		RecommendedMaxRatio: 0.80, // Leave room for availability
	}
}

// ValidateParameters checks 1 <= t <= n <= MaxNodes and that indices holds
// n distinct nonzero values. Every violation is reported, not just the
// first.
func (cv *ContextValidator) ValidateParameters(n, t int, indices []Scalar) *ValidationResult {
	result := newValidationResult()

	if t < 1 {
		result.fail(fmt.Errorf("threshold %d must be at least 1", t))
	}
	if n < 1 {
		result.fail(fmt.Errorf("node count %d must be at least 1", n))
	}
	if t > n {
		result.fail(fmt.Errorf("threshold %d exceeds node count %d", t, n))
	}
	if n > cv.MaxNodes {
		result.fail(fmt.Errorf("node count %d exceeds maximum of %d", n, cv.MaxNodes))
	}
	if len(indices) != n {
		result.fail(fmt.Errorf("%d indices given for %d nodes", len(indices), n))
	}

	seen := make(map[string]int, len(indices))
	for i, idx := range indices {
		if idx == nil || idx.IsZero() {
			result.fail(fmt.Errorf("index at position %d is zero", i))
			continue
		}
		key := string(idx.Bytes())
		if j, ok := seen[key]; ok {
			result.fail(fmt.Errorf("positions %d and %d share index %s", j, i, idx))
			continue
		}
		seen[key] = i
	}

	if !result.Valid {
		return result
	}

	cv.assess(result, n, t)
	return result
}

func (cv *ContextValidator) assess(result *ValidationResult, n, t int) {
	thresholdRatio := float64(t) / float64(n)
	if thresholdRatio >= 2.0/3.0 {
		result.SecurityLevel = SecurityLevelHigh
	}

	if thresholdRatio < cv.RecommendedMinRatio {
		result.SecurityLevel = SecurityLevelLow
		result.Warnings = append(result.Warnings, "a minority of nodes can collude to recover the key")
		result.Recommendations = append(result.Recommendations,
			fmt.Sprintf("consider increasing threshold to at least %d", int(math.Ceil(float64(n)*cv.RecommendedMinRatio))))
	} else if thresholdRatio > cv.RecommendedMaxRatio {
		result.Warnings = append(result.Warnings, "threshold ratio is high, may affect availability")
	}

	if t == 1 {
		result.SecurityLevel = SecurityLevelLow
		result.Warnings = append(result.Warnings, "threshold of 1 lets any single node recover the key")
	}

	if t == n && n > 1 {
		result.Warnings = append(result.Warnings, "threshold equals node count - no fault tolerance")
		result.Recommendations = append(result.Recommendations, "consider reducing threshold to allow for node failures")
	}
}

// SecurityAssessment summarises what a (t, n) choice tolerates
type SecurityAssessment struct {
	OverallRating    SecurityLevel `json:"overall_rating"`
	FaultTolerance   int           `json:"fault_tolerance"`   // Nodes that may stay silent
	CollusionBound   int           `json:"collusion_bound"`   // Colluding nodes needed to recover a key
	AvailabilityRisk string        `json:"availability_risk"` // Risk assessment for availability
}

// AssessSecurity provides a security assessment of valid parameters
func AssessSecurity(n, t int) *SecurityAssessment {
	if n <= 0 || t <= 0 || t > n {
		return &SecurityAssessment{
			OverallRating:    SecurityLevelLow,
			AvailabilityRisk: "critical - invalid parameters",
		}
	}

	assessment := &SecurityAssessment{
		FaultTolerance: n - t,
		CollusionBound: t,
	}

	thresholdRatio := float64(t) / float64(n)
	switch {
	case t == 1 || thresholdRatio < 0.5:
		assessment.OverallRating = SecurityLevelLow
	case thresholdRatio >= 0.67:
		assessment.OverallRating = SecurityLevelHigh
	default:
		assessment.OverallRating = SecurityLevelMedium
	}

	switch {
	case assessment.FaultTolerance == 0:
		assessment.AvailabilityRisk = "critical - no fault tolerance"
	case assessment.FaultTolerance == 1:
		assessment.AvailabilityRisk = "high - single point of failure"
	case assessment.FaultTolerance <= 3:
		assessment.AvailabilityRisk = "medium - limited fault tolerance"
	default:
		assessment.AvailabilityRisk = "low - good fault tolerance"
	}

	return assessment
}
