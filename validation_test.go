package tpke

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateParameters(t *testing.T) {
	g := NewEd25519Group()
	cv := NewDefaultContextValidator()

	tests := []struct {
		name    string
		n, t    int
		indices []Scalar
		valid   bool
		level   SecurityLevel
	}{
		{"2-of-3", 3, 2, SequentialIndices(g, 3), true, SecurityLevelHigh},
		{"3-of-5", 5, 3, SequentialIndices(g, 5), true, SecurityLevelMedium},
		{"1-of-3", 3, 1, SequentialIndices(g, 3), true, SecurityLevelLow},
		{"max", MaxNodes, 11, SequentialIndices(g, MaxNodes), true, SecurityLevelMedium},
		{"zero threshold", 3, 0, SequentialIndices(g, 3), false, SecurityLevelLow},
		{"threshold above n", 3, 4, SequentialIndices(g, 3), false, SecurityLevelLow},
		{"too many nodes", MaxNodes + 1, 2, SequentialIndices(g, MaxNodes+1), false, SecurityLevelLow},
		{"index count", 3, 2, SequentialIndices(g, 2), false, SecurityLevelLow},
		{"duplicate index", 3, 2, NodeIndices(g, 1, 2, 1), false, SecurityLevelLow},
		{"zero index", 2, 1, []Scalar{g.ScalarZero(), g.ScalarOne()}, false, SecurityLevelLow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := cv.ValidateParameters(tt.n, tt.t, tt.indices)
			require.Equal(t, tt.valid, result.Valid, result.Errors)
			require.Equal(t, tt.level, result.SecurityLevel)
			if tt.valid {
				require.NoError(t, result.Err())
				return
			}
			require.ErrorIs(t, result.Err(), ErrInvalidParameters)
			require.NotEmpty(t, result.Errors)
		})
	}

	// every violation is reported
	result := cv.ValidateParameters(MaxNodes+1, MaxNodes+2, nil)
	require.Len(t, result.Errors, 3)

	result = cv.ValidateParameters(3, 3, SequentialIndices(g, 3))
	require.Contains(t, result.Warnings, "threshold equals node count - no fault tolerance")
}

func TestAssessSecurity(t *testing.T) {
	a := AssessSecurity(5, 3)
	require.Equal(t, SecurityLevelMedium, a.OverallRating)
	require.Equal(t, 2, a.FaultTolerance)
	require.Equal(t, 3, a.CollusionBound)

	a = AssessSecurity(3, 3)
	require.Equal(t, SecurityLevelHigh, a.OverallRating)
	require.Contains(t, a.AvailabilityRisk, "critical")

	a = AssessSecurity(3, 4)
	require.Equal(t, SecurityLevelLow, a.OverallRating)
}
