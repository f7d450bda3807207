package tpke

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorMatching(t *testing.T) {
	t.Run("CopiesMatchSentinel", func(t *testing.T) {
		err := ErrUnknownIndex.WithContext("index", "7").WithDetails("not registered")
		require.ErrorIs(t, err, ErrUnknownIndex)
		require.NotErrorIs(t, err, ErrDuplicateIndex)
		require.Equal(t, "7", GetErrorContext(err)["index"])
		require.Empty(t, ErrUnknownIndex.Context, "sentinel must stay untouched")
		require.Empty(t, ErrUnknownIndex.Details)
	})

	t.Run("CauseChain", func(t *testing.T) {
		err := ErrDecryptionFailure.WithCause(ErrAuthenticationFailure.WithDetails("tag"))
		require.ErrorIs(t, err, ErrDecryptionFailure)
		require.ErrorIs(t, err, ErrAuthenticationFailure)
		require.Contains(t, err.Error(), "DECRYPTION_FAILURE")
		require.Contains(t, err.Error(), "tag")
	})

	t.Run("FmtWrapping", func(t *testing.T) {
		err := fmt.Errorf("outer: %w", ErrInsufficientShares.Detailf("need %d, got %d", 3, 2))
		require.ErrorIs(t, err, ErrInsufficientShares)
		require.True(t, IsErrorCategory(err, ErrorCategoryThreshold))
		require.True(t, IsRecoverableError(err))

		var tErr *TPKEError
		require.True(t, errors.As(err, &tErr))
		require.Equal(t, "need 3, got 2", tErr.Details)
	})

	t.Run("Recoverability", func(t *testing.T) {
		require.False(t, ErrRandomnessGeneration.IsRecoverable())
		require.True(t, ErrInvalidSecretKey.IsRecoverable())
		require.False(t, IsRecoverableError(ErrDuplicateIndex))
	})

	t.Run("WrapError", func(t *testing.T) {
		base := errors.New("disk full")
		err := WrapError(base, ErrorCategoryInternal, ErrorSeverityCritical, "IO", "write failed")
		require.ErrorIs(t, err, base)
		require.True(t, IsErrorCategory(err, ErrorCategoryInternal))
		require.Nil(t, GetErrorContext(base))
	})
}
