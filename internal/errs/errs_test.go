package errs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWrapPreservesKindAndCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(KindDatabase, "save position", cause)

	require.ErrorIs(t, err, cause)
	k, ok := KindOf(err)
	require.True(t, ok)
	require.Equal(t, KindDatabase, k)
	require.True(t, k.IsInfra())
	require.False(t, k.IsDomain())
}

func TestIsMatchesWrappedKind(t *testing.T) {
	err := Wrap(KindPositionNotFound, "owner 0xabc", ErrPositionNotFound)
	require.True(t, Is(err, KindPositionNotFound))
	require.False(t, Is(err, KindDatabase))
}

func TestKindOfUnrelatedError(t *testing.T) {
	_, ok := KindOf(errors.New("plain"))
	require.False(t, ok)
}

func TestSentinelsClassifyAsDomain(t *testing.T) {
	for _, e := range []*Error{ErrPositionNotFound, ErrRoundNotFound, ErrAlreadyFinalized, ErrReorgTooDeep} {
		require.True(t, e.Kind().IsDomain())
	}
}
