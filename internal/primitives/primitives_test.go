package primitives

import (
	"math/big"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddressRoundTrip(t *testing.T) {
	mixedCase := "0x00000000000000000000000000000000000000AA"
	a, err := ParseAddress(mixedCase)
	require.NoError(t, err)
	require.Equal(t, strings.ToLower(mixedCase), a.String())
	require.Len(t, a.Bytes(), 20)
}

func TestAddressRejectsBadLength(t *testing.T) {
	_, err := NewAddress([]byte{1, 2, 3})
	require.ErrorIs(t, err, ErrInvalidAddress)
}

func TestAmountRejectsNegative(t *testing.T) {
	_, err := NewAmount("-1")
	require.ErrorIs(t, err, ErrInvalidAmount)
}

func TestAmountSubSaturates(t *testing.T) {
	a := MustAmount("5")
	b := MustAmount("10")
	require.True(t, a.Sub(b).IsZero())
}

func TestAmountAddExact(t *testing.T) {
	a := MustAmount("1.5")
	b := MustAmount("2.25")
	require.Equal(t, "3.75", a.Add(b).String())
}

func TestAmountWeiRoundTrip(t *testing.T) {
	raw := big.NewInt(1_500_000_000_000_000_000)
	amt, err := FromWei(raw, 18)
	require.NoError(t, err)
	require.Equal(t, "1.5", amt.String())
	require.Equal(t, raw.String(), amt.ToWei(18).String())
}

func TestGhostStreakBounds(t *testing.T) {
	_, err := NewGhostStreak(-1)
	require.Error(t, err)
	s := ZeroStreak.Incr().Incr()
	require.Equal(t, int32(2), s.Int32())
}

func TestBlockNumberSaturates(t *testing.T) {
	require.Equal(t, BlockNumber(0), GenesisBlock.Prev())
	max := BlockNumber(^uint64(0))
	require.Equal(t, max, max.Next())
}

func TestRiskLevelConversion(t *testing.T) {
	for n := uint8(0); n <= 5; n++ {
		l, err := NewRiskLevel(n)
		require.NoError(t, err)
		require.Equal(t, RiskLevel(n), l)
	}
	_, err := NewRiskLevel(6)
	require.ErrorIs(t, err, ErrInvalidLevel)
}

func TestRoundTypeConversion(t *testing.T) {
	_, err := NewRoundType(4)
	require.Error(t, err)
	rt, err := NewRoundType(3)
	require.NoError(t, err)
	require.Equal(t, RoundTypeCommunity, rt)
}
