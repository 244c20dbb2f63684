package service

import (
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func runeEncoder(text string) []int {
	tokens := make([]int, 0, len(text))
	for range text {
		tokens = append(tokens, 0)
	}
	return tokens
}

func TestTokenServiceCountsWithInjectedEncoder(t *testing.T) {
	svc := NewTokenServiceWithEncoder(runeEncoder, 100, zerolog.Nop())

	require.Equal(t, 0, svc.Count(""))
	require.Equal(t, 5, svc.Count("hello"))
}

func TestTokenServiceFallsBackToCharacterEstimate(t *testing.T) {
	svc := NewTokenServiceWithEncoder(nil, 100, zerolog.Nop())

	require.Equal(t, 4, svc.Count(strings.Repeat("a", 12)))
}

func TestTokenServiceCheckLimit(t *testing.T) {
	svc := NewTokenServiceWithEncoder(runeEncoder, 10, zerolog.Nop())

	require.NoError(t, svc.CheckLimit("short"))

	err := svc.CheckLimit(strings.Repeat("x", 11))
	require.Error(t, err)
	require.ErrorIs(t, err, ErrTokenLimitExceeded)
	require.Contains(t, err.Error(), "11/10")
}

func TestTokenServiceZeroLimitDisablesCheck(t *testing.T) {
	svc := NewTokenServiceWithEncoder(runeEncoder, 0, zerolog.Nop())

	require.NoError(t, svc.CheckLimit(strings.Repeat("x", 100000)))
}
