package ebloom

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLevel_IsExpired_NeverActivated(t *testing.T) {
	t.Parallel()

	l := &level{bits: newBitset(8), meta: levelMetadata{CreatedAtMS: 0}}
	expired, ok := l.isExpired(1_000_000, 1000)
	require.True(t, ok)
	require.False(t, expired)
}

func TestLevel_IsExpired_WithinDuration(t *testing.T) {
	t.Parallel()

	l := &level{bits: newBitset(8), meta: levelMetadata{CreatedAtMS: 1000}}
	expired, ok := l.isExpired(1500, 1000)
	require.True(t, ok)
	require.False(t, expired)
}

func TestLevel_IsExpired_PastDuration(t *testing.T) {
	t.Parallel()

	l := &level{bits: newBitset(8), meta: levelMetadata{CreatedAtMS: 1000}}
	expired, ok := l.isExpired(3000, 1000)
	require.True(t, ok)
	require.True(t, expired)
}

func TestLevel_IsExpired_ExactlyAtDuration_NotYetExpired(t *testing.T) {
	t.Parallel()

	l := &level{bits: newBitset(8), meta: levelMetadata{CreatedAtMS: 1000}}
	// age == level_duration is NOT expired: the invariant is age > duration.
	expired, ok := l.isExpired(2000, 1000)
	require.True(t, ok)
	require.False(t, expired)
}

func TestLevel_IsExpired_ClockWentBackwards(t *testing.T) {
	t.Parallel()

	l := &level{bits: newBitset(8), meta: levelMetadata{CreatedAtMS: 5000}}
	expired, ok := l.isExpired(1000, 1000)
	require.False(t, ok)
	require.False(t, expired)
}
