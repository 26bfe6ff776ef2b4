package ebloom

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOptimalParams(t *testing.T) {
	t.Parallel()

	m, k := optimalParams(1_000_000, 0.01)
	require.Greater(t, m, uint32(0))
	require.GreaterOrEqual(t, k, 1)

	// A standard 1M/0.01 filter lands close to the textbook m ~= 9.58M bits,
	// k ~= 7.
	require.InDelta(t, 9_585_059, int(m), 1000)
	require.Equal(t, 7, k)
}

func TestOptimalParams_NeverZero(t *testing.T) {
	t.Parallel()

	for _, fpr := range []float64{0.5, 0.1, 0.001, 0.0000001} {
		m, k := optimalParams(1, fpr)
		require.GreaterOrEqual(t, m, uint32(1))
		require.GreaterOrEqual(t, k, 1)
	}
}

func TestHashMurmur32_Deterministic(t *testing.T) {
	t.Parallel()

	a := hashMurmur32([]byte("hello world"))
	b := hashMurmur32([]byte("hello world"))
	require.Equal(t, a, b)

	c := hashMurmur32([]byte("hello worlD"))
	require.NotEqual(t, a, c)
}

func TestHashMurmur32_KnownVectors(t *testing.T) {
	t.Parallel()

	// Murmur3-32 (seed 0) reference vectors, independent of this package.
	cases := []struct {
		input string
		want  uint32
	}{
		{"", 0},
		{"a", 0x3c2569b2},
		{"ab", 0x9bbfd75f},
		{"abc", 0xb3dd93fa},
	}
	for _, tc := range cases {
		got := hashMurmur32([]byte(tc.input))
		require.Equalf(t, tc.want, got, "hashMurmur32(%q)", tc.input)
	}
}

func TestIndices_Deterministic(t *testing.T) {
	t.Parallel()

	item := []byte("session-token-abc123")
	a := indices(item, 7, 9_585_059)
	b := indices(item, 7, 9_585_059)
	require.Equal(t, a, b)
	require.Len(t, a, 7)
	for _, idx := range a {
		require.Less(t, idx, uint32(9_585_059))
	}
}

func TestIndices_DifferentItemsDifferentIndices(t *testing.T) {
	t.Parallel()

	a := indices([]byte("alpha"), 7, 1<<20)
	b := indices([]byte("beta"), 7, 1<<20)
	require.NotEqual(t, a, b)
}
