package ebloom

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFilter_Stats(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{ms: 1_000_000}
	cfg := Config{CapacityPerLevel: 5000, TargetFPR: 0.02, NumLevels: 3, LevelDuration: time.Hour}
	f := mustCreate(t, cfg, clock)

	require.NoError(t, f.Insert([]byte("a")))
	require.NoError(t, f.Insert([]byte("b")))
	require.NoError(t, f.Insert([]byte("c")))

	s := f.Stats()
	require.Equal(t, uint64(5000), s.CapacityPerLevel)
	require.Equal(t, 0.02, s.TargetFPR)
	require.Equal(t, 3, s.NumLevels)
	require.Equal(t, 0, s.ActiveLevelIndex)
	require.Equal(t, uint64(3), s.TotalInsertCount)
}

func TestFilter_LevelInfo(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{ms: 1_000_000}
	cfg := Config{CapacityPerLevel: 5000, TargetFPR: 0.02, NumLevels: 3, LevelDuration: time.Hour}
	f := mustCreate(t, cfg, clock)

	require.NoError(t, f.Insert([]byte("a")))

	info, err := f.LevelInfo(0)
	require.NoError(t, err)
	require.True(t, info.IsActive)
	require.True(t, info.IsActivated)
	require.Equal(t, uint64(1), info.InsertCount)
	require.Equal(t, clock.ms, info.CreatedAtMS)

	info, err = f.LevelInfo(1)
	require.NoError(t, err)
	require.False(t, info.IsActive)
	require.False(t, info.IsActivated)

	_, err = f.LevelInfo(3)
	var invalidLevel *InvalidLevelError
	require.ErrorAs(t, err, &invalidLevel)
	require.Equal(t, 3, invalidLevel.Level)
	require.Equal(t, 3, invalidLevel.MaxLevels)

	_, err = f.LevelInfo(-1)
	require.ErrorAs(t, err, &invalidLevel)
}
