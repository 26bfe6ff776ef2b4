package ebloom

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestConfig_Validate_Defaults(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
}

func TestConfig_Validate_RejectsZeroCapacity(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.CapacityPerLevel = 0
	require.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
}

func TestConfig_Validate_RejectsOutOfRangeFPR(t *testing.T) {
	t.Parallel()

	for _, fpr := range []float64{0, 1, -0.1, 1.5} {
		cfg := DefaultConfig()
		cfg.TargetFPR = fpr
		require.ErrorIsf(t, cfg.Validate(), ErrInvalidConfig, "fpr=%v", fpr)
	}
}

func TestConfig_Validate_RejectsZeroLevelsOrDuration(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.NumLevels = 0
	require.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	cfg = DefaultConfig()
	cfg.LevelDuration = 0
	require.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
}

func TestConfig_Validate_PersistenceDefaults(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Persistence = &PersistenceConfig{DBPath: "test.db"}
	require.NoError(t, cfg.Validate())
	require.Equal(t, 4096, cfg.Persistence.ChunkSizeBytes)
}

func TestConfig_Validate_RequiresDBPathForSQLite(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Persistence = &PersistenceConfig{}
	require.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)
}

func TestConfig_Validate_RequiresRedisAddrForRedis(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Persistence = &PersistenceConfig{Backend: BackendRedis}
	require.ErrorIs(t, cfg.Validate(), ErrInvalidConfig)

	cfg.Persistence.RedisAddr = "localhost:6379"
	require.NoError(t, cfg.Validate())
	require.Equal(t, "ebloom", cfg.Persistence.RedisKeyPrefix)
}

func TestConfig_MarshalUnmarshalRoundTrip(t *testing.T) {
	t.Parallel()

	cfg := Config{
		CapacityPerLevel: 500_000,
		TargetFPR:        0.02,
		NumLevels:        4,
		LevelDuration:    90 * time.Minute,
	}

	data, err := marshalConfig(cfg)
	require.NoError(t, err)

	got, err := unmarshalConfig(data)
	require.NoError(t, err)
	require.Equal(t, cfg, got)
}

func TestConfig_UnmarshalRejectsGarbage(t *testing.T) {
	t.Parallel()

	_, err := unmarshalConfig([]byte("not json"))
	require.ErrorIs(t, err, ErrSerializationError)
}
