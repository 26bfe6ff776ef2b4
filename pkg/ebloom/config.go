package ebloom

import (
	"encoding/json"
	"fmt"
	"time"
)

// BackendKind selects which durable store implementation PersistenceConfig
// wires up. The zero value (BackendSQLite) is the idiomatic default.
type BackendKind int

const (
	// BackendSQLite persists chunks, metadata, and config in an embedded
	// SQLite database at PersistenceConfig.DBPath. This is the default.
	BackendSQLite BackendKind = iota

	// BackendRedis persists the same records as key/value pairs in a
	// Redis instance reachable at PersistenceConfig.RedisAddr. Intended
	// for sharing one logical store across processes, not for
	// replication (see spec Non-goals).
	BackendRedis
)

// PersistenceConfig configures durable, on-disk (or remote) persistence.
// A nil *PersistenceConfig on Config means memory-only: no Backend is
// constructed and CleanupExpiredLevels/SaveSnapshot never touch storage.
type PersistenceConfig struct {
	// DBPath is the SQLite database file path when Backend == BackendSQLite.
	DBPath string

	// RedisAddr is the "host:port" address when Backend == BackendRedis.
	RedisAddr string

	// RedisKeyPrefix namespaces all keys this filter writes to Redis, so
	// multiple filters can share one Redis instance. Defaults to "ebloom"
	// when empty.
	RedisKeyPrefix string

	// ChunkSizeBytes is the granularity of dirty tracking and on-disk
	// chunk records. Must be >= 64. Typical value: 4096.
	ChunkSizeBytes int

	// SnapshotInterval is the minimum wall-clock gap between auto-snapshots
	// triggered from Insert when AutoSnapshot is true.
	SnapshotInterval time.Duration

	// AutoSnapshot, when true, lets Insert trigger a dirty-chunk snapshot
	// once per SnapshotInterval. When false, only an explicit SaveSnapshot
	// call writes dirty chunks.
	AutoSnapshot bool

	// Backend selects the storage implementation. Zero value is
	// BackendSQLite.
	Backend BackendKind
}

func (p *PersistenceConfig) validate() error {
	if p == nil {
		return nil
	}
	if p.ChunkSizeBytes == 0 {
		p.ChunkSizeBytes = 4096
	}
	if p.ChunkSizeBytes < 64 {
		return fmt.Errorf("%w: persistence.chunk_size_bytes must be >= 64, got %d", ErrInvalidConfig, p.ChunkSizeBytes)
	}
	switch p.Backend {
	case BackendSQLite:
		if p.DBPath == "" {
			return fmt.Errorf("%w: persistence.db_path is required for the sqlite backend", ErrInvalidConfig)
		}
	case BackendRedis:
		if p.RedisAddr == "" {
			return fmt.Errorf("%w: persistence.redis_addr is required for the redis backend", ErrInvalidConfig)
		}
		if p.RedisKeyPrefix == "" {
			p.RedisKeyPrefix = "ebloom"
		}
	default:
		return fmt.Errorf("%w: persistence.backend %d is not recognized", ErrInvalidConfig, p.Backend)
	}
	return nil
}

// Config is the immutable-after-creation filter configuration. It is
// persisted once, at Create time; Load reads the persisted copy back,
// attaches the caller's PersistenceConfig, and validates the result.
type Config struct {
	// CapacityPerLevel is the intended distinct-item count per sub-filter.
	CapacityPerLevel uint64

	// TargetFPR is the desired per-level false-positive rate, strictly
	// between 0 and 1. 0.01 is the idiomatic default.
	TargetFPR float64

	// NumLevels is the number of sub-filters forming the sliding window.
	// Total retention window = NumLevels * LevelDuration.
	NumLevels int

	// LevelDuration is the lifetime of a sub-filter before it becomes
	// eligible to rotate out.
	LevelDuration time.Duration

	// Persistence configures durable storage. Nil means memory-only.
	Persistence *PersistenceConfig
}

// DefaultConfig returns the package's idiomatic defaults: capacity 1M,
// FPR 0.01, 3 levels of 1 hour each (a 3-hour sliding window), memory-only.
func DefaultConfig() Config {
	return Config{
		CapacityPerLevel: 1_000_000,
		TargetFPR:        0.01,
		NumLevels:        3,
		LevelDuration:    time.Hour,
	}
}

// Validate rejects capacity = 0, target_fpr outside (0, 1), num_levels < 1,
// level_duration = 0, and any invalid persistence sub-config. It also
// normalizes PersistenceConfig defaults (chunk size, redis key prefix) in
// place, matching the builder-default semantics of the original
// configuration type this was ported from.
func (c *Config) Validate() error {
	if c.CapacityPerLevel == 0 {
		return fmt.Errorf("%w: capacity_per_level must be greater than 0", ErrInvalidConfig)
	}
	if c.TargetFPR <= 0 || c.TargetFPR >= 1 {
		return fmt.Errorf("%w: target_fpr must be strictly between 0 and 1, got %v", ErrInvalidConfig, c.TargetFPR)
	}
	if c.NumLevels <= 0 {
		return fmt.Errorf("%w: num_levels must be greater than 0", ErrInvalidConfig)
	}
	if c.LevelDuration <= 0 {
		return fmt.Errorf("%w: level_duration must be greater than 0", ErrInvalidConfig)
	}
	if err := c.Persistence.validate(); err != nil {
		return err
	}
	return nil
}

// configRecord is the JSON-serializable projection of Config used for the
// on-disk/remote config record. time.Duration round-trips as nanoseconds.
type configRecord struct {
	CapacityPerLevel uint64 `json:"capacity_per_level"`
	TargetFPR        float64 `json:"target_fpr"`
	NumLevels        int     `json:"num_levels"`
	LevelDurationNS  int64   `json:"level_duration_ns"`
}

func (c Config) toRecord() configRecord {
	return configRecord{
		CapacityPerLevel: c.CapacityPerLevel,
		TargetFPR:        c.TargetFPR,
		NumLevels:        c.NumLevels,
		LevelDurationNS:  int64(c.LevelDuration),
	}
}

func (c configRecord) toConfig() Config {
	return Config{
		CapacityPerLevel: c.CapacityPerLevel,
		TargetFPR:        c.TargetFPR,
		NumLevels:        c.NumLevels,
		LevelDuration:    time.Duration(c.LevelDurationNS),
	}
}

// marshalConfig serializes the persisted fields of Config (Persistence is
// intentionally excluded: db_path/backend selection are connection
// parameters supplied fresh on Load, not durable facts about the filter).
func marshalConfig(c Config) ([]byte, error) {
	b, err := json.Marshal(c.toRecord())
	if err != nil {
		return nil, fmt.Errorf("%w: marshal config: %w", ErrSerializationError, err)
	}
	return b, nil
}

func unmarshalConfig(b []byte) (Config, error) {
	var rec configRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		return Config{}, fmt.Errorf("%w: unmarshal config: %w", ErrSerializationError, err)
	}
	return rec.toConfig(), nil
}
