package ebloom

import "fmt"

// openBackendFresh opens cfg's backend after erasing any pre-existing
// state at its location (spec §3 "create(config) ... erases any
// pre-existing persisted state at db_path").
func openBackendFresh(cfg PersistenceConfig) (Backend, error) {
	switch cfg.Backend {
	case BackendSQLite:
		return openSQLiteBackendFresh(cfg.DBPath)
	case BackendRedis:
		return openRedisBackendFresh(cfg.RedisAddr, cfg.RedisKeyPrefix)
	default:
		return nil, fmt.Errorf("%w: unknown persistence backend %d", ErrInvalidConfig, cfg.Backend)
	}
}

// openBackendForLoad opens cfg's backend without erasing existing state.
// Returns a wrapped ErrStorageError if nothing is stored at the location.
func openBackendForLoad(cfg PersistenceConfig) (Backend, error) {
	switch cfg.Backend {
	case BackendSQLite:
		return openSQLiteBackendForLoad(cfg.DBPath)
	case BackendRedis:
		return openRedisBackendForLoad(cfg.RedisAddr, cfg.RedisKeyPrefix)
	default:
		return nil, fmt.Errorf("%w: unknown persistence backend %d", ErrInvalidConfig, cfg.Backend)
	}
}

// backendExists reports whether durable state already exists at cfg's
// location, without opening a long-lived handle.
func backendExists(cfg PersistenceConfig) (bool, error) {
	switch cfg.Backend {
	case BackendSQLite:
		return sqliteDBExists(cfg.DBPath)
	case BackendRedis:
		return redisKeysExist(cfg.RedisAddr, cfg.RedisKeyPrefix)
	default:
		return false, fmt.Errorf("%w: unknown persistence backend %d", ErrInvalidConfig, cfg.Backend)
	}
}
