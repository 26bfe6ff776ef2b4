package ebloom

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	_ "github.com/mattn/go-sqlite3" // sqlite3 driver

	"github.com/calvinalkan/ebloom/internal/ebloomfs"
)

// sqliteBusyTimeoutMS bounds how long a write waits on SQLITE_BUSY before
// giving up, mirroring the teacher store's lockTimeout discipline.
const sqliteBusyTimeoutMS = 10000

// sqliteBackend is the embedded-KV Backend variant (spec §4.5, §9
// "embedded-kv"). Config, active index, and metadata are one row each in
// the key-addressed ebloom_record table; chunks and dirty-chunks live in
// (level_id, chunk_id)-keyed tables so DeleteLevel scopes cleanly to one
// level.
type sqliteBackend struct {
	db     *sql.DB
	dbPath string
}

func sqliteDBExists(path string) (bool, error) {
	if path == "" {
		return false, nil
	}
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, wrapStorageErr("stat", err)
}

func openSQLiteBackendFresh(path string) (Backend, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: persistence.db_path is empty", ErrInvalidConfig)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, wrapStorageErr("remove existing db", err)
	}
	return openSQLiteBackend(path)
}

func openSQLiteBackendForLoad(path string) (Backend, error) {
	exists, err := sqliteDBExists(path)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: no database at %s", ErrStorageError, path)
	}
	return openSQLiteBackend(path)
}

func openSQLiteBackend(path string) (Backend, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, wrapStorageErr("open sqlite", err)
	}
	ctx := context.Background()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, wrapStorageErr("ping sqlite", err)
	}

	pragmas := fmt.Sprintf(`
		PRAGMA busy_timeout = %d;
		PRAGMA journal_mode = WAL;
		PRAGMA synchronous = FULL;
	`, sqliteBusyTimeoutMS)
	if _, err := db.ExecContext(ctx, pragmas); err != nil {
		_ = db.Close()
		return nil, wrapStorageErr("apply pragmas", err)
	}

	const schema = `
		CREATE TABLE IF NOT EXISTS ebloom_record (
			key  TEXT PRIMARY KEY,
			data BLOB NOT NULL
		);
		CREATE TABLE IF NOT EXISTS ebloom_chunk (
			level_id INTEGER NOT NULL,
			chunk_id INTEGER NOT NULL,
			data     BLOB NOT NULL,
			PRIMARY KEY (level_id, chunk_id)
		);
		CREATE TABLE IF NOT EXISTS ebloom_dirty_chunk (
			level_id INTEGER NOT NULL,
			chunk_id INTEGER NOT NULL,
			data     BLOB NOT NULL,
			PRIMARY KEY (level_id, chunk_id)
		);
	`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, wrapStorageErr("create schema", err)
	}

	return &sqliteBackend{db: db, dbPath: path}, nil
}

// configSidecarPath is a human-readable JSON copy of the config record,
// written alongside the SQLite database purely for operator inspection
// (e.g. `cat mydb.sqlite.config.json`). The database row is always the
// source of truth on Load; the sidecar is best-effort and its absence or
// staleness never affects correctness.
func (s *sqliteBackend) configSidecarPath() string {
	return s.dbPath + ".config.json"
}

func (s *sqliteBackend) SaveConfig(ctx context.Context, data []byte) error {
	if err := s.saveRecord(ctx, "config", data); err != nil {
		return err
	}
	// Best-effort: the sidecar is an operator convenience, not the source
	// of truth, so a failure here does not fail SaveConfig.
	_ = ebloomfs.WriteFileAtomic(s.configSidecarPath(), data)
	return nil
}

func (s *sqliteBackend) LoadConfig(ctx context.Context) ([]byte, error) {
	data, ok, err := s.loadRecord(ctx, "config")
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, wrapStorageErr("load_config", errNoRecord)
	}
	return data, nil
}

func (s *sqliteBackend) SaveActiveIndex(ctx context.Context, i int) error {
	return s.saveRecord(ctx, "active_index", encodeInt(i))
}

func (s *sqliteBackend) LoadActiveIndex(ctx context.Context) (int, error) {
	data, ok, err := s.loadRecord(ctx, "active_index")
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	return decodeInt(data), nil
}

func (s *sqliteBackend) SaveMetadata(ctx context.Context, data []byte) error {
	return s.saveRecord(ctx, "metadata", data)
}

func (s *sqliteBackend) LoadMetadata(ctx context.Context) ([]byte, error) {
	data, _, err := s.loadRecord(ctx, "metadata")
	return data, err
}

func (s *sqliteBackend) saveRecord(ctx context.Context, key string, data []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO ebloom_record(key, data) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET data = excluded.data`, key, data)
	if err != nil {
		return wrapStorageErr("save_record:"+key, err)
	}
	return nil
}

func (s *sqliteBackend) loadRecord(ctx context.Context, key string) ([]byte, bool, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM ebloom_record WHERE key = ?`, key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, wrapStorageErr("load_record:"+key, err)
	}
	return data, true, nil
}

func (s *sqliteBackend) SaveLevelFull(ctx context.Context, levelID int, chunks []chunkRecord) error {
	return s.saveChunks(ctx, "ebloom_chunk", levelID, chunks)
}

func (s *sqliteBackend) SaveLevelDirty(ctx context.Context, levelID int, chunks []chunkRecord) error {
	return s.saveChunks(ctx, "ebloom_dirty_chunk", levelID, chunks)
}

func (s *sqliteBackend) saveChunks(ctx context.Context, table string, levelID int, chunks []chunkRecord) error {
	if len(chunks) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapStorageErr("begin tx", err)
	}
	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(
		`INSERT INTO %s(level_id, chunk_id, data) VALUES (?, ?, ?)
		 ON CONFLICT(level_id, chunk_id) DO UPDATE SET data = excluded.data`, table))
	if err != nil {
		_ = tx.Rollback()
		return wrapStorageErr("prepare", err)
	}
	defer stmt.Close()

	for _, c := range chunks {
		if _, err := stmt.ExecContext(ctx, levelID, c.ChunkID, c.Data); err != nil {
			_ = tx.Rollback()
			return wrapStorageErr("exec chunk upsert", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return wrapStorageErr("commit", err)
	}
	return nil
}

func (s *sqliteBackend) LoadLevelChunks(ctx context.Context, levelID int) ([]chunkRecord, error) {
	return s.loadChunks(ctx, "ebloom_chunk", levelID)
}

func (s *sqliteBackend) LoadLevelDirty(ctx context.Context, levelID int) ([]chunkRecord, error) {
	return s.loadChunks(ctx, "ebloom_dirty_chunk", levelID)
}

func (s *sqliteBackend) loadChunks(ctx context.Context, table string, levelID int) ([]chunkRecord, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT chunk_id, data FROM %s WHERE level_id = ? ORDER BY chunk_id ASC`, table), levelID)
	if err != nil {
		return nil, wrapStorageErr("query chunks", err)
	}
	defer rows.Close()

	var out []chunkRecord
	for rows.Next() {
		var rec chunkRecord
		if err := rows.Scan(&rec.ChunkID, &rec.Data); err != nil {
			return nil, wrapStorageErr("scan chunk", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapStorageErr("iterate chunks", err)
	}
	return out, nil
}

func (s *sqliteBackend) DeleteLevel(ctx context.Context, levelID int) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return wrapStorageErr("begin tx", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM ebloom_chunk WHERE level_id = ?`, levelID); err != nil {
		_ = tx.Rollback()
		return wrapStorageErr("delete chunks", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM ebloom_dirty_chunk WHERE level_id = ?`, levelID); err != nil {
		_ = tx.Rollback()
		return wrapStorageErr("delete dirty chunks", err)
	}
	if err := tx.Commit(); err != nil {
		return wrapStorageErr("commit", err)
	}
	return nil
}

func (s *sqliteBackend) DeleteLevelDirty(ctx context.Context, levelID int) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM ebloom_dirty_chunk WHERE level_id = ?`, levelID); err != nil {
		return wrapStorageErr("delete dirty chunks", err)
	}
	return nil
}

func (s *sqliteBackend) Close() error {
	return s.db.Close()
}

func encodeInt(i int) []byte {
	return []byte(fmt.Sprintf("%d", i))
}

func decodeInt(data []byte) int {
	var i int
	_, _ = fmt.Sscanf(string(data), "%d", &i)
	return i
}
