package ebloom

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Filter is the sliding-window Bloom filter engine: it owns every
// sub-filter, the active-level pointer, the dirty-chunk tracker, and the
// persistence handle (spec §3 Ownership). A *Filter is safe for concurrent
// use; see the package doc for the locking discipline.
type Filter struct {
	mu sync.RWMutex

	config     Config
	bitVecSize uint32 // m
	numHashes  int    // k

	levels      []*level
	activeIndex int

	chunkSizeBytes int // 0 when memory-only with no persistence wiring
	numChunks      int
	dirty          *chunkTracker

	backend Backend // nil for a pure memory-only filter with no storage adapter at all

	lastAutoSnapshot time.Time

	nowMS  func() uint64
	logger *zap.Logger
}

func nowMillis() uint64 {
	return uint64(time.Now().UnixMilli())
}

// Create builds a fresh Filter from config, erasing any pre-existing
// persisted state at config.Persistence.DBPath/RedisAddr if persistence is
// configured.
func Create(config Config) (*Filter, error) {
	return createWithClock(config, nowMillis)
}

func createWithClock(config Config, nowMS func() uint64) (*Filter, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	m, k := optimalParams(config.CapacityPerLevel, config.TargetFPR)

	f := &Filter{
		config:      config,
		bitVecSize:  m,
		numHashes:   k,
		activeIndex: 0,
		nowMS:       nowMS,
		logger:      zap.NewNop(),
	}

	now := nowMS()
	f.levels = make([]*level, config.NumLevels)
	for i := range f.levels {
		createdAt := uint64(0)
		if i == 0 {
			createdAt = now
		}
		f.levels[i] = &level{
			bits: newBitset(m),
			meta: levelMetadata{CreatedAtMS: createdAt},
		}
	}

	if config.Persistence != nil {
		f.chunkSizeBytes = config.Persistence.ChunkSizeBytes
		f.numChunks = f.levels[0].bits.numChunks(f.chunkSizeBytes)
		f.dirty = newChunkTracker(f.numChunks)

		backend, err := openBackendFresh(*config.Persistence)
		if err != nil {
			return nil, err
		}
		f.backend = backend

		ctx := context.Background()
		data, err := marshalConfig(config)
		if err != nil {
			_ = backend.Close()
			return nil, err
		}
		if err := f.backend.SaveConfig(ctx, data); err != nil {
			_ = backend.Close()
			return nil, wrapStorageErr("save_config", err)
		}
		if err := f.backend.SaveActiveIndex(ctx, 0); err != nil {
			_ = backend.Close()
			return nil, wrapStorageErr("save_active_index", err)
		}
		if err := f.persistMetadataLocked(ctx); err != nil {
			_ = backend.Close()
			return nil, err
		}
	}

	return f, nil
}

// Load reconstructs a Filter from the durable state at persistence.DBPath
// (or RedisAddr), per persistence.Backend. Every level is rebuilt from its
// dirty chunks if any exist, else from its full-snapshot chunks, replayed
// onto an all-zero bit-vector (spec §4.5 Reconstruction rule).
func Load(persistence PersistenceConfig) (*Filter, error) {
	return loadWithClock(persistence, nowMillis)
}

func loadWithClock(persistence PersistenceConfig, nowMS func() uint64) (*Filter, error) {
	if err := (&persistence).validate(); err != nil {
		return nil, err
	}

	backend, err := openBackendForLoad(persistence)
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	raw, err := backend.LoadConfig(ctx)
	if err != nil {
		_ = backend.Close()
		return nil, fmt.Errorf("load filter: %w", err)
	}
	config, err := unmarshalConfig(raw)
	if err != nil {
		_ = backend.Close()
		return nil, err
	}
	config.Persistence = &persistence

	if err := config.Validate(); err != nil {
		_ = backend.Close()
		return nil, fmt.Errorf("load filter: persisted config is invalid: %w", err)
	}

	m, k := optimalParams(config.CapacityPerLevel, config.TargetFPR)

	f := &Filter{
		config:         config,
		bitVecSize:     m,
		numHashes:      k,
		chunkSizeBytes: persistence.ChunkSizeBytes,
		backend:        backend,
		nowMS:          nowMS,
		logger:         zap.NewNop(),
	}

	activeIdx, err := backend.LoadActiveIndex(ctx)
	if err != nil {
		_ = backend.Close()
		return nil, wrapStorageErr("load_active_index", err)
	}
	f.activeIndex = activeIdx

	metaBytes, err := backend.LoadMetadata(ctx)
	if err != nil {
		_ = backend.Close()
		return nil, wrapStorageErr("load_metadata", err)
	}
	metas, err := unmarshalMetadata(metaBytes)
	if err != nil {
		_ = backend.Close()
		return nil, err
	}
	if len(metas) != config.NumLevels {
		metas = make([]levelMetadata, config.NumLevels)
	}

	f.levels = make([]*level, config.NumLevels)
	f.numChunks = newBitset(m).numChunks(f.chunkSizeBytes)
	for i := range f.levels {
		bits := newBitset(m)

		dirtyChunks, err := backend.LoadLevelDirty(ctx, i)
		if err != nil {
			_ = backend.Close()
			return nil, wrapStorageErr("load_dirty_chunks", err)
		}
		source := dirtyChunks
		if len(source) == 0 {
			fullChunks, err := backend.LoadLevelChunks(ctx, i)
			if err != nil {
				_ = backend.Close()
				return nil, wrapStorageErr("load_level_chunks", err)
			}
			source = fullChunks
		}
		for _, c := range source {
			if err := bits.applyChunkBytes(c.ChunkID, c.Data, f.chunkSizeBytes); err != nil {
				_ = backend.Close()
				return nil, fmt.Errorf("%w: reconstruct level %d chunk %d: %w", ErrSerializationError, i, c.ChunkID, err)
			}
		}

		f.levels[i] = &level{bits: bits, meta: metas[i]}
	}

	f.dirty = newChunkTracker(f.numChunks)
	return f, nil
}

// CreateOrLoad loads an existing persisted filter at config.Persistence's
// location if one exists, else creates a fresh one.
func CreateOrLoad(config Config) (*Filter, error) {
	if config.Persistence == nil {
		return Create(config)
	}
	exists, err := backendExists(*config.Persistence)
	if err != nil {
		return nil, err
	}
	if exists {
		return Load(*config.Persistence)
	}
	return Create(config)
}

// SetLogger installs a zap logger for rotation/snapshot/storage-error
// diagnostics. Safe to call before any other operation; nil resets to a
// no-op logger.
func (f *Filter) SetLogger(logger *zap.Logger) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if logger == nil {
		logger = zap.NewNop()
	}
	f.logger = logger
}

// Close releases the filter's backend resources, if any. It is not
// required for durability: every committed snapshot suffices for a later
// Load (spec §3 Lifecycle).
func (f *Filter) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.backend == nil {
		return nil
	}
	return f.backend.Close()
}

// Insert adds item to the active level. Its insert_count increments by one
// and the dirty tracker gains at most k new entries. If
// persistence.AutoSnapshot is enabled and the snapshot interval has
// elapsed, a dirty-chunk snapshot is written before Insert returns; a
// storage failure during that snapshot is reported to the caller, but the
// in-memory mutation has already taken effect (spec §7 best-effort
// persistence policy).
func (f *Filter) Insert(item []byte) error {
	f.mu.Lock()
	idx := indices(item, f.numHashes, f.bitVecSize)
	active := f.levels[f.activeIndex]
	if err := active.bits.setBits(idx); err != nil {
		f.mu.Unlock()
		return err
	}
	active.meta.InsertCount++
	if f.dirty != nil {
		for _, bit := range idx {
			f.dirty.markBitIndex(bit, f.chunkSizeBytes)
		}
	}

	shouldSnapshot := f.shouldAutoSnapshotLocked()
	f.mu.Unlock()

	if shouldSnapshot {
		if err := f.SaveSnapshot(); err != nil {
			f.logger.Warn("auto-snapshot failed after insert", zap.Error(err))
			return err
		}
	}
	return nil
}

// InsertBulk inserts every item, holding the write lock once. The result
// is identical to calling Insert serially for each item.
func (f *Filter) InsertBulk(items [][]byte) error {
	f.mu.Lock()
	active := f.levels[f.activeIndex]
	for _, item := range items {
		idx := indices(item, f.numHashes, f.bitVecSize)
		if err := active.bits.setBits(idx); err != nil {
			f.mu.Unlock()
			return err
		}
		active.meta.InsertCount++
		if f.dirty != nil {
			for _, bit := range idx {
				f.dirty.markBitIndex(bit, f.chunkSizeBytes)
			}
		}
	}
	shouldSnapshot := f.shouldAutoSnapshotLocked()
	f.mu.Unlock()

	if shouldSnapshot {
		if err := f.SaveSnapshot(); err != nil {
			f.logger.Warn("auto-snapshot failed after insert_bulk", zap.Error(err))
			return err
		}
	}
	return nil
}

func (f *Filter) shouldAutoSnapshotLocked() bool {
	if f.backend == nil || f.config.Persistence == nil || !f.config.Persistence.AutoSnapshot {
		return false
	}
	interval := f.config.Persistence.SnapshotInterval
	if interval <= 0 {
		return true
	}
	return time.Since(f.lastAutoSnapshot) >= interval
}

// Contains reports whether item has been inserted and is still within a
// participating level: the active level always participates; a historical
// level participates until the engine observes its expiration and rotates
// it out. Never false-negative for any item inserted since that level's
// activation.
func (f *Filter) Contains(item []byte) (bool, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.containsLocked(item)
}

func (f *Filter) containsLocked(item []byte) (bool, error) {
	idx := indices(item, f.numHashes, f.bitVecSize)
	for _, lvl := range f.levels {
		if lvl.meta.CreatedAtMS == 0 {
			continue
		}
		ok, err := lvl.bits.testAll(idx)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// ContainsBulk reports membership for every item, holding the read lock
// once.
func (f *Filter) ContainsBulk(items [][]byte) ([]bool, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]bool, len(items))
	for i, item := range items {
		ok, err := f.containsLocked(item)
		if err != nil {
			return nil, err
		}
		out[i] = ok
	}
	return out, nil
}

// Clear zeroes every level, resets all metadata (created_at_ms = now on
// level 0, 0 elsewhere), resets active_index to 0, and clears the dirty
// tracker.
func (f *Filter) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.nowMS()
	for i, lvl := range f.levels {
		lvl.bits.clear()
		createdAt := uint64(0)
		if i == 0 {
			createdAt = now
		}
		lvl.meta = levelMetadata{CreatedAtMS: createdAt}
	}
	f.activeIndex = 0
	if f.dirty != nil {
		f.dirty.clear()
	}

	if f.backend != nil {
		ctx := context.Background()
		for i := range f.levels {
			if err := f.backend.DeleteLevel(ctx, i); err != nil {
				return wrapStorageErr("delete_level", err)
			}
		}
		if err := f.backend.SaveActiveIndex(ctx, 0); err != nil {
			return wrapStorageErr("save_active_index", err)
		}
		if err := f.persistMetadataLocked(ctx); err != nil {
			return err
		}
	}
	return nil
}

// CleanupExpiredLevels rotates the active level out if it has lived longer
// than level_duration; otherwise it is a no-op. A clock that appears to
// have gone backwards relative to the active level's created_at_ms is
// treated as "not expired" (spec §7's conservative expiration-check
// policy) rather than surfaced as an error; rotateLocked's own clock read,
// by contrast, is never second-guessed this way. See rotateLocked for the
// rotation algorithm (spec §4.4).
func (f *Filter) CleanupExpiredLevels() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	active := f.levels[f.activeIndex]
	expired, ok := active.isExpired(f.nowMS(), uint64(f.config.LevelDuration.Milliseconds()))
	if !ok || !expired {
		return nil
	}
	return f.rotateLocked()
}

// rotateLocked performs the strictly-ordered rotation algorithm (spec
// §4.4): freeze outgoing (full snapshot), wipe incoming in memory, wipe
// incoming on disk, re-stamp incoming metadata, persist metadata + active
// pointer, clear the dirty tracker. Caller must hold f.mu for writing.
func (f *Filter) rotateLocked() error {
	i := f.activeIndex
	j := (i + 1) % f.config.NumLevels
	ctx := context.Background()

	f.logger.Info("rotating levels", zap.Int("outgoing", i), zap.Int("incoming", j))

	// 1. Freeze outgoing: full snapshot of levels[i], then drop its now-
	// subsumed dirty-chunk records so a later Load never prefers a stale
	// dirty chunk over this fresher full snapshot (spec §9).
	if f.backend != nil {
		chunks, err := f.extractAllChunks(f.levels[i].bits)
		if err != nil {
			return err
		}
		if err := f.backend.SaveLevelFull(ctx, i, chunks); err != nil {
			return wrapStorageErr("save_level_full", err)
		}
		if err := f.backend.DeleteLevelDirty(ctx, i); err != nil {
			return wrapStorageErr("delete_level_dirty", err)
		}
		f.levels[i].meta.LastSnapshotAtMS = f.nowMS()
	}

	// 2. Wipe incoming in-memory.
	f.levels[j].bits.clear()

	// 3. Wipe incoming on-disk.
	if f.backend != nil {
		if err := f.backend.DeleteLevel(ctx, j); err != nil {
			return wrapStorageErr("delete_level", err)
		}
	}

	// 4. Re-stamp incoming metadata.
	now := f.nowMS()
	f.levels[j].meta = levelMetadata{CreatedAtMS: now}

	// 5. Persist metadata and active pointer.
	if f.backend != nil {
		if err := f.persistMetadataLocked(ctx); err != nil {
			return err
		}
		if err := f.backend.SaveActiveIndex(ctx, j); err != nil {
			return wrapStorageErr("save_active_index", err)
		}
	}
	f.activeIndex = j

	// 6. Clear dirty tracker: it now refers to level j.
	if f.dirty != nil {
		f.dirty.clear()
	}

	f.logger.Info("rotation committed", zap.Int("active", j))
	return nil
}

// SaveSnapshot writes the active level's currently-dirty chunks (spec
// §4.4 "Dirty snapshot"). It always suspends on I/O. A no-op on a
// memory-only filter.
func (f *Filter) SaveSnapshot() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saveSnapshotLocked()
}

func (f *Filter) saveSnapshotLocked() error {
	if f.backend == nil || f.dirty == nil {
		return nil
	}
	dirtyIDs := f.dirty.drain()
	if len(dirtyIDs) == 0 {
		return nil
	}

	active := f.levels[f.activeIndex]
	chunks := make([]chunkRecord, 0, len(dirtyIDs))
	for _, id := range dirtyIDs {
		data, err := active.bits.asChunkBytes(id, f.chunkSizeBytes)
		if err != nil {
			return err
		}
		chunks = append(chunks, chunkRecord{ChunkID: id, Data: data})
	}

	ctx := context.Background()
	if err := f.backend.SaveLevelDirty(ctx, f.activeIndex, chunks); err != nil {
		return wrapStorageErr("save_level_dirty", err)
	}
	active.meta.LastSnapshotAtMS = f.nowMS()
	f.lastAutoSnapshot = time.Now()

	return f.persistMetadataLocked(ctx)
}

// extractAllChunks extracts every chunk of bits for a full snapshot.
func (f *Filter) extractAllChunks(bits *bitset) ([]chunkRecord, error) {
	nc := bits.numChunks(f.chunkSizeBytes)
	out := make([]chunkRecord, nc)
	for id := 0; id < nc; id++ {
		data, err := bits.asChunkBytes(id, f.chunkSizeBytes)
		if err != nil {
			return nil, err
		}
		out[id] = chunkRecord{ChunkID: id, Data: data}
	}
	return out, nil
}

func (f *Filter) persistMetadataLocked(ctx context.Context) error {
	metas := make([]levelMetadata, len(f.levels))
	for i, lvl := range f.levels {
		metas[i] = lvl.meta
	}
	if err := f.backend.SaveMetadata(ctx, marshalMetadata(metas)); err != nil {
		return wrapStorageErr("save_metadata", err)
	}
	return nil
}
