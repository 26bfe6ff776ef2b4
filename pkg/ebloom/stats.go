package ebloom

// Stats bundles every read-only view spec §6 names into a single atomic
// read, matching the original implementation's ExpiringBloomFilterStats.
type Stats struct {
	CapacityPerLevel uint64
	TargetFPR        float64
	NumLevels        int
	ActiveLevelIndex int
	TotalInsertCount uint64
}

// Stats returns a point-in-time snapshot of the filter's configuration and
// counters.
func (f *Filter) Stats() Stats {
	f.mu.RLock()
	defer f.mu.RUnlock()

	var total uint64
	for _, lvl := range f.levels {
		total += lvl.meta.InsertCount
	}

	return Stats{
		CapacityPerLevel: f.config.CapacityPerLevel,
		TargetFPR:        f.config.TargetFPR,
		NumLevels:        f.config.NumLevels,
		ActiveLevelIndex: f.activeIndex,
		TotalInsertCount: total,
	}
}

// ActiveLevelIndex returns the current active level index. It is safe to
// call without holding any external lock; intended for lightweight,
// frequent polling (e.g. a metrics exporter) without paying for a full
// Stats snapshot.
func (f *Filter) ActiveLevelIndex() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.activeIndex
}

// LevelInfo is a per-level read-only view, addressed by levelID in
// [0, NumLevels).
type LevelInfo struct {
	CreatedAtMS uint64
	InsertCount uint64
	IsActive    bool
	IsActivated bool // false for a level that has never been rotated into
}

// LevelInfo returns metadata for the sub-filter at levelID. It returns an
// *InvalidLevelError when levelID is outside [0, NumLevels) (spec §7
// InvalidLevel).
func (f *Filter) LevelInfo(levelID int) (LevelInfo, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if levelID < 0 || levelID >= len(f.levels) {
		return LevelInfo{}, &InvalidLevelError{Level: levelID, MaxLevels: len(f.levels)}
	}

	lvl := f.levels[levelID]
	return LevelInfo{
		CreatedAtMS: lvl.meta.CreatedAtMS,
		InsertCount: lvl.meta.InsertCount,
		IsActive:    levelID == f.activeIndex,
		IsActivated: lvl.meta.CreatedAtMS != 0,
	}, nil
}
