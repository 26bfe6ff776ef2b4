// Package ebloom implements a time-expiring, sliding-window Bloom filter
// with durable, incremental on-disk persistence.
//
// A Filter answers "has this item been seen in the last W units of time?"
// with a bounded false-positive rate and zero false negatives within the
// retention window, where W = num_levels * level_duration.
//
// # Basic usage
//
//	f, err := ebloom.Create(ebloom.Config{
//	    CapacityPerLevel: 100_000,
//	    TargetFPR:        0.01,
//	    NumLevels:        3,
//	    LevelDuration:    time.Hour,
//	})
//	if err != nil {
//	    // handle invalid config
//	}
//	defer f.Close()
//
//	f.Insert([]byte("user:42"))
//	f.Contains([]byte("user:42")) // true
//
// # Persistence
//
// Supplying Config.Persistence durably backs the filter. [Create] wipes any
// prior state at the given path; [Load] reconstructs every level from the
// last committed snapshot. Rotation ([Filter.CleanupExpiredLevels]) always
// freezes the outgoing level with a full snapshot before wiping the
// incoming one, so a crash mid-rotation never leaves a level that belongs
// to neither the pre- nor the post-rotation state.
//
// # Concurrency
//
// A *Filter is safe for concurrent use by multiple goroutines. Reads
// ([Filter.Contains], [Filter.ContainsBulk], stats) proceed in parallel;
// mutations ([Filter.Insert], [Filter.Clear], [Filter.CleanupExpiredLevels])
// are serialized by a single reader-writer lock covering levels, metadata,
// the active index, and the dirty-chunk tracker.
package ebloom
