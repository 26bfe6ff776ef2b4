package ebloom

import (
	"errors"
	"fmt"
)

// Sentinel errors for the taxonomy members callers compare with errors.Is.
// These mirror the teacher codebase's convention of package-level Err...
// values rather than a third-party error-chain library.
var (
	// ErrInvalidConfig reports a Config value outside its permitted range.
	// Always a caller bug; never recovered internally.
	ErrInvalidConfig = errors.New("ebloom: invalid config")

	// ErrStorageError reports a durable-store failure (open, read, write,
	// delete, sync). Fatal to the engine instance when it occurs during
	// Load; best-effort (in-memory mutation already applied) when it
	// occurs during an auto-snapshot inside Insert.
	ErrStorageError = errors.New("ebloom: storage error")

	// ErrSerializationError reports corrupt or unrecognizable on-disk bytes.
	ErrSerializationError = errors.New("ebloom: serialization error")

	// ErrTimeError reports the system clock going backwards relative to a
	// stored created_at_ms. No operation in this package returns it:
	// CleanupExpiredLevels treats such a clock as "not expired", and
	// rotation only runs after that check has passed.
	ErrTimeError = errors.New("ebloom: clock went backwards")
)

// IndexOutOfBoundsError reports a requested bit index >= the bit-vector
// length. It always indicates an internal invariant violation, never user
// input, and is never expected to surface from a correctly wired Filter.
type IndexOutOfBoundsError struct {
	Index    uint32
	Capacity uint32
}

func (e *IndexOutOfBoundsError) Error() string {
	return fmt.Sprintf("ebloom: index out of bounds: index %d, capacity %d", e.Index, e.Capacity)
}

// InvalidLevelError reports a level id >= num_levels.
type InvalidLevelError struct {
	Level     int
	MaxLevels int
}

func (e *InvalidLevelError) Error() string {
	return fmt.Sprintf("ebloom: invalid level: level %d, max levels %d", e.Level, e.MaxLevels)
}

// InvalidChunkError reports a chunk id that exceeds num_chunks, or chunk
// bytes that overflow the trailing partial chunk.
type InvalidChunkError struct {
	ChunkID   int
	NumChunks int
	Reason    string
}

func (e *InvalidChunkError) Error() string {
	return fmt.Sprintf("ebloom: invalid chunk %d (of %d): %s", e.ChunkID, e.NumChunks, e.Reason)
}

// wrapStorageErr wraps a backend-specific error in ErrStorageError so no
// backend-specific type ever leaks through the Backend interface boundary.
func wrapStorageErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %s: %w", ErrStorageError, op, err)
}
