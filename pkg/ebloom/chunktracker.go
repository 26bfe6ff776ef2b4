package ebloom

// chunkTracker marks which fixed-size chunks of the active level's bitset
// have been mutated since the last snapshot commit. It implements the
// Chunk Tracker component (spec §4.3).
type chunkTracker struct {
	dirty []bool
}

func newChunkTracker(numChunks int) *chunkTracker {
	return &chunkTracker{dirty: make([]bool, numChunks)}
}

// mark records chunk chunkID as dirty.
func (t *chunkTracker) mark(chunkID int) {
	if chunkID >= 0 && chunkID < len(t.dirty) {
		t.dirty[chunkID] = true
	}
}

// markBitIndex marks the chunk containing bitIndex as dirty, given the
// chunk size in bytes.
func (t *chunkTracker) markBitIndex(bitIndex uint32, chunkSizeBytes int) {
	chunkID := int(bitIndex) / (chunkSizeBytes * 8)
	t.mark(chunkID)
}

// drain returns the ordered list of dirty chunk ids and clears the
// tracker. Draining twice without an intervening mark returns an empty
// slice the second time.
func (t *chunkTracker) drain() []int {
	var ids []int
	for i, d := range t.dirty {
		if d {
			ids = append(ids, i)
		}
	}
	t.clear()
	return ids
}

// clear resets every chunk to clean.
func (t *chunkTracker) clear() {
	for i := range t.dirty {
		t.dirty[i] = false
	}
}
