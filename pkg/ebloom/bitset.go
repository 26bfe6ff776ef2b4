package ebloom

// bitset is a packed, LSB-first bit-vector of exactly numBits bits. It
// implements the Bit-Store component (spec §4.2): batch set/get, chunk
// extraction for persistence, and chunk application for reconstruction.
type bitset struct {
	bytes   []byte
	numBits uint32
}

// newBitset allocates a zeroed bitset of exactly numBits bits.
func newBitset(numBits uint32) *bitset {
	return &bitset{
		bytes:   make([]byte, numBytesFor(numBits)),
		numBits: numBits,
	}
}

func numBytesFor(numBits uint32) int {
	return int((numBits + 7) / 8)
}

// setBits sets every bit in indices to 1. Returns IndexOutOfBoundsError if
// any index >= numBits.
func (b *bitset) setBits(idx []uint32) error {
	for _, i := range idx {
		if i >= b.numBits {
			return &IndexOutOfBoundsError{Index: i, Capacity: b.numBits}
		}
		b.bytes[i/8] |= 1 << (i % 8)
	}
	return nil
}

// getBits returns whether each requested index is set. Returns
// IndexOutOfBoundsError if any index >= numBits.
func (b *bitset) getBits(idx []uint32) ([]bool, error) {
	out := make([]bool, len(idx))
	for n, i := range idx {
		if i >= b.numBits {
			return nil, &IndexOutOfBoundsError{Index: i, Capacity: b.numBits}
		}
		out[n] = b.bytes[i/8]&(1<<(i%8)) != 0
	}
	return out, nil
}

// testAll reports whether every index in idx is set. Short-circuits on the
// first zero bit. Returns IndexOutOfBoundsError if any index >= numBits.
func (b *bitset) testAll(idx []uint32) (bool, error) {
	for _, i := range idx {
		if i >= b.numBits {
			return false, &IndexOutOfBoundsError{Index: i, Capacity: b.numBits}
		}
		if b.bytes[i/8]&(1<<(i%8)) == 0 {
			return false, nil
		}
	}
	return true, nil
}

// clear zeroes every bit in place.
func (b *bitset) clear() {
	for i := range b.bytes {
		b.bytes[i] = 0
	}
}

// numChunks returns the number of chunkSizeBytes-sized windows covering
// numBits, i.e. ceil(m / (chunkSizeBytes * 8)).
func (b *bitset) numChunks(chunkSizeBytes int) int {
	totalBytes := len(b.bytes)
	return (totalBytes + chunkSizeBytes - 1) / chunkSizeBytes
}

// asChunkBytes extracts a contiguous chunkSizeBytes-byte window of the
// packed representation. The last chunk is shorter when the bit-vector's
// byte length is not a multiple of chunkSizeBytes.
func (b *bitset) asChunkBytes(chunkID, chunkSizeBytes int) ([]byte, error) {
	nc := b.numChunks(chunkSizeBytes)
	if chunkID < 0 || chunkID >= nc {
		return nil, &InvalidChunkError{ChunkID: chunkID, NumChunks: nc, Reason: "chunk id out of range"}
	}
	start := chunkID * chunkSizeBytes
	end := start + chunkSizeBytes
	if end > len(b.bytes) {
		end = len(b.bytes)
	}
	out := make([]byte, end-start)
	copy(out, b.bytes[start:end])
	return out, nil
}

// applyChunkBytes overwrites the chunkID-th window with data. It is the
// inverse of asChunkBytes: apply(c, asChunkBytes(c)) is a no-op for any
// prior mutation history (spec §4.2 round-trip law).
func (b *bitset) applyChunkBytes(chunkID int, data []byte, chunkSizeBytes int) error {
	nc := b.numChunks(chunkSizeBytes)
	if chunkID < 0 || chunkID >= nc {
		return &InvalidChunkError{ChunkID: chunkID, NumChunks: nc, Reason: "chunk id out of range"}
	}
	start := chunkID * chunkSizeBytes
	end := start + chunkSizeBytes
	if end > len(b.bytes) {
		end = len(b.bytes)
	}
	want := end - start
	if len(data) > want {
		return &InvalidChunkError{ChunkID: chunkID, NumChunks: nc, Reason: "chunk bytes overflow the trailing partial chunk"}
	}
	copy(b.bytes[start:end], data)
	// Bytes beyond len(data) within this chunk's window, if data is short,
	// are left untouched by copy. Full and dirty records alike are produced
	// by asChunkBytes, so Load's replay always supplies exactly `want`
	// bytes.
	return nil
}
