package ebloom

import (
	"hash/fnv"
	"math"
)

// optimalParams derives the bit-vector size m and hash-count k from the
// intended capacity n and target false-positive rate p:
//
//	m = ceil(-n * ln(p) / (ln 2)^2)
//	k = round((m / n) * ln 2), clamped to >= 1
//
// capacity must be > 0 and targetFPR must be in (0, 1); callers validate
// this via Config.Validate before reaching here.
func optimalParams(capacity uint64, targetFPR float64) (m uint32, k int) {
	n := float64(capacity)
	ln2 := math.Ln2
	mf := math.Ceil(-n * math.Log(targetFPR) / (ln2 * ln2))
	if mf < 1 {
		mf = 1
	}
	m = uint32(mf)

	kf := math.Round((mf / n) * ln2)
	k = int(kf)
	if k < 1 {
		k = 1
	}
	return m, k
}

// hashMurmur32 computes the 32-bit Murmur3 hash (seed 0) of key.
func hashMurmur32(key []byte) uint32 {
	const (
		c1 = 0xcc9e2d51
		c2 = 0x1b873593
	)
	var h uint32 // seed 0

	nblocks := len(key) / 4
	for i := 0; i < nblocks; i++ {
		k := uint32(key[i*4]) | uint32(key[i*4+1])<<8 | uint32(key[i*4+2])<<16 | uint32(key[i*4+3])<<24
		k *= c1
		k = (k << 15) | (k >> 17)
		k *= c2

		h ^= k
		h = (h << 13) | (h >> 19)
		h = h*5 + 0xe6546b64
	}

	tail := key[nblocks*4:]
	var k1 uint32
	switch len(tail) {
	case 3:
		k1 ^= uint32(tail[2]) << 16
		fallthrough
	case 2:
		k1 ^= uint32(tail[1]) << 8
		fallthrough
	case 1:
		k1 ^= uint32(tail[0])
		k1 *= c1
		k1 = (k1 << 15) | (k1 >> 17)
		k1 *= c2
		h ^= k1
	}

	h ^= uint32(len(key))
	h ^= h >> 16
	h *= 0x85ebca6b
	h ^= h >> 13
	h *= 0xc2b2ae35
	h ^= h >> 16

	return h
}

// hashFNV32 computes the 32-bit FNV-1a hash of key.
func hashFNV32(key []byte) uint32 {
	h := fnv.New32a()
	h.Write(key) //nolint:errcheck // hash.Hash.Write never errors
	return h.Sum32()
}

// indices yields k positions in [0, m) for item using Kirsch-Mitzenmacher
// double hashing: h1 from Murmur3-32(seed=0), h2 from FNV-1a 32-bit,
// index[i] = (h1 + i*h2) mod m with wrapping 32-bit arithmetic before the
// modulo. This exact formula is a cross-implementation determinism
// contract (spec §4.1, §9) and must not be altered.
func indices(item []byte, k int, m uint32) []uint32 {
	h1 := hashMurmur32(item)
	h2 := hashFNV32(item)

	out := make([]uint32, k)
	for i := 0; i < k; i++ {
		v := h1 + uint32(i)*h2 // wraps on overflow, as uint32 arithmetic does
		out[i] = v % m
	}
	return out
}
