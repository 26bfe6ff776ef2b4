package ebloom

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// These cover the pure key-encoding helpers without requiring a live Redis
// server; the Backend-contract behavior itself is exercised identically by
// backendContractTest against memoryBackend and sqliteBackend.

func TestRedisKeyHelpers(t *testing.T) {
	t.Parallel()

	require.Equal(t, "ebloom:config", redisConfigKey("ebloom"))
	require.Equal(t, "ebloom:active_index", redisActiveIdxKey("ebloom"))
	require.Equal(t, "ebloom:metadata", redisMetadataKey("ebloom"))
	require.Equal(t, "ebloom:chunks:3:7", redisChunkKey("ebloom", 3, 7))
	require.Equal(t, "ebloom:dirty:3:7", redisDirtyChunkKey("ebloom", 3, 7))
	require.Equal(t, "ebloom:chunks:3:*", redisChunkPattern("ebloom", 3))
	require.Equal(t, "ebloom:dirty:3:*", redisDirtyChunkPattern("ebloom", 3))
}

func TestChunkIDFromKey(t *testing.T) {
	t.Parallel()

	id, err := chunkIDFromKey("myprefix:chunks:5:42")
	require.NoError(t, err)
	require.Equal(t, 42, id)

	_, err = chunkIDFromKey("not:a:number")
	require.Error(t, err)
}

func TestSortChunkRecords(t *testing.T) {
	t.Parallel()

	recs := []chunkRecord{{ChunkID: 3}, {ChunkID: 1}, {ChunkID: 2}}
	sortChunkRecords(recs)
	require.Equal(t, []int{1, 2, 3}, []int{recs[0].ChunkID, recs[1].ChunkID, recs[2].ChunkID})
}
