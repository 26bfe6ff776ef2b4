package ebloom

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

// backendContractTest exercises the Backend interface's observable
// behavior identically across every implementation, so a single test body
// grounds correctness for memoryBackend, sqliteBackend, and (given a live
// server) redisBackend alike.
func backendContractTest(t *testing.T, newBackend func(t *testing.T) Backend) {
	t.Helper()
	ctx := context.Background()

	t.Run("config round trip", func(t *testing.T) {
		t.Parallel()
		b := newBackend(t)
		defer b.Close()

		_, err := b.LoadConfig(ctx)
		require.ErrorIs(t, err, ErrStorageError)

		require.NoError(t, b.SaveConfig(ctx, []byte(`{"hello":"world"}`)))
		data, err := b.LoadConfig(ctx)
		require.NoError(t, err)
		require.Equal(t, `{"hello":"world"}`, string(data))
	})

	t.Run("active index defaults to zero", func(t *testing.T) {
		t.Parallel()
		b := newBackend(t)
		defer b.Close()

		idx, err := b.LoadActiveIndex(ctx)
		require.NoError(t, err)
		require.Equal(t, 0, idx)

		require.NoError(t, b.SaveActiveIndex(ctx, 2))
		idx, err = b.LoadActiveIndex(ctx)
		require.NoError(t, err)
		require.Equal(t, 2, idx)
	})

	t.Run("metadata round trip", func(t *testing.T) {
		t.Parallel()
		b := newBackend(t)
		defer b.Close()

		metas := []levelMetadata{{CreatedAtMS: 10, InsertCount: 1, LastSnapshotAtMS: 20}}
		require.NoError(t, b.SaveMetadata(ctx, marshalMetadata(metas)))

		data, err := b.LoadMetadata(ctx)
		require.NoError(t, err)
		got, err := unmarshalMetadata(data)
		require.NoError(t, err)
		require.Equal(t, metas, got)
	})

	t.Run("full and dirty chunks are independent", func(t *testing.T) {
		t.Parallel()
		b := newBackend(t)
		defer b.Close()

		full := []chunkRecord{{ChunkID: 0, Data: []byte("full-0")}, {ChunkID: 1, Data: []byte("full-1")}}
		require.NoError(t, b.SaveLevelFull(ctx, 5, full))

		dirty := []chunkRecord{{ChunkID: 1, Data: []byte("dirty-1")}}
		require.NoError(t, b.SaveLevelDirty(ctx, 5, dirty))

		gotFull, err := b.LoadLevelChunks(ctx, 5)
		require.NoError(t, err)
		require.Equal(t, full, gotFull)

		gotDirty, err := b.LoadLevelDirty(ctx, 5)
		require.NoError(t, err)
		require.Equal(t, dirty, gotDirty)
	})

	t.Run("delete level dirty leaves full chunks intact", func(t *testing.T) {
		t.Parallel()
		b := newBackend(t)
		defer b.Close()

		require.NoError(t, b.SaveLevelFull(ctx, 1, []chunkRecord{{ChunkID: 0, Data: []byte("f")}}))
		require.NoError(t, b.SaveLevelDirty(ctx, 1, []chunkRecord{{ChunkID: 0, Data: []byte("d")}}))

		require.NoError(t, b.DeleteLevelDirty(ctx, 1))

		dirty, err := b.LoadLevelDirty(ctx, 1)
		require.NoError(t, err)
		require.Empty(t, dirty)

		full, err := b.LoadLevelChunks(ctx, 1)
		require.NoError(t, err)
		require.Equal(t, []chunkRecord{{ChunkID: 0, Data: []byte("f")}}, full)
	})

	t.Run("delete level removes both full and dirty", func(t *testing.T) {
		t.Parallel()
		b := newBackend(t)
		defer b.Close()

		require.NoError(t, b.SaveLevelFull(ctx, 2, []chunkRecord{{ChunkID: 0, Data: []byte("f")}}))
		require.NoError(t, b.SaveLevelDirty(ctx, 2, []chunkRecord{{ChunkID: 0, Data: []byte("d")}}))

		require.NoError(t, b.DeleteLevel(ctx, 2))

		full, err := b.LoadLevelChunks(ctx, 2)
		require.NoError(t, err)
		require.Empty(t, full)

		dirty, err := b.LoadLevelDirty(ctx, 2)
		require.NoError(t, err)
		require.Empty(t, dirty)
	})
}

func TestMemoryBackend_Contract(t *testing.T) {
	t.Parallel()
	backendContractTest(t, func(t *testing.T) Backend {
		t.Helper()
		return newMemoryBackend()
	})
}
