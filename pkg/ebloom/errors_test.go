package ebloom

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestIndexOutOfBoundsError_Message(t *testing.T) {
	t.Parallel()

	err := &IndexOutOfBoundsError{Index: 5, Capacity: 3}
	require.Contains(t, err.Error(), "index 5")
	require.Contains(t, err.Error(), "capacity 3")
}

func TestWrapStorageErr(t *testing.T) {
	t.Parallel()

	require.NoError(t, wrapStorageErr("op", nil))

	wrapped := wrapStorageErr("save_config", errors.New("disk full"))
	require.ErrorIs(t, wrapped, ErrStorageError)
	require.Contains(t, wrapped.Error(), "save_config")
	require.Contains(t, wrapped.Error(), "disk full")
}

func TestInvalidChunkError_Message(t *testing.T) {
	t.Parallel()

	err := &InvalidChunkError{ChunkID: 9, NumChunks: 4, Reason: "chunk id out of range"}
	require.Contains(t, err.Error(), "chunk 9")
	require.Contains(t, err.Error(), "of 4")
}
