package ebloom

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSQLiteBackend_Contract(t *testing.T) {
	t.Parallel()
	backendContractTest(t, func(t *testing.T) Backend {
		t.Helper()
		dir := t.TempDir()
		b, err := openSQLiteBackendFresh(filepath.Join(dir, "test.db"))
		require.NoError(t, err)
		return b
	})
}

func TestSQLiteBackend_OpenForLoad_RequiresExistingFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	_, err := openSQLiteBackendForLoad(filepath.Join(dir, "missing.db"))
	require.ErrorIs(t, err, ErrStorageError)
}

func TestSQLiteBackend_OpenFresh_ErasesExistingFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")

	b1, err := openSQLiteBackendFresh(path)
	require.NoError(t, err)
	require.NoError(t, b1.SaveConfig(t.Context(), []byte("first")))
	require.NoError(t, b1.Close())

	b2, err := openSQLiteBackendFresh(path)
	require.NoError(t, err)
	defer b2.Close()

	_, err = b2.LoadConfig(t.Context())
	require.ErrorIs(t, err, ErrStorageError)
}

func TestSQLiteBackend_ConfigSidecarIsWritten(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")

	b, err := openSQLiteBackendFresh(path)
	require.NoError(t, err)
	defer b.Close()

	require.NoError(t, b.SaveConfig(t.Context(), []byte(`{"a":1}`)))

	_, statErr := os.Stat(path + ".config.json")
	require.NoError(t, statErr)
}
