// Package ebloomfs provides the small filesystem primitive the engine
// needs: a durable, atomic single-file write. It uses
// github.com/natefinch/atomic directly rather than hand-rolled
// temp-file-plus-rename-plus-fsync logic, since a single whole-file write
// is all the config snapshot needs.
package ebloomfs

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"
)

// WriteFileAtomic durably writes data to path: either the file ends up
// with the full new contents, or (on crash or error) it is left
// unchanged. The parent directory is created if missing.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("ebloomfs: mkdir %q: %w", dir, err)
		}
	}
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("ebloomfs: atomic write %q: %w", path, err)
	}
	return nil
}

// ReadFile reads the entire file at path. A thin passthrough kept
// alongside WriteFileAtomic so callers depend on one small package for
// both halves of the config-snapshot round trip instead of reaching into
// os directly.
func ReadFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ebloomfs: read %q: %w", path, err)
	}
	return data, nil
}

// Exists reports whether path exists.
func Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("ebloomfs: stat %q: %w", path, err)
}
