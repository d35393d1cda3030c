// Package fileutil writes files the CLI hands to users: backups, QR codes
// and the config file.
package fileutil

import (
	"fmt"
	"os"
	"path/filepath"

	custodyerr "github.com/mrz1836/custody/pkg/errors"
)

// dirPerm is used for directories WriteAtomic creates.
const dirPerm = 0o750

// WriteAtomic replaces path with data. The data is written to a temp
// file in the same directory, synced and renamed, so readers never see
// a partial file. Missing parent directories are created.
func WriteAtomic(path string, data []byte, perm os.FileMode) error {
	if path == "" {
		return custodyerr.Wrap(custodyerr.ErrInvalidInput, "file path is empty")
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Chmod(perm); err != nil {
		return fmt.Errorf("setting permissions: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil { //nolint:gosec // G703: path comes from the operator
		return fmt.Errorf("replacing %s: %w", path, err)
	}

	// best effort: persist the rename
	if d, err := os.Open(dir); err == nil { //nolint:gosec // G304: dir derives from path
		_ = d.Sync()
		_ = d.Close()
	}
	return nil
}
