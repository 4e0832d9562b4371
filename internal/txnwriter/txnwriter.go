// Package txnwriter implements write-temp-and-rename atomic file writes,
// used by VersionFile.
//
// Write to a sibling temp file in the same directory (so the rename is
// same-filesystem and therefore atomic), then rename over the destination.
package txnwriter

import (
	"os"
	"path/filepath"

	"github.com/cartgo/cartgo/internal/cgerrors"
)

// WriteFile atomically replaces path's contents with data, creating path's
// parent directory if it does not already exist.
func WriteFile(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o777); err != nil {
		return cgerrors.WriteFailed(path, err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-"+filepath.Base(path)+"-")
	if err != nil {
		return cgerrors.WriteFailed(path, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op once the rename below succeeds

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return cgerrors.WriteFailed(path, err)
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		return cgerrors.WriteFailed(path, err)
	}
	if err := tmp.Close(); err != nil {
		return cgerrors.WriteFailed(path, err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return cgerrors.WriteFailed(path, err)
	}
	return nil
}
