// Atomic file persistence for export and import staging using the
// temp-file, fsync, rename pattern.
package transfer

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// writeFileAtomic writes data to path so that readers observe either
// the old content or the new, never a torn write.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".transfer-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}

// stageSource preserves a copy of an import source under the staging
// directory before any mutation is applied, so a bad import can be
// inspected and replayed. Returns the staged path.
func stageSource(stagingDir, source string, data []byte) (string, error) {
	if stagingDir == "" {
		return "", nil
	}
	staged := filepath.Join(stagingDir, stagedName(source))
	if err := writeFileAtomic(staged, data); err != nil {
		return "", fmt.Errorf("staging %s: %w", source, err)
	}
	return staged, nil
}

// stagedName builds a collision-free staging file name from the
// source's base name.
func stagedName(source string) string {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	return id.String() + "-" + filepath.Base(source)
}
