package artifact

import (
	"fmt"
	"os"
	"path/filepath"

	"pricing-pipeline/pkg/models"
)

// CachePath is where a downloaded file of a version lives under a cache dir.
func CachePath(cacheDir string, v *models.ArtifactVersion, file string) string {
	return filepath.Join(cacheDir, v.Name, v.Alias, file)
}

// Cached reports whether path already holds content matching f.
func Cached(path string, f models.ArtifactFile) bool {
	info, err := os.Stat(path)
	if err != nil || info.Size() != f.Size {
		return false
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	return FileDigest(data) == f.Digest
}

// WriteFileAtomic writes data to path through a temporary sibling and a
// rename, so readers never observe a partial file.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to move file into place: %w", err)
	}
	return nil
}
