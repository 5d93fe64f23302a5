package state

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// FileStore records stage completion as sentinel files inside each package's
// working directory, so completed work survives across pipeline runs.
type FileStore struct {
	packagesDir string
}

// NewFileStore creates a file-backed store rooted at the packages directory.
func NewFileStore(packagesDir string) *FileStore {
	return &FileStore{packagesDir: packagesDir}
}

func (s *FileStore) markerPath(pkg string, stage Stage) string {
	return filepath.Join(s.packagesDir, pkg, fmt.Sprintf(".repobuild-%s.done", stage))
}

// HasCompleted reports whether the marker file for the given stage exists.
func (s *FileStore) HasCompleted(pkg string, stage Stage) (bool, error) {
	_, err := os.Stat(s.markerPath(pkg, stage))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// MarkCompleted creates the marker file for the given stage. The file content
// is a timestamp, useful only for inspection.
func (s *FileStore) MarkCompleted(pkg string, stage Stage) error {
	stamp := time.Now().UTC().Format(time.RFC3339) + "\n"
	return os.WriteFile(s.markerPath(pkg, stage), []byte(stamp), 0644)
}
