package builder

import (
	"fmt"
	"os"
	"strings"

	"github.com/sgxvirt/repobuild/internal/models"
)

// CheckRelease verifies the host distribution identity by reading the release
// file and comparing it against the expected string. A mismatch is a fatal
// precondition failure, not a retryable error.
func CheckRelease(releaseFile, expected string) error {
	data, err := os.ReadFile(releaseFile)
	if err != nil {
		return &models.BuildError{
			Type: models.ErrPrecondition,
			Err:  fmt.Errorf("failed to read release file: %w", err),
		}
	}

	release := strings.TrimSpace(string(data))
	if release != expected {
		return &models.BuildError{
			Type: models.ErrPrecondition,
			Err:  fmt.Errorf("unsupported distribution %q, expected %q", release, expected),
		}
	}

	return nil
}
