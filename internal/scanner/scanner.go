// Package scanner finds RPM package files in a repository directory tree.
package scanner

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// RPM packages start with 0xED 0xAB 0xEE 0xDB
var rpmMagic = []byte{0xED, 0xAB, 0xEE, 0xDB}

// Scan recursively walks dir and returns the paths of all RPM packages found,
// detected by magic bytes or file extension. Repository metadata and marker
// files are skipped by virtue of not being RPMs.
func Scan(ctx context.Context, dir string) ([]string, error) {
	var packages []string

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		// Check context cancellation
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		// Skip directories
		if info.IsDir() {
			return nil
		}

		isRPM, err := IsRPM(path)
		if err != nil {
			logrus.Warnf("Failed to inspect %s: %v", path, err)
			return nil
		}
		if !isRPM {
			return nil
		}

		logrus.Debugf("Found RPM package: %s", path)
		packages = append(packages, path)

		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to scan directory: %w", err)
	}

	logrus.Debugf("Found %d packages in %s", len(packages), dir)
	return packages, nil
}

// IsRPM determines whether a file is an RPM package based on magic bytes and
// file extension.
func IsRPM(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	header := make([]byte, 4)
	n, err := f.Read(header)
	if err != nil && n == 0 {
		return false, err
	}
	header = header[:n]

	if bytes.HasPrefix(header, rpmMagic) {
		return true, nil
	}

	return filepath.Ext(path) == ".rpm", nil
}
