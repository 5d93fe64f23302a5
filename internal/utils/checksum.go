package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"os"
)

// FileChecksum holds the SHA-256 checksum and size of a file
type FileChecksum struct {
	SHA256 string
	Size   int64
}

// SHA256File calculates the SHA-256 checksum and size of a file
func SHA256File(path string) (*FileChecksum, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, err
	}

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return nil, err
	}

	return &FileChecksum{
		SHA256: hex.EncodeToString(h.Sum(nil)),
		Size:   info.Size(),
	}, nil
}

// SHA256Bytes calculates the SHA-256 checksum of in-memory data
func SHA256Bytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
