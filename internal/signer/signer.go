package signer

// Signer interface for signing repository metadata
type Signer interface {
	// SignDetached creates a detached armored signature (for repomd.xml.asc)
	SignDetached(data []byte) ([]byte, error)

	// GetPublicKey returns the public key
	GetPublicKey() ([]byte, error)
}
