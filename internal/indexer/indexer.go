// Package indexer finalizes a repository directory into a queryable YUM/DNF
// repository by generating createrepo-compatible metadata.
package indexer

import "context"

// Indexer regenerates the repository index of dir, operating in-place over
// whatever packages are currently present. Implementations must tolerate
// being re-run over an existing, growing directory.
type Indexer interface {
	Index(ctx context.Context, dir string) error
}
