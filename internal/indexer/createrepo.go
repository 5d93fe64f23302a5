package indexer

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"

	"github.com/sirupsen/logrus"
)

// CreaterepoIndexer shells out to the createrepo tool instead of generating
// metadata in-process.
type CreaterepoIndexer struct {
	Stdout io.Writer
	Stderr io.Writer
}

// NewCreaterepoIndexer creates an indexer backed by the createrepo binary.
func NewCreaterepoIndexer() *CreaterepoIndexer {
	return &CreaterepoIndexer{
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}

// EnsureInstalled attempts a single install of createrepo through dnf when
// the tool is absent. The attempt is not retried or re-verified; if it
// silently fails, the subsequent Index call fails instead.
func (c *CreaterepoIndexer) EnsureInstalled(ctx context.Context) error {
	if _, err := exec.LookPath("createrepo"); err == nil {
		return nil
	}

	logrus.Warn("createrepo not found, attempting to install createrepo_c")

	install := exec.CommandContext(ctx, "dnf", "install", "-y", "createrepo_c")
	install.Stdout = c.Stdout
	install.Stderr = c.Stderr
	if err := install.Run(); err != nil {
		logrus.Warnf("Failed to install createrepo_c: %v", err)
	}

	return nil
}

// Index runs createrepo against dir.
func (c *CreaterepoIndexer) Index(ctx context.Context, dir string) error {
	cmd := exec.CommandContext(ctx, "createrepo", dir)
	cmd.Stdout = c.Stdout
	cmd.Stderr = c.Stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("createrepo failed: %w", err)
	}

	return nil
}
