// Package runner executes a package's external build entry point.
package runner

import (
	"context"
	"io"
	"os"
	"os/exec"
	"path/filepath"
)

// Runner runs the build procedure of a package rooted at dir. A non-nil error
// means the build failed and the pipeline must abort.
type Runner interface {
	Run(ctx context.Context, dir string) error
}

// ExecRunner invokes the build script as a child process with the package
// directory as its working directory. The process inherits the pipeline's
// environment; its output is streamed as-is.
type ExecRunner struct {
	Script string
	Stdout io.Writer
	Stderr io.Writer
}

// NewExecRunner creates a runner for the given build script name, writing
// the child's output to the pipeline's stdout and stderr.
func NewExecRunner(script string) *ExecRunner {
	return &ExecRunner{
		Script: script,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}

// Run executes the build script inside dir and waits for it to exit. There is
// no timeout; cancelling the context kills the child process.
func (r *ExecRunner) Run(ctx context.Context, dir string) error {
	script := r.Script
	if !filepath.IsAbs(script) {
		script = filepath.Join(dir, script)
	}

	cmd := exec.CommandContext(ctx, script)
	cmd.Dir = dir
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr

	return cmd.Run()
}
