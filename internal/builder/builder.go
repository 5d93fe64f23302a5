// Package builder implements the ordered, idempotent, fail-fast repository
// build pipeline: build each package of a repository class exactly once,
// collect its artifacts into the class's repository tree and regenerate the
// repository index.
package builder

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sgxvirt/repobuild/internal/config"
	"github.com/sgxvirt/repobuild/internal/indexer"
	"github.com/sgxvirt/repobuild/internal/models"
	"github.com/sgxvirt/repobuild/internal/runner"
	"github.com/sgxvirt/repobuild/internal/state"
	"github.com/sgxvirt/repobuild/internal/utils"
	"github.com/sirupsen/logrus"
)

// RepositoryBuilder builds every package of a repository class and assembles
// the results into a flat package repository.
type RepositoryBuilder struct {
	cfg     *config.Config
	store   state.Store
	runner  runner.Runner
	indexer indexer.Indexer
}

// New creates a RepositoryBuilder.
func New(cfg *config.Config, store state.Store, r runner.Runner, idx indexer.Indexer) *RepositoryBuilder {
	return &RepositoryBuilder{
		cfg:     cfg,
		store:   store,
		runner:  r,
		indexer: idx,
	}
}

// Build runs the pipeline for the named repository class. Packages are
// processed strictly in declared order; the first error aborts the whole run,
// leaving completion markers reflecting exactly the work done so far. The
// index is regenerated on every successful pass over the package list,
// regardless of marker state.
func (b *RepositoryBuilder) Build(ctx context.Context, class string) error {
	repo, err := b.cfg.Class(class)
	if err != nil {
		return err
	}

	if err := CheckRelease(b.cfg.ReleaseFile, b.cfg.ExpectedRelease); err != nil {
		return err
	}

	// Indexers that depend on external tooling provision it up front.
	// The install attempt is not re-verified; a silent failure surfaces
	// at the indexing step.
	if inst, ok := b.indexer.(interface {
		EnsureInstalled(ctx context.Context) error
	}); ok {
		if err := inst.EnsureInstalled(ctx); err != nil {
			return &models.BuildError{Type: models.ErrIndexing, Err: err}
		}
	}

	destDir := filepath.Join(b.cfg.OutputDir, class)
	srcDestDir := filepath.Join(destDir, "src")
	if err := utils.EnsureDir(srcDestDir); err != nil {
		return &models.BuildError{
			Type: models.ErrFileOp,
			Err:  fmt.Errorf("failed to create repository directory: %w", err),
		}
	}

	logrus.Infof("Building %s repository (%d packages)", class, len(repo.Packages))

	for _, name := range repo.Packages {
		if err := b.buildPackage(ctx, name, destDir, srcDestDir); err != nil {
			return err
		}
	}

	logrus.Infof("Regenerating repository index: %s", destDir)
	if err := b.indexer.Index(ctx, destDir); err != nil {
		return &models.BuildError{
			Type: models.ErrIndexing,
			Err:  err,
		}
	}

	logrus.Infof("%s repository is ready: %s", class, destDir)
	return nil
}

// buildPackage runs the marker-guarded build and package stages for a single
// package. All paths are passed explicitly; the process working directory is
// never changed.
func (b *RepositoryBuilder) buildPackage(ctx context.Context, name, destDir, srcDestDir string) error {
	pkgDir := filepath.Join(b.cfg.PackagesDir, name)
	info, err := os.Stat(pkgDir)
	if err != nil || !info.IsDir() {
		return &models.BuildError{
			Type:    models.ErrPackageNotFound,
			Package: name,
			Err:     fmt.Errorf("package directory missing: %s", pkgDir),
		}
	}

	// Build stage
	built, err := b.store.HasCompleted(name, state.StageBuild)
	if err != nil {
		return &models.BuildError{Type: models.ErrStateStore, Package: name, Err: err}
	}
	if built {
		logrus.Debugf("Package already built, skipping: %s", name)
	} else {
		logrus.Infof("Building package: %s", name)
		if err := b.runner.Run(ctx, pkgDir); err != nil {
			// No marker on failure; the next run retries from scratch.
			return &models.BuildError{
				Type:    models.ErrExternalTool,
				Package: name,
				Err:     fmt.Errorf("build failed: %w", err),
			}
		}
		if err := b.store.MarkCompleted(name, state.StageBuild); err != nil {
			return &models.BuildError{Type: models.ErrStateStore, Package: name, Err: err}
		}
	}

	// Package stage
	packaged, err := b.store.HasCompleted(name, state.StagePackage)
	if err != nil {
		return &models.BuildError{Type: models.ErrStateStore, Package: name, Err: err}
	}
	if packaged {
		logrus.Debugf("Package already collected, skipping: %s", name)
		return nil
	}

	logrus.Infof("Collecting artifacts: %s", name)
	binaries, err := utils.CopyGlob(filepath.Join(pkgDir, b.cfg.Artifacts.BinaryDir, "*.rpm"), destDir)
	if err != nil {
		return &models.BuildError{
			Type:    models.ErrFileOp,
			Package: name,
			Err:     fmt.Errorf("failed to copy binary artifacts: %w", err),
		}
	}
	if binaries == 0 {
		logrus.Warnf("Package %s produced no binary artifacts", name)
	}

	sources, err := utils.CopyGlob(filepath.Join(pkgDir, b.cfg.Artifacts.SourceDir, "*.rpm"), srcDestDir)
	if err != nil {
		return &models.BuildError{
			Type:    models.ErrFileOp,
			Package: name,
			Err:     fmt.Errorf("failed to copy source artifacts: %w", err),
		}
	}
	logrus.Debugf("Collected %d binary and %d source artifacts for %s", binaries, sources, name)

	if err := b.store.MarkCompleted(name, state.StagePackage); err != nil {
		return &models.BuildError{Type: models.ErrStateStore, Package: name, Err: err}
	}

	return nil
}
