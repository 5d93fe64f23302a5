package builder

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/sgxvirt/repobuild/internal/config"
	"github.com/sgxvirt/repobuild/internal/models"
	"github.com/sgxvirt/repobuild/internal/state"
)

// fakeRunner records which packages were built and can be told to fail.
type fakeRunner struct {
	calls  []string
	failOn map[string]bool
}

func (f *fakeRunner) Run(ctx context.Context, dir string) error {
	name := filepath.Base(dir)
	f.calls = append(f.calls, name)
	if f.failOn[name] {
		return fmt.Errorf("build script exited with status 1")
	}
	return nil
}

// fakeIndexer counts index invocations.
type fakeIndexer struct {
	calls int
	dirs  []string
}

func (f *fakeIndexer) Index(ctx context.Context, dir string) error {
	f.calls++
	f.dirs = append(f.dirs, dir)
	return nil
}

// setupConfig lays out a synthetic packages tree with pre-populated artifact
// directories and returns a config pointing at it.
func setupConfig(t *testing.T, classes map[string][]string) *config.Config {
	t.Helper()

	tmp := t.TempDir()

	releaseFile := filepath.Join(tmp, "centos-release")
	if err := os.WriteFile(releaseFile, []byte("CentOS Stream release 8\n"), 0644); err != nil {
		t.Fatalf("Failed to write release file: %v", err)
	}

	pkgsDir := filepath.Join(tmp, "packages")
	outDir := filepath.Join(tmp, "repo")

	repos := make(map[string]config.RepositoryClass)
	for class, pkgs := range classes {
		repos[class] = config.RepositoryClass{Packages: pkgs}
		for _, p := range pkgs {
			dir := filepath.Join(pkgsDir, p)
			for _, sub := range []string{"rpms", "srpms"} {
				if err := os.MkdirAll(filepath.Join(dir, sub), 0755); err != nil {
					t.Fatalf("Failed to create package dir: %v", err)
				}
			}
			writeFile(t, filepath.Join(dir, "rpms", p+"-1.0-1.x86_64.rpm"), "binary "+p)
			writeFile(t, filepath.Join(dir, "srpms", p+"-1.0-1.src.rpm"), "source "+p)
		}
	}

	return &config.Config{
		ReleaseFile:     releaseFile,
		ExpectedRelease: "CentOS Stream release 8",
		PackagesDir:     pkgsDir,
		OutputDir:       outDir,
		BuildScript:     "build.sh",
		Artifacts: config.ArtifactLayout{
			BinaryDir: "rpms",
			SourceDir: "srpms",
		},
		Repositories: repos,
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
}

func TestBuildProcessesPackagesInDeclaredOrder(t *testing.T) {
	cfg := setupConfig(t, map[string][]string{
		"guest": {"kernel-sgx", "sgx-psw", "attestation-agent"},
	})

	r := &fakeRunner{}
	idx := &fakeIndexer{}
	b := New(cfg, state.NewMemStore(), r, idx)

	if err := b.Build(context.Background(), "guest"); err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	want := []string{"kernel-sgx", "sgx-psw", "attestation-agent"}
	if len(r.calls) != len(want) {
		t.Fatalf("Expected %d builds, got %d: %v", len(want), len(r.calls), r.calls)
	}
	for i, name := range want {
		if r.calls[i] != name {
			t.Errorf("Build %d: expected %s, got %s", i, name, r.calls[i])
		}
	}

	if idx.calls != 1 {
		t.Errorf("Expected 1 index invocation, got %d", idx.calls)
	}

	// Binary artifacts land in the class directory, sources in src/
	for _, name := range want {
		binPath := filepath.Join(cfg.OutputDir, "guest", name+"-1.0-1.x86_64.rpm")
		if _, err := os.Stat(binPath); err != nil {
			t.Errorf("Binary artifact missing for %s: %v", name, err)
		}
		srcPath := filepath.Join(cfg.OutputDir, "guest", "src", name+"-1.0-1.src.rpm")
		if _, err := os.Stat(srcPath); err != nil {
			t.Errorf("Source artifact missing for %s: %v", name, err)
		}
	}
}

func TestReorderedListIsProcessedInNewOrder(t *testing.T) {
	cfg := setupConfig(t, map[string][]string{
		"guest": {"attestation-agent", "sgx-psw", "kernel-sgx"},
	})

	r := &fakeRunner{}
	b := New(cfg, state.NewMemStore(), r, &fakeIndexer{})

	if err := b.Build(context.Background(), "guest"); err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	want := []string{"attestation-agent", "sgx-psw", "kernel-sgx"}
	for i := range want {
		if r.calls[i] != want[i] {
			t.Errorf("Build %d: expected %s, got %s", i, want[i], r.calls[i])
		}
	}
}

func TestBuildSkipsPackagesWithMarkers(t *testing.T) {
	// Scenario: A and B already have both markers set, C has neither.
	// A run invokes C's build and copy exactly once, A's and B's never,
	// and the indexer exactly once.
	cfg := setupConfig(t, map[string][]string{
		"guest": {"pkga", "pkgb", "pkgc"},
	})

	store := state.NewMemStore()
	for _, name := range []string{"pkga", "pkgb"} {
		store.MarkCompleted(name, state.StageBuild)
		store.MarkCompleted(name, state.StagePackage)
	}

	r := &fakeRunner{}
	idx := &fakeIndexer{}
	b := New(cfg, store, r, idx)

	if err := b.Build(context.Background(), "guest"); err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if len(r.calls) != 1 || r.calls[0] != "pkgc" {
		t.Errorf("Expected only pkgc to be built, got %v", r.calls)
	}

	// A's artifacts were never copied
	if _, err := os.Stat(filepath.Join(cfg.OutputDir, "guest", "pkga-1.0-1.x86_64.rpm")); !os.IsNotExist(err) {
		t.Errorf("pkga artifacts should not have been copied")
	}

	// C's artifacts were
	if _, err := os.Stat(filepath.Join(cfg.OutputDir, "guest", "pkgc-1.0-1.x86_64.rpm")); err != nil {
		t.Errorf("pkgc artifacts missing: %v", err)
	}

	if idx.calls != 1 {
		t.Errorf("Expected 1 index invocation, got %d", idx.calls)
	}
}

func TestBuildFailureLeavesNoMarkerAndResumes(t *testing.T) {
	cfg := setupConfig(t, map[string][]string{
		"guest": {"pkga", "pkgb", "pkgc"},
	})

	store := state.NewMemStore()
	r := &fakeRunner{failOn: map[string]bool{"pkgb": true}}
	idx := &fakeIndexer{}
	b := New(cfg, store, r, idx)

	err := b.Build(context.Background(), "guest")
	if err == nil {
		t.Fatal("Expected build failure")
	}

	var buildErr *models.BuildError
	if !errors.As(err, &buildErr) || buildErr.Type != models.ErrExternalTool {
		t.Errorf("Expected ExternalTool error, got %v", err)
	}

	// pkga keeps its markers, pkgb has none, the index never ran
	if done, _ := store.HasCompleted("pkga", state.StageBuild); !done {
		t.Error("pkga build marker missing after failed run")
	}
	if done, _ := store.HasCompleted("pkgb", state.StageBuild); done {
		t.Error("pkgb build marker must not be set after its build failed")
	}
	if idx.calls != 0 {
		t.Errorf("Index must not run after a failed build, got %d invocations", idx.calls)
	}

	// Resume: a second run rebuilds only pkgb and pkgc
	r.failOn = nil
	r.calls = nil
	if err := b.Build(context.Background(), "guest"); err != nil {
		t.Fatalf("Resume run failed: %v", err)
	}

	want := []string{"pkgb", "pkgc"}
	if len(r.calls) != len(want) {
		t.Fatalf("Expected resumed builds %v, got %v", want, r.calls)
	}
	for i := range want {
		if r.calls[i] != want[i] {
			t.Errorf("Resumed build %d: expected %s, got %s", i, want[i], r.calls[i])
		}
	}
	if idx.calls != 1 {
		t.Errorf("Expected 1 index invocation after resume, got %d", idx.calls)
	}
}

func TestIndexRunsOnEveryInvocation(t *testing.T) {
	cfg := setupConfig(t, map[string][]string{
		"host": {"qemu-sgx", "libvirt-sgx"},
	})

	store := state.NewMemStore()
	r := &fakeRunner{}
	idx := &fakeIndexer{}
	b := New(cfg, store, r, idx)

	// First run builds everything
	if err := b.Build(context.Background(), "host"); err != nil {
		t.Fatalf("First run failed: %v", err)
	}
	if len(r.calls) != 2 {
		t.Errorf("Expected 2 builds on first run, got %d", len(r.calls))
	}

	// Second run builds nothing but still regenerates the index
	r.calls = nil
	if err := b.Build(context.Background(), "host"); err != nil {
		t.Fatalf("Second run failed: %v", err)
	}
	if len(r.calls) != 0 {
		t.Errorf("Expected no builds on second run, got %v", r.calls)
	}
	if idx.calls != 2 {
		t.Errorf("Expected 2 index invocations, got %d", idx.calls)
	}
}

func TestWrongReleaseAbortsBeforeAnyBuild(t *testing.T) {
	cfg := setupConfig(t, map[string][]string{
		"guest": {"pkga"},
	})
	writeFile(t, cfg.ReleaseFile, "Fedora release 40 (Forty)\n")

	r := &fakeRunner{}
	idx := &fakeIndexer{}
	b := New(cfg, state.NewMemStore(), r, idx)

	err := b.Build(context.Background(), "guest")
	if err == nil {
		t.Fatal("Expected precondition failure")
	}

	var buildErr *models.BuildError
	if !errors.As(err, &buildErr) || buildErr.Type != models.ErrPrecondition {
		t.Errorf("Expected Precondition error, got %v", err)
	}
	if len(r.calls) != 0 {
		t.Errorf("No build must run on a wrong-release host, got %v", r.calls)
	}
	if idx.calls != 0 {
		t.Errorf("No index must run on a wrong-release host, got %d", idx.calls)
	}
}

func TestMissingPackageDirectoryAborts(t *testing.T) {
	cfg := setupConfig(t, map[string][]string{
		"guest": {"pkga"},
	})
	cfg.Repositories["guest"] = config.RepositoryClass{Packages: []string{"pkga", "ghost"}}

	r := &fakeRunner{}
	idx := &fakeIndexer{}
	b := New(cfg, state.NewMemStore(), r, idx)

	err := b.Build(context.Background(), "guest")
	if err == nil {
		t.Fatal("Expected failure for missing package directory")
	}

	var buildErr *models.BuildError
	if !errors.As(err, &buildErr) {
		t.Fatalf("Expected BuildError, got %v", err)
	}
	if buildErr.Type != models.ErrPackageNotFound {
		t.Errorf("Expected PackageNotFound error, got %v", err)
	}
	if buildErr.Package != "ghost" {
		t.Errorf("Expected failing package ghost, got %s", buildErr.Package)
	}
	if idx.calls != 0 {
		t.Errorf("Index must not run after an aborted pipeline, got %d", idx.calls)
	}
}

func TestUnknownRepositoryClass(t *testing.T) {
	cfg := setupConfig(t, map[string][]string{
		"guest": {"pkga"},
	})

	b := New(cfg, state.NewMemStore(), &fakeRunner{}, &fakeIndexer{})

	err := b.Build(context.Background(), "sandbox")
	if err == nil {
		t.Fatal("Expected failure for unknown class")
	}

	var buildErr *models.BuildError
	if !errors.As(err, &buildErr) || buildErr.Type != models.ErrInvalidConfig {
		t.Errorf("Expected InvalidConfig error, got %v", err)
	}
}

func TestArtifactsOverwriteExistingFiles(t *testing.T) {
	cfg := setupConfig(t, map[string][]string{
		"guest": {"pkga"},
	})

	// Pre-seed a stale artifact of the same name at the destination
	destDir := filepath.Join(cfg.OutputDir, "guest")
	if err := os.MkdirAll(destDir, 0755); err != nil {
		t.Fatalf("Failed to create dest dir: %v", err)
	}
	stale := filepath.Join(destDir, "pkga-1.0-1.x86_64.rpm")
	writeFile(t, stale, "stale contents")

	b := New(cfg, state.NewMemStore(), &fakeRunner{}, &fakeIndexer{})
	if err := b.Build(context.Background(), "guest"); err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	contents, err := os.ReadFile(stale)
	if err != nil {
		t.Fatalf("Failed to read artifact: %v", err)
	}
	if string(contents) != "binary pkga" {
		t.Errorf("Artifact was not overwritten, got %q", contents)
	}
}

func TestPackageWithoutArtifactsSucceeds(t *testing.T) {
	cfg := setupConfig(t, map[string][]string{
		"guest": {"pkga"},
	})

	// Empty out the artifact directories
	for _, sub := range []string{"rpms", "srpms"} {
		dir := filepath.Join(cfg.PackagesDir, "pkga", sub)
		if err := os.RemoveAll(dir); err != nil {
			t.Fatalf("Failed to clear artifacts: %v", err)
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatalf("Failed to recreate artifact dir: %v", err)
		}
	}

	store := state.NewMemStore()
	b := New(cfg, store, &fakeRunner{}, &fakeIndexer{})
	if err := b.Build(context.Background(), "guest"); err != nil {
		t.Fatalf("Build with zero artifacts must succeed, got %v", err)
	}

	if done, _ := store.HasCompleted("pkga", state.StagePackage); !done {
		t.Error("Package stage marker missing after zero-artifact run")
	}
}

func TestFileStoreMarkersSurviveRuns(t *testing.T) {
	cfg := setupConfig(t, map[string][]string{
		"guest": {"pkga"},
	})

	r := &fakeRunner{}
	idx := &fakeIndexer{}

	// Two builder instances sharing only the on-disk markers
	b1 := New(cfg, state.NewFileStore(cfg.PackagesDir), r, idx)
	if err := b1.Build(context.Background(), "guest"); err != nil {
		t.Fatalf("First run failed: %v", err)
	}

	b2 := New(cfg, state.NewFileStore(cfg.PackagesDir), r, idx)
	if err := b2.Build(context.Background(), "guest"); err != nil {
		t.Fatalf("Second run failed: %v", err)
	}

	if len(r.calls) != 1 {
		t.Errorf("Expected a single build across runs, got %v", r.calls)
	}
	if idx.calls != 2 {
		t.Errorf("Expected the index to run twice, got %d", idx.calls)
	}
}
