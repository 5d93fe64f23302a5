package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Default config must validate: %v", err)
	}

	if cfg.ExpectedRelease != "CentOS Stream release 8" {
		t.Errorf("Unexpected release identity: %s", cfg.ExpectedRelease)
	}

	for _, class := range []string{"guest", "host"} {
		repo, err := cfg.Class(class)
		if err != nil {
			t.Errorf("Missing repository class %s: %v", class, err)
			continue
		}
		if len(repo.Packages) == 0 {
			t.Errorf("Repository class %s has no packages", class)
		}
	}
}

func TestLoadPreservesPackageOrder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "repobuild.yml")
	contents := `
packages_dir: /srv/packages
output_dir: /srv/repo
repositories:
  guest:
    packages:
      - third
      - first
      - second
`
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.PackagesDir != "/srv/packages" {
		t.Errorf("packages_dir not applied: %s", cfg.PackagesDir)
	}

	repo, err := cfg.Class("guest")
	if err != nil {
		t.Fatalf("Class lookup failed: %v", err)
	}

	want := []string{"third", "first", "second"}
	if len(repo.Packages) != len(want) {
		t.Fatalf("Expected %d packages, got %v", len(want), repo.Packages)
	}
	for i := range want {
		if repo.Packages[i] != want[i] {
			t.Errorf("Package %d: expected %s, got %s", i, want[i], repo.Packages[i])
		}
	}
}

func TestLoadKeepsDefaultsForOmittedFields(t *testing.T) {
	path := filepath.Join(t.TempDir(), "repobuild.yml")
	contents := `
output_dir: /srv/repo
`
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.OutputDir != "/srv/repo" {
		t.Errorf("output_dir not applied: %s", cfg.OutputDir)
	}
	if cfg.ReleaseFile != "/etc/centos-release" {
		t.Errorf("release_file default lost: %s", cfg.ReleaseFile)
	}
	if cfg.BuildScript != "build.sh" {
		t.Errorf("build_script default lost: %s", cfg.BuildScript)
	}
	if cfg.Artifacts.BinaryDir != "rpms" || cfg.Artifacts.SourceDir != "srpms" {
		t.Errorf("artifact layout defaults lost: %+v", cfg.Artifacts)
	}
}

func TestLoadRejectsEmptyPackageList(t *testing.T) {
	path := filepath.Join(t.TempDir(), "repobuild.yml")
	contents := `
repositories:
  broken:
    packages: []
`
	if err := os.WriteFile(path, []byte(contents), 0644); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}

	if _, err := Load(path); err == nil {
		t.Error("Expected validation failure for empty package list")
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yml")); err == nil {
		t.Error("Expected error for missing config file")
	}
}

func TestUnknownClassLookupFails(t *testing.T) {
	cfg := Default()
	if _, err := cfg.Class("sandbox"); err == nil {
		t.Error("Expected error for unknown repository class")
	}
}
