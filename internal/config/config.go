// Package config defines the pipeline configuration: which packages belong to
// which repository class, where they live and where artifacts are collected.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/sgxvirt/repobuild/internal/models"
	"gopkg.in/yaml.v3"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// RepositoryClass holds the ordered package list of one repository class.
// Order matters: later packages may assume earlier packages' outputs exist.
type RepositoryClass struct {
	Packages []string `yaml:"packages" validate:"required,min=1,dive,required"`
}

// ArtifactLayout names the subdirectories a package build leaves its
// artifacts in, relative to the package's working directory.
type ArtifactLayout struct {
	BinaryDir string `yaml:"binary_dir" validate:"required"`
	SourceDir string `yaml:"source_dir" validate:"required"`
}

// Config is the full pipeline configuration.
type Config struct {
	ReleaseFile     string                     `yaml:"release_file" validate:"required"`
	ExpectedRelease string                     `yaml:"expected_release" validate:"required"`
	PackagesDir     string                     `yaml:"packages_dir" validate:"required"`
	OutputDir       string                     `yaml:"output_dir" validate:"required"`
	BuildScript     string                     `yaml:"build_script" validate:"required"`
	Artifacts       ArtifactLayout             `yaml:"artifacts"`
	Repositories    map[string]RepositoryClass `yaml:"repositories" validate:"required,min=1,dive"`
}

// Default returns the built-in configuration, reproducing the fixed guest and
// host package sets for a CentOS Stream 8 SGX stack.
func Default() *Config {
	return &Config{
		ReleaseFile:     "/etc/centos-release",
		ExpectedRelease: "CentOS Stream release 8",
		PackagesDir:     ".",
		OutputDir:       ".",
		BuildScript:     "build.sh",
		Artifacts: ArtifactLayout{
			BinaryDir: "rpms",
			SourceDir: "srpms",
		},
		Repositories: map[string]RepositoryClass{
			"guest": {
				Packages: []string{"kernel-sgx", "sgx-psw"},
			},
			"host": {
				Packages: []string{"kernel-sgx", "qemu-sgx", "libvirt-sgx"},
			},
		},
	}
}

// Load reads a YAML configuration file, layered over the defaults. An empty
// path returns the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		contents, err := os.ReadFile(filepath.Clean(path))
		if err != nil {
			return nil, &models.BuildError{
				Type: models.ErrInvalidConfig,
				Err:  fmt.Errorf("failed to read config file: %w", err),
			}
		}

		if err := yaml.Unmarshal(contents, cfg); err != nil {
			return nil, &models.BuildError{
				Type: models.ErrInvalidConfig,
				Err:  fmt.Errorf("failed to parse config file: %w", err),
			}
		}
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, &models.BuildError{
			Type: models.ErrInvalidConfig,
			Err:  fmt.Errorf("invalid configuration: %w", err),
		}
	}

	return cfg, nil
}

// Class looks up a repository class by name.
func (c *Config) Class(name string) (RepositoryClass, error) {
	class, ok := c.Repositories[name]
	if !ok {
		return RepositoryClass{}, &models.BuildError{
			Type: models.ErrInvalidConfig,
			Err:  fmt.Errorf("unknown repository class: %s", name),
		}
	}
	return class, nil
}
