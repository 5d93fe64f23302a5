package cli

import (
	"fmt"

	"github.com/sgxvirt/repobuild/internal/builder"
	"github.com/sgxvirt/repobuild/internal/config"
	"github.com/sgxvirt/repobuild/internal/indexer"
	"github.com/sgxvirt/repobuild/internal/models"
	"github.com/sgxvirt/repobuild/internal/runner"
	"github.com/sgxvirt/repobuild/internal/signer"
	"github.com/sgxvirt/repobuild/internal/state"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// indexerOptions holds the flags shared by the build and index commands.
type indexerOptions struct {
	useCreaterepo bool
	compression   string
	gpgKeyPath    string
	gpgPassphrase string
}

func (o *indexerOptions) register(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&o.useCreaterepo, "use-createrepo", false, "Index with the external createrepo tool instead of the built-in indexer")
	cmd.Flags().StringVar(&o.compression, "compression", "gz", "Compression for primary metadata (gz, xz)")
	cmd.Flags().StringVarP(&o.gpgKeyPath, "gpg-key", "k", "", "Path to GPG private key for signing repomd.xml")
	cmd.Flags().StringVarP(&o.gpgPassphrase, "gpg-passphrase", "p", "", "GPG key passphrase")
}

func (o *indexerOptions) newIndexer() (indexer.Indexer, error) {
	if o.useCreaterepo {
		return indexer.NewCreaterepoIndexer(), nil
	}

	var gpgSigner signer.Signer
	if o.gpgKeyPath != "" {
		s, err := signer.NewGPGSigner(o.gpgKeyPath, o.gpgPassphrase)
		if err != nil {
			return nil, &models.BuildError{
				Type: models.ErrInvalidConfig,
				Err:  fmt.Errorf("failed to initialize GPG signer: %w", err),
			}
		}
		gpgSigner = s
		logrus.Info("GPG signer initialized")
	}

	switch o.compression {
	case "gz", "xz":
	default:
		return nil, &models.BuildError{
			Type: models.ErrInvalidConfig,
			Err:  fmt.Errorf("unsupported compression: %s", o.compression),
		}
	}

	return indexer.NewNativeIndexer(gpgSigner, indexer.Compression(o.compression)), nil
}

// NewBuildCmd creates the build command
func NewBuildCmd() *cobra.Command {
	var (
		configPath  string
		packagesDir string
		outputDir   string
		idxOpts     indexerOptions
	)

	cmd := &cobra.Command{
		Use:   "build <class>",
		Short: "Build every package of a repository class and regenerate its index",
		Long: `Builds the packages of the named repository class in declared order,
collects binary RPMs into <output>/<class>/ and source RPMs into
<output>/<class>/src/, then regenerates the repository index.

Already-built and already-collected packages are skipped via marker files;
the index is regenerated unconditionally.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if packagesDir != "" {
				cfg.PackagesDir = packagesDir
			}
			if outputDir != "" {
				cfg.OutputDir = outputDir
			}

			idx, err := idxOpts.newIndexer()
			if err != nil {
				return err
			}

			b := builder.New(cfg,
				state.NewFileStore(cfg.PackagesDir),
				runner.NewExecRunner(cfg.BuildScript),
				idx)

			return b.Build(cmd.Context(), args[0])
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to the pipeline configuration file")
	cmd.Flags().StringVarP(&packagesDir, "packages-dir", "d", "", "Directory containing the package working directories")
	cmd.Flags().StringVarP(&outputDir, "output-dir", "o", "", "Directory the repository trees are assembled in")
	idxOpts.register(cmd)

	return cmd
}
