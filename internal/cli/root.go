package cli

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "repobuild",
		Short: "Build and index RPM repositories for the SGX guest and host stacks",
		Long: `Repobuild drives the per-package build scripts of a repository class
("guest" or "host") in declared order, collects the produced RPMs into a
flat YUM/DNF repository tree and regenerates the repository index.

Completed build and packaging stages are recorded as marker files in each
package's working directory, so re-running the pipeline only does the work
that is still missing. The index is regenerated on every run.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Setup logging
			verbose, _ := cmd.Flags().GetBool("verbose")
			if verbose {
				logrus.SetLevel(logrus.DebugLevel)
			} else {
				logrus.SetLevel(logrus.InfoLevel)
			}
		},
	}

	// Global flags
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	rootCmd.AddCommand(NewBuildCmd())
	rootCmd.AddCommand(NewIndexCmd())

	return rootCmd
}
