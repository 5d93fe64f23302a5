package cli

import (
	"github.com/spf13/cobra"
)

// NewIndexCmd creates the index command
func NewIndexCmd() *cobra.Command {
	var idxOpts indexerOptions

	cmd := &cobra.Command{
		Use:   "index <dir>",
		Short: "Regenerate the index of an existing repository directory",
		Long: `Regenerates the repository metadata of a directory of RPMs without
building anything. Useful after packages were added or removed by hand.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			idx, err := idxOpts.newIndexer()
			if err != nil {
				return err
			}
			return idx.Index(cmd.Context(), args[0])
		},
	}

	idxOpts.register(cmd)

	return cmd
}
