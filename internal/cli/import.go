package cli

import (
	"fmt"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/spf13/cobra"

	"github.com/vdye/commitview/internal/db"
	"github.com/vdye/commitview/internal/storage"
)

func newImportCmd(opts *globalOptions) *cobra.Command {
	var (
		into  string
		depth int
		ref   string
	)

	cmd := &cobra.Command{
		Use:   "import [revision]",
		Short: "Copy the history reachable from a commit into a pebble store",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := opts.openRepository()
			if err != nil {
				return err
			}
			defer src.Close()

			tip, err := src.ResolveCommit(revisionArg(args))
			if err != nil {
				return err
			}

			dst, err := db.Open(storage.Options{Backend: storage.BackendPebble, Path: into})
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", into, err)
			}
			defer dst.Close()

			copyOpts := db.CopyOptions{Depth: depth}
			if ref != "" {
				copyOpts.Ref = plumbing.NewBranchReferenceName(ref)
			}
			stats, err := db.CopyHistory(cmd.Context(), src, dst.Storage(), tip, copyOpts)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "imported %d commits (%d objects) into %s\n", stats.Commits, stats.Objects, into)
			if len(stats.Shallow) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "history is shallow at %d commits\n", len(stats.Shallow))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&into, "into", "", "directory of the pebble store to write")
	cmd.Flags().IntVar(&depth, "depth", 0, "number of commits to follow from the tip (0 for all)")
	cmd.Flags().StringVar(&ref, "branch", "", "branch to point at the tip (default: the branch HEAD names)")
	_ = cmd.MarkFlagRequired("into")
	return cmd
}
