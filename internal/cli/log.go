package cli

import (
	"fmt"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/spf13/cobra"
)

func newLogCmd(opts *globalOptions) *cobra.Command {
	var maxCount int

	cmd := &cobra.Command{
		Use:   "log [revision]",
		Short: "List commits along the first-parent chain",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := opts.openRepository()
			if err != nil {
				return err
			}
			defer repo.Close()

			commit, err := repo.ResolveCommit(revisionArg(args))
			if err != nil {
				return err
			}

			// parents of shallow commits were never fetched
			shallow, err := repo.Shallow()
			if err != nil {
				return err
			}
			boundary := make(map[plumbing.Hash]bool, len(shallow))
			for _, oid := range shallow {
				boundary[oid] = true
			}

			out := cmd.OutOrStdout()
			for n := 0; maxCount <= 0 || n < maxCount; n++ {
				if err := cmd.Context().Err(); err != nil {
					return err
				}

				summary := commit.Summary()
				if _, ok := commit.Message(); !ok {
					summary = invalidMessage
				}
				fmt.Fprintf(out, "%s %s\n", commit.Id().String()[:7], summary)

				if commit.ParentCount() == 0 || boundary[commit.Id()] {
					break
				}
				if commit, err = commit.Parent(0); err != nil {
					return err
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&maxCount, "max-count", "n", 0, "stop after this many commits (0 for all)")
	return cmd
}
