package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/spf13/cobra"

	"github.com/vdye/commitview/internal/git"
)

const invalidMessage = "(message is not valid UTF-8)"

func newShowCmd(opts *globalOptions) *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "show [revision]",
		Short: "Print the fields of a commit",
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

			if raw {
				obj, err := repo.ReadObject(commit.Id())
				if err != nil {
					return err
				}
				reader, err := obj.Reader()
				if err != nil {
					return err
				}
				defer reader.Close()
				_, err = io.Copy(cmd.OutOrStdout(), reader)
				return err
			}
			return writeCommit(cmd.OutOrStdout(), commit)
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "print the commit object as stored")
	return cmd
}

func writeCommit(w io.Writer, commit *git.Commit) error {
	fmt.Fprintf(w, "commit %s\n", commit.Id())
	fmt.Fprintf(w, "tree %s\n", commit.TreeId())
	for i := 0; i < commit.ParentCount(); i++ {
		parent, err := commit.ParentId(i)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "parent %s\n", parent)
	}
	fmt.Fprintf(w, "author %s\n", formatSignature(commit.Author()))
	fmt.Fprintf(w, "committer %s\n", formatSignature(commit.Committer()))
	fmt.Fprintf(w, "date %s\n", commit.Time())
	fmt.Fprintln(w)

	message, ok := commit.Message()
	if !ok {
		message = invalidMessage
	}
	for _, line := range strings.Split(strings.TrimRight(message, "\n"), "\n") {
		fmt.Fprintf(w, "    %s\n", line)
	}
	return nil
}

func formatSignature(sig object.Signature) string {
	return fmt.Sprintf("%s <%s> %s", sig.Name, sig.Email, git.NewTime(sig.When))
}
