package cli

import (
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/vdye/commitview/internal/graph"
)

func newExportGraphCmd(opts *globalOptions) *cobra.Command {
	var (
		url   string
		depth int
	)

	cmd := &cobra.Command{
		Use:   "export-graph [revision]",
		Short: "Write commits and their parent edges to a Gremlin server",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if url == "" {
				url = opts.cfg.Gremlin.URL
			}

			repo, err := opts.openRepository()
			if err != nil {
				return err
			}
			defer repo.Close()

			tip, err := repo.ResolveCommit(revisionArg(args))
			if err != nil {
				return err
			}

			exporter, err := graph.NewGremlinExporter(url)
			if err != nil {
				return err
			}
			defer exporter.Close()

			n, err := exporter.Export(cmd.Context(), tip, depth)
			if err != nil {
				return err
			}
			log.WithFields(log.Fields{"url": url, "commits": n}).Info("graph export finished")
			fmt.Fprintf(cmd.OutOrStdout(), "exported %d commits to %s\n", n, url)
			return nil
		},
	}

	cmd.Flags().StringVar(&url, "gremlin", "", "Gremlin server URL (default from config)")
	cmd.Flags().IntVar(&depth, "depth", 0, "number of commits to follow from the tip (0 for all)")
	return cmd
}
