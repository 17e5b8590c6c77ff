package commands

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/openfroyo/press/pkg/stores"
)

func newHistoryCommand() *cobra.Command {
	var (
		limit  int
		offset int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded runs",
		Long: `List runs recorded in the run history database, newest first.

Runs are recorded when history is enabled in the settings file.`,
		Example: `  # List the last 20 runs
  press history

  # Show the pipelines of one run
  press history show 3f1c2a4e-...`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openHistory(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.ListRuns(cmd.Context(), limit, offset)
			if err != nil {
				return err
			}
			if jsonOutput {
				return writeJSON(cmd.OutOrStdout(), runs)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSTARTED\tSTATUS\tPIPELINES\tDOCUMENTS\tDURATION")
			for _, r := range runs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n",
					r.ID, r.StartedAt.Local().Format(time.DateTime), r.Status,
					r.PipelineCount, r.DocumentCount, r.Duration)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs to list")
	cmd.Flags().IntVar(&offset, "offset", 0, "number of runs to skip")

	cmd.AddCommand(newHistoryShowCommand())

	return cmd
}

func newHistoryShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <run-id>",
		Short: "Show a recorded run and its pipelines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openHistory(cmd)
			if err != nil {
				return err
			}
			defer store.Close()

			run, err := store.GetRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			pipelines, err := store.ListPipelineRuns(cmd.Context(), run.ID)
			if err != nil {
				return err
			}

			if jsonOutput {
				return writeJSON(cmd.OutOrStdout(), struct {
					*stores.Run
					Pipelines []*stores.PipelineRun `json:"pipelines"`
				}{run, pipelines})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Run %s: %s in %s\n", run.ID, run.Status, run.Duration)
			if run.Error != "" {
				fmt.Fprintf(out, "Error (%s): %s\n", run.ErrorClass, run.Error)
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "#\tPIPELINE\tMODULES\tDOCUMENTS\tSTATUS\tDURATION")
			for _, p := range pipelines {
				fmt.Fprintf(tw, "%d\t%s\t%d\t%d\t%s\t%s\n",
					p.Ordinal, p.Name, p.ModuleCount, p.DocumentCount, p.Status, p.Duration)
			}
			return tw.Flush()
		},
	}
}

func openHistory(cmd *cobra.Command) (*stores.SQLiteStore, error) {
	s, err := loadSettings()
	if err != nil {
		return nil, err
	}
	return stores.Open(cmd.Context(), stores.Config{Path: resolvePath(s.RootFolder, s.History.Path)})
}
