package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/krnkaavya03/StuPred/internal/ml"
	"github.com/krnkaavya03/StuPred/internal/storage"
)

func newHistoryCmd(app *appContext) *cobra.Command {
	var (
		limit  int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded training runs",
		Long: `List training runs from the history store, newest first.

The history is informational. The served model is always the artifact on
disk.

Examples:
  studentctl history            # last 10 runs
  studentctl history -l 50 -o   # last 50 runs as JSON`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit < 1 {
				return fmt.Errorf("limit must be positive, got %d", limit)
			}

			store, err := app.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			runs, err := store.ListTrainingRuns(limit)
			if err != nil {
				return fmt.Errorf("list training runs: %w", err)
			}

			w := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(runs)
			}
			if len(runs) == 0 {
				fmt.Fprintln(w, "No training runs recorded")
				return nil
			}

			tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "STARTED\tSTATUS\tRECORDS\tTREES\tSEED\tTEST ACC\tTOP FEATURE\tDETAIL")
			for _, r := range runs {
				detail := r.ModelID
				if r.Error != "" {
					detail = r.Error
				}
				top := "-"
				if names := ml.TopFeatures(r.FeatureImportance, 1); len(names) > 0 {
					top = names[0]
				}
				fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%.4f\t%s\t%s\n",
					r.StartedAt.Local().Format("2006-01-02 15:04:05"),
					r.Status, r.Records, r.Trees, r.Seed, r.TestAccuracy, top, detail)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			return printLedgerTotals(w, store)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "l", 10, "Maximum number of runs")
	cmd.Flags().BoolVarP(&asJSON, "output-json", "o", false, "Print runs as JSON")
	return cmd
}

func printLedgerTotals(w io.Writer, store *storage.Store) error {
	runs, err := store.CountTrainingRuns()
	if err != nil {
		return err
	}
	predictions, err := store.CountPredictions()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "\n%d runs, %d served predictions recorded\n", runs, predictions)

	latest, err := store.LatestTrainingRun()
	if err != nil {
		return err
	}
	if latest != nil {
		fmt.Fprintf(w, "Last successful run: %s (model %s, test accuracy %.4f)\n",
			latest.ID, latest.ModelID, latest.TestAccuracy)
	}
	return nil
}
