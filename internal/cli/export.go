package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/krnkaavya03/StuPred/internal/fsutil"
	"github.com/krnkaavya03/StuPred/internal/storage"
)

func newExportCmd(app *appContext) *cobra.Command {
	var (
		outputPath string
		days       int
		source     string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export served predictions as JSON lines",
		Long: `Export recorded predictions, oldest first, one JSON object per line.

Examples:
  studentctl export                          # last 30 days to stdout
  studentctl export --days 0 -f preds.jsonl  # everything to a file
  studentctl export --source ws              # WebSocket predictions only`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if days < 0 {
				return fmt.Errorf("days must not be negative, got %d", days)
			}

			store, err := app.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			end := time.Now().UTC()
			start := time.Unix(0, 0).UTC()
			if days > 0 {
				start = end.AddDate(0, 0, -days)
			}

			records, err := store.PredictionsBetween(start, end)
			if err != nil {
				return fmt.Errorf("read predictions: %w", err)
			}
			if source != "" {
				records = filterSource(records, source)
			}

			write := func(w io.Writer) error {
				enc := json.NewEncoder(w)
				for _, r := range records {
					if err := enc.Encode(r); err != nil {
						return fmt.Errorf("write prediction %s: %w", r.ID, err)
					}
				}
				return nil
			}
			if outputPath == "" {
				err = write(cmd.OutOrStdout())
			} else {
				err = fsutil.WriteFileAtomic(outputPath, 0o644, write)
			}
			if err != nil {
				return err
			}

			bands := make(map[string]int)
			for _, r := range records {
				bands[r.Band]++
			}
			log.Info().
				Int("records", len(records)).
				Str("output", outputPath).
				Interface("bands", bands).
				Msg("Predictions exported")
			return nil
		},
	}
	cmd.Flags().StringVarP(&outputPath, "file", "f", "", "Output file, stdout when empty")
	cmd.Flags().IntVar(&days, "days", 30, "Number of days to export, 0 for all")
	cmd.Flags().StringVar(&source, "source", "", "Only predictions from this source (http or ws)")
	return cmd
}

func filterSource(records []storage.PredictionRecord, source string) []storage.PredictionRecord {
	out := records[:0]
	for _, r := range records {
		if r.Source == source {
			out = append(out, r)
		}
	}
	return out
}
