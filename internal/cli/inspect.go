package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/krnkaavya03/StuPred/internal/dataset"
	"github.com/krnkaavya03/StuPred/internal/ml"
)

func newInspectCmd(app *appContext) *cobra.Command {
	var (
		datasetPath string
		modelPath   string
		asJSON      bool
	)
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Summarize the dataset and the model artifact",
		Long: `Print the class distribution and per-feature spread of the dataset CSV,
followed by the metadata of the model artifact when one exists.

Examples:
  studentctl inspect
  studentctl inspect -d data/other.csv -o`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("data") {
				datasetPath = app.Settings.DatasetPath
			}
			if !cmd.Flags().Changed("model") {
				modelPath = app.Settings.ModelPath
			}

			records, err := dataset.ReadCSV(datasetPath)
			if err != nil {
				return err
			}
			summary := dataset.Summarize(records)

			// The artifact is optional here; a dataset may exist before any training.
			var info *ml.ModelInfo
			if svc, err := ml.NewService(modelPath); err == nil {
				i := svc.Info()
				info = &i
			}

			w := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(w)
				enc.SetIndent("", "  ")
				return enc.Encode(struct {
					Dataset dataset.Summary `json:"dataset"`
					Model   *ml.ModelInfo   `json:"model,omitempty"`
				}{summary, info})
			}

			fmt.Fprintf(w, "Dataset: %s\n", datasetPath)
			printSummary(w, summary)
			if info == nil {
				fmt.Fprintf(w, "\nNo usable model at %s\n", modelPath)
				return nil
			}
			fmt.Fprintf(w, "\nModel: %s (%s)\n", info.ID, modelPath)
			fmt.Fprintf(w, "Trees: %d  Trained: %s\n", info.Trees, info.TrainedAt.Format("2006-01-02 15:04:05"))
			fmt.Fprintf(w, "Train accuracy: %.4f  Test accuracy: %.4f\n", info.TrainAccuracy, info.TestAccuracy)
			fmt.Fprintf(w, "Checksum: %s\n", info.Checksum)
			return nil
		},
	}
	cmd.Flags().StringVarP(&datasetPath, "data", "d", "", "Dataset CSV path")
	cmd.Flags().StringVarP(&modelPath, "model", "m", "", "Model artifact path")
	cmd.Flags().BoolVarP(&asJSON, "output-json", "o", false, "Print the summary as JSON")
	return cmd
}
