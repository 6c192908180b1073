package cli

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/krnkaavya03/StuPred/internal/dataset"
	"github.com/krnkaavya03/StuPred/internal/ml"
	"github.com/krnkaavya03/StuPred/internal/pipeline"
)

// pipelineFlags override settings for generate, train and run.
type pipelineFlags struct {
	samples      int
	seed         int64
	random       bool
	datasetPath  string
	modelPath    string
	trees        int
	testFraction float64
	maxDepth     int
	noHistory    bool
}

func (f *pipelineFlags) addGenerate(cmd *cobra.Command) {
	cmd.Flags().IntVarP(&f.samples, "samples", "n", 0, "Number of records to generate")
	cmd.Flags().Int64Var(&f.seed, "seed", 0, "Random seed")
	cmd.Flags().BoolVar(&f.random, "random", false, "Seed generation from the clock instead of --seed")
	cmd.Flags().StringVarP(&f.datasetPath, "data", "d", "", "Dataset CSV path")
}

func (f *pipelineFlags) addTrain(cmd *cobra.Command) {
	if cmd.Flags().Lookup("data") == nil {
		cmd.Flags().StringVarP(&f.datasetPath, "data", "d", "", "Dataset CSV path")
		cmd.Flags().Int64Var(&f.seed, "seed", 0, "Random seed")
	}
	cmd.Flags().StringVarP(&f.modelPath, "model", "m", "", "Model artifact path")
	cmd.Flags().IntVar(&f.trees, "trees", 0, "Number of trees")
	cmd.Flags().Float64Var(&f.testFraction, "test-fraction", 0, "Share of rows held out for testing")
	cmd.Flags().IntVar(&f.maxDepth, "max-depth", 0, "Maximum tree depth, 0 for unbounded")
	cmd.Flags().BoolVar(&f.noHistory, "no-history", false, "Do not record the run in the history store")
}

// config merges changed flags into the loaded settings.
func (f *pipelineFlags) config(cmd *cobra.Command, app *appContext) pipeline.Config {
	s := app.Settings
	pc := pipeline.Config{
		DatasetPath: s.DatasetPath,
		ModelPath:   s.ModelPath,
		Samples:     s.Samples,
		Train:       s.Train,
	}

	changed := cmd.Flags().Changed
	if changed("samples") {
		pc.Samples = f.samples
	}
	if changed("seed") {
		pc.Train.Seed = f.seed
	}
	if changed("data") {
		pc.DatasetPath = f.datasetPath
	}
	if changed("model") {
		pc.ModelPath = f.modelPath
	}
	if changed("trees") {
		pc.Train.Trees = f.trees
	}
	if changed("test-fraction") {
		pc.Train.TestFraction = f.testFraction
	}
	if changed("max-depth") {
		pc.Train.MaxDepth = f.maxDepth
	}
	if !f.random {
		seed := pc.Train.Seed
		pc.GenerateSeed = &seed
	}
	return pc
}

func (f *pipelineFlags) runner(cmd *cobra.Command, app *appContext) (*pipeline.Runner, func(), error) {
	opts := []pipeline.Option{pipeline.WithMetrics(app.Metrics)}
	cleanup := func() {}
	if !f.noHistory {
		// A running server holds the ledger lock; training goes ahead without history.
		store, err := app.openStore()
		if err != nil {
			log.Warn().Err(err).Str("path", app.Settings.StorePath).Msg("Run history unavailable, continuing without it")
		} else {
			opts = append(opts, pipeline.WithStore(store))
			cleanup = func() { store.Close() }
		}
	}

	r, err := pipeline.NewRunner(f.config(cmd, app), opts...)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return r, cleanup, nil
}

func newGenerateCmd(app *appContext) *cobra.Command {
	f := &pipelineFlags{noHistory: true}
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a synthetic labelled dataset",
		Long: `Generate synthetic student records and write them to the dataset CSV.

Examples:
  studentctl generate                    # 500 records, seed 42
  studentctl generate -n 2000 --seed 7   # 2000 records with seed 7
  studentctl generate --random           # clock seeded`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, cleanup, err := f.runner(cmd, app)
			if err != nil {
				return err
			}
			defer cleanup()

			records, err := r.Generate(cmd.Context())
			if err != nil {
				return err
			}
			pc := f.config(cmd, app)
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d records to %s\n\n", len(records), pc.DatasetPath)
			printSummary(cmd.OutOrStdout(), dataset.Summarize(records))
			return nil
		},
	}
	f.addGenerate(cmd)
	return cmd
}

func newTrainCmd(app *appContext) *cobra.Command {
	f := &pipelineFlags{}
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train a model on the dataset CSV",
		Long: `Train a random forest on the dataset CSV and write the model artifact.

Examples:
  studentctl train                          # defaults: 200 trees, 20% test split, seed 42
  studentctl train --trees 50 --seed 1      # smaller forest, other seed
  studentctl train -d other.csv -m out.json # explicit paths`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, cleanup, err := f.runner(cmd, app)
			if err != nil {
				return err
			}
			defer cleanup()

			res, err := r.Train(cmd.Context())
			if err != nil {
				return err
			}
			printTrainResult(cmd.OutOrStdout(), f.config(cmd, app).ModelPath, res)
			return nil
		},
	}
	f.addTrain(cmd)
	return cmd
}

func newRunCmd(app *appContext) *cobra.Command {
	f := &pipelineFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Generate a dataset and train a model on it",
		Long: `Run the whole offline pipeline: generate, write the dataset, train and
write the model artifact. Any failure aborts the run and leaves the previous
dataset and artifact files in place.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, cleanup, err := f.runner(cmd, app)
			if err != nil {
				return err
			}
			defer cleanup()

			res, err := r.Run(cmd.Context())
			if err != nil {
				return err
			}
			pc := f.config(cmd, app)
			fmt.Fprintf(cmd.OutOrStdout(), "Dataset: %s\n\n", pc.DatasetPath)
			printSummary(cmd.OutOrStdout(), res.Summary)
			fmt.Fprintln(cmd.OutOrStdout())
			printTrainResult(cmd.OutOrStdout(), pc.ModelPath, res)
			return nil
		},
	}
	f.addGenerate(cmd)
	f.addTrain(cmd)
	return cmd
}

func printSummary(w io.Writer, s dataset.Summary) {
	fmt.Fprintf(w, "Rows: %d  Success: %d  Failure: %d  Success rate: %.1f%%\n",
		s.Rows, s.Successes, s.Failures, s.SuccessRate*100)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "FEATURE\tMIN\tMAX\tMEAN")
	for _, f := range s.Features {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%.2f\n", f.Name, f.Min, f.Max, f.Mean)
	}
	tw.Flush()
}

func printTrainResult(w io.Writer, modelPath string, res pipeline.Result) {
	m := res.Metrics
	fmt.Fprintf(w, "Model %s written to %s\n", res.Model.Metadata.ID, modelPath)
	fmt.Fprintf(w, "Train rows: %d  Test rows: %d\n", m.TrainRows, m.TestRows)
	fmt.Fprintf(w, "Train accuracy: %.4f\n", m.TrainAccuracy)
	fmt.Fprintf(w, "Test accuracy:  %.4f\n", m.TestAccuracy)
	fmt.Fprintln(w, "Feature importance:")

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, r := range ml.RankFeatures(m.FeatureImportance) {
		fmt.Fprintf(tw, "  %s\t%.4f\t%.4f\n", r.Name, r.Importance, m.PermutationImportance[r.Name])
	}
	tw.Flush()
}
