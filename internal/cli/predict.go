package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/krnkaavya03/StuPred/internal/client"
	"github.com/krnkaavya03/StuPred/internal/ml"
	"github.com/krnkaavya03/StuPred/internal/schema"
)

type predictFlags struct {
	values    [schema.NumFeatures]float64
	jsonInput string
	remote    string
	modelPath string
	clamp     bool
	asJSON    bool
}

// predictOutput is the JSON form of a prediction on stdout.
type predictOutput struct {
	Features schema.FeatureVector `json:"features"`
	ml.PredictionResult
	ID string `json:"id,omitempty"`
}

func newPredictCmd(app *appContext) *cobra.Command {
	f := &predictFlags{}
	cmd := &cobra.Command{
		Use:   "predict [features-json]",
		Short: "Predict success for one student",
		Long: `Predict success for one student, either with the local model artifact or
through a running server.

Features come from a JSON argument (object or array in schema order) or from
flags. Flags that are not given take the panel defaults. Values outside the
panel ranges are accepted unless --clamp is set.

Examples:
  studentctl predict --attendance 90 --study-hours 40
  studentctl predict '{"attendance":90,"study_hours":40,"assignments_done":8,"previous_grade":75,"midterm_score":70,"participations":5,"active_extracurricular":2}'
  studentctl predict '[90,40,8,75,70,5,2]' --remote http://localhost:8080`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPredict(cmd, args, app, f)
		},
	}

	for i, feat := range schema.Features {
		cmd.Flags().Float64Var(&f.values[i], flagName(feat), float64(schema.UIDefaults[i]),
			fmt.Sprintf("%s (panel range %d-%d)", feat, schema.UIRanges[i].Min, schema.UIRanges[i].Max))
	}
	cmd.Flags().StringVar(&f.jsonInput, "json", "", "Features as a JSON object or array")
	cmd.Flags().StringVar(&f.remote, "remote", "", "Server URL, e.g. http://localhost:8080")
	cmd.Flags().StringVarP(&f.modelPath, "model", "m", "", "Model artifact path for local prediction")
	cmd.Flags().BoolVar(&f.clamp, "clamp", false, "Clamp values to the panel ranges")
	cmd.Flags().BoolVarP(&f.asJSON, "output-json", "o", false, "Print the result as JSON")
	return cmd
}

func flagName(f schema.Feature) string {
	return strings.ReplaceAll(f.String(), "_", "-")
}

func runPredict(cmd *cobra.Command, args []string, app *appContext, f *predictFlags) error {
	fv, err := f.features(args)
	if err != nil {
		return err
	}
	if f.clamp {
		fv = schema.ClampToUI(fv)
	}

	out := predictOutput{Features: fv}
	if f.remote != "" {
		resp, err := client.New(f.remote, app.Settings.RequestTimeout).Predict(cmd.Context(), fv)
		if err != nil {
			return err
		}
		out.PredictionResult = resp.PredictionResult
		out.ID = resp.ID
	} else {
		modelPath := app.Settings.ModelPath
		if cmd.Flags().Changed("model") {
			modelPath = f.modelPath
		}
		svc, err := ml.NewService(modelPath)
		if err != nil {
			return err
		}
		if out.PredictionResult, err = svc.Predict(fv); err != nil {
			return err
		}
	}

	if f.asJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}
	printPrediction(cmd.OutOrStdout(), out)
	return nil
}

// features picks the JSON input when given, otherwise the flag values.
func (f *predictFlags) features(args []string) (schema.FeatureVector, error) {
	raw := f.jsonInput
	if len(args) == 1 {
		if raw != "" {
			return schema.FeatureVector{}, fmt.Errorf("give features either as an argument or with --json, not both")
		}
		raw = args[0]
	}
	if raw != "" {
		return schema.DecodeJSON([]byte(raw))
	}
	return schema.ParseOrdered(f.values[:])
}

func printPrediction(w io.Writer, out predictOutput) {
	if out.Label == 1 {
		fmt.Fprintf(w, "Student is likely to succeed (probability %.1f%%)\n", out.Probability*100)
	} else {
		fmt.Fprintf(w, "Student may need improvement (probability %.1f%%)\n", out.Probability*100)
	}
	fmt.Fprintf(w, "Label: %d  Band: %s\n", out.Label, out.Band)
	for i, name := range schema.FeatureNames() {
		fmt.Fprintf(w, "  %-24s %g\n", name, out.Features[i])
	}
}
