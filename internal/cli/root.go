// Package cli implements the studentctl command line.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// newRootCmd builds the command tree around app.
func newRootCmd(app *appContext) *cobra.Command {
	root := &cobra.Command{
		Use:   "studentctl",
		Short: "Synthesize student data, train a success model and serve predictions",
		Long: `studentctl runs the student success pipeline.

It generates a synthetic dataset, trains a random forest on it, stores the
model artifact and serves predictions from that artifact over HTTP.

Configuration comes from CONFIG_FILE (YAML), the environment and an optional
.env file. Flags override both.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: app.init,
	}

	root.PersistentFlags().StringVar(&app.logLevel, "log-level", "", "Log level: trace, debug, info, warn, error")
	root.PersistentFlags().BoolVar(&app.logPretty, "pretty", false, "Human readable console logs")

	root.AddCommand(
		newGenerateCmd(app),
		newTrainCmd(app),
		newRunCmd(app),
		newServeCmd(app),
		newPredictCmd(app),
		newInspectCmd(app),
		newHistoryCmd(app),
		newExportCmd(app),
	)
	return root
}

func Execute() {
	app := newAppContext()
	err := newRootCmd(app).Execute()
	app.Close()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
