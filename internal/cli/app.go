package cli

import (
	"fmt"
	"io"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/krnkaavya03/StuPred/internal/cfg"
	"github.com/krnkaavya03/StuPred/internal/logging"
	"github.com/krnkaavya03/StuPred/internal/metrics"
	"github.com/krnkaavya03/StuPred/internal/storage"
)

// appContext holds what every command shares: settings, the logger and the
// metrics registry.
type appContext struct {
	Settings cfg.Settings
	Registry *prometheus.Registry
	Metrics  *metrics.MetricsWrapper

	logLevel  string
	logPretty bool
	logCloser io.Closer
}

func newAppContext() *appContext {
	return &appContext{}
}

// init loads configuration and sets up logging and metrics. It runs before
// every command.
func (a *appContext) init(cmd *cobra.Command, args []string) error {
	settings, err := cfg.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if a.logLevel != "" {
		settings.LogLevel = a.logLevel
	}
	if a.logPretty {
		settings.LogPretty = true
	}
	a.Settings = settings

	closer, err := logging.Setup(logging.Options{
		Level:  settings.LogLevel,
		Pretty: settings.LogPretty,
		File:   settings.LogFile,
	})
	if err != nil {
		return err
	}
	a.logCloser = closer

	a.Registry = prometheus.NewRegistry()
	a.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.Metrics = metrics.NewWrapper(metrics.NewWithRegistry(a.Registry))

	log.Debug().
		Str("command", cmd.Name()).
		Str("dataset_path", settings.DatasetPath).
		Str("model_path", settings.ModelPath).
		Msg("Configuration loaded")
	return nil
}

// openStore opens the run and prediction ledger.
func (a *appContext) openStore() (*storage.Store, error) {
	store, err := storage.New(a.Settings.StorePath)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return store, nil
}

// Close releases the log file.
func (a *appContext) Close() error {
	if a.logCloser == nil {
		return nil
	}
	return a.logCloser.Close()
}
