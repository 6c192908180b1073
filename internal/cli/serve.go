package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/krnkaavya03/StuPred/internal/ml"
	"github.com/krnkaavya03/StuPred/internal/server"
)

const shutdownTimeout = 10 * time.Second

type serveFlags struct {
	port      int
	modelPath string
	cacheSize int
	noRecord  bool
	watch     bool
}

func newServeCmd(app *appContext) *cobra.Command {
	f := &serveFlags{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve predictions over HTTP and WebSocket",
		Long: `Load the model artifact once and serve predictions.

The server refuses to start when the artifact is missing or invalid. Later
changes to the artifact are not picked up; restart to serve a new model.

Examples:
  studentctl serve                 # Start on the configured port (8080)
  studentctl serve --port 9000     # Start on port 9000
  studentctl serve --watch         # Warn when the artifact changes on disk`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, app, f)
		},
	}

	cmd.Flags().IntVarP(&f.port, "port", "p", 0, "Port to listen on")
	cmd.Flags().StringVarP(&f.modelPath, "model", "m", "", "Model artifact path")
	cmd.Flags().IntVar(&f.cacheSize, "cache-size", 0, "Prediction cache entries, 0 disables")
	cmd.Flags().BoolVar(&f.noRecord, "no-record", false, "Do not record served predictions")
	cmd.Flags().BoolVar(&f.watch, "watch", false, "Watch the artifact and warn when it changes")
	return cmd
}

func runServe(cmd *cobra.Command, app *appContext, f *serveFlags) error {
	s := app.Settings
	changed := cmd.Flags().Changed
	if changed("port") {
		s.ServerPort = f.port
	}
	if changed("model") {
		s.ModelPath = f.modelPath
	}
	if changed("cache-size") {
		s.CacheSize = f.cacheSize
	}
	if f.noRecord {
		s.RecordPredictions = false
	}
	if f.watch {
		s.WatchArtifact = true
	}

	svc, err := ml.NewService(s.ModelPath, ml.WithMetrics(app.Metrics), ml.WithCacheSize(s.CacheSize))
	if err != nil {
		return fmt.Errorf("refusing to serve: %w", err)
	}

	opts := []server.Option{
		server.WithMetrics(app.Metrics),
		server.WithGatherer(app.Registry),
	}
	if s.RecordPredictions {
		store, err := app.openStore()
		if err != nil {
			return err
		}
		defer store.Close()
		opts = append(opts, server.WithLedger(store))
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if s.WatchArtifact {
		watcher, err := ml.NewArtifactWatcher(s.ModelPath, func(fsnotify.Op) {
			app.Metrics.ArtifactChanges().Inc()
		})
		if err != nil {
			return err
		}
		defer watcher.Close()
		go watcher.Run(ctx)
	}

	srv := server.New(svc, server.Config{Port: s.ServerPort, RequestTimeout: s.RequestTimeout}, opts...)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	log.Info().
		Str("model_path", svc.Path()).
		Int("port", s.ServerPort).
		Bool("record_predictions", s.RecordPredictions).
		Bool("watch_artifact", s.WatchArtifact).
		Msg("Serving model")

	select {
	case err := <-errCh:
		app.Metrics.ErrorsTotal().Inc()
		return err
	case <-ctx.Done():
	}

	log.Info().
		Float64("error_rate", app.Metrics.Metrics().GetErrorRate()).
		Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
