package ml

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// ArtifactWatcher reports changes to a model artifact on disk. A running
// Service never reloads; the watcher only tells operators that a restart is
// needed to serve the new model.
type ArtifactWatcher struct {
	path     string
	watcher  *fsnotify.Watcher
	onChange func(fsnotify.Op)
}

// NewArtifactWatcher watches the directory holding path, since artifacts are
// replaced by rename. onChange may be nil.
func NewArtifactWatcher(path string, onChange func(fsnotify.Op)) (*ArtifactWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve artifact path: %w", err)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		w.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}

	return &ArtifactWatcher{path: abs, watcher: w, onChange: onChange}, nil
}

// Run delivers events until ctx is cancelled or the watcher is closed.
func (a *ArtifactWatcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-a.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != a.path {
				continue
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Rename) && !ev.Has(fsnotify.Remove) {
				continue
			}
			log.Warn().
				Str("path", a.path).
				Str("op", ev.Op.String()).
				Msg("Model artifact changed on disk, restart to serve the new model")
			if a.onChange != nil {
				a.onChange(ev.Op)
			}
		case err, ok := <-a.watcher.Errors:
			if !ok {
				return nil
			}
			log.Error().Err(err).Str("path", a.path).Msg("Artifact watcher error")
		}
	}
}

// Close stops watching.
func (a *ArtifactWatcher) Close() error {
	return a.watcher.Close()
}
