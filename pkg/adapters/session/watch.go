package session

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"

	"github.com/aretw0/lifecycle/pkg/core/worker"
	"github.com/fsnotify/fsnotify"
)

// credentialWatcher reloads the FileStore when another process rewrites or
// removes the credential file.
type credentialWatcher struct {
	*worker.BaseWorker
	store   *FileStore
	watcher *fsnotify.Watcher
	cancel  context.CancelFunc
}

func newCredentialWatcher(store *FileStore) *credentialWatcher {
	return &credentialWatcher{
		BaseWorker: worker.NewBaseWorker("credential-watcher"),
		store:      store,
	}
}

func (w *credentialWatcher) Start(ctx context.Context) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	status := w.State().Status
	if status != worker.StatusCreated && status != worker.StatusPending {
		return fmt.Errorf("watcher already started (status: %s)", status)
	}

	// The file itself comes and goes, so the directory is watched.
	dir := filepath.Dir(w.store.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("failed to create %s: %w", dir, err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	w.watcher = watcher
	w.store.setWorkers(1)

	runCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	w.SetStatus(worker.StatusRunning)
	return w.StartFunc(runCtx, w.run)
}

func (w *credentialWatcher) Stop(ctx context.Context) error {
	if w.cancel != nil {
		w.StopRequested = true
		w.cancel()
	}
	return w.BaseWorker.Stop(ctx)
}

func (w *credentialWatcher) State() worker.State {
	return w.ExportState(func(s *worker.State) {
		s.Metadata = map[string]string{
			worker.MetadataType: string(worker.TypeGoroutine),
			"path":              w.store.path,
		}
	})
}

func (w *credentialWatcher) run(ctx context.Context) (err error) {
	logger := w.store.logger
	defer func() {
		if recovered := recover(); recovered != nil {
			panicErr := fmt.Errorf("credential watcher panic: %v", recovered)
			if logger.Enabled(ctx, slog.LevelDebug) {
				logger.Error("credential watcher panic", "error", panicErr, "stack", string(debug.Stack()))
			} else {
				logger.Error("credential watcher panic", "error", panicErr)
			}
		}
	}()
	defer w.store.setWorkers(-1)
	defer w.watcher.Close()

	name := filepath.Clean(w.store.path)
	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.watcher.Events:
			if !ok {
				if w.StopRequested || ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("watcher events channel closed")
			}
			if filepath.Clean(event.Name) != name || event.Op == fsnotify.Chmod {
				continue
			}
			logger.Debug("credential file changed", "op", event.Op.String())
			if _, err := w.store.reload(); err != nil {
				logger.Warn("reload credential failed", "error", err)
			}

		case wErr, ok := <-w.watcher.Errors:
			if !ok {
				if w.StopRequested || ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("watcher errors channel closed")
			}
			logger.Error("fsnotify error", "error", wErr)
		}
	}
}
