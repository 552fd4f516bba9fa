package inspect

import (
	"context"
	"path/filepath"
	"time"

	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"

	"go.viam.com/urdfsim/logging"
)

// DefaultWatchDelay is how long a file has to stay unchanged before the watcher fires.
const DefaultWatchDelay = 200 * time.Millisecond

// Watcher calls a function after a file changes. Bursts of writes, such as an editor saving
// through a temporary file, produce a single call.
type Watcher struct {
	path    string
	delay   time.Duration
	logger  logging.Logger
	watcher *fsnotify.Watcher
}

// NewWatcher starts watching path. The parent directory is watched so files replaced by rename are
// still seen.
func NewWatcher(path string, delay time.Duration, logger logging.Logger) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create file watcher")
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		//nolint:errcheck
		fw.Close()
		return nil, errors.Wrapf(err, "failed to watch %q", path)
	}
	return &Watcher{path: abs, delay: delay, logger: logger, watcher: fw}, nil
}

// Run calls fn after each change until ctx is done. fn runs on a timer goroutine.
func (w *Watcher) Run(ctx context.Context, fn func()) error {
	defer func() {
		//nolint:errcheck
		w.watcher.Close()
	}()
	debounced := debounce.New(w.delay)
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.logger.Debugw("file changed", "path", w.path, "op", event.Op.String())
			debounced(fn)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warnw("file watcher error", "path", w.path, "error", err)
		}
	}
}
