package watcher

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher turns filesystem notifications for one log file into a coalesced
// wake signal, so the ingestion pipeline can poll immediately instead of
// waiting out its tick. It watches the file's parent directory, which also
// covers the file not existing yet.
//
// The wake signal is pure acceleration: the pipeline's periodic poll remains
// the authority for reads, truncation detection and the missing-file case.
type Watcher struct {
	fsw  *fsnotify.Watcher
	wake chan struct{}
	path string
	log  *zap.Logger
}

// New creates a Watcher for the log file at path.
func New(path string, log *zap.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		fsw.Close()
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		fsw.Close()
		return nil, err
	}

	return &Watcher{
		fsw:  fsw,
		wake: make(chan struct{}, 1),
		path: abs,
		log:  log,
	}, nil
}

// Wake returns the channel that receives a signal when the watched file
// changed. Signals are coalesced; one receive may cover many writes.
func (w *Watcher) Wake() <-chan struct{} {
	return w.wake
}

// Start forwards events for the watched file. Blocks until the context is
// cancelled.
func (w *Watcher) Start(ctx context.Context) {
	defer w.fsw.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			switch {
			case ev.Op&fsnotify.Write != 0,
				ev.Op&fsnotify.Create != 0,
				ev.Op&fsnotify.Remove != 0,
				ev.Op&fsnotify.Rename != 0:
				select {
				case w.wake <- struct{}{}:
				default:
				}
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn("watcher error", zap.Error(err))
		}
	}
}
