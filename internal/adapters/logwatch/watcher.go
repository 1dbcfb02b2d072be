// Package logwatch follows a test-log file on disk using
// github.com/fsnotify/fsnotify, so a session can ingest fresh test
// output automatically each time the suite rewrites the file. Events
// are debounced: tools often truncate and rewrite the log in several
// bursts per run.
package logwatch

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const debounceInterval = 200 * time.Millisecond

// Watcher follows one log file and reports its content after each
// settled change.
type Watcher struct {
	fw   *fsnotify.Watcher
	log  *zap.Logger
	done chan struct{}

	mu      sync.Mutex
	stopped bool
}

// NewWatcher creates a watcher. Call Watch to start following a file.
func NewWatcher(log *zap.Logger) (*Watcher, error) {
	if log == nil {
		log = zap.NewNop()
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{fw: fw, log: log, done: make(chan struct{})}, nil
}

// Watch starts following path. onContent receives the full file
// content after every write settles. The parent directory is watched
// rather than the file itself, so truncate-and-recreate cycles (the
// common way test runners write logs) keep working.
func (w *Watcher) Watch(path string, onContent func(content string)) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	dir := filepath.Dir(abs)
	if _, err := os.Stat(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	if err := w.fw.Add(dir); err != nil {
		return err
	}

	go func() {
		var timer *time.Timer
		fire := make(chan struct{}, 1)
		for {
			select {
			case event, ok := <-w.fw.Events:
				if !ok {
					return
				}
				if event.Name != abs {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				// Restart the settle timer on every burst.
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(debounceInterval, func() {
					select {
					case fire <- struct{}{}:
					default:
					}
				})

			case <-fire:
				content, err := os.ReadFile(abs)
				if err != nil {
					w.log.Warn("reading watched log", zap.String("path", abs), zap.Error(err))
					continue
				}
				if len(content) == 0 {
					continue
				}
				onContent(string(content))

			case _, ok := <-w.fw.Errors:
				if !ok {
					return
				}

			case <-w.done:
				if timer != nil {
					timer.Stop()
				}
				return
			}
		}
	}()

	return nil
}

// Stop ends watching and releases resources. Safe to call twice.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return nil
	}
	w.stopped = true
	close(w.done)
	return w.fw.Close()
}
