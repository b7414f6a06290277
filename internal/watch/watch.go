// Package watch triggers site rebuilds when the source tree changes.
//
// A Watcher monitors the source directory recursively and invokes its rebuild
// callback once a debounce window after the last filesystem event, skipping
// rebuilds whose source content hashes identical to the previously built
// tree. A Schedule adds fixed-interval rebuilds on top, for sites whose
// output depends on the current time.
package watch

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/fsnotify/fsnotify"

	"github.com/yorickpeterse/wobsite/internal/logfields"
	"github.com/yorickpeterse/wobsite/internal/metrics"
)

// RebuildFunc is invoked for every triggered rebuild. It must be safe to
// call from multiple goroutines when a Schedule runs alongside a Watcher.
type RebuildFunc func(trigger metrics.Trigger)

// Watcher monitors the source tree and triggers debounced rebuilds.
type Watcher struct {
	source   string
	debounce time.Duration
	rebuild  RebuildFunc
	log      *slog.Logger

	watcher     *fsnotify.Watcher
	rebuildChan chan struct{}
	fireChan    chan struct{}
	stopChan    chan struct{}
	stopOnce    sync.Once
	wg          sync.WaitGroup

	// signature is written by Start and afterwards only by rebuildLoop.
	signature uint64
}

// New creates a watcher over the source directory. Rebuilds run no earlier
// than debounce after the last filesystem event.
func New(source string, debounce time.Duration, rebuild RebuildFunc) (*Watcher, error) {
	absPath, err := filepath.Abs(source)
	if err != nil {
		return nil, fmt.Errorf("resolve source path: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}

	return &Watcher{
		source:      absPath,
		debounce:    debounce,
		rebuild:     rebuild,
		log:         slog.Default(),
		watcher:     watcher,
		rebuildChan: make(chan struct{}, 1),
		fireChan:    make(chan struct{}, 1),
		stopChan:    make(chan struct{}),
	}, nil
}

// Start registers the source tree with the filesystem watcher and launches
// the event and rebuild goroutines. The initial signature is taken from the
// current tree, so events that leave the content unchanged never rebuild.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.addTree(w.source); err != nil {
		return err
	}

	sig, err := Signature(w.source)
	if err != nil {
		return fmt.Errorf("hash source tree: %w", err)
	}
	w.signature = sig

	w.wg.Add(2)
	go w.watchLoop(ctx)
	go w.rebuildLoop(ctx)

	w.log.Info("watching for changes", logfields.Source(w.source))
	return nil
}

// Stop shuts the watcher down and waits for a rebuild in flight to finish.
func (w *Watcher) Stop() error {
	var err error

	w.stopOnce.Do(func() {
		close(w.stopChan)
		err = w.watcher.Close()
		w.wg.Wait()
	})

	return err
}

// addTree registers root and every directory below it with the watcher.
func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !entry.IsDir() {
			return nil
		}
		if err := w.watcher.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

func (w *Watcher) watchLoop(ctx context.Context) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopChan:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Error("file watcher error", logfields.Error(err))
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}

	// Directories created after Start must join the watch set, or files
	// written inside them would go unnoticed.
	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.addTree(event.Name); err != nil {
				w.log.Error("watch new directory",
					logfields.Path(event.Name),
					logfields.Error(err))
			}
		}
	}

	w.log.Debug("source changed",
		logfields.Path(event.Name),
		slog.String("op", event.Op.String()))
	w.triggerRebuild()
}

// triggerRebuild requests a debounced rebuild. The channel holds at most one
// pending request; triggers arriving while one is pending are dropped.
func (w *Watcher) triggerRebuild() {
	select {
	case w.rebuildChan <- struct{}{}:
	default:
	}
}

// rebuildLoop debounces triggers and runs rebuilds. Rebuilds run on this
// goroutine, so two can never overlap; triggers arriving during a build are
// held in rebuildChan and start a fresh debounce window afterwards.
func (w *Watcher) rebuildLoop(ctx context.Context) {
	defer w.wg.Done()

	var debounceTimer *time.Timer

	for {
		select {
		case <-ctx.Done():
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return
		case <-w.stopChan:
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return
		case <-w.rebuildChan:
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(w.debounce, w.fire)
		case <-w.fireChan:
			w.runRebuild()
		}
	}
}

func (w *Watcher) fire() {
	select {
	case w.fireChan <- struct{}{}:
	default:
	}
}

func (w *Watcher) runRebuild() {
	sig, err := Signature(w.source)
	if err != nil {
		// The tree could not be proven unchanged, rebuild anyway.
		w.log.Warn("hash source tree", logfields.Error(err))
	} else if sig == w.signature {
		w.log.Debug("source content unchanged, skipping rebuild")
		return
	}

	w.signature = sig
	w.rebuild(metrics.TriggerWatch)
}

// Signature returns a hash over every regular file under root, covering both
// paths and contents. Trees with equal signatures build identical sites.
func Signature(root string) (uint64, error) {
	digest := xxhash.New()

	err := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if entry.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}

		// WalkDir visits in lexical order, keeping the digest deterministic.
		digest.WriteString(filepath.ToSlash(rel))
		digest.Write([]byte{0})

		file, err := os.Open(path)
		if err != nil {
			return err
		}
		_, err = io.Copy(digest, file)
		file.Close()
		if err != nil {
			return err
		}
		digest.Write([]byte{0})

		return nil
	})
	if err != nil {
		return 0, err
	}

	return digest.Sum64(), nil
}
