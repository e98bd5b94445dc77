// Package watcher converts files dropped into watched folders.
package watcher

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"

	"github.com/alucardeht/morse-mcp/internal/convert"
	"github.com/alucardeht/morse-mcp/internal/logger"
)

var log = logger.ForComponent("watcher")

// ConversionObserver is told about every conversion a rule performs.
type ConversionObserver interface {
	ObserveConversion(mode string, err error)
}

type Watcher struct {
	config      Config
	fsWatcher   *fsnotify.Watcher
	fsWatcherMu sync.Mutex
	debouncer   *Debouncer
	observer    ConversionObserver

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	done    chan struct{}
}

func New(config Config) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		config:    config,
		fsWatcher: fsWatcher,
	}
	w.debouncer = NewDebouncer(config.DebounceWindow, config.MaxBatchSize, w.process)

	return w, nil
}

// SetObserver must be called before Start.
func (w *Watcher) SetObserver(o ConversionObserver) {
	w.observer = o
}

func (w *Watcher) addToWatcher(path string) error {
	w.fsWatcherMu.Lock()
	defer w.fsWatcherMu.Unlock()
	return w.fsWatcher.Add(path)
}

// Start watches every rule directory and converts files whose output is
// missing or older than the source.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	for _, rule := range w.config.Rules {
		log.Info("watching folder", "dir", rule.Dir, "pattern", rule.Pattern, "mode", rule.Mode, "output_dir", rule.OutputDir)
		if err := w.addTree(rule.Dir); err != nil {
			return err
		}
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return nil
	}

	var loopCtx context.Context
	loopCtx, w.cancel = context.WithCancel(ctx)
	w.done = make(chan struct{})
	w.running = true

	go w.handleEvents(loopCtx, w.done)

	return nil
}

// addTree watches dir and its subdirectories and catches up on files
// already present.
func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			log.Debug("skipping unreadable path", "path", path, "error", err)
			return nil
		}

		if d.IsDir() {
			if path != dir && w.ignored(path) {
				return filepath.SkipDir
			}
			if err := w.addToWatcher(path); err != nil {
				log.Debug("failed to watch directory", "path", path, "error", err)
			}
			return nil
		}

		if d.Type().IsRegular() {
			w.convertStale(path)
		}
		return nil
	})
}

func (w *Watcher) handleEvents(ctx context.Context, done chan struct{}) {
	defer close(done)

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if w.ignored(event.Name) {
				continue
			}

			log.Debug("file event", "path", event.Name, "op", event.Op.String())

			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					w.addTree(event.Name)
					continue
				}
			}

			typ, ok := eventType(event.Op)
			if !ok {
				continue
			}
			w.debouncer.Add(FileEvent{Path: event.Name, Type: typ, Timestamp: time.Now()})

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			log.Warn("watch error", "error", err)
		}
	}
}

func (w *Watcher) process(events []FileEvent) {
	log.Debug("processing batch", "count", len(events))

	for _, ev := range events {
		if !ev.Type.Converts() {
			continue
		}
		info, err := os.Stat(ev.Path)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}

		for _, rule := range w.config.Rules {
			if dst, ok := w.target(rule, ev.Path); ok {
				w.convert(rule, ev.Path, dst)
			}
		}
	}
}

func (w *Watcher) convertStale(path string) {
	src, err := os.Stat(path)
	if err != nil {
		return
	}

	for _, rule := range w.config.Rules {
		dst, ok := w.target(rule, path)
		if !ok {
			continue
		}
		if out, err := os.Stat(dst); err == nil && !out.ModTime().Before(src.ModTime()) {
			continue
		}
		w.convert(rule, path, dst)
	}
}

// target returns where rule writes the conversion of path, if rule applies.
func (w *Watcher) target(rule Rule, path string) (string, bool) {
	if w.ignored(path) || !convert.IsWithin(path, rule.Dir) {
		return "", false
	}

	rel, err := filepath.Rel(rule.Dir, path)
	if err != nil || rel == "." {
		return "", false
	}
	if ok, _ := doublestar.Match(rule.Pattern, filepath.ToSlash(rel)); !ok {
		return "", false
	}

	return filepath.Join(rule.OutputDir, filepath.Dir(rel), rule.Mode.OutputName(path)), true
}

func (w *Watcher) convert(rule Rule, src, dst string) {
	res, err := convert.File(src, dst, rule.Mode, convert.Options{MaxBytes: w.config.MaxBytes})
	if w.observer != nil {
		w.observer.ObserveConversion(string(rule.Mode), err)
	}
	if err != nil {
		log.Warn("conversion failed", "source", src, "mode", rule.Mode, "error", err)
		return
	}
	log.Info("converted file", "source", res.Source, "destination", res.Destination, "mode", res.Mode)
}

// ignored covers hidden entries, which include in-flight temp files, and
// everything below an output directory.
func (w *Watcher) ignored(path string) bool {
	if strings.HasPrefix(filepath.Base(path), ".") {
		return true
	}
	for _, rule := range w.config.Rules {
		if convert.IsWithin(path, rule.OutputDir) {
			return true
		}
	}
	return false
}

func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return w.closeWatcher()
	}
	w.running = false
	w.cancel()
	done := w.done
	w.mu.Unlock()

	<-done
	w.debouncer.Stop()

	return w.closeWatcher()
}

func (w *Watcher) closeWatcher() error {
	w.fsWatcherMu.Lock()
	defer w.fsWatcherMu.Unlock()
	if err := w.fsWatcher.Close(); err != nil && !errors.Is(err, fsnotify.ErrClosed) {
		return err
	}
	return nil
}
