// Package watcher observes the photo inbox directory and turns file
// system noise into debounced ingest events on a bounded queue.
package watcher

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"fishtank/types"
)

var supportedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".heic": true,
}

// IsPhotoFile reports whether the path has a supported image extension.
func IsPhotoFile(path string) bool {
	return supportedExtensions[strings.ToLower(filepath.Ext(path))]
}

// Watcher emits one IngestEvent per completed write of a photo file.
// Rapid repeated writes to the same path coalesce within the debounce
// window. The event queue is bounded; on overflow the oldest event is
// dropped, since a still-relevant file will re-trigger on its next write.
type Watcher struct {
	dir      string
	debounce time.Duration

	events  chan types.IngestEvent
	fsw     *fsnotify.Watcher
	done    chan struct{}
	wg      sync.WaitGroup
	dropped atomic.Uint64

	mu      sync.Mutex
	timers  map[string]*time.Timer
	stopped bool
}

// New creates a watcher for dir. Nothing runs until Start.
func New(dir string, debounce time.Duration, queueCapacity int) *Watcher {
	return &Watcher{
		dir:      dir,
		debounce: debounce,
		events:   make(chan types.IngestEvent, queueCapacity),
		done:     make(chan struct{}),
		timers:   make(map[string]*time.Timer),
	}
}

// Start verifies the directory, sweeps files already present, and begins
// watching. An unreadable directory is a fatal setup error, reported
// here once rather than retried per event.
func (w *Watcher) Start() error {
	info, err := os.Stat(w.dir)
	if err != nil {
		return fmt.Errorf("cannot access photo directory %s: %w", w.dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("photo path is not a directory: %s", w.dir)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("cannot create file watcher: %w", err)
	}
	if err := fsw.Add(w.dir); err != nil {
		fsw.Close()
		return fmt.Errorf("cannot watch %s: %w", w.dir, err)
	}
	w.fsw = fsw

	// Photos that arrived while the aquarium was not running.
	if err := w.sweepExisting(); err != nil {
		fsw.Close()
		return err
	}

	w.wg.Add(1)
	go w.run()
	return nil
}

func (w *Watcher) sweepExisting() error {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return fmt.Errorf("cannot read photo directory %s: %w", w.dir, err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !IsPhotoFile(entry.Name()) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			slog.Warn("watcher: skipping unreadable entry", "name", entry.Name(), "error", err)
			continue
		}
		w.enqueue(types.IngestEvent{
			Path:    filepath.Join(w.dir, entry.Name()),
			ModTime: info.ModTime(),
		})
	}
	return nil
}

func (w *Watcher) run() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 || !IsPhotoFile(ev.Name) {
				continue
			}
			w.scheduleEmit(ev.Name)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			slog.Warn("watcher: fs event error", "error", err)
		}
	}
}

// scheduleEmit (re)arms the per-path debounce timer. Cameras and phone
// sync tools write photos in bursts; only the quiet period after the
// last write means the file is complete.
func (w *Watcher) scheduleEmit(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}

	if timer, ok := w.timers[path]; ok {
		timer.Reset(w.debounce)
		slog.Debug("watcher: write coalesced", "path", path)
		return
	}

	w.timers[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.timers, path)
		stopped := w.stopped
		w.mu.Unlock()
		if stopped {
			return
		}

		info, err := os.Stat(path)
		if err != nil {
			// Deleted before the debounce expired; nothing to ingest.
			slog.Debug("watcher: file vanished before emit", "path", path)
			return
		}
		w.enqueue(types.IngestEvent{Path: path, ModTime: info.ModTime()})
	})
}

func (w *Watcher) enqueue(ev types.IngestEvent) {
	for {
		select {
		case w.events <- ev:
			slog.Debug("watcher: ingest event queued", "path", ev.Path)
			return
		default:
			// Queue full: drop the oldest entry to make room.
			select {
			case old := <-w.events:
				w.dropped.Add(1)
				slog.Warn("watcher: ingest queue full, dropped oldest", "dropped", old.Path)
			default:
			}
		}
	}
}

// Events is the bounded ingest queue; the extraction pool is the sole
// consumer.
func (w *Watcher) Events() <-chan types.IngestEvent {
	return w.events
}

// Dropped returns the count of events discarded to queue overflow.
func (w *Watcher) Dropped() uint64 {
	return w.dropped.Load()
}

// Stop halts watching, cancels pending debounce timers, and joins the
// event goroutine. Safe to call more than once.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return
	}
	w.stopped = true
	for path, timer := range w.timers {
		timer.Stop()
		delete(w.timers, path)
	}
	w.mu.Unlock()

	close(w.done)
	if w.fsw != nil {
		w.fsw.Close()
	}
	w.wg.Wait()
}
