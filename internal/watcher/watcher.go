// Package watcher delivers filesystem change notifications for a fixed set
// of filenames inside a single directory. It performs no coalescing; bursty
// editors can invoke the callback several times per save, and the consumer
// is expected to be idempotent against that.
package watcher

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/lza6/VPN-to-GitHub/internal/log"
)

// Watcher subscribes to create/write events for target filenames in one
// directory (non-recursive). The target set is fixed for the lifetime of a
// session; changing it requires Stop and a fresh Start.
type Watcher struct {
	mu      sync.Mutex
	fsw     *fsnotify.Watcher
	wg      sync.WaitGroup
	running bool
	logger  *slog.Logger
}

// New returns a stopped Watcher.
func New() *Watcher {
	return &Watcher{logger: log.WithComponent("watcher")}
}

// Start begins watching dir for the given filenames and invokes onChange
// with the base filename once per observed event. If a session is already
// running it is stopped first, so at most one subscription is ever active.
// A nonexistent directory fails without starting any background work.
func (w *Watcher) Start(dir string, filenames []string, onChange func(filename string)) error {
	w.Stop()

	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("watch directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("watch path is not a directory: %s", dir)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	targets := make(map[string]struct{}, len(filenames))
	for _, name := range filenames {
		targets[name] = struct{}{}
	}

	w.mu.Lock()
	w.fsw = fsw
	w.running = true
	w.mu.Unlock()

	w.wg.Add(1)
	go w.loop(fsw, targets, onChange)

	w.logger.Info("watch session started", "dir", dir, "targets", len(targets))
	return nil
}

// Stop halts the active subscription and joins the event loop before
// returning, so a subsequent Start cannot observe stale events. Stopping a
// stopped watcher is a no-op.
func (w *Watcher) Stop() {
	w.mu.Lock()
	fsw := w.fsw
	w.fsw = nil
	w.running = false
	w.mu.Unlock()

	if fsw == nil {
		return
	}
	_ = fsw.Close()
	w.wg.Wait()
	w.logger.Info("watch session stopped")
}

// IsRunning reports whether a watch session is active.
func (w *Watcher) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *Watcher) loop(fsw *fsnotify.Watcher, targets map[string]struct{}, onChange func(string)) {
	defer w.wg.Done()

	for {
		select {
		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			name := filepath.Base(event.Name)
			if _, watched := targets[name]; !watched {
				continue
			}
			w.logger.Debug("tracked file changed", "file", name, "op", event.Op.String())
			onChange(name)
		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Error("watch error", "error", err)
		}
	}
}
