// Package filesystem watches a local directory for new or changed files.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/carat/internal/core/domain"
	"github.com/custodia-labs/carat/internal/core/ports/driven"
	"github.com/custodia-labs/carat/internal/logger"
)

// Ensure Connector implements the interface.
var _ driven.DirectoryWatcher = (*Connector)(nil)

// eventBuffer is the capacity of the channel returned by Watch.
const eventBuffer = 16

// Connector reports files created or written directly inside rootPath.
// Subdirectories, hidden files, removals, renames and permission changes
// are ignored. Bursts of events on one file within the debounce window are
// delivered once.
type Connector struct {
	rootPath string
	debounce time.Duration

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	closed  bool
}

// New creates a connector for rootPath.
func New(rootPath string, debounce time.Duration) *Connector {
	return &Connector{
		rootPath: rootPath,
		debounce: debounce,
	}
}

// Root returns the watched directory.
func (c *Connector) Root() string {
	return c.rootPath
}

// Watch starts watching rootPath. The returned channel is closed when ctx
// is cancelled or the connector is closed.
func (c *Connector) Watch(ctx context.Context) (<-chan domain.WatchEvent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, domain.ErrWatcherClosed
	}
	if c.watcher != nil {
		return nil, errors.New("already watching")
	}

	info, err := os.Stat(c.rootPath)
	if err != nil {
		return nil, fmt.Errorf("root path error: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root path error: %s is not a directory", c.rootPath)
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Add(c.rootPath); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("watch %s: %w", c.rootPath, err)
	}
	c.watcher = w

	out := make(chan domain.WatchEvent, eventBuffer)
	go c.run(ctx, w, out)

	return out, nil
}

// Close stops watching. It is safe to call more than once.
func (c *Connector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	if c.watcher != nil {
		return c.watcher.Close()
	}
	return nil
}

type pendingEvent struct {
	kind domain.WatchEventKind
	due  time.Time
}

// run forwards filtered, debounced events until ctx is done or the
// underlying watcher is closed.
func (c *Connector) run(ctx context.Context, w *fsnotify.Watcher, out chan<- domain.WatchEvent) {
	defer close(out)
	defer w.Close()

	pending := make(map[string]pendingEvent)
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.Events:
			if !ok {
				return
			}
			change := c.handleFsEvent(event)
			if change == nil {
				continue
			}
			logger.Debug("watch: %s %s", change.Kind, change.Path)

			if c.debounce <= 0 {
				if !send(ctx, out, *change) {
					return
				}
				continue
			}

			p, seen := pending[change.Path]
			if !seen {
				p.kind = change.Kind
			}
			p.due = time.Now().Add(c.debounce)
			pending[change.Path] = p
			rearm(timer, pending)

		case <-timer.C:
			now := time.Now()
			var ready []string
			for path, p := range pending {
				if !p.due.After(now) {
					ready = append(ready, path)
				}
			}
			sort.Strings(ready)
			for _, path := range ready {
				ev := domain.WatchEvent{Path: path, Kind: pending[path].kind}
				delete(pending, path)
				if !send(ctx, out, ev) {
					return
				}
			}
			rearm(timer, pending)

		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			logger.Warn("watch %s: %v", c.rootPath, err)
		}
	}
}

// rearm points timer at the earliest pending deadline.
func rearm(timer *time.Timer, pending map[string]pendingEvent) {
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}
	if len(pending) == 0 {
		return
	}
	var earliest time.Time
	for _, p := range pending {
		if earliest.IsZero() || p.due.Before(earliest) {
			earliest = p.due
		}
	}
	timer.Reset(time.Until(earliest))
}

func send(ctx context.Context, out chan<- domain.WatchEvent, ev domain.WatchEvent) bool {
	select {
	case out <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}

// handleFsEvent converts an fsnotify event to a watch event, or nil when
// the event is not of interest.
func (c *Connector) handleFsEvent(event fsnotify.Event) *domain.WatchEvent {
	if isHidden(event.Name) {
		return nil
	}
	if filepath.Clean(filepath.Dir(event.Name)) != filepath.Clean(c.rootPath) {
		return nil
	}

	var kind domain.WatchEventKind
	switch {
	case event.Has(fsnotify.Create):
		kind = domain.WatchCreated
	case event.Has(fsnotify.Write):
		kind = domain.WatchModified
	default:
		return nil
	}

	info, err := os.Stat(event.Name)
	if err != nil || !info.Mode().IsRegular() {
		return nil
	}

	return &domain.WatchEvent{Path: event.Name, Kind: kind}
}

// isHidden reports whether the file name starts with a dot. Editors and
// the model store write their temp files under such names.
func isHidden(path string) bool {
	name := filepath.Base(path)
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}
