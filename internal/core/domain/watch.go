package domain

// WatchEventKind classifies a file signal.
type WatchEventKind string

// Watch event kinds.
const (
	WatchCreated  WatchEventKind = "created"
	WatchModified WatchEventKind = "modified"
)

// WatchEvent is a file creation or modification inside the watched directory.
type WatchEvent struct {
	Path string
	Kind WatchEventKind
}

// WatcherState is the state of the directory watcher.
type WatcherState string

// Watcher states. Stopped is terminal.
const (
	WatcherIdle        WatcherState = "idle"
	WatcherWatching    WatcherState = "watching"
	WatcherDispatching WatcherState = "dispatching"
	WatcherStopped     WatcherState = "stopped"
)
