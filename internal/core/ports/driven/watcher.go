package driven

import (
	"context"

	"github.com/custodia-labs/carat/internal/core/domain"
)

// DirectoryWatcher reports files created or modified in one directory.
type DirectoryWatcher interface {
	// Watch starts watching. The channel is closed when ctx is cancelled or
	// the watcher is closed.
	Watch(ctx context.Context) (<-chan domain.WatchEvent, error)

	// Root returns the watched directory.
	Root() string

	// Close releases resources. It is safe to call more than once.
	Close() error
}
