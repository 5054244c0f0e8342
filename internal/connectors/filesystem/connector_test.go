package filesystem

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/carat/internal/core/domain"
	"github.com/custodia-labs/carat/internal/core/ports/driven"
)

func TestNew(t *testing.T) {
	t.Run("creates connector with valid parameters", func(t *testing.T) {
		connector := New("/tmp/test", time.Second)

		require.NotNil(t, connector)
		assert.Equal(t, "/tmp/test", connector.Root())
		assert.Equal(t, time.Second, connector.debounce)
	})

	t.Run("implements DirectoryWatcher interface", func(t *testing.T) {
		var _ driven.DirectoryWatcher = New("/tmp", 0)
	})
}

func receive(t *testing.T, ch <-chan domain.WatchEvent, timeout time.Duration) domain.WatchEvent {
	t.Helper()
	select {
	case ev, ok := <-ch:
		require.True(t, ok, "channel closed")
		return ev
	case <-time.After(timeout):
		t.Fatal("timeout waiting for watch event")
		return domain.WatchEvent{}
	}
}

func TestConnector_Watch(t *testing.T) {
	t.Run("reports created files", func(t *testing.T) {
		tempDir := t.TempDir()
		connector := New(tempDir, 0)
		defer connector.Close()
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		events, err := connector.Watch(ctx)
		require.NoError(t, err)

		testFile := filepath.Join(tempDir, "new.csv")
		go func() {
			time.Sleep(50 * time.Millisecond)
			_ = os.WriteFile(testFile, []byte("content"), 0644)
		}()

		ev := receive(t, events, 2*time.Second)
		assert.Equal(t, domain.WatchCreated, ev.Kind)
		assert.Equal(t, testFile, ev.Path)
	})

	t.Run("reports modified files", func(t *testing.T) {
		tempDir := t.TempDir()
		testFile := filepath.Join(tempDir, "existing.csv")
		require.NoError(t, os.WriteFile(testFile, []byte("initial"), 0644))

		connector := New(tempDir, 0)
		defer connector.Close()
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		events, err := connector.Watch(ctx)
		require.NoError(t, err)

		go func() {
			time.Sleep(50 * time.Millisecond)
			_ = os.WriteFile(testFile, []byte("modified"), 0644)
		}()

		ev := receive(t, events, 2*time.Second)
		assert.Equal(t, domain.WatchModified, ev.Kind)
		assert.Equal(t, testFile, ev.Path)
	})

	t.Run("debounces bursts into one event", func(t *testing.T) {
		tempDir := t.TempDir()
		connector := New(tempDir, 200*time.Millisecond)
		defer connector.Close()
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		events, err := connector.Watch(ctx)
		require.NoError(t, err)

		testFile := filepath.Join(tempDir, "burst.csv")
		f, err := os.Create(testFile)
		require.NoError(t, err)
		for i := 0; i < 5; i++ {
			_, _ = f.WriteString("row\n")
			time.Sleep(10 * time.Millisecond)
		}
		require.NoError(t, f.Close())

		ev := receive(t, events, 2*time.Second)
		assert.Equal(t, domain.WatchCreated, ev.Kind, "a created file stays created")
		assert.Equal(t, testFile, ev.Path)

		select {
		case extra := <-events:
			t.Fatalf("unexpected second event: %+v", extra)
		case <-time.After(400 * time.Millisecond):
		}
	})

	t.Run("ignores hidden files and subdirectories", func(t *testing.T) {
		tempDir := t.TempDir()
		connector := New(tempDir, 0)
		defer connector.Close()
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		events, err := connector.Watch(ctx)
		require.NoError(t, err)

		require.NoError(t, os.WriteFile(filepath.Join(tempDir, ".partial.tmp"), []byte("x"), 0644))
		require.NoError(t, os.Mkdir(filepath.Join(tempDir, "sub"), 0755))
		visible := filepath.Join(tempDir, "visible.csv")
		require.NoError(t, os.WriteFile(visible, []byte("x"), 0644))

		ev := receive(t, events, 2*time.Second)
		assert.Equal(t, visible, ev.Path)
	})

	t.Run("returns error for non-existent directory", func(t *testing.T) {
		connector := New("/non/existent/path", 0)

		events, err := connector.Watch(context.Background())

		assert.Error(t, err)
		assert.Nil(t, events)
		assert.Contains(t, err.Error(), "root path error")
	})

	t.Run("returns error for a regular file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "file.csv")
		require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
		connector := New(path, 0)

		_, err := connector.Watch(context.Background())

		assert.Error(t, err)
		assert.Contains(t, err.Error(), "not a directory")
	})

	t.Run("closes channel when context is cancelled", func(t *testing.T) {
		connector := New(t.TempDir(), 0)
		defer connector.Close()
		ctx, cancel := context.WithCancel(context.Background())

		events, err := connector.Watch(ctx)
		require.NoError(t, err)

		cancel()

		select {
		case _, ok := <-events:
			assert.False(t, ok)
		case <-time.After(time.Second):
			t.Fatal("channel did not close after context cancellation")
		}
	})

	t.Run("closes channel when connector is closed", func(t *testing.T) {
		connector := New(t.TempDir(), 0)

		events, err := connector.Watch(context.Background())
		require.NoError(t, err)

		require.NoError(t, connector.Close())

		select {
		case _, ok := <-events:
			assert.False(t, ok)
		case <-time.After(time.Second):
			t.Fatal("channel did not close after Close")
		}
	})

	t.Run("returns error when connector is closed", func(t *testing.T) {
		connector := New(t.TempDir(), 0)
		require.NoError(t, connector.Close())

		events, err := connector.Watch(context.Background())

		assert.ErrorIs(t, err, domain.ErrWatcherClosed)
		assert.Nil(t, events)
	})

	t.Run("rejects a second watch", func(t *testing.T) {
		connector := New(t.TempDir(), 0)
		defer connector.Close()

		_, err := connector.Watch(context.Background())
		require.NoError(t, err)
		_, err = connector.Watch(context.Background())

		assert.Error(t, err)
	})
}

func TestConnector_Close(t *testing.T) {
	t.Run("close is idempotent", func(t *testing.T) {
		connector := New("/tmp/test", 0)

		assert.NoError(t, connector.Close())
		assert.NoError(t, connector.Close())
	})
}

func TestIsHidden(t *testing.T) {
	tests := []struct {
		path     string
		expected bool
	}{
		{".hidden", true},
		{"path/to/.hidden", true},
		{"/data/.xgboost_model_20240101_000000.json.x.tmp", true},
		{"file.csv", false},
		{"/home/user/.carat/datasets/new.csv", false},
		{"file.hidden", false},
		{".", false},
		{"..", false},
		{"", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.expected, isHidden(tt.path))
		})
	}
}

func TestHandleFsEvent(t *testing.T) {
	tests := []struct {
		name        string
		setupFile   bool
		setupDir    bool
		setupHidden bool
		operation   fsnotify.Op
		expected    bool
		kind        domain.WatchEventKind
	}{
		{name: "create file", setupFile: true, operation: fsnotify.Create, expected: true, kind: domain.WatchCreated},
		{name: "write file", setupFile: true, operation: fsnotify.Write, expected: true, kind: domain.WatchModified},
		{name: "write and chmod", setupFile: true, operation: fsnotify.Write | fsnotify.Chmod, expected: true, kind: domain.WatchModified},
		{name: "remove file", operation: fsnotify.Remove},
		{name: "rename file", operation: fsnotify.Rename},
		{name: "chmod only", setupFile: true, operation: fsnotify.Chmod},
		{name: "create directory", setupDir: true, operation: fsnotify.Create},
		{name: "create hidden file", setupHidden: true, operation: fsnotify.Create},
		{name: "write vanished file", operation: fsnotify.Write},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tempDir := t.TempDir()

			var eventPath string
			switch {
			case tt.setupDir:
				eventPath = filepath.Join(tempDir, "testdir")
				require.NoError(t, os.Mkdir(eventPath, 0755))
			case tt.setupHidden:
				eventPath = filepath.Join(tempDir, ".hidden.csv")
				require.NoError(t, os.WriteFile(eventPath, []byte("hidden"), 0644))
			case tt.setupFile:
				eventPath = filepath.Join(tempDir, "data.csv")
				require.NoError(t, os.WriteFile(eventPath, []byte("content"), 0644))
			default:
				eventPath = filepath.Join(tempDir, "gone.csv")
			}

			connector := New(tempDir, 0)
			change := connector.handleFsEvent(fsnotify.Event{Name: eventPath, Op: tt.operation})

			if tt.expected {
				require.NotNil(t, change)
				assert.Equal(t, tt.kind, change.Kind)
				assert.Equal(t, eventPath, change.Path)
			} else {
				assert.Nil(t, change)
			}
		})
	}

	t.Run("file outside root", func(t *testing.T) {
		root := t.TempDir()
		other := filepath.Join(t.TempDir(), "data.csv")
		require.NoError(t, os.WriteFile(other, []byte("x"), 0644))

		change := New(root, 0).handleFsEvent(fsnotify.Event{Name: other, Op: fsnotify.Create})

		assert.Nil(t, change)
	})
}
