package replica

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/natefinch/atomic"

	"github.com/roach88/focal/internal/snapshot"
	"github.com/roach88/focal/internal/state"
)

// FileChannel exchanges snapshots through a shared file: Publish atomically
// replaces the file with the export envelope, and every other replica
// watching the same path gets the new document. The watcher observes the
// parent directory because atomic replacement renames a fresh file over the
// old one, which would silently detach a watch on the file itself.
type FileChannel struct {
	path   string
	logger *slog.Logger

	watcher *fsnotify.Watcher
	snaps   chan Snapshot
	errs    chan error
	done    chan struct{}
	wg      sync.WaitGroup

	mu       sync.Mutex
	lastSeen string
	running  bool
	closed   bool
}

// NewFileChannel creates a channel over the shared file at path. The channel
// must be started with Start before it delivers snapshots. A nil logger
// falls back to slog.Default().
func NewFileChannel(path string, logger *slog.Logger) (*FileChannel, error) {
	if logger == nil {
		logger = slog.Default()
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create fsnotify watcher: %w", err)
	}
	return &FileChannel{
		path:    path,
		logger:  logger,
		watcher: watcher,
		snaps:   make(chan Snapshot, 16),
		errs:    make(chan error, 10),
		done:    make(chan struct{}),
	}, nil
}

// Start begins watching the shared file's directory for replacements.
func (fc *FileChannel) Start() error {
	fc.mu.Lock()
	defer fc.mu.Unlock()

	if fc.running {
		return fmt.Errorf("file channel already running")
	}

	dir := filepath.Dir(fc.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create shared directory: %w", err)
	}
	if err := fc.watcher.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	fc.running = true
	fc.wg.Add(1)
	go fc.processEvents()
	return nil
}

// Close stops watching and closes the delivery channels. Idempotent; blocks
// until the event loop has exited.
func (fc *FileChannel) Close() error {
	fc.mu.Lock()
	if fc.closed {
		fc.mu.Unlock()
		return nil
	}
	fc.closed = true
	wasRunning := fc.running
	fc.running = false
	fc.mu.Unlock()

	close(fc.done)
	err := fc.watcher.Close()
	if wasRunning {
		fc.wg.Wait()
	}
	close(fc.snaps)
	close(fc.errs)
	if err != nil {
		return fmt.Errorf("close watcher: %w", err)
	}
	return nil
}

// Publish atomically replaces the shared file with the document's export
// envelope. The digest is recorded first so the replica's own file event is
// dropped as an echo.
func (fc *FileChannel) Publish(ctx context.Context, st *state.State) error {
	raw, err := snapshot.Export(st, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	digest, err := state.Digest(st)
	if err != nil {
		return fmt.Errorf("publish: %w", err)
	}

	// One-shot publishers never Start a watch, so the directory may not
	// exist yet.
	if dir := filepath.Dir(fc.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("publish: %w", err)
		}
	}

	fc.mu.Lock()
	fc.lastSeen = digest
	fc.mu.Unlock()

	if err := atomic.WriteFile(fc.path, bytes.NewReader(raw)); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

// Current reads the shared file as it is right now. found is false when no
// replica has published yet. The read document counts as seen, so it is not
// re-delivered by the watch.
func (fc *FileChannel) Current() (st *state.State, digest string, found bool, err error) {
	raw, err := os.ReadFile(fc.path)
	if os.IsNotExist(err) {
		return nil, "", false, nil
	}
	if err != nil {
		return nil, "", false, fmt.Errorf("read shared file: %w", err)
	}

	st, err = snapshot.Import(raw)
	if err != nil {
		return nil, "", false, fmt.Errorf("decode shared file: %w", err)
	}
	digest, err = state.Digest(st)
	if err != nil {
		return nil, "", false, err
	}

	fc.mu.Lock()
	fc.lastSeen = digest
	fc.mu.Unlock()
	return st, digest, true, nil
}

// Snapshots delivers documents published by other replicas.
func (fc *FileChannel) Snapshots() <-chan Snapshot {
	return fc.snaps
}

// Errors delivers watch errors. Decode failures are not errors: a corrupt
// or foreign file is logged and ignored.
func (fc *FileChannel) Errors() <-chan error {
	return fc.errs
}

func (fc *FileChannel) processEvents() {
	defer fc.wg.Done()

	for {
		select {
		case <-fc.done:
			return

		case event, ok := <-fc.watcher.Events:
			if !ok {
				return
			}
			if !fc.relevant(event) {
				continue
			}
			if snap, ok := fc.readNew(); ok {
				select {
				case fc.snaps <- snap:
				case <-fc.done:
					return
				}
			}

		case err, ok := <-fc.watcher.Errors:
			if !ok {
				return
			}
			select {
			case fc.errs <- err:
			case <-fc.done:
				return
			}
		}
	}
}

// relevant reports whether a directory event is a replacement of the shared
// file. Atomic replacement surfaces as Create (rename onto the name); plain
// writes surface as Write.
func (fc *FileChannel) relevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != filepath.Clean(fc.path) {
		return false
	}
	return event.Has(fsnotify.Create) || event.Has(fsnotify.Write)
}

// readNew loads the shared file and decides whether it is news: unreadable
// or invalid content is ignored, and so is anything whose digest matches the
// last snapshot seen (our own write, or a no-op replace).
func (fc *FileChannel) readNew() (Snapshot, bool) {
	raw, err := os.ReadFile(fc.path)
	if err != nil {
		fc.logger.Warn("shared file unreadable, ignoring event", "path", fc.path, "error", err)
		return Snapshot{}, false
	}

	st, err := snapshot.Import(raw)
	if err != nil {
		// Surfaced so a watcher can re-assert its own document over the
		// contradictory bytes.
		fc.logger.Warn("shared file is not a valid snapshot, ignoring", "path", fc.path, "error", err)
		select {
		case fc.errs <- fmt.Errorf("invalid snapshot at %s: %w", fc.path, err):
		default:
		}
		return Snapshot{}, false
	}
	digest, err := state.Digest(st)
	if err != nil {
		fc.logger.Warn("snapshot digest failed, ignoring", "error", err)
		return Snapshot{}, false
	}

	fc.mu.Lock()
	defer fc.mu.Unlock()
	if digest == fc.lastSeen {
		return Snapshot{}, false
	}
	fc.lastSeen = digest
	return Snapshot{Digest: digest, State: st}, true
}
