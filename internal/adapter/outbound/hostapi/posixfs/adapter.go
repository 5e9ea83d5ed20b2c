// Package posixfs is the reference hostapi.Hooks driver (§2 component
// G): it watches a directory tree with fsnotify and feeds observed
// filesystem activity through the interception pipeline. It is a
// development/test harness, not a production minifilter — fsnotify
// reports events after the kernel has already completed them, so
// "denying" an operation here means logging the decision the pipeline
// made, not actually blocking I/O. A real minifilter driver completes
// requests before the filesystem does the work; this one does not.
package posixfs

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sys/unix"

	"github.com/fxtack/fileguardcore/internal/domain/intercept"
	"github.com/fxtack/fileguardcore/internal/domain/monitor"
	"github.com/fxtack/fileguardcore/internal/port/outbound"
)

// renameResolutionWindow bounds how long the adapter waits for the
// fsnotify Create event that pairs with a same-directory Rename event
// before giving up on resolving the rename's destination name.
const renameResolutionWindow = 50 * time.Millisecond

// Adapter recursively watches Roots and drives Hooks from the
// observed events.
type Adapter struct {
	hooks  outbound.Hooks
	logger *slog.Logger
	roots  []string

	watcher *fsnotify.Watcher

	mu      sync.Mutex
	streams map[string]*intercept.PerOpenContext

	// pendingRenameSrc/pendingTimer track a Rename event awaiting the
	// paired Create event fsnotify emits for the destination name —
	// the standard fsnotify idiom for resolving a rename's new path.
	pendingRenameSrc string
	pendingTimer     *time.Timer
}

// New builds an Adapter over hooks, watching roots recursively once
// Run is called.
func New(hooks outbound.Hooks, logger *slog.Logger, roots []string) *Adapter {
	return &Adapter{
		hooks:   hooks,
		logger:  logger,
		roots:   roots,
		streams: make(map[string]*intercept.PerOpenContext),
	}
}

// Run watches all configured roots and feeds events into Hooks until
// ctx is canceled.
func (a *Adapter) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("posixfs: new watcher: %w", err)
	}
	a.watcher = watcher
	defer func() { _ = watcher.Close() }()

	for _, root := range a.roots {
		if err := a.addRecursive(root); err != nil {
			return fmt.Errorf("posixfs: watch %s: %w", root, err)
		}
	}
	a.logger.Info("posixfs adapter watching", "roots", a.roots)

	for {
		var timeoutC <-chan time.Time
		if a.pendingTimer != nil {
			timeoutC = a.pendingTimer.C
		}

		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			a.handleEvent(ctx, event)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			a.logger.Error("posixfs watcher error", "error", err)

		case <-timeoutC:
			// No paired Create arrived in time; resolve the rename with
			// an unknown destination rather than block indefinitely.
			a.resolvePendingRename(ctx, "")
		}
	}
}

// addRecursive adds root and every directory beneath it to the
// watcher, mirroring the hot-reload watcher pattern of recursively
// registering each subdirectory up front.
func (a *Adapter) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return a.watcher.Add(path)
		}
		return nil
	})
}

func (a *Adapter) handleEvent(ctx context.Context, event fsnotify.Event) {
	switch {
	case event.Op&fsnotify.Create != 0:
		if a.pendingTimer != nil {
			a.resolvePendingRename(ctx, event.Name)
			return
		}
		a.handleCreate(ctx, event.Name)
	case event.Op&fsnotify.Write != 0:
		a.handleWrite(ctx, event.Name)
	case event.Op&fsnotify.Rename != 0:
		a.beginRename(ctx, event.Name)
	case event.Op&fsnotify.Remove != 0:
		a.handleSetInformation(ctx, event.Name, monitor.SetInfoDelete, "")
	case event.Op&fsnotify.Chmod != 0:
		// Metadata-only change outside the pipeline's scope; ignored.
	}
}

// beginRename starts the resolution window for a Rename event at
// srcPath. A rename already pending resolution is flushed first with
// an unknown destination, since fsnotify never pairs a Rename with
// more than one Create.
func (a *Adapter) beginRename(ctx context.Context, srcPath string) {
	if a.pendingTimer != nil {
		a.pendingTimer.Stop()
		a.resolvePendingRename(ctx, "")
	}
	a.pendingRenameSrc = srcPath
	a.pendingTimer = time.NewTimer(renameResolutionWindow)
}

// resolvePendingRename completes the pending rename begun by
// beginRename, dispatching it through handleSetInformation with
// destPath as the resolved destination ("" if it could not be
// resolved within renameResolutionWindow).
func (a *Adapter) resolvePendingRename(ctx context.Context, destPath string) {
	srcPath := a.pendingRenameSrc
	a.pendingRenameSrc = ""
	a.pendingTimer = nil
	a.handleSetInformation(ctx, srcPath, monitor.SetInfoRename, destPath)
}

func (a *Adapter) handleCreate(ctx context.Context, path string) {
	info, err := os.Lstat(path)
	if err != nil {
		return
	}
	if info.IsDir() {
		if err := a.watcher.Add(path); err != nil {
			a.logger.Warn("posixfs: failed to watch new directory", "path", path, "error", err)
		}
		return
	}

	result, err := a.hooks.PreOpen(ctx, path)
	if err != nil {
		a.logger.Error("posixfs: pre-open failed", "path", path, "error", err)
		return
	}
	if result.Decision == intercept.Deny {
		a.logger.Info("posixfs: would deny open", "path", path, "status", result.Status)
		return
	}

	volumeSerial, fileID := statIdentity(path)
	octx := &intercept.PerOpenContext{}
	a.hooks.PostOpen(result, octx, volumeSerial, fileID)

	a.mu.Lock()
	a.streams[path] = octx
	a.mu.Unlock()
}

func (a *Adapter) handleWrite(ctx context.Context, path string) {
	octx := a.streamFor(ctx, path)
	if octx == nil {
		return
	}
	rec := a.baseRecord(path, monitor.OpWrite)
	result := a.hooks.PreWrite(octx, rec)
	if result.Decision == intercept.Deny {
		a.logger.Info("posixfs: would deny write", "path", path, "status", result.Status)
	}
}

func (a *Adapter) handleSetInformation(ctx context.Context, path string, kind monitor.SetInformationKind, destPath string) {
	a.mu.Lock()
	octx, tracked := a.streams[path]
	delete(a.streams, path)
	a.mu.Unlock()

	if !tracked {
		octx = a.streamFor(ctx, path)
		if octx == nil {
			return
		}
	}

	rec := a.baseRecord(path, monitor.OpSetInformation)
	result, err := a.hooks.PreSetInformation(ctx, octx, kind, destPath, rec)
	if err != nil {
		a.logger.Error("posixfs: pre-set-information failed", "path", path, "error", err)
	} else if result.Decision == intercept.Deny {
		a.logger.Info("posixfs: would deny set-information", "path", path, "status", result.Status, "kind", kind)
	}

	if kind == monitor.SetInfoRename && destPath != "" {
		// Same underlying file, now at destPath: keep its context alive
		// under the new name instead of tearing it down.
		a.mu.Lock()
		a.streams[destPath] = octx
		a.mu.Unlock()
		return
	}

	cleanupRec := a.baseRecord(path, monitor.OpClose)
	a.hooks.Cleanup(octx, cleanupRec)
}

// streamFor returns the tracked PerOpenContext for path, classifying
// it lazily via PreOpen/PostOpen if the adapter observed activity on
// a stream it never saw created (e.g. it predates watcher startup).
func (a *Adapter) streamFor(ctx context.Context, path string) *intercept.PerOpenContext {
	a.mu.Lock()
	octx, ok := a.streams[path]
	a.mu.Unlock()
	if ok {
		return octx
	}

	result, err := a.hooks.PreOpen(ctx, path)
	if err != nil {
		a.logger.Error("posixfs: lazy pre-open failed", "path", path, "error", err)
		return nil
	}
	volumeSerial, fileID := statIdentity(path)
	octx = &intercept.PerOpenContext{}
	a.hooks.PostOpen(result, octx, volumeSerial, fileID)

	a.mu.Lock()
	a.streams[path] = octx
	a.mu.Unlock()
	return octx
}

func (a *Adapter) baseRecord(path string, op monitor.OperationKind) monitor.Record {
	return monitor.Record{
		Op:           op,
		RequestorPID: uint64(os.Getpid()),
		CapturedAt:   time.Now(),
		OriginalPath: path,
	}
}

// statIdentity derives device/inode numbers standing in for the
// volumeSerial/fileId pair a real minifilter reads from the volume
// (§2 component G). A missing or already-removed file yields zeros.
func statIdentity(path string) (volumeSerial uint64, fileID [16]byte) {
	var st unix.Stat_t
	if err := unix.Lstat(path, &st); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return 0, fileID
		}
		return 0, fileID
	}
	volumeSerial = uint64(st.Dev)
	inode := uint64(st.Ino)
	for i := 0; i < 8; i++ {
		fileID[i] = byte(inode >> (8 * i))
	}
	return volumeSerial, fileID
}
