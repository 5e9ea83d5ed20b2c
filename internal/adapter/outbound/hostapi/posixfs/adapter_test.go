package posixfs

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/fxtack/fileguardcore/internal/domain/intercept"
	"github.com/fxtack/fileguardcore/internal/domain/monitor"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeHooks records every call the adapter makes, so tests can assert
// on translation from fsnotify events to pipeline callbacks without a
// real rule store.
type fakeHooks struct {
	mu        sync.Mutex
	preOpens  []string
	writes    []string
	setInfos  []monitor.Record
	cleanups  int
	denyWrite bool
}

func (f *fakeHooks) PreOpen(_ context.Context, path string) (intercept.PreResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.preOpens = append(f.preOpens, path)
	return intercept.PreResult{Decision: intercept.AllowAndTrack, NormalizedPath: path}, nil
}

func (f *fakeHooks) PostOpen(result intercept.PreResult, octx *intercept.PerOpenContext, volumeSerial uint64, fileID [16]byte) {
	octx.Classify(result.Major, result.Minor, volumeSerial, fileID, result.NormalizedPath)
}

func (f *fakeHooks) PreWrite(_ *intercept.PerOpenContext, rec monitor.Record) intercept.PreResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, rec.OriginalPath)
	if f.denyWrite {
		return intercept.PreResult{Decision: intercept.Deny, Status: intercept.StatusAccessDenied}
	}
	return intercept.PreResult{Decision: intercept.Allow}
}

func (f *fakeHooks) PreSetInformation(_ context.Context, _ *intercept.PerOpenContext, kind monitor.SetInformationKind, destPath string, rec monitor.Record) (intercept.PreResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec.SetInfoKind = kind
	rec.RenameTargetPath = destPath
	f.setInfos = append(f.setInfos, rec)
	return intercept.PreResult{Decision: intercept.Allow, NormalizedPath: destPath}, nil
}

func (f *fakeHooks) Cleanup(_ *intercept.PerOpenContext, _ monitor.Record) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleanups++
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestAdapter_CreateTriggersPreOpen(t *testing.T) {
	root := t.TempDir()
	hooks := &fakeHooks{}
	a := New(hooks, testLogger(), []string{root})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = a.Run(ctx) }()

	time.Sleep(50 * time.Millisecond) // let the watcher attach to root

	target := filepath.Join(root, "secret.txt")
	if err := os.WriteFile(target, []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}

	waitFor(t, time.Second, func() bool {
		hooks.mu.Lock()
		defer hooks.mu.Unlock()
		return len(hooks.preOpens) > 0
	})
}

func TestAdapter_WriteTracksExistingStream(t *testing.T) {
	root := t.TempDir()
	hooks := &fakeHooks{}
	a := New(hooks, testLogger(), []string{root})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = a.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)

	target := filepath.Join(root, "file.txt")
	if err := os.WriteFile(target, []byte("first"), 0o644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	waitFor(t, time.Second, func() bool {
		hooks.mu.Lock()
		defer hooks.mu.Unlock()
		return len(hooks.preOpens) > 0
	})

	if err := os.WriteFile(target, []byte("second write"), 0o644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	waitFor(t, time.Second, func() bool {
		hooks.mu.Lock()
		defer hooks.mu.Unlock()
		return len(hooks.writes) > 0
	})
}

func TestAdapter_RemoveTriggersSetInformationAndCleanup(t *testing.T) {
	root := t.TempDir()
	hooks := &fakeHooks{}
	a := New(hooks, testLogger(), []string{root})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = a.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)

	target := filepath.Join(root, "doomed.txt")
	if err := os.WriteFile(target, []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	waitFor(t, time.Second, func() bool {
		hooks.mu.Lock()
		defer hooks.mu.Unlock()
		return len(hooks.preOpens) > 0
	})

	if err := os.Remove(target); err != nil {
		t.Fatalf("Remove() error: %v", err)
	}

	waitFor(t, time.Second, func() bool {
		hooks.mu.Lock()
		defer hooks.mu.Unlock()
		return hooks.cleanups > 0 && len(hooks.setInfos) > 0
	})

	hooks.mu.Lock()
	kind := hooks.setInfos[0].SetInfoKind
	hooks.mu.Unlock()
	if kind != monitor.SetInfoDelete {
		t.Errorf("SetInfoKind = %v, want SetInfoDelete", kind)
	}
}

// TestAdapter_RenameResolvesDestinationViaPairedCreate covers the
// fsnotify idiom of a Rename event followed shortly by a Create event
// for the new name in the same directory: the adapter must pair them
// and pass the resolved destination through to PreSetInformation.
func TestAdapter_RenameResolvesDestinationViaPairedCreate(t *testing.T) {
	root := t.TempDir()
	hooks := &fakeHooks{}
	a := New(hooks, testLogger(), []string{root})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = a.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)

	src := filepath.Join(root, "old.txt")
	dst := filepath.Join(root, "new.txt")
	if err := os.WriteFile(src, []byte("x"), 0o644); err != nil {
		t.Fatalf("WriteFile() error: %v", err)
	}
	waitFor(t, time.Second, func() bool {
		hooks.mu.Lock()
		defer hooks.mu.Unlock()
		return len(hooks.preOpens) > 0
	})

	if err := os.Rename(src, dst); err != nil {
		t.Fatalf("Rename() error: %v", err)
	}

	waitFor(t, time.Second, func() bool {
		hooks.mu.Lock()
		defer hooks.mu.Unlock()
		return len(hooks.setInfos) > 0
	})

	hooks.mu.Lock()
	rec := hooks.setInfos[0]
	hooks.mu.Unlock()

	if rec.SetInfoKind != monitor.SetInfoRename {
		t.Errorf("SetInfoKind = %v, want SetInfoRename", rec.SetInfoKind)
	}
	if rec.OriginalPath != src {
		t.Errorf("OriginalPath = %q, want %q", rec.OriginalPath, src)
	}
	if rec.RenameTargetPath != dst {
		t.Errorf("RenameTargetPath = %q, want %q", rec.RenameTargetPath, dst)
	}
}
