package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"

	"preflight/internal/manifest"
)

func startWatchLoop(t *testing.T, ws, path string, onChange func()) (cancel func(), done chan error) {
	t.Helper()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	t.Cleanup(func() { watcher.Close() })
	if err := watcher.Add(ws); err != nil {
		t.Fatalf("watcher.Add failed: %v", err)
	}

	ctx, stop := context.WithCancel(context.Background())
	t.Cleanup(stop)

	done = make(chan error, 1)
	go func() {
		done <- watchLoop(ctx, watcher, path, 20*time.Millisecond, onChange)
	}()
	return stop, done
}

func TestWatchLoopDispatchesManifestChanges(t *testing.T) {
	ws := t.TempDir()
	setGlobals(t, ws)
	path := filepath.Join(ws, manifest.DefaultFilename)
	if err := os.WriteFile(path, []byte("version: 1\n"), 0644); err != nil {
		t.Fatal(err)
	}

	changes := make(chan struct{}, 8)
	cancel, done := startWatchLoop(t, ws, path, func() { changes <- struct{}{} })

	// A save burst coalesces into at least one dispatch.
	if err := os.WriteFile(path, []byte("version: 1 # a\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("version: 1 # b\n"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-changes:
	case <-time.After(3 * time.Second):
		t.Fatal("manifest change never dispatched")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("watchLoop returned error: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("watchLoop did not return after cancellation")
	}
}

func TestWatchLoopIgnoresOtherFiles(t *testing.T) {
	ws := t.TempDir()
	setGlobals(t, ws)
	path := filepath.Join(ws, manifest.DefaultFilename)
	if err := os.WriteFile(path, []byte("version: 1\n"), 0644); err != nil {
		t.Fatal(err)
	}

	changes := make(chan struct{}, 8)
	cancel, done := startWatchLoop(t, ws, path, func() { changes <- struct{}{} })
	defer func() {
		cancel()
		<-done
	}()

	if err := os.WriteFile(filepath.Join(ws, "unrelated.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	select {
	case <-changes:
		t.Fatal("dispatch fired for an unrelated file")
	case <-time.After(200 * time.Millisecond):
	}
}
