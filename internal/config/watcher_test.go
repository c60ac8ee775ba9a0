package config

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func TestWatchReportsDebouncedChanges(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("log_level: info\n"), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	notified := make(chan struct{}, 8)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, 50*time.Millisecond, func() {
			calls.Add(1)
			notified <- struct{}{}
		})
	}()

	// Give the watcher time to register the directory.
	time.Sleep(100 * time.Millisecond)

	// Unrelated files in the same directory are ignored.
	if err := os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0o600); err != nil {
		t.Fatalf("write other file: %v", err)
	}
	for i := range 3 {
		content := []byte("log_level: debug\n# " + string(rune('a'+i)) + "\n")
		if err := os.WriteFile(path, content, 0o600); err != nil {
			t.Fatalf("rewrite config: %v", err)
		}
	}

	select {
	case <-notified:
	case <-time.After(5 * time.Second):
		t.Fatal("Watch() did not report the change")
	}
	time.Sleep(200 * time.Millisecond)
	if got := calls.Load(); got != 1 {
		t.Fatalf("notify calls = %d, want 1 for one burst", got)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Watch() error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Watch() did not return after cancel")
	}
}

func TestWatchMissingDirectoryFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "config.yaml")
	err := Watch(context.Background(), path, 0, func() {})
	if err == nil {
		t.Fatal("Watch() expected error for missing directory")
	}
}
