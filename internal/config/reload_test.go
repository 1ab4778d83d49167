/*-------------------------------------------------------------------------
 *
 * kdb+/q Console
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package config

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func TestReloadableConfig(t *testing.T) {
	home := isolate(t)
	path := writeFile(t, home, "kdbq.yaml", "servers: [\"a:1\"]\n")

	cfg, err := LoadConfig(path, CLIFlags{})
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	rc := NewReloadableConfig(cfg, path, CLIFlags{})

	var got *Config
	rc.OnReload(func(c *Config) {
		// Get must not deadlock inside a callback
		if rc.Get() != c {
			t.Error("Get() inside callback returned a stale config")
		}
		got = c
	})

	writeFile(t, home, "kdbq.yaml", "servers: [\"a:1\", \"b:2\"]\n")
	if err := rc.Reload(); err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	if got == nil || len(got.Servers) != 2 {
		t.Errorf("Callback received %+v", got)
	}

	// An invalid file keeps the previous config
	writeFile(t, home, "kdbq.yaml", "display:\n  view: chart\n")
	if err := rc.Reload(); err == nil {
		t.Error("Expected reload error for invalid view")
	}
	if len(rc.Get().Servers) != 2 {
		t.Errorf("Config changed after failed reload: %v", rc.Get().Servers)
	}

	if err := NewReloadableConfig(cfg, "", CLIFlags{}).Reload(); err == nil {
		t.Error("Expected error when no path is set")
	}
}

func TestNewFileWatcherInvalidDirectory(t *testing.T) {
	_, err := NewFileWatcher("/nonexistent/directory/kdbq.yaml", func() error { return nil })
	if err == nil {
		t.Fatal("Expected error for invalid directory, got nil")
	}
}

func TestWatcherReloadOnWrite(t *testing.T) {
	dir := t.TempDir()
	testFile := filepath.Join(dir, "kdbq.yaml")
	if err := os.WriteFile(testFile, []byte("initial"), 0600); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	var mu sync.Mutex
	reloads := 0
	watcher, err := NewFileWatcher(testFile, func() error {
		mu.Lock()
		defer mu.Unlock()
		reloads++
		return nil
	})
	if err != nil {
		t.Fatalf("NewFileWatcher failed: %v", err)
	}
	watcher.Start()
	defer watcher.Stop()

	// Unrelated files in the directory are ignored
	if err := os.WriteFile(filepath.Join(dir, "other.yaml"), []byte("x"), 0600); err != nil {
		t.Fatalf("Failed to write other file: %v", err)
	}

	// Writes in quick succession are debounced
	for i := 0; i < 3; i++ {
		if err := os.WriteFile(testFile, []byte("modified"), 0600); err != nil {
			t.Fatalf("Failed to modify test file: %v", err)
		}
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		n := reloads
		mu.Unlock()
		if n > 0 {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}

	mu.Lock()
	defer mu.Unlock()
	if reloads == 0 || reloads > 3 {
		t.Errorf("Expected debounced reloads, got %d", reloads)
	}
}
