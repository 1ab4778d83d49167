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
	"strings"
	"testing"
	"time"

	"kdb-q-console/internal/servers"
)

// isolate points HOME at a temp dir and clears the environment overrides
func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	for _, key := range []string{"KDBQ_SERVER", "KDBQ_VIEW", "KDBQ_SECRET_FILE", "NO_COLOR"} {
		t.Setenv(key, "")
	}
	return home
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
	return path
}

func TestDefaultConfig(t *testing.T) {
	home := isolate(t)
	cfg := defaultConfig()

	if cfg.Display.View != ViewConsole {
		t.Errorf("Expected default view %q, got %q", ViewConsole, cfg.Display.View)
	}
	if cfg.Display.ColumnSeparator != " " {
		t.Errorf("Expected default separator ' ', got %q", cfg.Display.ColumnSeparator)
	}
	if cfg.SecretFile != filepath.Join(home, ".kdbq-secret") {
		t.Errorf("Unexpected default secret file %s", cfg.SecretFile)
	}
	if cfg.GroupMode() != servers.GroupNone {
		t.Errorf("Expected group mode none, got %s", cfg.GroupMode())
	}
	if d, err := cfg.Timeout(); err != nil || d != 10*time.Second {
		t.Errorf("Timeout() = %v, %v, want 10s", d, err)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config should be valid: %v", err)
	}
}

func TestLoadConfigFile(t *testing.T) {
	home := isolate(t)
	path := writeFile(t, home, "kdbq.yaml", `
servers:
  - "localhost:5001"
  - "kdb1:5002:trader:secret"
server_group_mode: hostname
secret_file: ~/keys/secret
connection:
  timeout: 2s
display:
  view: grid
  max_rows: 50
`)

	cfg, err := LoadConfig(path, CLIFlags{ConfigFileSet: true, ConfigFile: path})
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}

	if len(cfg.Servers) != 2 || cfg.ServerList()[1].User != "trader" {
		t.Errorf("Unexpected servers %v", cfg.Servers)
	}
	if cfg.GroupMode() != servers.GroupHostname {
		t.Errorf("Expected hostname grouping, got %s", cfg.GroupMode())
	}
	if cfg.SecretFile != filepath.Join(home, "keys", "secret") {
		t.Errorf("Expected expanded secret file, got %s", cfg.SecretFile)
	}
	if cfg.Display.View != ViewGrid || cfg.Display.MaxRows != 50 {
		t.Errorf("Unexpected display config %+v", cfg.Display)
	}
	// Unset values keep their defaults
	if cfg.Display.ColumnSeparator != " " || cfg.Connection.Capability != 3 {
		t.Errorf("Defaults lost: %+v %+v", cfg.Display, cfg.Connection)
	}
	if d, _ := cfg.Timeout(); d != 2*time.Second {
		t.Errorf("Timeout() = %v, want 2s", d)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	home := isolate(t)
	missing := filepath.Join(home, "missing.yaml")

	if _, err := LoadConfig(missing, CLIFlags{}); err != nil {
		t.Errorf("Missing default file should be ignored: %v", err)
	}
	if _, err := LoadConfig(missing, CLIFlags{ConfigFileSet: true}); err == nil {
		t.Error("Expected error for missing explicit config file")
	}
}

func TestLoadConfigPriority(t *testing.T) {
	home := isolate(t)
	path := writeFile(t, home, "kdbq.yaml", "display:\n  view: grid\ndefault_server: a:1\n")

	t.Setenv("KDBQ_VIEW", "document")
	t.Setenv("KDBQ_SERVER", "b:2")
	t.Setenv("NO_COLOR", "1")

	cfg, err := LoadConfig(path, CLIFlags{})
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Display.View != ViewDocument || cfg.DefaultServer != "b:2" || !cfg.Display.NoColor {
		t.Errorf("Environment should override file: %+v %s", cfg.Display, cfg.DefaultServer)
	}

	cfg, err = LoadConfig(path, CLIFlags{
		View: ViewConsole, ViewSet: true,
		Server: "c:3", ServerSet: true,
		NoColor: false, NoColorSet: true,
	})
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.Display.View != ViewConsole || cfg.DefaultServer != "c:3" || cfg.Display.NoColor {
		t.Errorf("Flags should override environment: %+v %s", cfg.Display, cfg.DefaultServer)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{"bad view", func(c *Config) { c.Display.View = "chart" }, "invalid view"},
		{"bad group mode", func(c *Config) { c.ServerGroupMode = "port" }, "group mode"},
		{"bad server", func(c *Config) { c.Servers = []string{"nohost"} }, "invalid server"},
		{"negative rows", func(c *Config) { c.Display.MaxRows = -1 }, "max_rows"},
		{"bad timeout", func(c *Config) { c.Connection.Timeout = "soon" }, "timeout"},
		{"bad capability", func(c *Config) { c.Connection.Capability = 9 }, "capability"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			tt.modify(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestFindConfigFile(t *testing.T) {
	home := isolate(t)
	if got := FindConfigFile("explicit.yaml"); got != "explicit.yaml" {
		t.Errorf("FindConfigFile(explicit) = %q", got)
	}

	path := writeFile(t, home, ".kdbq.yaml", "servers: []\n")
	wd, _ := os.Getwd()
	if !ConfigFileExists(filepath.Join(wd, ".kdbq.yaml")) {
		if got := FindConfigFile(""); got != path {
			t.Errorf("FindConfigFile() = %q, want %q", got, path)
		}
	}
}

func TestSaveConfig(t *testing.T) {
	home := isolate(t)
	path := filepath.Join(home, "nested", "kdbq.yaml")
	cfg := defaultConfig()
	cfg.Servers = []string{"localhost:5001"}

	if err := SaveConfig(path, cfg); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("Expected mode 0600, got %o", info.Mode().Perm())
	}

	loaded, err := LoadConfig(path, CLIFlags{ConfigFileSet: true})
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if len(loaded.Servers) != 1 || loaded.Servers[0] != "localhost:5001" {
		t.Errorf("Unexpected servers after save: %v", loaded.Servers)
	}
}

func TestPreferences(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "prefs.yaml")

	prefs, err := LoadPreferences(path)
	if err != nil {
		t.Fatalf("LoadPreferences failed: %v", err)
	}
	if prefs.LastServer != "" || prefs.View != "" {
		t.Errorf("Expected empty preferences, got %+v", prefs)
	}

	prefs.LastServer = "kdb1:5001"
	prefs.View = ViewGrid
	if err := SavePreferences(path, prefs); err != nil {
		t.Fatalf("SavePreferences failed: %v", err)
	}

	loaded, err := LoadPreferences(path)
	if err != nil {
		t.Fatalf("LoadPreferences failed: %v", err)
	}
	if *loaded != *prefs {
		t.Errorf("Loaded %+v, want %+v", loaded, prefs)
	}

	writeFile(t, dir, "bad.yaml", "last_server: [unclosed")
	if _, err := LoadPreferences(filepath.Join(dir, "bad.yaml")); err == nil {
		t.Error("Expected parse error")
	}
}
