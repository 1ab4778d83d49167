/*-------------------------------------------------------------------------
 *
 * kdb+/q Console
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"kdb-q-console/internal/config"
	"kdb-q-console/internal/crypto"
)

func TestReadQuery(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		stdin   string
		want    string
		wantErr bool
	}{
		{"args", []string{"select", "from", "trade"}, "", "select from trade", false},
		{"stdin", nil, "  til 10\n", "til 10", false},
		{"empty stdin", nil, "\n", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := readQuery(tt.args, strings.NewReader(tt.stdin))
			if (err != nil) != tt.wantErr {
				t.Fatalf("readQuery() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("readQuery() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOpenSessionWithoutServer(t *testing.T) {
	_, err := openSession(context.Background(), &config.Config{})
	if err == nil || !strings.Contains(err.Error(), "no server given") {
		t.Errorf("openSession() error = %v", err)
	}

	_, err = openSession(context.Background(), &config.Config{DefaultServer: "nohost"})
	if err == nil {
		t.Error("openSession() with invalid server succeeded")
	}
}

func TestSessionOptions(t *testing.T) {
	dir := t.TempDir()
	secret := filepath.Join(dir, "secret")

	cfg := &config.Config{
		SecretFile: secret,
		Connection: config.ConnectionConfig{Timeout: "3s", Capability: 3},
	}

	opts, err := sessionOptions(cfg)
	if err != nil {
		t.Fatalf("sessionOptions() error = %v", err)
	}
	if opts.Decrypter != nil {
		t.Error("Decrypter set without a secret file")
	}
	if opts.Timeout.Seconds() != 3 || opts.Capability != 3 {
		t.Errorf("opts = %+v", opts)
	}

	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatal(err)
	}
	if err := key.SaveToFile(secret); err != nil {
		t.Fatal(err)
	}
	opts, err = sessionOptions(cfg)
	if err != nil {
		t.Fatalf("sessionOptions() error = %v", err)
	}
	if opts.Decrypter == nil {
		t.Error("Decrypter not loaded from secret file")
	}

	if err := os.Chmod(secret, 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := sessionOptions(cfg); err == nil {
		t.Error("sessionOptions() accepted a world-readable secret")
	}

	cfg.Connection.Timeout = "soon"
	if _, err := sessionOptions(cfg); err == nil {
		t.Error("sessionOptions() accepted an invalid timeout")
	}
}
