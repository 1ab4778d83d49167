/*-------------------------------------------------------------------------
 *
 * kdb+/q Console - Structured Logging
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected LogLevel
		ok       bool
	}{
		{"debug", LevelDebug, true},
		{"INFO", LevelInfo, true},
		{" warning ", LevelWarn, true},
		{"error", LevelError, true},
		{"verbose", LevelError, false},
		{"", LevelError, false},
	}

	for _, tt := range tests {
		level, ok := ParseLevel(tt.input)
		if level != tt.expected || ok != tt.ok {
			t.Errorf("ParseLevel(%q) = (%v, %v), want (%v, %v)", tt.input, level, ok, tt.expected, tt.ok)
		}
	}
}

func TestLogLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	prevOut := SetOutput(&buf)
	prevLevel := GetLevel()
	defer func() {
		SetOutput(prevOut)
		SetLevel(prevLevel)
	}()

	SetLevel(LevelWarn)
	Debug("hidden")
	Info("hidden")
	Warn("shown", "server", "localhost:5000", "err", errors.New("boom"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 log line, got %d: %q", len(lines), buf.String())
	}

	var entry logEntry
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if entry.Level != "WARN" || entry.Message != "shown" {
		t.Errorf("unexpected entry: %+v", entry)
	}
	if entry.Fields["server"] != "localhost:5000" || entry.Fields["err"] != "boom" {
		t.Errorf("unexpected fields: %v", entry.Fields)
	}
}
